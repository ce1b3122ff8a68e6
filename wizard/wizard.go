// Package wizard implements the connection-setup flow as a pure state
// machine: one transition function over (State, Event) returning the
// next State plus an Effect describing any async work the caller must
// run. The UI layer owns rendering and effect execution; everything
// decision-shaped lives here so the full step graph is unit-testable
// without a terminal.
package wizard

import (
	"lynkd/config"
	"lynkd/connection"
)

// Step identifies the wizard's current screen.
type Step int

const (
	StepPreferences Step = iota
	StepProviderSelect
	StepMethodSelect
	StepCredentials
	StepAuthCodeWait
	StepCompletion
)

// Variant selects the credentials-entry form shown on StepCredentials.
type Variant string

const (
	VariantAPIKey       Variant = "api_key"
	VariantOAuthBrowser Variant = "oauth_browser"
	VariantOAuthDevice  Variant = "oauth_device"
	VariantLocalModel   Variant = "local_model"
)

// Status tracks the async validation state of the current step.
type Status int

const (
	StatusIdle Status = iota
	StatusValidating
	StatusSuccess
	StatusError
)

// CompletionPhase distinguishes the two halves of the terminal step.
type CompletionPhase int

const (
	PhaseSaving CompletionPhase = iota
	PhaseComplete
)

// Draft holds the user-entered field values of the credentials step.
// Values survive Back so the user never retypes a field.
type Draft struct {
	Name         string
	Credential   string
	Endpoint     string
	DefaultModel string
	KeyMasked    bool // credential field shows a redacted placeholder (edit mode)
}

// DevicePrompt is the user-facing half of a device-code authorization.
type DevicePrompt struct {
	UserCode        string
	VerificationURI string
}

// State is the complete wizard state. It is a value; Reduce never
// mutates its input.
type State struct {
	Step    Step
	Variant Variant

	Provider    connection.ProviderType
	SubProvider string

	Draft         Draft
	Status        Status
	StatusMessage string

	Device     *DevicePrompt
	Completion CompletionPhase

	// Edit mode: re-entering the flow for an existing connection.
	Editing  bool
	EditSlug string

	// Slugs already taken; consulted on every new connection name.
	ExistingSlugs []string

	Security config.SecurityMethod

	firstRun          bool
	visitedMethodStep bool
}

// NewState opens the wizard for adding a connection.
func NewState(existingSlugs []string) State {
	return State{
		Step:          StepProviderSelect,
		ExistingSlugs: existingSlugs,
		Security:      config.SecurityPlainText,
	}
}

// NewFirstRunState opens the wizard at the preference step, shown only
// when no configuration exists yet.
func NewFirstRunState() State {
	s := NewState(nil)
	s.Step = StepPreferences
	s.firstRun = true
	return s
}

// NewEditState opens the wizard directly on the credentials step for an
// existing connection, seeded with its redacted current values.
func NewEditState(conn *connection.Connection, existingSlugs []string) State {
	s := NewState(existingSlugs)
	s.Editing = true
	s.EditSlug = conn.Slug
	s.Provider = conn.Provider
	s.SubProvider = conn.SubProvider
	s.Variant = variantFor(conn.Provider)
	s.Step = StepCredentials
	s.Draft = Draft{
		Name:         conn.Name,
		Endpoint:     conn.Endpoint,
		DefaultModel: conn.DefaultModel,
		KeyMasked:    conn.Provider == connection.ProviderAPIKey || conn.Provider == connection.ProviderCustom,
	}
	return s
}

func variantFor(pt connection.ProviderType) Variant {
	switch pt {
	case connection.ProviderOAuth:
		return VariantOAuthBrowser
	case connection.ProviderDeviceOAuth:
		return VariantOAuthDevice
	case connection.ProviderLocal:
		return VariantLocalModel
	default:
		return VariantAPIKey
	}
}

// Event is a wizard input: a user action or the result of an effect.
type Event interface{ isEvent() }

// SelectPreference records the credential-security choice on the
// first-run preference step.
type SelectPreference struct{ Method config.SecurityMethod }

// SelectProvider records the backend choice. SubProvider carries the
// provider tag ("anthropic", "openai", "copilot"); it is empty for
// local and custom backends.
type SelectProvider struct {
	Provider    connection.ProviderType
	SubProvider string
}

// SelectMethod resolves the API-key-vs-subscription choice for
// providers that offer both.
type SelectMethod struct{ Variant Variant }

// SetDraft syncs edited field values into the state without validating
// or advancing, so Back and OAuth starts see current entries.
type SetDraft struct{ Draft Draft }

// SubmitCredential submits the credentials form for key-style variants.
type SubmitCredential struct{ Draft Draft }

// SubmitLocalModel submits the local-backend form; no credential check.
type SubmitLocalModel struct{ Draft Draft }

// StartOAuth begins the authorization for the current OAuth variant.
type StartOAuth struct{}

// SubmitAuthCode delivers the pasted authorization code.
type SubmitAuthCode struct{ Code string }

// CancelOAuth aborts an in-flight authorization.
type CancelOAuth struct{}

// Back pops to the preceding step, keeping entered field values.
type Back struct{}

// JumpToCredentials re-enters the credentials step for an existing
// connection (edit mode), bypassing provider and method selection.
type JumpToCredentials struct {
	Slug    string
	Variant Variant
	Seed    Draft
}

// Reset returns to the initial step and clears all draft state.
type Reset struct{}

// ValidationDone is the async result of a connectivity test.
type ValidationDone struct{ Result connection.ValidationResult }

// DeviceCodeReady carries the user code once the device flow starts.
type DeviceCodeReady struct{ Prompt DevicePrompt }

// OAuthDone is the async result of an authorization (code exchange or
// device confirmation).
type OAuthDone struct{ Result connection.ValidationResult }

// Saved is the async result of persisting the connection.
type Saved struct{ Err error }

func (SelectPreference) isEvent()  {}
func (SelectProvider) isEvent()    {}
func (SelectMethod) isEvent()      {}
func (SetDraft) isEvent()          {}
func (SubmitCredential) isEvent()  {}
func (SubmitLocalModel) isEvent()  {}
func (StartOAuth) isEvent()        {}
func (SubmitAuthCode) isEvent()    {}
func (CancelOAuth) isEvent()       {}
func (Back) isEvent()              {}
func (JumpToCredentials) isEvent() {}
func (Reset) isEvent()             {}
func (ValidationDone) isEvent()    {}
func (DeviceCodeReady) isEvent()   {}
func (OAuthDone) isEvent()         {}
func (Saved) isEvent()             {}

// Effect describes async work the caller must run after a transition.
// A nil Effect means nothing to do.
type Effect interface{ isEffect() }

// TestConnectionEffect runs a connectivity test through the driver.
type TestConnectionEffect struct {
	Provider    connection.ProviderType
	Credential  string
	Endpoint    string
	SubProvider string
}

// StartBrowserAuthEffect opens the authorization URL in a browser.
type StartBrowserAuthEffect struct{ SubProvider string }

// StartDeviceAuthEffect requests a device code and awaits confirmation.
type StartDeviceAuthEffect struct{}

// ExchangeCodeEffect exchanges a pasted authorization code for tokens.
type ExchangeCodeEffect struct {
	Code        string
	SubProvider string
}

// CancelAuthEffect aborts the in-flight authorization.
type CancelAuthEffect struct{}

// PersistEffect saves the connection (and credential when non-empty)
// through the stores.
type PersistEffect struct {
	Connection connection.Connection
	Credential string
}

// SavePreferenceEffect records the first-run security choice.
type SavePreferenceEffect struct{ Method config.SecurityMethod }

func (TestConnectionEffect) isEffect()   {}
func (StartBrowserAuthEffect) isEffect() {}
func (StartDeviceAuthEffect) isEffect()  {}
func (ExchangeCodeEffect) isEffect()     {}
func (CancelAuthEffect) isEffect()       {}
func (PersistEffect) isEffect()          {}
func (SavePreferenceEffect) isEffect()   {}
