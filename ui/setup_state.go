package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	transport "github.com/mark3labs/mcp-go/client/transport"

	"lynkd/config"
	"lynkd/connection"
	"lynkd/driver"
	"lynkd/oauth"
	"lynkd/storage"
	"lynkd/wizard"
)

// SetupDeps are the collaborators the setup screen drives. The screen
// itself never talks to the network or disk directly; everything goes
// through these.
type SetupDeps struct {
	Cfg         *config.Config
	Registry    *driver.Registry
	Connections *storage.ConnectionStore
}

// credential-entry field indices
const (
	fieldName = iota
	fieldKey
	fieldEndpoint
	fieldCount
)

// SetupModel is the bubbletea wrapper around the wizard state machine.
// All transition decisions live in the wizard package; this model only
// translates key presses into events, runs effects as commands, and
// renders the resulting state.
type SetupModel struct {
	wiz  wizard.State
	deps SetupDeps

	// Menu cursors per selection step.
	providerCursor int
	methodCursor   int
	prefCursor     int

	// Credential form.
	inputs   []textinput.Model
	focusIdx int

	// Pasted-authorization-code entry.
	codeInput textinput.Model

	// Local model picker.
	picker pickerModel

	// In-flight OAuth machinery. deviceCancel aborts the poll loop;
	// pendingToken is held until the connection record is saved so a
	// failed save never leaves an orphaned token on disk.
	browserFlow  *oauth.BrowserFlow
	deviceFlow   *oauth.DeviceFlow
	deviceCancel context.CancelFunc
	pendingToken *transport.Token

	width  int
	height int
	done   bool
}

// providerChoice is one entry of the provider selection menu.
type providerChoice struct {
	label       string
	provider    connection.ProviderType
	subProvider string
}

var providerChoices = []providerChoice{
	{"Anthropic", connection.ProviderAPIKey, "anthropic"},
	{"OpenAI", connection.ProviderAPIKey, "openai"},
	{"GitHub Copilot", connection.ProviderDeviceOAuth, "copilot"},
	{"Ollama (local)", connection.ProviderLocal, ""},
	{"Custom endpoint", connection.ProviderCustom, ""},
}

var methodChoices = []struct {
	label   string
	variant wizard.Variant
}{
	{"API key", wizard.VariantAPIKey},
	{"Subscription login", wizard.VariantOAuthBrowser},
}

var prefChoices = []struct {
	label  string
	method config.SecurityMethod
}{
	{"Plain text (simple, unencrypted)", config.SecurityPlainText},
	{"SSH key encryption (recommended)", config.SecuritySSHKey},
}

// NewSetupModel opens the setup screen for adding a connection.
func NewSetupModel(deps SetupDeps, existingSlugs []string) SetupModel {
	return newSetupModel(deps, wizard.NewState(existingSlugs))
}

// NewFirstRunModel opens the setup screen at the preference step.
func NewFirstRunModel(deps SetupDeps) SetupModel {
	return newSetupModel(deps, wizard.NewFirstRunState())
}

// NewEditModel re-enters the setup screen for an existing connection.
func NewEditModel(deps SetupDeps, conn *connection.Connection, existingSlugs []string) SetupModel {
	m := newSetupModel(deps, wizard.NewEditState(conn, existingSlugs))
	m.seedInputs()
	return m
}

func newSetupModel(deps SetupDeps, st wizard.State) SetupModel {
	inputs := make([]textinput.Model, fieldCount)

	inputs[fieldName] = textinput.New()
	inputs[fieldName].Placeholder = "My connection"
	inputs[fieldName].Width = 40
	inputs[fieldName].CharLimit = 80
	inputs[fieldName].Focus()

	inputs[fieldKey] = textinput.New()
	inputs[fieldKey].Placeholder = "sk-..."
	inputs[fieldKey].Width = 40
	inputs[fieldKey].CharLimit = 400
	inputs[fieldKey].EchoMode = textinput.EchoPassword
	inputs[fieldKey].EchoCharacter = '*'

	inputs[fieldEndpoint] = textinput.New()
	inputs[fieldEndpoint].Placeholder = "https://api.example.com/v1 (optional)"
	inputs[fieldEndpoint].Width = 40
	inputs[fieldEndpoint].CharLimit = 300

	code := textinput.New()
	code.Placeholder = "Paste authorization code"
	code.Width = 50
	code.CharLimit = 600

	return SetupModel{
		wiz:       st,
		deps:      deps,
		inputs:    inputs,
		codeInput: code,
		picker:    newPickerModel(),
	}
}

// seedInputs copies the wizard draft into the text inputs, used when the
// state was pre-populated (edit mode).
func (m *SetupModel) seedInputs() {
	m.inputs[fieldName].SetValue(m.wiz.Draft.Name)
	m.inputs[fieldEndpoint].SetValue(m.wiz.Draft.Endpoint)
	if m.wiz.Draft.KeyMasked {
		m.inputs[fieldKey].Placeholder = connection.MaskSecret(m.storedCredential())
	}
}

// draftFromInputs builds the draft the wizard validates from the form.
func (m *SetupModel) draftFromInputs() wizard.Draft {
	d := m.wiz.Draft
	d.Name = m.inputs[fieldName].Value()
	d.Credential = m.inputs[fieldKey].Value()
	d.Endpoint = m.inputs[fieldEndpoint].Value()
	return d
}

// storedCredential looks up the secret on record for the connection
// being edited.
func (m *SetupModel) storedCredential() string {
	if m.deps.Cfg == nil || m.deps.Cfg.CredentialStore == nil {
		return ""
	}
	return m.deps.Cfg.CredentialStore.Get(m.wiz.EditSlug)
}

// Done reports whether the user closed or completed the flow.
func (m SetupModel) Done() bool { return m.done }

// Result returns the final wizard state, for callers that need the
// saved connection's slug after completion.
func (m SetupModel) Result() wizard.State { return m.wiz }
