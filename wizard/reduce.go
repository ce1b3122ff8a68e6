package wizard

import (
	"lynkd/connection"
)

// Reduce applies one event to the wizard state and returns the next
// state plus any effect the caller must run. Unknown event/step
// combinations are ignored: the state is returned unchanged with no
// effect, so stray async results from an abandoned step cannot corrupt
// the flow.
func Reduce(s State, ev Event) (State, Effect) {
	switch ev := ev.(type) {
	case SelectPreference:
		return reduceSelectPreference(s, ev)
	case SelectProvider:
		return reduceSelectProvider(s, ev)
	case SelectMethod:
		return reduceSelectMethod(s, ev)
	case SetDraft:
		if s.Step == StepCredentials {
			s.Draft = ev.Draft
		}
		return s, nil
	case SubmitCredential:
		return reduceSubmitCredential(s, ev)
	case SubmitLocalModel:
		return reduceSubmitLocalModel(s, ev)
	case StartOAuth:
		return reduceStartOAuth(s)
	case SubmitAuthCode:
		return reduceSubmitAuthCode(s, ev)
	case CancelOAuth:
		return reduceCancelOAuth(s)
	case Back:
		return reduceBack(s)
	case JumpToCredentials:
		return reduceJump(s, ev)
	case Reset:
		return reduceReset(s)
	case ValidationDone:
		return reduceValidationDone(s, ev)
	case DeviceCodeReady:
		return reduceDeviceCodeReady(s, ev)
	case OAuthDone:
		return reduceOAuthDone(s, ev)
	case Saved:
		return reduceSaved(s, ev)
	}
	return s, nil
}

func reduceSelectPreference(s State, ev SelectPreference) (State, Effect) {
	if s.Step != StepPreferences {
		return s, nil
	}
	s.Security = ev.Method
	s.Step = StepProviderSelect
	return s, SavePreferenceEffect{Method: ev.Method}
}

func reduceSelectProvider(s State, ev SelectProvider) (State, Effect) {
	if s.Step != StepProviderSelect {
		return s, nil
	}
	s.Provider = ev.Provider
	s.SubProvider = ev.SubProvider
	s.Status = StatusIdle
	s.StatusMessage = ""

	// Anthropic and OpenAI offer both a raw API key and a
	// subscription login; everything else determines its variant.
	if ev.SubProvider == "anthropic" || ev.SubProvider == "openai" {
		s.Step = StepMethodSelect
		s.visitedMethodStep = true
		return s, nil
	}

	s.Variant = variantFor(ev.Provider)
	s.Step = StepCredentials
	return s, nil
}

func reduceSelectMethod(s State, ev SelectMethod) (State, Effect) {
	if s.Step != StepMethodSelect {
		return s, nil
	}
	s.Variant = ev.Variant
	switch ev.Variant {
	case VariantOAuthBrowser:
		s.Provider = connection.ProviderOAuth
		s.SubProvider = oauthTagFor(s.SubProvider)
	default:
		s.Provider = connection.ProviderAPIKey
	}
	s.Step = StepCredentials
	s.Status = StatusIdle
	s.StatusMessage = ""
	return s, nil
}

// oauthTagFor maps a provider tag to the subscription back-end it logs
// into.
func oauthTagFor(subProvider string) string {
	switch subProvider {
	case "anthropic":
		return "claude"
	case "openai":
		return "chatgpt"
	default:
		return subProvider
	}
}

func reduceSubmitCredential(s State, ev SubmitCredential) (State, Effect) {
	if s.Step != StepCredentials {
		return s, nil
	}
	s.Draft = ev.Draft

	if msg := s.draftError(); msg != "" {
		s.Status = StatusError
		s.StatusMessage = msg
		return s, nil
	}

	s.Status = StatusValidating
	s.StatusMessage = ""
	return s, TestConnectionEffect{
		Provider:    s.Provider,
		Credential:  s.Draft.Credential,
		Endpoint:    s.Draft.Endpoint,
		SubProvider: s.SubProvider,
	}
}

func reduceSubmitLocalModel(s State, ev SubmitLocalModel) (State, Effect) {
	if s.Step != StepCredentials || s.Variant != VariantLocalModel {
		return s, nil
	}
	s.Draft = ev.Draft

	if msg := s.draftError(); msg != "" {
		s.Status = StatusError
		s.StatusMessage = msg
		return s, nil
	}

	// Local backends carry no credential; persist directly.
	return s.beginSave()
}

func reduceStartOAuth(s State) (State, Effect) {
	if s.Step != StepCredentials {
		return s, nil
	}
	switch s.Variant {
	case VariantOAuthBrowser:
		if msg := s.draftError(); msg != "" {
			s.Status = StatusError
			s.StatusMessage = msg
			return s, nil
		}
		s.Step = StepAuthCodeWait
		s.Status = StatusIdle
		s.StatusMessage = ""
		return s, StartBrowserAuthEffect{SubProvider: s.SubProvider}
	case VariantOAuthDevice:
		if msg := s.draftError(); msg != "" {
			s.Status = StatusError
			s.StatusMessage = msg
			return s, nil
		}
		s.Status = StatusValidating
		s.StatusMessage = ""
		s.Device = nil
		return s, StartDeviceAuthEffect{}
	}
	return s, nil
}

func reduceSubmitAuthCode(s State, ev SubmitAuthCode) (State, Effect) {
	if s.Step != StepAuthCodeWait {
		return s, nil
	}
	s.Status = StatusValidating
	s.StatusMessage = ""
	return s, ExchangeCodeEffect{Code: ev.Code, SubProvider: s.SubProvider}
}

func reduceCancelOAuth(s State) (State, Effect) {
	switch s.Step {
	case StepAuthCodeWait:
		s.Step = StepCredentials
	case StepCredentials:
		if s.Variant != VariantOAuthDevice {
			return s, nil
		}
	default:
		return s, nil
	}
	s.Status = StatusIdle
	s.StatusMessage = ""
	s.Device = nil
	return s, CancelAuthEffect{}
}

func reduceBack(s State) (State, Effect) {
	// Validation in flight is discarded; field values survive.
	s.Status = StatusIdle
	s.StatusMessage = ""
	s.Device = nil

	switch s.Step {
	case StepAuthCodeWait:
		s.Step = StepCredentials
	case StepCredentials:
		if s.Editing {
			return s, nil // edit mode has no earlier step
		}
		if s.visitedMethodStep {
			s.Step = StepMethodSelect
		} else {
			s.Step = StepProviderSelect
		}
	case StepMethodSelect:
		s.Step = StepProviderSelect
	case StepProviderSelect:
		if s.firstRun {
			s.Step = StepPreferences
		}
	}
	return s, nil
}

func reduceJump(s State, ev JumpToCredentials) (State, Effect) {
	s.Editing = true
	s.EditSlug = ev.Slug
	s.Variant = ev.Variant
	s.Draft = ev.Seed
	s.Step = StepCredentials
	s.Status = StatusIdle
	s.StatusMessage = ""
	s.Device = nil
	return s, nil
}

func reduceReset(s State) (State, Effect) {
	next := NewState(s.ExistingSlugs)
	next.Security = s.Security
	next.firstRun = s.firstRun
	if s.firstRun {
		next.Step = StepPreferences
	}
	return next, nil
}

func reduceValidationDone(s State, ev ValidationDone) (State, Effect) {
	if s.Step != StepCredentials || s.Status != StatusValidating {
		return s, nil
	}
	if !ev.Result.OK {
		s.Status = StatusError
		s.StatusMessage = ev.Result.Message
		return s, nil
	}
	return s.beginSave()
}

func reduceDeviceCodeReady(s State, ev DeviceCodeReady) (State, Effect) {
	if s.Step != StepCredentials || s.Variant != VariantOAuthDevice || s.Status != StatusValidating {
		return s, nil
	}
	prompt := ev.Prompt
	s.Device = &prompt
	return s, nil
}

func reduceOAuthDone(s State, ev OAuthDone) (State, Effect) {
	switch s.Step {
	case StepAuthCodeWait:
		if !ev.Result.OK {
			s.Step = StepCredentials
			s.Status = StatusError
			s.StatusMessage = ev.Result.Message
			return s, nil
		}
		s.Step = StepCredentials
		return s.beginSave()
	case StepCredentials:
		if s.Variant != VariantOAuthDevice || s.Status != StatusValidating {
			return s, nil
		}
		s.Device = nil
		if !ev.Result.OK {
			s.Status = StatusError
			s.StatusMessage = ev.Result.Message
			return s, nil
		}
		return s.beginSave()
	}
	return s, nil
}

func reduceSaved(s State, ev Saved) (State, Effect) {
	if s.Step != StepCompletion || s.Completion != PhaseSaving {
		return s, nil
	}
	if ev.Err != nil {
		s.Step = StepCredentials
		s.Status = StatusError
		s.StatusMessage = ev.Err.Error()
		return s, nil
	}
	s.Completion = PhaseComplete
	s.Status = StatusSuccess
	return s, nil
}

// draftError validates the entered fields before any network work.
// Editing reuses the existing slug, so collisions only matter for new
// connections.
func (s *State) draftError() string {
	if s.Draft.Name == "" {
		return "connection name is required"
	}
	slug := connection.Slugify(s.Draft.Name)
	if slug == "" {
		return "connection name must contain a letter or digit"
	}
	if !s.Editing && connection.SlugTaken(slug, s.ExistingSlugs) {
		return "a connection with this name already exists"
	}
	if s.Provider == connection.ProviderCustom && s.Draft.Endpoint == "" {
		return "endpoint is required for a custom connection"
	}
	if s.Provider == connection.ProviderAPIKey && s.Draft.Credential == "" && !s.Draft.KeyMasked {
		return "API key is required"
	}
	return ""
}

// beginSave moves to the saving phase and emits the persist effect with
// the assembled connection record.
func (s State) beginSave() (State, Effect) {
	conn := s.buildConnection()

	s.Step = StepCompletion
	s.Completion = PhaseSaving
	s.Status = StatusValidating
	s.StatusMessage = ""

	return s, PersistEffect{
		Connection: conn,
		Credential: s.Draft.Credential,
	}
}

// buildConnection assembles the record to persist. The slug is minted
// from the name for new connections and reused verbatim in edit mode.
func (s State) buildConnection() connection.Connection {
	slug := s.EditSlug
	if !s.Editing {
		slug = connection.Slugify(s.Draft.Name)
	}

	auth := connection.AuthAPIKey
	switch s.Provider {
	case connection.ProviderOAuth, connection.ProviderDeviceOAuth:
		auth = connection.AuthOAuth
	case connection.ProviderLocal:
		auth = connection.AuthNone
	}

	return connection.Connection{
		Slug:            slug,
		Name:            s.Draft.Name,
		Provider:        s.Provider,
		Auth:            auth,
		Endpoint:        s.Draft.Endpoint,
		SubProvider:     s.SubProvider,
		DefaultModel:    s.Draft.DefaultModel,
		IsAuthenticated: s.Provider != connection.ProviderLocal,
	}
}
