package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"lynkd/config"
	"lynkd/connection"
	"lynkd/wizard"
)

func (m SetupModel) Init() tea.Cmd {
	return nil
}

func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case validationDoneMsg:
		return m.apply(wizard.ValidationDone{Result: msg.result})

	case browserOpenedMsg:
		// Open failures are not fatal: the authorization URL is shown
		// on screen for manual copy.
		if msg.err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[Setup] Browser open failed: %v", msg.err)
		}
		return m, nil

	case codeExchangedMsg:
		if msg.err != nil {
			return m.apply(wizard.OAuthDone{Result: connection.Invalid(msg.err.Error())})
		}
		m.pendingToken = msg.token
		return m.apply(wizard.OAuthDone{Result: connection.Valid()})

	case deviceCodeMsg:
		if m.deviceFlow == nil {
			// The flow was cancelled while the code request was in
			// flight; drop the stale result instead of polling.
			return m, nil
		}
		if msg.err != nil {
			return m.apply(wizard.OAuthDone{Result: connection.Invalid(msg.err.Error())})
		}
		next, cmd := m.apply(wizard.DeviceCodeReady{Prompt: wizard.DevicePrompt{
			UserCode:        msg.auth.UserCode,
			VerificationURI: msg.auth.VerificationURI,
		}})
		await := next.awaitDeviceCmd(msg.auth)
		return next, tea.Batch(cmd, await)

	case deviceDoneMsg:
		if msg.err != nil {
			return m.apply(wizard.OAuthDone{Result: connection.Invalid(msg.err.Error())})
		}
		m.pendingToken = msg.token
		return m.apply(wizard.OAuthDone{Result: connection.Valid()})

	case localModelsMsg:
		if msg.err != nil {
			m.picker.loading = false
			m.picker.loadErr = msg.err.Error()
			return m, nil
		}
		m.picker.SetModels(msg.models)
		return m, nil

	case savedMsg:
		return m.apply(wizard.Saved{Err: msg.err})

	case prefSavedMsg:
		if msg.err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[Setup] Failed to save security preference: %v", msg.err)
		}
		return m, nil
	}

	return m, nil
}

func (m SetupModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.done = true
		return m, tea.Quit
	}

	switch m.wiz.Step {
	case wizard.StepPreferences:
		return m.updateMenuStep(msg, len(prefChoices), &m.prefCursor, func(i int) wizard.Event {
			return wizard.SelectPreference{Method: prefChoices[i].method}
		})

	case wizard.StepProviderSelect:
		if msg.String() == "esc" || msg.String() == "q" {
			m.done = true
			return m, tea.Quit
		}
		return m.updateMenuStep(msg, len(providerChoices), &m.providerCursor, func(i int) wizard.Event {
			return wizard.SelectProvider{
				Provider:    providerChoices[i].provider,
				SubProvider: providerChoices[i].subProvider,
			}
		})

	case wizard.StepMethodSelect:
		if msg.String() == "esc" {
			return m.apply(wizard.Back{})
		}
		return m.updateMenuStep(msg, len(methodChoices), &m.methodCursor, func(i int) wizard.Event {
			return wizard.SelectMethod{Variant: methodChoices[i].variant}
		})

	case wizard.StepCredentials:
		return m.updateCredentials(msg)

	case wizard.StepAuthCodeWait:
		return m.updateAuthCodeWait(msg)

	case wizard.StepCompletion:
		if m.wiz.Completion == wizard.PhaseComplete {
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

// updateMenuStep handles the shared cursor navigation of the three
// selection screens. Pointer receiver so cursor movement survives into
// the returned model.
func (m *SetupModel) updateMenuStep(msg tea.KeyMsg, count int, cursor *int, event func(int) wizard.Event) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if *cursor > 0 {
			*cursor--
		}
	case "down", "j":
		if *cursor < count-1 {
			*cursor++
		}
	case "enter":
		return m.apply(event(*cursor))
	}
	return *m, nil
}

func (m SetupModel) updateCredentials(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		next, cmd := m.apply(wizard.SetDraft{Draft: m.draftFromInputs()})
		if m.wiz.Variant == wizard.VariantOAuthDevice && m.wiz.Status == wizard.StatusValidating {
			// An in-flight device authorization has to be aborted
			// before leaving the step.
			next2, cmd2 := next.apply(wizard.CancelOAuth{})
			return next2, tea.Batch(cmd, cmd2)
		}
		next2, cmd2 := next.apply(wizard.Back{})
		return next2, tea.Batch(cmd, cmd2)

	case "enter":
		switch m.wiz.Variant {
		case wizard.VariantAPIKey:
			return m.apply(wizard.SubmitCredential{Draft: m.draftFromInputs()})
		case wizard.VariantOAuthBrowser, wizard.VariantOAuthDevice:
			next, cmd := m.apply(wizard.SetDraft{Draft: m.draftFromInputs()})
			next2, cmd2 := next.apply(wizard.StartOAuth{})
			return next2, tea.Batch(cmd, cmd2)
		case wizard.VariantLocalModel:
			draft := m.draftFromInputs()
			if sel := m.picker.Selected(); sel != nil {
				draft.DefaultModel = sel.ID
			}
			return m.apply(wizard.SubmitLocalModel{Draft: draft})
		}
		return m, nil

	case "tab", "shift+tab":
		m.cycleFocus(msg.String() == "shift+tab")
		return m, nil
	}

	// Local variant routes remaining keys to the picker once the name
	// field has lost focus.
	if m.wiz.Variant == wizard.VariantLocalModel && !m.inputs[fieldName].Focused() {
		cmd := m.picker.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	for i := range m.inputs {
		if m.inputs[i].Focused() {
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			break
		}
	}
	return m, cmd
}

func (m SetupModel) updateAuthCodeWait(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.apply(wizard.CancelOAuth{})
	case "enter":
		code := m.codeInput.Value()
		if code == "" {
			return m, nil
		}
		return m.apply(wizard.SubmitAuthCode{Code: code})
	}

	var cmd tea.Cmd
	m.codeInput, cmd = m.codeInput.Update(msg)
	return m, cmd
}

// cycleFocus moves input focus across the fields relevant to the
// current variant.
func (m *SetupModel) cycleFocus(backwards bool) {
	fields := m.activeFields()
	if len(fields) < 2 {
		return
	}

	current := 0
	for i, f := range fields {
		if f < fieldCount && m.inputs[f].Focused() {
			current = i
			break
		}
	}
	for _, f := range fields {
		if f < fieldCount {
			m.inputs[f].Blur()
		}
	}

	step := 1
	if backwards {
		step = len(fields) - 1
	}
	next := fields[(current+step)%len(fields)]
	if next < fieldCount {
		m.inputs[next].Focus()
	} else {
		m.picker.filter.Focus()
	}
}

// activeFields returns the tab order for the current variant. The
// sentinel fieldCount stands for the model picker.
func (m *SetupModel) activeFields() []int {
	switch m.wiz.Variant {
	case wizard.VariantAPIKey:
		return []int{fieldName, fieldKey, fieldEndpoint}
	case wizard.VariantOAuthBrowser, wizard.VariantOAuthDevice:
		return []int{fieldName}
	case wizard.VariantLocalModel:
		return []int{fieldName, fieldCount}
	}
	return []int{fieldName}
}

// apply runs one wizard transition and schedules its effect, plus any
// step-entry work (loading the local model list).
func (m SetupModel) apply(ev wizard.Event) (SetupModel, tea.Cmd) {
	prevStep, prevVariant := m.wiz.Step, m.wiz.Variant

	var eff wizard.Effect
	m.wiz, eff = wizard.Reduce(m.wiz, ev)
	cmd := m.runEffect(eff)

	enteredLocal := m.wiz.Step == wizard.StepCredentials &&
		m.wiz.Variant == wizard.VariantLocalModel &&
		(prevStep != wizard.StepCredentials || prevVariant != wizard.VariantLocalModel)
	if enteredLocal {
		m.picker.loading = true
		return m, tea.Batch(cmd, m.loadLocalModelsCmd(m.wiz.Draft.Endpoint))
	}

	return m, cmd
}
