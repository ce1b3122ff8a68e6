package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"lynkd/connection"
	"lynkd/wizard"
)

func (m SetupModel) View() string {
	var body string
	switch m.wiz.Step {
	case wizard.StepPreferences:
		body = m.viewPreferences()
	case wizard.StepProviderSelect:
		body = m.viewProviderSelect()
	case wizard.StepMethodSelect:
		body = m.viewMethodSelect()
	case wizard.StepCredentials:
		body = m.viewCredentials()
	case wizard.StepAuthCodeWait:
		body = m.viewAuthCodeWait()
	case wizard.StepCompletion:
		body = m.viewCompletion()
	}

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	return body
}

func (m SetupModel) viewPreferences() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Credential Storage"))
	b.WriteString("\n\n")
	b.WriteString(DimStyle.Render("How should API keys and tokens be stored on disk?"))
	b.WriteString("\n\n")
	b.WriteString(renderMenu(prefLabels(), m.prefCursor))
	b.WriteString("\n")
	b.WriteString(FormatFooter("j/k", "Navigate", "Enter", "Select"))
	return b.String()
}

func (m SetupModel) viewProviderSelect() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Add a Connection"))
	b.WriteString("\n\n")
	b.WriteString(renderMenu(providerLabels(), m.providerCursor))
	b.WriteString("\n")
	b.WriteString(FormatFooter("j/k", "Navigate", "Enter", "Select", "Esc", "Quit"))
	return b.String()
}

func (m SetupModel) viewMethodSelect() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s Setup", subProviderTitle(m.wiz.SubProvider))))
	b.WriteString("\n\n")
	labels := make([]string, len(methodChoices))
	for i, c := range methodChoices {
		labels[i] = c.label
	}
	b.WriteString(renderMenu(labels, m.methodCursor))
	b.WriteString("\n")
	b.WriteString(FormatFooter("j/k", "Navigate", "Enter", "Select", "Esc", "Back"))
	return b.String()
}

func (m SetupModel) viewCredentials() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.credentialsTitle()))
	b.WriteString("\n\n")

	b.WriteString("Name\n")
	b.WriteString(InputStyle.Render(m.inputs[fieldName].View()))
	b.WriteString("\n\n")

	switch m.wiz.Variant {
	case wizard.VariantAPIKey:
		b.WriteString("API Key\n")
		b.WriteString(InputStyle.Render(m.inputs[fieldKey].View()))
		b.WriteString("\n\n")
		b.WriteString("Endpoint\n")
		b.WriteString(InputStyle.Render(m.inputs[fieldEndpoint].View()))
		b.WriteString("\n\n")

	case wizard.VariantOAuthBrowser:
		b.WriteString(DimStyle.Render("Press Enter to sign in with your browser."))
		b.WriteString("\n\n")

	case wizard.VariantOAuthDevice:
		b.WriteString(m.viewDevicePrompt())

	case wizard.VariantLocalModel:
		b.WriteString("Default model\n")
		b.WriteString(m.picker.View())
		b.WriteString("\n")
	}

	b.WriteString(m.viewStatus())
	b.WriteString("\n")
	b.WriteString(FormatFooter("Tab", "Next field", "Enter", "Submit", "Esc", "Back"))
	return b.String()
}

// viewDevicePrompt shows the user code box once the flow has started.
func (m SetupModel) viewDevicePrompt() string {
	if m.wiz.Device == nil {
		if m.wiz.Status == wizard.StatusValidating {
			return ValidatingStyle.Render("Requesting device code...") + "\n\n"
		}
		return DimStyle.Render("Press Enter to start GitHub device sign-in.") + "\n\n"
	}

	var b strings.Builder
	code := m.wiz.Device.UserCode
	// Pad short codes so the box never collapses below the usual
	// XXXX-XXXX shape.
	code = runewidth.FillRight(code, 9)
	b.WriteString("Enter this code at " + SelectedStyle.Render(m.wiz.Device.VerificationURI) + ":\n\n")
	b.WriteString(UserCodeStyle.Render(code))
	b.WriteString("\n\n")
	b.WriteString(DimStyle.Render("The code has been copied to your clipboard."))
	b.WriteString("\n\n")
	return b.String()
}

func (m SetupModel) viewAuthCodeWait() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Authorize in Browser"))
	b.WriteString("\n\n")
	if m.browserFlow != nil {
		b.WriteString(DimStyle.Render("If the browser did not open, visit:"))
		b.WriteString("\n")
		b.WriteString(SelectedStyle.Render(m.browserFlow.AuthorizeURL()))
		b.WriteString("\n\n")
	}
	b.WriteString("Authorization code\n")
	b.WriteString(InputStyle.Render(m.codeInput.View()))
	b.WriteString("\n")
	b.WriteString(m.viewStatus())
	b.WriteString("\n")
	b.WriteString(FormatFooter("Enter", "Submit code", "Esc", "Cancel"))
	return b.String()
}

func (m SetupModel) viewCompletion() string {
	var b strings.Builder
	if m.wiz.Completion == wizard.PhaseSaving {
		b.WriteString(ValidatingStyle.Render("Saving connection..."))
		return b.String()
	}
	b.WriteString(SuccessStyle.Render("Connection saved"))
	b.WriteString("\n\n")
	b.WriteString(DimStyle.Render(fmt.Sprintf("%s is ready to use.", m.wiz.Draft.Name)))
	b.WriteString("\n\n")
	b.WriteString(FormatFooter("Enter", "Finish"))
	return b.String()
}

func (m SetupModel) viewStatus() string {
	switch m.wiz.Status {
	case wizard.StatusValidating:
		if m.wiz.Variant == wizard.VariantOAuthDevice && m.wiz.Device != nil {
			return ValidatingStyle.Render("Waiting for confirmation...")
		}
		return ValidatingStyle.Render("Testing connection...")
	case wizard.StatusError:
		return ErrorStyle.Render(m.wiz.StatusMessage)
	}
	return ""
}

func (m SetupModel) credentialsTitle() string {
	if m.wiz.Editing {
		return "Edit Connection"
	}
	switch m.wiz.Variant {
	case wizard.VariantOAuthBrowser:
		return fmt.Sprintf("%s Subscription", subProviderTitle(m.wiz.SubProvider))
	case wizard.VariantOAuthDevice:
		return "GitHub Copilot"
	case wizard.VariantLocalModel:
		return "Local Server"
	default:
		if m.wiz.Provider == connection.ProviderCustom {
			return "Custom Endpoint"
		}
		return fmt.Sprintf("%s API Key", subProviderTitle(m.wiz.SubProvider))
	}
}

func subProviderTitle(tag string) string {
	switch tag {
	case "anthropic", "claude":
		return "Anthropic"
	case "openai", "chatgpt":
		return "OpenAI"
	case "openrouter":
		return "OpenRouter"
	case "copilot":
		return "GitHub Copilot"
	default:
		return "Provider"
	}
}

func renderMenu(labels []string, cursor int) string {
	var b strings.Builder
	for i, label := range labels {
		if i == cursor {
			b.WriteString(SelectedStyle.Render("> " + label))
		} else {
			b.WriteString("  " + label)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func providerLabels() []string {
	labels := make([]string, len(providerChoices))
	for i, c := range providerChoices {
		labels[i] = c.label
	}
	return labels
}

func prefLabels() []string {
	labels := make([]string, len(prefChoices))
	for i, c := range prefChoices {
		labels[i] = c.label
	}
	return labels
}
