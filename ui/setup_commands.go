package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	transport "github.com/mark3labs/mcp-go/client/transport"

	"lynkd/config"
	"lynkd/connection"
	"lynkd/driver"
	"lynkd/oauth"
	"lynkd/wizard"
)

type validationDoneMsg struct {
	result connection.ValidationResult
}

type browserOpenedMsg struct {
	err error
}

type codeExchangedMsg struct {
	token *transport.Token
	err   error
}

type deviceCodeMsg struct {
	auth *oauth.DeviceAuthorization
	err  error
}

type deviceDoneMsg struct {
	token *transport.Token
	err   error
}

type localModelsMsg struct {
	models []connection.ModelDescriptor
	err    error
}

type savedMsg struct {
	err error
}

type prefSavedMsg struct {
	err error
}

// runEffect turns a wizard effect into the command that performs it.
// Effects that need in-flight handles (OAuth flows) also stash those on
// the model, which is why this is a pointer method.
func (m *SetupModel) runEffect(eff wizard.Effect) tea.Cmd {
	switch eff := eff.(type) {
	case wizard.TestConnectionEffect:
		credential := eff.Credential
		if credential == "" && m.wiz.Draft.KeyMasked {
			credential = m.storedCredential()
		}
		return m.testConnectionCmd(eff, credential)

	case wizard.StartBrowserAuthEffect:
		flow, err := oauth.NewBrowserFlow(eff.SubProvider)
		if err != nil {
			return func() tea.Msg { return browserOpenedMsg{err: err} }
		}
		m.browserFlow = flow
		return func() tea.Msg { return browserOpenedMsg{err: flow.Open()} }

	case wizard.StartDeviceAuthEffect:
		if m.deviceCancel != nil {
			// Release the context of an earlier attempt that never
			// reached the poll phase.
			m.deviceCancel()
		}
		flow := oauth.NewDeviceFlow()
		ctx, cancel := context.WithCancel(context.Background())
		m.deviceFlow = flow
		m.deviceCancel = cancel
		return func() tea.Msg {
			auth, err := flow.RequestCode(ctx)
			return deviceCodeMsg{auth: auth, err: err}
		}

	case wizard.ExchangeCodeEffect:
		flow := m.browserFlow
		if flow == nil {
			return func() tea.Msg {
				return codeExchangedMsg{err: connection.ErrOAuthExchangeFailed}
			}
		}
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), driver.DefaultProbeBudget)
			defer cancel()
			token, err := flow.ExchangeCode(ctx, eff.Code)
			return codeExchangedMsg{token: token, err: err}
		}

	case wizard.CancelAuthEffect:
		if m.deviceCancel != nil {
			m.deviceCancel()
			m.deviceCancel = nil
		}
		m.browserFlow = nil
		m.deviceFlow = nil
		m.pendingToken = nil
		return nil

	case wizard.PersistEffect:
		return m.persistCmd(eff)

	case wizard.SavePreferenceEffect:
		return m.savePreferenceCmd(eff.Method)
	}
	return nil
}

func (m *SetupModel) testConnectionCmd(eff wizard.TestConnectionEffect, credential string) tea.Cmd {
	registry := m.deps.Registry
	return func() tea.Msg {
		d, err := registry.For(eff.Provider)
		if err != nil {
			return validationDoneMsg{result: connection.Invalid(err.Error())}
		}
		req := driver.TestRequest{
			Credential:  credential,
			Endpoint:    eff.Endpoint,
			SubProvider: eff.SubProvider,
		}
		result := d.TestConnection(context.Background(), req, driver.DefaultProbeBudget)
		return validationDoneMsg{result: result}
	}
}

// awaitDeviceCmd polls for device-flow confirmation after the user code
// is displayed.
func (m *SetupModel) awaitDeviceCmd(auth *oauth.DeviceAuthorization) tea.Cmd {
	flow := m.deviceFlow
	if m.deviceCancel != nil {
		// Release the code-request context before the poll starts.
		m.deviceCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.deviceCancel = cancel
	return func() tea.Msg {
		defer cancel()
		token, err := flow.Await(ctx, auth, driver.DeviceAuthBudget)
		return deviceDoneMsg{token: token, err: err}
	}
}

// loadLocalModelsCmd lists what the local server has installed, for the
// model picker.
func (m *SetupModel) loadLocalModelsCmd(endpoint string) tea.Cmd {
	registry := m.deps.Registry
	return func() tea.Msg {
		d, err := registry.For(connection.ProviderLocal)
		if err != nil {
			return localModelsMsg{err: err}
		}
		conn := &connection.Connection{Provider: connection.ProviderLocal, Endpoint: endpoint}
		models, err := d.FetchModels(context.Background(), conn, "", driver.ResolvedPaths{}, driver.ModelListBudget)
		return localModelsMsg{models: models, err: err}
	}
}

// persistCmd resolves the model catalog and writes the connection, the
// credential and any pending OAuth token. The connection record is
// written last so a failed secret write never leaves a connection that
// cannot authenticate.
func (m *SetupModel) persistCmd(eff wizard.PersistEffect) tea.Cmd {
	deps := m.deps
	token := m.pendingToken
	return func() tea.Msg {
		conn := eff.Connection

		credential := eff.Credential
		if token != nil && credential == "" {
			credential = token.AccessToken
		}

		fetchCtx, cancel := context.WithTimeout(context.Background(), driver.ModelListBudget)
		d, err := deps.Registry.For(conn.Provider)
		if err == nil {
			models, fetchErr := d.FetchModels(fetchCtx, &conn, credential, driver.ResolvedPaths{}, driver.ModelListBudget)
			if fetchErr == nil {
				conn.Models = models
			} else if config.DebugLog != nil {
				config.DebugLog.Printf("[Setup] Model fetch failed for %s: %v", conn.Slug, fetchErr)
			}
		}
		cancel()

		if credential != "" && deps.Cfg.CredentialStore != nil {
			if err := deps.Cfg.CredentialStore.Set(conn.Slug, credential); err != nil {
				return savedMsg{err: fmt.Errorf("%w: %v", connection.ErrPersistenceFailed, err)}
			}
			if err := deps.Cfg.CredentialStore.Save(deps.Cfg.DataDir()); err != nil {
				return savedMsg{err: fmt.Errorf("%w: %v", connection.ErrPersistenceFailed, err)}
			}
		}

		if token != nil {
			store, err := deps.Cfg.TokenStore(conn.Slug)
			if err != nil {
				return savedMsg{err: fmt.Errorf("%w: %v", connection.ErrPersistenceFailed, err)}
			}
			if err := store.SaveToken(context.Background(), token); err != nil {
				return savedMsg{err: fmt.Errorf("%w: %v", connection.ErrPersistenceFailed, err)}
			}
		}

		if err := deps.Connections.Save(&conn); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{}
	}
}

func (m *SetupModel) savePreferenceCmd(method config.SecurityMethod) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		userCfg, err := config.LoadUserConfig(deps.Cfg.DataDir())
		if err != nil {
			userCfg = config.DefaultUserConfig()
		}
		userCfg.Security.Method = string(method)
		if err := config.SaveUserConfig(userCfg, deps.Cfg.DataDir()); err != nil {
			return prefSavedMsg{err: err}
		}
		return prefSavedMsg{}
	}
}
