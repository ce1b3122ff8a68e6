package driver

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/v3"
	openaioption "github.com/openai/openai-go/v3/option"
	"github.com/samber/lo"

	"lynkd/config"
	"lynkd/connection"
	"lynkd/copilot"
)

// resolveModels implements the resolution order shared by all drivers:
//
//  1. device-code connections holding an access token list dynamically
//     through the auxiliary client;
//  2. custom-endpoint connections keep their user-declared list (bare
//     entries upgraded, nothing overwritten);
//  3. everything else falls back to the static registry by sub-provider
//     tag.
//
// An empty result is always ErrNoModelsFound.
func (r *Registry) resolveModels(ctx context.Context, conn *connection.Connection, credential string, budget time.Duration) ([]connection.ModelDescriptor, error) {
	switch {
	case conn.Provider == connection.ProviderDeviceOAuth && credential != "":
		return r.copilotModels(ctx, credential, budget)

	case conn.HasCustomEndpoint():
		if len(conn.Models) == 0 {
			return nil, connection.ErrNoModelsFound
		}
		return upgradeBareModels(conn.Models), nil

	default:
		models := connection.RegistryModels(conn.SubProvider)
		if len(models) == 0 {
			return nil, connection.ErrNoModelsFound
		}
		return models, nil
	}
}

// copilotModels runs the auxiliary client under a scoped token
// environment, lists models, and always stops the client afterwards.
// Cleanup failures are logged and never replace the primary error.
func (r *Registry) copilotModels(ctx context.Context, accessToken string, budget time.Duration) ([]connection.ModelDescriptor, error) {
	launcher := r.newLauncher()

	var listed []copilot.Model
	err := copilot.WithTokenEnv(accessToken, func() error {
		ctx, cancel := context.WithTimeout(ctx, budget)
		defer cancel()

		if err := launcher.Start(ctx); err != nil {
			return err
		}
		models, err := launcher.ListModels(ctx)
		if err != nil {
			return err
		}
		listed = models
		return nil
	})

	if stopErr := launcher.Stop(); stopErr != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[Models] Failed to stop copilot client: %v", stopErr)
	}

	if err != nil {
		return nil, err
	}

	enabled := lo.Filter(listed, func(m copilot.Model, _ int) bool {
		return !m.Disabled()
	})

	models := lo.Map(enabled, func(m copilot.Model, _ int) connection.ModelDescriptor {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		return connection.ModelDescriptor{
			ID:               m.ID,
			Name:             name,
			ShortName:        name,
			Provider:         "copilot",
			ContextWindow:    connection.CopilotContextWindow,
			SupportsThinking: len(m.SupportedReasoningEfforts) > 0,
		}
	})

	if len(models) == 0 {
		return nil, connection.ErrNoModelsFound
	}
	return models, nil
}

// upgradeBareModels fills in descriptors for user-typed identifier-only
// entries. Full descriptors pass through untouched.
func upgradeBareModels(models []connection.ModelDescriptor) []connection.ModelDescriptor {
	return lo.Map(models, func(m connection.ModelDescriptor, _ int) connection.ModelDescriptor {
		if !m.IsBare() {
			return m
		}
		m.Name = m.ID
		m.ShortName = m.ID
		m.ContextWindow = connection.GenericContextWindow
		return m
	})
}

// listAnthropicModels fetches the live model catalog from the Anthropic
// API for a proven key connection.
func listAnthropicModels(ctx context.Context, apiKey, baseURL string, budget time.Duration) ([]connection.ModelDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)

	page, err := client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, err
	}

	models := make([]connection.ModelDescriptor, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, connection.ModelDescriptor{
			ID:            string(m.ID),
			Name:          m.DisplayName,
			ShortName:     m.DisplayName,
			Provider:      "anthropic",
			ContextWindow: connection.GenericContextWindow,
		})
	}
	return models, nil
}

// listOpenAIModels fetches the live model catalog from an
// OpenAI-compatible API (OpenAI, OpenRouter, custom endpoints).
func listOpenAIModels(ctx context.Context, apiKey, baseURL, providerTag string, budget time.Duration) ([]connection.ModelDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	opts := []openaioption.RequestOption{openaioption.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, err
	}

	models := make([]connection.ModelDescriptor, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, connection.ModelDescriptor{
			ID:            m.ID,
			Name:          m.ID,
			ShortName:     m.ID,
			Provider:      providerTag,
			ContextWindow: connection.GenericContextWindow,
		})
	}
	return models, nil
}
