package driver

import (
	"context"
	"time"

	"lynkd/config"
	"lynkd/connection"
)

// apiKeyDriver serves the direct API-key providers (Anthropic, OpenAI,
// OpenRouter). Connectivity is proven by the probe engine and the model
// catalog is fetched live where the provider exposes a listing API,
// falling back to the static registry otherwise.
func (r *Registry) apiKeyDriver() Driver {
	return Driver{
		BuildRuntime: func(ctx context.Context, opts RuntimeOptions, paths ResolvedPaths) RuntimeConfig {
			profile := connection.ProfileFor(opts.SubProvider)
			return RuntimeConfig{
				Provider:    connection.ProviderAPIKey,
				SubProvider: opts.SubProvider,
				BaseURL:     connection.EffectiveEndpoint(opts.Endpoint, profile),
				Model:       opts.Model,
				BundleDir:   paths.BundleDir,
			}
		},

		TestConnection: func(ctx context.Context, req TestRequest, budget time.Duration) connection.ValidationResult {
			return Probe(ctx, req, budget)
		},

		FetchModels: func(ctx context.Context, conn *connection.Connection, credential string, paths ResolvedPaths, budget time.Duration) ([]connection.ModelDescriptor, error) {
			models, err := r.liveKeyModels(ctx, conn, credential, budget)
			if err == nil && len(models) > 0 {
				return models, nil
			}
			if err != nil && config.DebugLog != nil {
				config.DebugLog.Printf("[Models] Live listing failed for %s, using registry: %v", conn.SubProvider, err)
			}
			return r.resolveModels(ctx, conn, credential, budget)
		},

		ValidateStoredConnection: func(ctx context.Context, conn *connection.Connection, creds CredentialSource) connection.ValidationResult {
			credential := creds.Get(conn.Slug)
			if credential == "" {
				return connection.Invalid(connection.ErrCredentialNotFound.Error())
			}
			req := TestRequest{
				Credential:  credential,
				Endpoint:    conn.Endpoint,
				SubProvider: conn.SubProvider,
			}
			return Probe(ctx, req, StoredProbeBudget)
		},
	}
}

// liveKeyModels asks the provider's own listing endpoint for the current
// catalog. Anthropic keys go through the Anthropic SDK, everything else
// through the OpenAI-compatible one.
func (r *Registry) liveKeyModels(ctx context.Context, conn *connection.Connection, credential string, budget time.Duration) ([]connection.ModelDescriptor, error) {
	if credential == "" {
		return nil, connection.ErrCredentialNotFound
	}
	switch conn.SubProvider {
	case "anthropic", "claude":
		return listAnthropicModels(ctx, credential, conn.Endpoint, budget)
	default:
		return listOpenAIModels(ctx, credential, conn.Endpoint, conn.SubProvider, budget)
	}
}
