package driver

import (
	"context"
	"time"

	"lynkd/connection"
)

// customDriver serves user-declared OpenAI-compatible endpoints. The
// endpoint is mandatory and the model list belongs to the user: fetches
// upgrade bare entries but never replace the declared set.
func (r *Registry) customDriver() Driver {
	return Driver{
		BuildRuntime: func(ctx context.Context, opts RuntimeOptions, paths ResolvedPaths) RuntimeConfig {
			return RuntimeConfig{
				Provider:  connection.ProviderCustom,
				BaseURL:   connection.EffectiveEndpoint(opts.Endpoint, connection.ProfileFor("")),
				Model:     opts.Model,
				BundleDir: paths.BundleDir,
			}
		},

		TestConnection: func(ctx context.Context, req TestRequest, budget time.Duration) connection.ValidationResult {
			if req.Endpoint == "" {
				return connection.Invalid("endpoint is required for a custom connection")
			}
			return Probe(ctx, req, budget)
		},

		FetchModels: func(ctx context.Context, conn *connection.Connection, credential string, paths ResolvedPaths, budget time.Duration) ([]connection.ModelDescriptor, error) {
			if len(conn.Models) > 0 {
				return upgradeBareModels(conn.Models), nil
			}
			// No declared list: offer whatever the endpoint reports.
			return listOpenAIModels(ctx, credential, conn.Endpoint, "custom", budget)
		},

		ValidateStoredConnection: func(ctx context.Context, conn *connection.Connection, creds CredentialSource) connection.ValidationResult {
			req := TestRequest{
				Credential: creds.Get(conn.Slug),
				Endpoint:   conn.Endpoint,
			}
			return Probe(ctx, req, StoredProbeBudget)
		},
	}
}
