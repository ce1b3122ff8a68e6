package driver

import (
	"context"
	"time"

	"lynkd/connection"
)

// oauthDriver serves the browser-redirect subscription backends (Claude,
// ChatGPT). Subscription tokens cannot be probed against the inference
// endpoints without consuming quota, so liveness reduces to token
// presence: the authorization exchange already proved the token worked,
// and refresh happens lazily at request time.
func (r *Registry) oauthDriver() Driver {
	return Driver{
		BuildRuntime: func(ctx context.Context, opts RuntimeOptions, paths ResolvedPaths) RuntimeConfig {
			return RuntimeConfig{
				Provider:    connection.ProviderOAuth,
				SubProvider: opts.SubProvider,
				Model:       opts.Model,
				BundleDir:   paths.BundleDir,
			}
		},

		TestConnection: func(ctx context.Context, req TestRequest, budget time.Duration) connection.ValidationResult {
			if req.Credential == "" {
				return connection.Invalid(connection.ErrOAuthExchangeFailed.Error())
			}
			return connection.Valid()
		},

		FetchModels: func(ctx context.Context, conn *connection.Connection, credential string, paths ResolvedPaths, budget time.Duration) ([]connection.ModelDescriptor, error) {
			return r.resolveModels(ctx, conn, credential, budget)
		},

		ValidateStoredConnection: func(ctx context.Context, conn *connection.Connection, creds CredentialSource) connection.ValidationResult {
			if creds.Get(conn.Slug) == "" {
				return connection.Invalid(connection.ErrCredentialNotFound.Error())
			}
			return connection.Valid()
		},
	}
}
