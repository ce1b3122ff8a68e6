package driver

import (
	"context"
	"time"

	"lynkd/connection"
)

// deviceOAuthDriver serves GitHub Copilot. The device-code flow itself is
// owned by the oauth package; by the time a driver operation runs the
// access token has already been granted, so testing reduces to token
// presence and the interesting work is the dynamic model listing through
// the auxiliary client.
func (r *Registry) deviceOAuthDriver() Driver {
	return Driver{
		BuildRuntime: func(ctx context.Context, opts RuntimeOptions, paths ResolvedPaths) RuntimeConfig {
			return RuntimeConfig{
				Provider:        connection.ProviderDeviceOAuth,
				Model:           opts.Model,
				AuxiliaryBinary: paths.CopilotClientPath,
				BundleDir:       paths.BundleDir,
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
