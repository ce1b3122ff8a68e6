package driver

import (
	"context"
	"time"

	"lynkd/connection"
	"lynkd/ollama"
)

// localDriver serves a local Ollama server. There is no credential;
// reachability of the server is the whole check, and the model catalog
// is whatever is installed on the machine.
func (r *Registry) localDriver() Driver {
	return Driver{
		BuildRuntime: func(ctx context.Context, opts RuntimeOptions, paths ResolvedPaths) RuntimeConfig {
			host := opts.Endpoint
			if host == "" {
				host = r.localHost
			}
			return RuntimeConfig{
				Provider:  connection.ProviderLocal,
				BaseURL:   host,
				Model:     opts.Model,
				BundleDir: paths.BundleDir,
			}
		},

		TestConnection: func(ctx context.Context, req TestRequest, budget time.Duration) connection.ValidationResult {
			return r.pingLocal(ctx, req.Endpoint, budget)
		},

		FetchModels: func(ctx context.Context, conn *connection.Connection, credential string, paths ResolvedPaths, budget time.Duration) ([]connection.ModelDescriptor, error) {
			client, err := r.localClient(conn.Endpoint)
			if err != nil {
				return nil, err
			}

			ctx, cancel := context.WithTimeout(ctx, budget)
			defer cancel()

			models, err := client.ListModels(ctx)
			if err != nil {
				return nil, connection.NewTransportError(client.BaseURL(), err)
			}
			if len(models) == 0 {
				return nil, connection.ErrNoModelsFound
			}
			return models, nil
		},

		ValidateStoredConnection: func(ctx context.Context, conn *connection.Connection, creds CredentialSource) connection.ValidationResult {
			return r.pingLocal(ctx, conn.Endpoint, StoredProbeBudget)
		},
	}
}

func (r *Registry) localClient(endpoint string) (*ollama.Client, error) {
	host := endpoint
	if host == "" {
		host = r.localHost
	}
	return ollama.NewClient(host)
}

func (r *Registry) pingLocal(ctx context.Context, endpoint string, budget time.Duration) connection.ValidationResult {
	client, err := r.localClient(endpoint)
	if err != nil {
		return connection.Invalid(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		if ctx.Err() != nil {
			return connection.Invalid(connection.ErrConnectionTimeout.Error())
		}
		return connection.Invalid(connection.NewTransportError(client.BaseURL(), err).Error())
	}
	return connection.Valid()
}
