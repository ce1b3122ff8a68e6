// Package driver normalizes the heterogeneous auth and connectivity
// mechanisms of LYNKD's backends behind one polymorphic contract.
//
// Each provider type supplies the same four operations: assembling a
// runtime configuration, testing a credential/endpoint pair, fetching
// the model catalog and re-validating a stored connection. The wizard
// and the settings screens stay provider-agnostic; adding a backend
// means adding one entry to the dispatch table.
//
// The table is keyed by the closed connection.ProviderType enum, so a
// missing entry is caught by the exhaustiveness test rather than a
// runtime default branch.
package driver

import (
	"context"
	"fmt"
	"time"

	"lynkd/connection"
	"lynkd/copilot"
)

// Timeout budgets. Every network and subprocess operation in this
// package races one of these via context deadline.
const (
	DefaultProbeBudget = 10 * time.Second
	StoredProbeBudget  = 5 * time.Second
	ModelListBudget    = 30 * time.Second
	DeviceAuthBudget   = 15 * time.Minute
)

// CredentialSource is the narrow read surface of the credential store.
// Drivers look secrets up by connection slug and never persist them.
type CredentialSource interface {
	Get(slug string) string
}

// Launcher is the auxiliary client used for device-code model listing.
// Start and ListModels carry no promptness guarantee of their own, so
// callers race them against explicit timeouts.
type Launcher interface {
	Start(ctx context.Context) error
	ListModels(ctx context.Context) ([]copilot.Model, error)
	Stop() error
}

// TestRequest carries the inputs of one connectivity test.
type TestRequest struct {
	Credential  string
	Endpoint    string // optional base-URL override
	SubProvider string
}

// RuntimeOptions are the user-facing choices that shape a runtime config.
type RuntimeOptions struct {
	Model       string
	SubProvider string
	Endpoint    string
}

// ResolvedPaths points at auxiliary binaries and bundles resolved by the
// installer layer. BuildRuntime consumes these without performing I/O.
type ResolvedPaths struct {
	CopilotClientPath string
	BundleDir         string
}

// RuntimeConfig is the assembled launch-time configuration for a
// connection.
type RuntimeConfig struct {
	Provider        connection.ProviderType
	SubProvider     string
	BaseURL         string
	Model           string
	AuxiliaryBinary string
	BundleDir       string
}

// Driver is the uniform contract every provider type implements.
type Driver struct {
	BuildRuntime             func(ctx context.Context, opts RuntimeOptions, paths ResolvedPaths) RuntimeConfig
	TestConnection           func(ctx context.Context, req TestRequest, budget time.Duration) connection.ValidationResult
	FetchModels              func(ctx context.Context, conn *connection.Connection, credential string, paths ResolvedPaths, budget time.Duration) ([]connection.ModelDescriptor, error)
	ValidateStoredConnection func(ctx context.Context, conn *connection.Connection, creds CredentialSource) connection.ValidationResult
}

// Registry holds the dispatch table plus the few dependencies drivers
// need (local server host, auxiliary-client factory).
type Registry struct {
	localHost   string
	newLauncher func() Launcher
	drivers     map[connection.ProviderType]Driver
}

// Option overrides a registry default.
type Option func(*Registry)

// WithLocalHost sets the Ollama server URL used by local connections.
func WithLocalHost(host string) Option {
	return func(r *Registry) { r.localHost = host }
}

// WithLauncherFactory sets how auxiliary Copilot clients are created
// (tests substitute fakes here).
func WithLauncherFactory(f func() Launcher) Option {
	return func(r *Registry) { r.newLauncher = f }
}

// NewRegistry builds the dispatch table covering every provider type.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		localHost:   "http://localhost:11434",
		newLauncher: func() Launcher { return copilot.NewClient() },
	}
	for _, opt := range opts {
		opt(r)
	}

	r.drivers = map[connection.ProviderType]Driver{
		connection.ProviderAPIKey:      r.apiKeyDriver(),
		connection.ProviderOAuth:       r.oauthDriver(),
		connection.ProviderDeviceOAuth: r.deviceOAuthDriver(),
		connection.ProviderLocal:       r.localDriver(),
		connection.ProviderCustom:      r.customDriver(),
	}

	return r
}

// For returns the driver for a provider type.
func (r *Registry) For(pt connection.ProviderType) (Driver, error) {
	d, ok := r.drivers[pt]
	if !ok {
		return Driver{}, fmt.Errorf("unknown provider type: %s", pt)
	}
	return d, nil
}
