package driver

import (
	"context"
	"errors"
	"os"
	"testing"

	"lynkd/connection"
	"lynkd/copilot"
)

type fakeLauncher struct {
	models    []copilot.Model
	startErr  error
	listErr   error
	stopped   bool
	seenToken string
}

func (f *fakeLauncher) Start(ctx context.Context) error {
	f.seenToken = os.Getenv(copilot.TokenEnvVar)
	return f.startErr
}

func (f *fakeLauncher) ListModels(ctx context.Context) ([]copilot.Model, error) {
	return f.models, f.listErr
}

func (f *fakeLauncher) Stop() error {
	f.stopped = true
	return nil
}

func copilotRegistry(launcher *fakeLauncher) *Registry {
	return NewRegistry(WithLauncherFactory(func() Launcher { return launcher }))
}

func TestCopilotModelsFiltersDisabledAndMapsCapabilities(t *testing.T) {
	launcher := &fakeLauncher{
		models: []copilot.Model{
			{ID: "gpt-4o", Name: "GPT-4o"},
			{ID: "blocked", Name: "Blocked", Policy: &copilot.ModelPolicy{State: "disabled"}},
			{ID: "o3-mini", Name: "o3-mini", SupportedReasoningEfforts: []string{"low", "high"}},
			{ID: "no-policy", Policy: &copilot.ModelPolicy{State: "enabled"}},
		},
	}
	r := copilotRegistry(launcher)

	conn := &connection.Connection{Provider: connection.ProviderDeviceOAuth}
	models, err := r.resolveModels(context.Background(), conn, "gho_token", ModelListBudget)
	if err != nil {
		t.Fatalf("resolveModels: %v", err)
	}

	ids := map[string]connection.ModelDescriptor{}
	for _, m := range models {
		ids[m.ID] = m
	}
	if _, ok := ids["blocked"]; ok {
		t.Error("disabled model not filtered")
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 models, got %d", len(ids))
	}
	if !ids["o3-mini"].SupportsThinking {
		t.Error("reasoning efforts should set the thinking flag")
	}
	if ids["gpt-4o"].SupportsThinking {
		t.Error("thinking flag set without reasoning efforts")
	}
	if ids["gpt-4o"].ContextWindow != connection.CopilotContextWindow {
		t.Errorf("context window = %d", ids["gpt-4o"].ContextWindow)
	}
	if ids["no-policy"].Name != "no-policy" {
		t.Errorf("missing name should fall back to the ID: %q", ids["no-policy"].Name)
	}
	if !launcher.stopped {
		t.Error("launcher not stopped after listing")
	}
}

func TestCopilotModelsTokenEnvHandoff(t *testing.T) {
	t.Setenv(copilot.TokenEnvVar, "pre-existing")

	launcher := &fakeLauncher{models: []copilot.Model{{ID: "gpt-4o"}}}
	r := copilotRegistry(launcher)

	conn := &connection.Connection{Provider: connection.ProviderDeviceOAuth}
	if _, err := r.resolveModels(context.Background(), conn, "gho_fresh", ModelListBudget); err != nil {
		t.Fatalf("resolveModels: %v", err)
	}

	if launcher.seenToken != "gho_fresh" {
		t.Errorf("launcher saw %q, want the connection's token", launcher.seenToken)
	}
	if got := os.Getenv(copilot.TokenEnvVar); got != "pre-existing" {
		t.Errorf("environment not restored: %q", got)
	}
}

func TestCopilotModelsStopsOnListFailure(t *testing.T) {
	launcher := &fakeLauncher{listErr: errors.New("listing broke")}
	r := copilotRegistry(launcher)

	conn := &connection.Connection{Provider: connection.ProviderDeviceOAuth}
	_, err := r.resolveModels(context.Background(), conn, "gho_x", ModelListBudget)
	if err == nil || err.Error() != "listing broke" {
		t.Fatalf("primary error lost: %v", err)
	}
	if !launcher.stopped {
		t.Error("launcher must be stopped after a failed listing")
	}
}

func TestCustomModelsPreservedWithoutNetwork(t *testing.T) {
	r := NewRegistry()

	conn := &connection.Connection{
		Provider: connection.ProviderCustom,
		Endpoint: "https://llm.internal/v1",
		Models: []connection.ModelDescriptor{
			{ID: "mistral-large"},
			{ID: "full", Name: "Full", ShortName: "full", ContextWindow: 200000},
		},
	}

	models, err := r.resolveModels(context.Background(), conn, "", ModelListBudget)
	if err != nil {
		t.Fatalf("resolveModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].ID != "mistral-large" || models[0].Name != "mistral-large" {
		t.Errorf("bare entry not upgraded: %+v", models[0])
	}
	if models[0].ContextWindow != connection.GenericContextWindow {
		t.Errorf("bare entry context window = %d", models[0].ContextWindow)
	}
	if models[1].ContextWindow != 200000 {
		t.Errorf("full descriptor must pass through untouched: %+v", models[1])
	}
}

func TestStaticRegistryFallback(t *testing.T) {
	r := NewRegistry()

	conn := &connection.Connection{Provider: connection.ProviderOAuth, SubProvider: "claude"}
	models, err := r.resolveModels(context.Background(), conn, "", ModelListBudget)
	if err != nil {
		t.Fatalf("resolveModels: %v", err)
	}
	if len(models) == 0 {
		t.Fatal("registry lookup returned nothing for claude")
	}

	conn = &connection.Connection{Provider: connection.ProviderOAuth, SubProvider: "nonexistent"}
	if _, err := r.resolveModels(context.Background(), conn, "", ModelListBudget); !errors.Is(err, connection.ErrNoModelsFound) {
		t.Errorf("expected ErrNoModelsFound, got %v", err)
	}
}
