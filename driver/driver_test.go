package driver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"lynkd/connection"
)

type fakeCreds map[string]string

func (f fakeCreds) Get(slug string) string { return f[slug] }

func TestRegistryCoversEveryProviderType(t *testing.T) {
	r := NewRegistry()

	for _, pt := range connection.AllProviderTypes() {
		d, err := r.For(pt)
		if err != nil {
			t.Fatalf("For(%s): %v", pt, err)
		}
		if d.BuildRuntime == nil || d.TestConnection == nil || d.FetchModels == nil || d.ValidateStoredConnection == nil {
			t.Errorf("driver for %s has a nil operation", pt)
		}
	}
}

func TestRegistryRejectsUnknownType(t *testing.T) {
	r := NewRegistry()
	if _, err := r.For(connection.ProviderType("telepathy")); err == nil {
		t.Error("expected error for unknown provider type")
	}
}

func TestValidateStoredKeyMissingFailsFastWithoutNetwork(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRegistry()
	d, err := r.For(connection.ProviderAPIKey)
	if err != nil {
		t.Fatal(err)
	}

	conn := &connection.Connection{
		Slug:        "missing",
		Provider:    connection.ProviderAPIKey,
		SubProvider: "openai",
		Endpoint:    srv.URL,
	}
	result := d.ValidateStoredConnection(context.Background(), conn, fakeCreds{})
	if result.OK {
		t.Fatal("expected failure with no stored key")
	}
	if result.Message != connection.ErrCredentialNotFound.Error() {
		t.Errorf("message = %q", result.Message)
	}
	if calls != 0 {
		t.Errorf("probe must not run without a key, saw %d calls", calls)
	}
}

func TestValidateStoredKeyProbesWithStoredKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRegistry()
	d, _ := r.For(connection.ProviderAPIKey)

	conn := &connection.Connection{
		Slug:        "work",
		Provider:    connection.ProviderAPIKey,
		SubProvider: "openai",
		Endpoint:    srv.URL,
	}
	result := d.ValidateStoredConnection(context.Background(), conn, fakeCreds{"work": "sk-stored"})
	if !result.OK {
		t.Fatalf("validation failed: %s", result.Message)
	}
	if gotAuth != "Bearer sk-stored" {
		t.Errorf("stored key not used: %q", gotAuth)
	}
}

func TestValidateStoredOAuthIsTokenPresence(t *testing.T) {
	r := NewRegistry()

	for _, pt := range []connection.ProviderType{connection.ProviderOAuth, connection.ProviderDeviceOAuth} {
		d, _ := r.For(pt)
		conn := &connection.Connection{Slug: "sub", Provider: pt}

		if result := d.ValidateStoredConnection(context.Background(), conn, fakeCreds{}); result.OK {
			t.Errorf("%s: expected failure with no token", pt)
		}
		if result := d.ValidateStoredConnection(context.Background(), conn, fakeCreds{"sub": "tok"}); !result.OK {
			t.Errorf("%s: presence of a token should validate: %s", pt, result.Message)
		}
	}
}

func TestCustomTestConnectionRequiresEndpoint(t *testing.T) {
	r := NewRegistry()
	d, _ := r.For(connection.ProviderCustom)

	result := d.TestConnection(context.Background(), TestRequest{Credential: "sk-x"}, DefaultProbeBudget)
	if result.OK {
		t.Error("expected failure without an endpoint")
	}
}

func TestBuildRuntimeUsesProfileDefaults(t *testing.T) {
	r := NewRegistry(WithLocalHost("http://box:11434"))

	d, _ := r.For(connection.ProviderAPIKey)
	rc := d.BuildRuntime(context.Background(), RuntimeOptions{SubProvider: "anthropic", Model: "claude-sonnet-4-5"}, ResolvedPaths{})
	if rc.BaseURL != "https://api.anthropic.com/v1/messages" {
		t.Errorf("BaseURL = %q", rc.BaseURL)
	}
	if rc.Model != "claude-sonnet-4-5" {
		t.Errorf("Model = %q", rc.Model)
	}

	d, _ = r.For(connection.ProviderLocal)
	rc = d.BuildRuntime(context.Background(), RuntimeOptions{Model: "llama3.2"}, ResolvedPaths{})
	if rc.BaseURL != "http://box:11434" {
		t.Errorf("local BaseURL = %q", rc.BaseURL)
	}

	d, _ = r.For(connection.ProviderDeviceOAuth)
	rc = d.BuildRuntime(context.Background(), RuntimeOptions{Model: "gpt-4o"}, ResolvedPaths{CopilotClientPath: "/opt/copilot/client"})
	if rc.AuxiliaryBinary != "/opt/copilot/client" {
		t.Errorf("AuxiliaryBinary = %q", rc.AuxiliaryBinary)
	}
}
