package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCredentialStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Set("work-anthropic", "sk-ant-secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set("copilot", "gho_token"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewCredentialStore(SecurityPlainText, "")
	if err := reloaded.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := reloaded.Get("work-anthropic"); got != "sk-ant-secret" {
		t.Errorf("Get = %q", got)
	}
	if got := reloaded.Get("copilot"); got != "gho_token" {
		t.Errorf("Get = %q", got)
	}
	if got := reloaded.Get("missing"); got != "" {
		t.Errorf("missing slug should yield empty, got %q", got)
	}
}

func TestCredentialStoreDelete(t *testing.T) {
	dir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("gone", "secret")
	if err := store.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewCredentialStore(SecurityPlainText, "")
	reloaded.Load(dir)
	if got := reloaded.Get("gone"); got != "" {
		t.Errorf("deleted credential survived: %q", got)
	}
}

func TestCredentialFilePermissions(t *testing.T) {
	dir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("slug", "secret")
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "credentials.toml"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credentials file mode = %o, want 0600", perm)
	}
}

func TestLoadMissingFileIsEmptyStore(t *testing.T) {
	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Load(t.TempDir()); err != nil {
		t.Fatalf("Load of empty dir: %v", err)
	}
	if got := store.Get("anything"); got != "" {
		t.Errorf("unexpected credential: %q", got)
	}
}
