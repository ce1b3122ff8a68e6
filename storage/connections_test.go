package storage

import (
	"testing"
	"time"

	"lynkd/connection"
)

func newTestStore(t *testing.T) *ConnectionStore {
	t.Helper()
	store, err := NewConnectionStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewConnectionStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testConnection(slug string) *connection.Connection {
	return &connection.Connection{
		Slug:     slug,
		Name:     slug,
		Provider: connection.ProviderAPIKey,
		Auth:     connection.AuthAPIKey,
		Models: []connection.ModelDescriptor{
			{ID: "model-a", Name: "Model A", ContextWindow: 32768},
		},
		DefaultModel:    "model-a",
		IsAuthenticated: true,
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	conn := testConnection("work-anthropic")
	conn.SubProvider = "anthropic"
	if err := store.Save(conn); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get("work-anthropic")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for saved connection")
	}
	if got.Name != conn.Name || got.Provider != conn.Provider || got.SubProvider != "anthropic" {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if len(got.Models) != 1 || got.Models[0].ID != "model-a" {
		t.Errorf("models not preserved: %+v", got.Models)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set on save")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get("nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing slug, got %+v", got)
	}
}

func TestFirstConnectionBecomesDefault(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(testConnection("first")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.GetDefault()
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if got == nil || got.Slug != "first" {
		t.Fatalf("expected first connection to be default, got %+v", got)
	}
}

func TestSetDefaultIsExclusive(t *testing.T) {
	store := newTestStore(t)

	for _, slug := range []string{"one", "two", "three"} {
		if err := store.Save(testConnection(slug)); err != nil {
			t.Fatalf("Save(%s): %v", slug, err)
		}
	}

	if err := store.SetDefault("two"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}

	conns, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var defaults []string
	for _, c := range conns {
		if c.IsDefault {
			defaults = append(defaults, c.Slug)
		}
	}
	if len(defaults) != 1 || defaults[0] != "two" {
		t.Errorf("expected exactly [two] as default, got %v", defaults)
	}
}

func TestSetDefaultUnknownSlug(t *testing.T) {
	store := newTestStore(t)

	if err := store.SetDefault("ghost"); err == nil {
		t.Error("expected error for unknown slug")
	}
}

func TestDeleteDefaultPromotesOldest(t *testing.T) {
	store := newTestStore(t)

	older := testConnection("older")
	if err := store.Save(older); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	newer := testConnection("newer")
	if err := store.Save(newer); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// "older" is the default (first saved). Delete it.
	if err := store.Delete("older"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := store.GetDefault()
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if got == nil || got.Slug != "newer" {
		t.Fatalf("expected promotion to newer, got %+v", got)
	}
}

func TestDeleteLastConnectionLeavesEmptyStore(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(testConnection("only")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete("only"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := store.GetDefault()
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if got != nil {
		t.Errorf("expected empty store, got %+v", got)
	}
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	store := newTestStore(t)

	conn := testConnection("stable")
	if err := store.Save(conn); err != nil {
		t.Fatalf("Save: %v", err)
	}
	created := conn.CreatedAt

	time.Sleep(5 * time.Millisecond)
	conn.Name = "renamed"
	if err := store.Save(conn); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := store.Get("stable")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on update: %v != %v", got.CreatedAt, created)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt not advanced: %v", got.UpdatedAt)
	}
	if got.Name != "renamed" {
		t.Errorf("update not applied: %s", got.Name)
	}
}

func TestUpdateKeepsDefaultFlag(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(testConnection("primary")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(testConnection("secondary")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Editing rebuilds the record from the form, so the flag arrives unset.
	edited := testConnection("primary")
	edited.Name = "Primary (renamed)"
	if err := store.Save(edited); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	def, err := store.GetDefault()
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if def == nil {
		t.Fatal("store is non-empty but has no default connection")
	}
	if def.Slug != "primary" {
		t.Errorf("default moved to %s", def.Slug)
	}

	// Updating a non-default row must not steal the flag either.
	if err := store.Save(testConnection("secondary")); err != nil {
		t.Fatalf("Save update: %v", err)
	}
	def, err = store.GetDefault()
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if def == nil || def.Slug != "primary" {
		t.Errorf("default not preserved across non-default update: %+v", def)
	}
}

func TestSlugs(t *testing.T) {
	store := newTestStore(t)

	for _, slug := range []string{"beta", "alpha"} {
		if err := store.Save(testConnection(slug)); err != nil {
			t.Fatalf("Save(%s): %v", slug, err)
		}
	}

	slugs, err := store.Slugs()
	if err != nil {
		t.Fatalf("Slugs: %v", err)
	}
	if len(slugs) != 2 || slugs[0] != "alpha" || slugs[1] != "beta" {
		t.Errorf("unexpected slugs: %v", slugs)
	}
}
