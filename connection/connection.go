// Package connection defines the provider-agnostic types shared by the
// driver layer, the persistence layer and the onboarding wizard.
//
// LYNKD supports several kinds of LLM backends (direct API-key providers,
// OAuth subscriptions, the GitHub Copilot device-code flow, local Ollama
// and user-declared OpenAI-compatible endpoints) through one Connection
// record. The types here carry no I/O; everything that talks to the
// network lives in the driver and oauth packages.
package connection

import (
	"strings"
	"time"
)

// ProviderType identifies a backend family. The set is closed; the driver
// dispatch table is keyed by it and covered by an exhaustiveness test.
type ProviderType string

const (
	ProviderAPIKey      ProviderType = "pi_api_key"
	ProviderOAuth       ProviderType = "oauth"
	ProviderDeviceOAuth ProviderType = "device_oauth"
	ProviderLocal       ProviderType = "local"
	ProviderCustom      ProviderType = "custom"
)

// AllProviderTypes returns every member of the closed enum, in a stable
// order. Used by the dispatch-table exhaustiveness test and the wizard.
func AllProviderTypes() []ProviderType {
	return []ProviderType{
		ProviderAPIKey,
		ProviderOAuth,
		ProviderDeviceOAuth,
		ProviderLocal,
		ProviderCustom,
	}
}

// AuthType describes how a connection authenticates.
type AuthType string

const (
	AuthAPIKey AuthType = "api_key"
	AuthOAuth  AuthType = "oauth"
	AuthNone   AuthType = "none"
)

// ModelDescriptor describes one model offered by a connection.
// A descriptor with only ID set is a "bare" entry (user typed just an
// identifier); the resolver upgrades those before they reach the UI.
type ModelDescriptor struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	ShortName        string `json:"short_name,omitempty"`
	Provider         string `json:"provider,omitempty"`
	ContextWindow    int    `json:"context_window,omitempty"`
	SupportsThinking bool   `json:"supports_thinking,omitempty"`
}

// IsBare reports whether the entry carries only an identifier.
func (m ModelDescriptor) IsBare() bool {
	return m.Name == "" && m.ShortName == "" && m.ContextWindow == 0
}

// Connection is a configured, nameable binding to one external backend.
//
// Invariants (enforced by storage.ConnectionStore):
//   - Slug is immutable once created and unique within the store.
//   - Exactly one connection has IsDefault set while the store is non-empty.
//
// Credentials are never stored on the Connection; they live in the
// credential store keyed by Slug.
type Connection struct {
	Slug            string            `json:"slug"`
	Name            string            `json:"name"`
	Provider        ProviderType      `json:"provider"`
	Auth            AuthType          `json:"auth"`
	Endpoint        string            `json:"endpoint,omitempty"`     // optional base-URL override
	SubProvider     string            `json:"sub_provider,omitempty"` // disambiguates OAuth back-ends
	Models          []ModelDescriptor `json:"models,omitempty"`
	DefaultModel    string            `json:"default_model,omitempty"`
	IsDefault       bool              `json:"is_default"`
	IsAuthenticated bool              `json:"is_authenticated"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// HasCustomEndpoint reports whether the user declared their own endpoint,
// which makes the model list user-owned (never overwritten by a fetch).
func (c *Connection) HasCustomEndpoint() bool {
	return c.Provider == ProviderCustom && c.Endpoint != ""
}

// ValidationResult is the terminal value of every connectivity check.
// It is always returned, never panicked or left as a stray error.
type ValidationResult struct {
	OK      bool
	Message string
}

// Valid returns a successful result.
func Valid() ValidationResult { return ValidationResult{OK: true} }

// Invalid returns a failed result with a human-readable reason.
func Invalid(message string) ValidationResult {
	return ValidationResult{OK: false, Message: message}
}

// Slugify derives a stable slug from a display name: lower-cased, runs of
// non-alphanumerics collapsed to single dashes, trimmed.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// SlugTaken reports whether slug collides with an existing one. The wizard
// consults this on every new connection name so collisions surface as an
// inline error instead of a silent overwrite.
func SlugTaken(slug string, existing []string) bool {
	for _, e := range existing {
		if e == slug {
			return true
		}
	}
	return false
}

// MaskSecret masks an API key or token for display, keeping just enough
// of the edges to be recognizable.
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) < 8 {
		return "***"
	}
	return secret[:3] + strings.Repeat("*", len(secret)-7) + secret[len(secret)-4:]
}
