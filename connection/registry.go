package connection

import "strings"

// ProbeProfile describes how the probe engine reaches a backend: the base
// URL to use when the connection carries no override, the canonical
// message-submission path, and how the credential travels.
type ProbeProfile struct {
	DefaultBaseURL string
	MessagesPath   string
	AuthHeader     string // header name carrying the credential
	AuthScheme     string // optional value prefix, e.g. "Bearer"
	ExtraHeaders   map[string]string
}

// probeProfiles is keyed by sub-provider tag for pi_api_key connections.
// Custom connections reuse the openai profile with the user's endpoint.
var probeProfiles = map[string]ProbeProfile{
	"anthropic": {
		DefaultBaseURL: "https://api.anthropic.com",
		MessagesPath:   "/v1/messages",
		AuthHeader:     "x-api-key",
		ExtraHeaders:   map[string]string{"anthropic-version": "2023-06-01"},
	},
	"openai": {
		DefaultBaseURL: "https://api.openai.com/v1",
		MessagesPath:   "/chat/completions",
		AuthHeader:     "Authorization",
		AuthScheme:     "Bearer",
	},
	"openrouter": {
		DefaultBaseURL: "https://openrouter.ai/api/v1",
		MessagesPath:   "/chat/completions",
		AuthHeader:     "Authorization",
		AuthScheme:     "Bearer",
	},
}

// ProfileFor returns the probe profile for a key-auth sub-provider tag.
// Unknown tags fall back to the OpenAI-compatible profile, which is what
// custom endpoints speak.
func ProfileFor(subProvider string) ProbeProfile {
	if p, ok := probeProfiles[strings.ToLower(subProvider)]; ok {
		return p
	}
	return probeProfiles["openai"]
}

// EffectiveEndpoint builds the full probe URL from an optional override
// and the profile defaults, normalizing trailing slashes.
func EffectiveEndpoint(override string, profile ProbeProfile) string {
	base := override
	if base == "" {
		base = profile.DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + profile.MessagesPath
}

// OAuthEndpoints describes one browser-redirect OAuth back-end. Two
// back-ends share the "oauth" provider type, so lookups are keyed by
// sub-provider tag.
type OAuthEndpoints struct {
	AuthorizeURL string
	TokenURL     string
	ClientID     string
	RedirectURI  string
	Scopes       []string
}

var oauthEndpoints = map[string]OAuthEndpoints{
	"claude": {
		AuthorizeURL: "https://claude.ai/oauth/authorize",
		TokenURL:     "https://console.anthropic.com/v1/oauth/token",
		ClientID:     "9d1c250a-e61b-44d9-88ed-5944d1962f5e",
		RedirectURI:  "https://console.anthropic.com/oauth/code/callback",
		Scopes:       []string{"org:create_api_key", "user:profile", "user:inference"},
	},
	"chatgpt": {
		AuthorizeURL: "https://auth.openai.com/oauth/authorize",
		TokenURL:     "https://auth.openai.com/oauth/token",
		ClientID:     "app_EMoamEEZ73f0CkXaXp7hrann",
		RedirectURI:  "http://localhost:1455/auth/callback",
		Scopes:       []string{"openid", "profile", "email", "offline_access"},
	},
}

// OAuthEndpointsFor returns the endpoints for a subscription back-end.
func OAuthEndpointsFor(subProvider string) (OAuthEndpoints, bool) {
	ep, ok := oauthEndpoints[strings.ToLower(subProvider)]
	return ep, ok
}

// DisplayName returns the user-facing name of a provider type.
func DisplayName(pt ProviderType) string {
	switch pt {
	case ProviderAPIKey:
		return "API Key"
	case ProviderOAuth:
		return "Subscription (OAuth)"
	case ProviderDeviceOAuth:
		return "GitHub Copilot"
	case ProviderLocal:
		return "Ollama (local)"
	case ProviderCustom:
		return "Custom Endpoint"
	default:
		return string(pt)
	}
}

// DefaultAuthType returns the auth type implied by a provider type.
func DefaultAuthType(pt ProviderType) AuthType {
	switch pt {
	case ProviderOAuth, ProviderDeviceOAuth:
		return AuthOAuth
	case ProviderLocal:
		return AuthNone
	default:
		return AuthAPIKey
	}
}
