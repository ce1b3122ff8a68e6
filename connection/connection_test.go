package connection

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "My Claude", "my-claude"},
		{"punctuation collapsed", "Work / Anthropic (prod)", "work-anthropic-prod"},
		{"leading and trailing junk", "  --Copilot!  ", "copilot"},
		{"already a slug", "local-ollama", "local-ollama"},
		{"digits kept", "gpt 4 backup", "gpt-4-backup"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlugTaken(t *testing.T) {
	existing := []string{"work-claude", "local-ollama"}

	if !SlugTaken("work-claude", existing) {
		t.Error("expected collision for existing slug")
	}
	if SlugTaken("new-connection", existing) {
		t.Error("unexpected collision for fresh slug")
	}
	if SlugTaken("anything", nil) {
		t.Error("empty collection can never collide")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "(not set)"},
		{"short", "abc", "***"},
		{"long", "sk-ant-0123456789", "sk-**********6789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskSecret(tt.input); got != tt.want {
				t.Errorf("MaskSecret(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEffectiveEndpoint(t *testing.T) {
	anthropic := ProfileFor("anthropic")

	tests := []struct {
		name     string
		override string
		want     string
	}{
		{"default base", "", "https://api.anthropic.com/v1/messages"},
		{"override", "https://proxy.example.com", "https://proxy.example.com/v1/messages"},
		{"override with trailing slash", "https://proxy.example.com///", "https://proxy.example.com/v1/messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveEndpoint(tt.override, anthropic); got != tt.want {
				t.Errorf("EffectiveEndpoint(%q) = %q, want %q", tt.override, got, tt.want)
			}
		})
	}
}

func TestProfileForUnknownTagFallsBackToOpenAI(t *testing.T) {
	p := ProfileFor("some-proxy")
	if p.MessagesPath != "/chat/completions" {
		t.Errorf("unknown tag should use the OpenAI-compatible profile, got path %q", p.MessagesPath)
	}
	if p.AuthScheme != "Bearer" {
		t.Errorf("expected Bearer scheme, got %q", p.AuthScheme)
	}
}

func TestRegistryModels(t *testing.T) {
	claude := RegistryModels("claude")
	if len(claude) == 0 {
		t.Fatal("claude registry must not be empty")
	}
	for _, m := range claude {
		if m.ID == "" || m.Name == "" {
			t.Errorf("registry entry incomplete: %+v", m)
		}
	}

	if got := RegistryModels("no-such-tag"); got != nil {
		t.Errorf("unknown tag should yield nil, got %d models", len(got))
	}

	all := RegistryModels("")
	if len(all) != len(claude)+len(RegistryModels("chatgpt")) {
		t.Error("untagged lookup should return the full registry")
	}

	seen := map[string]bool{}
	for _, m := range all {
		if seen[m.ID] {
			t.Errorf("duplicate model id in registry: %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestDefaultAuthType(t *testing.T) {
	tests := []struct {
		pt   ProviderType
		want AuthType
	}{
		{ProviderAPIKey, AuthAPIKey},
		{ProviderOAuth, AuthOAuth},
		{ProviderDeviceOAuth, AuthOAuth},
		{ProviderLocal, AuthNone},
		{ProviderCustom, AuthAPIKey},
	}

	for _, tt := range tests {
		if got := DefaultAuthType(tt.pt); got != tt.want {
			t.Errorf("DefaultAuthType(%s) = %s, want %s", tt.pt, got, tt.want)
		}
	}
}
