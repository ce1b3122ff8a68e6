package connection

// Curated model registry for subscription back-ends. These catalogs are
// static on purpose: subscription APIs gate their listing endpoints behind
// runtime sessions, so onboarding resolves models from this table keyed by
// sub-provider tag.

// Context-window defaults applied when a source does not report one.
const (
	CopilotContextWindow = 128000
	GenericContextWindow = 32768
)

var modelRegistry = map[string][]ModelDescriptor{
	"claude": {
		{
			ID:               "claude-opus-4-5",
			Name:             "Claude Opus 4.5",
			ShortName:        "Opus",
			Provider:         "anthropic",
			ContextWindow:    200000,
			SupportsThinking: true,
		},
		{
			ID:               "claude-sonnet-4-5-20250929",
			Name:             "Claude Sonnet 4.5",
			ShortName:        "Sonnet",
			Provider:         "anthropic",
			ContextWindow:    200000,
			SupportsThinking: true,
		},
		{
			ID:            "claude-haiku-4-5",
			Name:          "Claude Haiku 4.5",
			ShortName:     "Haiku",
			Provider:      "anthropic",
			ContextWindow: 200000,
		},
	},
	"chatgpt": {
		{
			ID:               "gpt-5.1",
			Name:             "GPT-5.1",
			ShortName:        "GPT-5.1",
			Provider:         "openai",
			ContextWindow:    272000,
			SupportsThinking: true,
		},
		{
			ID:               "gpt-5.1-codex",
			Name:             "GPT-5.1 Codex",
			ShortName:        "Codex",
			Provider:         "openai",
			ContextWindow:    272000,
			SupportsThinking: true,
		},
		{
			ID:            "gpt-5.1-codex-mini",
			Name:          "GPT-5.1 Codex Mini",
			ShortName:     "Codex Mini",
			Provider:      "openai",
			ContextWindow: 272000,
		},
	},
}

// Key-auth sub-provider tags share the subscription catalogs.
var registryAliases = map[string]string{
	"anthropic": "claude",
	"openai":    "chatgpt",
}

// RegistryModels looks up the static catalog for a sub-provider tag.
// An empty tag returns the full registry in tag order; an unknown tag
// returns nil (the resolver turns that into ErrNoModelsFound).
func RegistryModels(subProvider string) []ModelDescriptor {
	if alias, ok := registryAliases[subProvider]; ok {
		subProvider = alias
	}
	if subProvider != "" {
		return modelRegistry[subProvider]
	}
	var all []ModelDescriptor
	for _, tag := range []string{"claude", "chatgpt"} {
		all = append(all, modelRegistry[tag]...)
	}
	return all
}
