package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/gorewood/cadence/internal/output"
)

// providerPrefixes maps explicit prefixes to providers for combined format parsing.
var providerPrefixes = map[string]Provider{
	"claude-":    ProviderAnthropic,
	"anthropic-": ProviderAnthropic,
	"gemini-":    ProviderGoogle,
	"google-":    ProviderGoogle,
	"openai-":    ProviderOpenAI,
	"local-":     ProviderLocal,
}

// parseProviderPrefix extracts provider from combined format like "claude-haiku".
// Returns empty provider if no prefix matches.
func parseProviderPrefix(model string) (Provider, string) {
	modelLower := strings.ToLower(model)
	for prefix, provider := range providerPrefixes {
		if strings.HasPrefix(modelLower, prefix) {
			return provider, model[len(prefix):]
		}
	}
	return "", model
}

// providerPattern maps model substrings to providers.
type providerPattern struct {
	substring string
	provider  Provider
}

var providerPatterns = []providerPattern{
	{"claude", ProviderAnthropic},
	{"haiku", ProviderAnthropic},
	{"sonnet", ProviderAnthropic},
	{"opus", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"nano", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"flash", ProviderGoogle},
	{"local", ProviderLocal},
	{"qwen", ProviderLocal},
	{"llama", ProviderLocal},
	{"mistral", ProviderLocal},
	{"phi", ProviderLocal},
}

// inferProvider guesses the provider from the model name.
func inferProvider(model string) Provider {
	modelLower := strings.ToLower(model)
	for _, p := range providerPatterns {
		if strings.Contains(modelLower, p.substring) {
			return p.provider
		}
	}
	return ProviderAnthropic
}

// Model aliases - just convenient shorthands, users can pass full names directly.
var modelAliases = map[Provider]map[string]string{
	ProviderAnthropic: {
		"haiku":  "claude-haiku-4-5-20251001",
		"sonnet": "claude-sonnet-4-5-20250929",
		"opus":   "claude-opus-4-6",
	},
	ProviderOpenAI: {
		"nano": "gpt-5-nano",
		"mini": "gpt-5-mini",
		"gpt":  "gpt-5.2",
	},
	ProviderGoogle: {
		"flash":      "gemini-3-flash-preview",
		"flash-lite": "gemini-2.5-flash-lite",
		"pro":        "gemini-3-pro-preview",
	},
	ProviderLocal: {
		"local": "default",
	},
}

// resolveModelAlias expands shorthand aliases, passes through unknown names.
func resolveModelAlias(model string, provider Provider) string {
	if aliases, ok := modelAliases[provider]; ok {
		if resolved, ok := aliases[strings.ToLower(model)]; ok {
			return resolved
		}
	}
	return model
}

// envVarForProvider maps providers to their API key environment variables.
var envVarForProvider = map[Provider]string{
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderGoogle:    "GOOGLE_API_KEY",
	ProviderLocal:     "", // Local provider doesn't require an API key
}

// APIKeyEnvVars returns the environment variables that hold provider keys.
func APIKeyEnvVars() []string {
	vars := make([]string, 0, len(envVarForProvider))
	for _, envVar := range envVarForProvider {
		if envVar != "" {
			vars = append(vars, envVar)
		}
	}
	return vars
}

func apiKeyFor(provider Provider) (string, error) {
	envVar, ok := envVarForProvider[provider]
	if !ok {
		return "", output.NewUserError(fmt.Sprintf("unsupported provider: %s", provider))
	}

	// Local provider doesn't require an API key
	if envVar == "" {
		return "not-needed", nil
	}

	key := os.Getenv(envVar)
	if key == "" {
		return "", output.NewUserError(envVar + " environment variable not set")
	}
	return key, nil
}
