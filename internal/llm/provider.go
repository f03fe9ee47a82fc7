package llm

import (
	"strings"
	"time"
)

// Provider identifiers accepted in LLM_PROVIDER.
const (
	ProviderOpenAI     = "openai"
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
)

const DefaultTimeout = 120 * time.Second

// Credentials holds one provider's key and optional model override.
type Credentials struct {
	APIKey string
	Model  string
}

// Settings is the provider configuration read at startup.
type Settings struct {
	Provider    string
	BaseURL     string
	Timeout     time.Duration
	Credentials map[string]Credentials
}

// Endpoint is a fully resolved OpenAI-compatible target.
type Endpoint struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

type providerDefaults struct {
	baseURL string
	keyEnv  string
	model   string
}

var providers = map[string]providerDefaults{
	ProviderOpenAI:     {baseURL: "https://api.openai.com/v1", keyEnv: "OPENAI_API_KEY", model: "gpt-4o-mini"},
	ProviderGroq:       {baseURL: "https://api.groq.com/openai/v1", keyEnv: "GROQ_API_KEY", model: "llama-3.1-8b-instant"},
	ProviderOpenRouter: {baseURL: "https://openrouter.ai/api/v1", keyEnv: "OPENROUTER_API_KEY", model: "openai/gpt-4o-mini"},
}

// NormalizeProvider maps a configured identifier onto a known provider.
// Unknown and empty identifiers select OpenAI.
func NormalizeProvider(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := providers[name]; ok {
		return name
	}
	return ProviderOpenAI
}

// ResolveProvider picks the endpoint, credential and model for the configured
// provider. It fails with a *ConfigurationError when the credential is empty.
func ResolveProvider(s Settings) (Endpoint, error) {
	name := NormalizeProvider(s.Provider)
	defaults := providers[name]
	creds := s.Credentials[name]

	apiKey := strings.TrimSpace(creds.APIKey)
	if apiKey == "" {
		return Endpoint{}, &ConfigurationError{Key: defaults.keyEnv}
	}

	model := strings.TrimSpace(creds.Model)
	if model == "" {
		model = defaults.model
	}
	baseURL := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaults.baseURL
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return Endpoint{
		Provider: name,
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Model:    model,
		Timeout:  timeout,
	}, nil
}
