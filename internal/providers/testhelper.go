package providers

import (
	"os"
)

// TestConfig holds provider configurations loaded from environment variables.
// This allows tests to use the same configuration pattern as production.
type TestConfig struct {
	OpenRouterAPIKey string
	OpenAIAPIKey     string
	GeminiAPIKey     string
}

// LoadTestConfig loads provider API keys from environment variables.
// Returns a TestConfig with whatever keys are available.
func LoadTestConfig() TestConfig {
	return TestConfig{
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
	}
}

// HasOpenRouter returns true if OpenRouter API key is configured.
func (c TestConfig) HasOpenRouter() bool {
	return c.OpenRouterAPIKey != ""
}

// HasOpenAI returns true if OpenAI API key is configured.
func (c TestConfig) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasGemini returns true if Gemini API key is configured.
func (c TestConfig) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasAnyLLM returns true if any LLM provider is configured.
func (c TestConfig) HasAnyLLM() bool {
	return c.HasOpenRouter() || c.HasOpenAI() || c.HasGemini()
}

// ToRegistryConfig converts test config to a RegistryConfig for the provider registry.
// Only includes providers that have API keys configured.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{
		LLMProviders: make(map[string]LLMProviderConfig),
	}

	if c.HasOpenRouter() {
		cfg.LLMProviders[TypeOpenRouter] = LLMProviderConfig{
			Type:      TypeOpenRouter,
			APIKey:    c.OpenRouterAPIKey,
			RateLimit: 60,
			Enabled:   true,
		}
	}
	if c.HasOpenAI() {
		cfg.LLMProviders[TypeOpenAI] = LLMProviderConfig{
			Type:      TypeOpenAI,
			APIKey:    c.OpenAIAPIKey,
			RateLimit: 60,
			Enabled:   true,
		}
	}
	if c.HasGemini() {
		cfg.LLMProviders[TypeGemini] = LLMProviderConfig{
			Type:      TypeGemini,
			APIKey:    c.GeminiAPIKey,
			RateLimit: 60,
			Enabled:   true,
		}
	}

	return cfg
}
