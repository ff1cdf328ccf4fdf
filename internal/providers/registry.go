package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Provider types accepted in configuration.
const (
	TypeOpenRouter = "openrouter"
	TypeOpenAI     = "openai"
	TypeGemini     = "gemini"
	TypeMock       = "mock"
)

// Registry holds references to LLM clients.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]LLMClient
	configs    map[string]LLMProviderConfig
	logger     *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		configs:    make(map[string]LLMProviderConfig),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	delete(r.configs, name)
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// UnregisterLLM removes an LLM client by name.
func (r *Registry) UnregisterLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.llmClients, name)
	delete(r.configs, name)
	if r.logger != nil {
		r.logger.Info("unregistered LLM client", "name", name)
	}
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// LLMClients returns a map of all registered LLM clients.
func (r *Registry) LLMClients() map[string]LLMClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]LLMClient, len(r.llmClients))
	for name, client := range r.llmClients {
		result[name] = client
	}
	return result
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	// LLMProviders maps provider names to their config
	LLMProviders map[string]LLMProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type      string // "openrouter", "openai", "gemini", "mock"
	Model     string // Default model name
	APIKey    string // Resolved API key
	BaseURL   string // Optional endpoint override
	RateLimit int    // Requests per minute (0 = unlimited)
	Enabled   bool
}

// usable reports whether the provider should be instantiated. The mock type
// needs no key.
func (c LLMProviderConfig) usable() bool {
	if !c.Enabled {
		return false
	}
	return c.Type == TypeMock || c.APIKey != ""
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(ctx context.Context, cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(ctx, cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(ctx context.Context, cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)

	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.usable() {
			continue
		}
		want[name] = true

		prev, hasExisting := r.configs[name]
		if _, registered := r.llmClients[name]; registered && hasExisting && prev == provCfg {
			continue
		}

		client, err := createLLMClient(ctx, provCfg)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("failed to create LLM client", "name", name, "type", provCfg.Type, "error", err)
			}
			continue
		}
		r.llmClients[name] = client
		r.configs[name] = provCfg
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
			}
		}
	}

	// Remove providers that are no longer configured
	for name := range r.llmClients {
		if !want[name] {
			delete(r.llmClients, name)
			delete(r.configs, name)
			if r.logger != nil {
				r.logger.Info("unregistered LLM client", "name", name)
			}
		}
	}
}

// createLLMClient creates an LLM client based on provider type, wrapped in a
// rate limiter when the config sets one.
func createLLMClient(ctx context.Context, cfg LLMProviderConfig) (LLMClient, error) {
	var client LLMClient
	switch cfg.Type {
	case TypeOpenRouter:
		client = NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
	case TypeOpenAI:
		client = NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
	case TypeGemini:
		g, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
		if err != nil {
			return nil, err
		}
		client = g
	case TypeMock:
		client = NewMockClient()
	default:
		return nil, fmt.Errorf("unknown provider type: %q", cfg.Type)
	}

	if cfg.RateLimit > 0 {
		client = NewRateLimitedClient(client, NewRateLimiter(cfg.RateLimit))
	}
	return client, nil
}
