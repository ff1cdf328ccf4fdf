package config

// Config holds messiahx configuration.
// Stored at: ./config.yaml or ~/.messiahx/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	RemoteConfig RemoteConfigCfg           `mapstructure:"remote_config" yaml:"remote_config"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	Log          LogCfg                    `mapstructure:"log" yaml:"log"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`                   // "openrouter", "openai", "gemini", "mock"
	Model     string `mapstructure:"model" yaml:"model"`                 // Model name
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`             // API key (supports ${ENV_VAR} syntax)
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"` // Optional endpoint override
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"`       // Requests per minute
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default selections for actions.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Provider used by every action
	Model       string `mapstructure:"model" yaml:"model,omitempty"`     // Overrides the provider's model when set
	MaxTokens   int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	Language    string `mapstructure:"language" yaml:"language"` // Used when a request carries no language
}

// RemoteConfigCfg configures the remote template store.
type RemoteConfigCfg struct {
	// Backend is "redis", "http" or "none".
	Backend string `mapstructure:"backend" yaml:"backend"`

	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password,omitempty"` // Supports ${ENV_VAR} syntax
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisHash     string `mapstructure:"redis_hash" yaml:"redis_hash"`

	HTTPURL     string            `mapstructure:"http_url" yaml:"http_url,omitempty"`
	HTTPHeaders map[string]string `mapstructure:"http_headers" yaml:"http_headers,omitempty"` // Values support ${ENV_VAR} syntax

	MinRefreshSeconds   int `mapstructure:"min_refresh_seconds" yaml:"min_refresh_seconds"`
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds"`
	Retries             int `mapstructure:"retries" yaml:"retries"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// LogCfg configures logging.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// Remote config backends.
const (
	BackendRedis = "redis"
	BackendHTTP  = "http"
	BackendNone  = "none"
)

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				Model:     "google/gemini-2.5-flash",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 150,
				Enabled:   true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o-mini",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: false,
			},
			"gemini": {
				Type:    "gemini",
				Model:   "gemini-2.5-flash",
				APIKey:  "${GEMINI_API_KEY}",
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openrouter",
			MaxTokens:   4096,
			Language:    "fr",
		},
		RemoteConfig: RemoteConfigCfg{
			Backend:             BackendRedis,
			RedisAddr:           "localhost:6379",
			RedisHash:           "messiahx:prompts",
			MinRefreshSeconds:   60,
			FetchTimeoutSeconds: 10,
			Retries:             3,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
