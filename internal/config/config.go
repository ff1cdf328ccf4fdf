package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/waks132/messiahx-sub000/internal/providers"
	"github.com/waks132/messiahx-sub000/internal/remoteconfig"
)

// ErrUnknownBackend is returned for an unrecognized remote_config.backend.
var ErrUnknownBackend = errors.New("unknown remote config backend")

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	logger    *slog.Logger
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// configDir is searched for config.yaml when cfgFile is empty; it may be "".
func NewManager(cfgFile, configDir string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		logger:    slog.Default(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile, configDir); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile, configDir string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("llm_providers", defaults.LLMProviders)

	// Leaf defaults so MESSIAHX_SERVER_PORT and friends override nested keys.
	v.SetDefault("defaults.llm_provider", defaults.Defaults.LLMProvider)
	v.SetDefault("defaults.model", defaults.Defaults.Model)
	v.SetDefault("defaults.max_tokens", defaults.Defaults.MaxTokens)
	v.SetDefault("defaults.language", defaults.Defaults.Language)
	v.SetDefault("remote_config.backend", defaults.RemoteConfig.Backend)
	v.SetDefault("remote_config.redis_addr", defaults.RemoteConfig.RedisAddr)
	v.SetDefault("remote_config.redis_password", defaults.RemoteConfig.RedisPassword)
	v.SetDefault("remote_config.redis_db", defaults.RemoteConfig.RedisDB)
	v.SetDefault("remote_config.redis_hash", defaults.RemoteConfig.RedisHash)
	v.SetDefault("remote_config.http_url", defaults.RemoteConfig.HTTPURL)
	v.SetDefault("remote_config.min_refresh_seconds", defaults.RemoteConfig.MinRefreshSeconds)
	v.SetDefault("remote_config.fetch_timeout_seconds", defaults.RemoteConfig.FetchTimeoutSeconds)
	v.SetDefault("remote_config.retries", defaults.RemoteConfig.Retries)
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	// Environment variables with MESSIAHX_ prefix
	v.SetEnvPrefix("MESSIAHX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if configDir != "" {
			v.AddConfigPath(configDir)
		}
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file the configuration was read from, or "".
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// SetLogger sets the logger used for reload events.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	cm.mu.Lock()
	cm.logger = logger
	cm.mu.Unlock()
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cm.reload()
	})
	cm.v.WatchConfig()
}

// reload re-reads the file and notifies callbacks. A config that no longer
// parses keeps the previous one.
func (cm *Manager) reload() {
	cm.mu.RLock()
	logger := cm.logger
	cm.mu.RUnlock()

	if err := cm.v.ReadInConfig(); err != nil {
		logger.Warn("config change rejected, keeping previous config",
			"file", cm.v.ConfigFileUsed(), "error", err)
		return
	}
	cfg, err := cm.load()
	if err != nil {
		logger.Warn("config change rejected, keeping previous config",
			"file", cm.v.ConfigFileUsed(), "error", err)
		return
	}
	logger.Info("config reloaded", "file", cm.v.ConfigFileUsed())

	cm.mu.Lock()
	cm.config = cfg
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:      llm.Type,
			Model:     llm.Model,
			APIKey:    ResolveEnvVars(llm.APIKey),
			BaseURL:   llm.BaseURL,
			RateLimit: llm.RateLimit,
			Enabled:   llm.Enabled,
		}
	}

	return cfg
}

// RemoteSource builds the remote template source. It returns nil for the
// "none" backend.
func (c *Config) RemoteSource() (remoteconfig.Source, error) {
	rc := c.RemoteConfig
	switch rc.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendRedis:
		return remoteconfig.NewRedisSource(remoteconfig.RedisOptions{
			Addr:     rc.RedisAddr,
			Password: ResolveEnvVars(rc.RedisPassword),
			DB:       rc.RedisDB,
			Hash:     rc.RedisHash,
		}), nil
	case BackendHTTP:
		if rc.HTTPURL == "" {
			return nil, fmt.Errorf("remote_config.http_url is required for the %s backend", BackendHTTP)
		}
		headers := make(map[string]string, len(rc.HTTPHeaders))
		for k, v := range rc.HTTPHeaders {
			headers[k] = ResolveEnvVars(v)
		}
		return remoteconfig.NewHTTPSource(rc.HTTPURL, headers, rc.FetchTimeout()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, rc.Backend)
	}
}

// MinRefresh returns the minimum interval between remote fetches.
func (rc RemoteConfigCfg) MinRefresh() time.Duration {
	return time.Duration(rc.MinRefreshSeconds) * time.Second
}

// FetchTimeout returns the bound on one remote fetch.
func (rc RemoteConfigCfg) FetchTimeout() time.Duration {
	return time.Duration(rc.FetchTimeoutSeconds) * time.Second
}

// Addr returns the server listen address.
func (s ServerCfg) Addr() string {
	return s.Host + ":" + s.Port
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# messiahx configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENROUTER_API_KEY=xxx OPENAI_API_KEY=xxx GEMINI_API_KEY=xxx
# remote_config.backend is one of: redis, http, none

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
