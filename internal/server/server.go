package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/waks132/messiahx-sub000/internal/analysis"
	"github.com/waks132/messiahx-sub000/internal/api"
	"github.com/waks132/messiahx-sub000/internal/config"
	"github.com/waks132/messiahx-sub000/internal/home"
	"github.com/waks132/messiahx-sub000/internal/invoke"
	"github.com/waks132/messiahx-sub000/internal/metrics"
	"github.com/waks132/messiahx-sub000/internal/normalize"
	"github.com/waks132/messiahx-sub000/internal/prompts"
	"github.com/waks132/messiahx-sub000/internal/providers"
	"github.com/waks132/messiahx-sub000/internal/remoteconfig"
	"github.com/waks132/messiahx-sub000/internal/server/endpoints"
	"github.com/waks132/messiahx-sub000/internal/svcctx"
)

// Server is the main messiahx HTTP server.
// It owns the provider registry, the remote configuration client and the
// action service, and closes the remote source on shutdown.
type Server struct {
	httpServer   *http.Server
	registry     *providers.Registry
	remote       *remoteconfig.Client
	remoteSource remoteconfig.Source
	adapter      *invoke.Adapter
	recorder     *metrics.Recorder
	configMgr    *config.Manager
	logger       *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	running  bool
	listener net.Listener
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: config server.host)
	Host string
	// Port is the port to listen on (default: config server.port). "0" picks a free port.
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home is where uploaded template documents are stored. Optional.
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	appCfg := cfg.ConfigManager.Get()
	if cfg.Host == "" {
		cfg.Host = appCfg.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = appCfg.Server.Port
	}

	recorder := metrics.NewRecorder()

	// Create provider registry
	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)
	registry.Reload(context.Background(), appCfg.ToProviderRegistryConfig())

	source, err := appCfg.RemoteSource()
	if err != nil {
		return nil, fmt.Errorf("failed to create remote config source: %w", err)
	}
	var remote *remoteconfig.Client
	var store prompts.RemoteStore
	if source != nil {
		remote = remoteconfig.NewClient(source, remoteconfig.Options{
			MinRefreshInterval: appCfg.RemoteConfig.MinRefresh(),
			FetchTimeout:       appCfg.RemoteConfig.FetchTimeout(),
			Attempts:           uint(appCfg.RemoteConfig.Retries),
			Logger:             cfg.Logger,
			OnRefresh:          recorder.RecordRefresh,
		})
		store = remote
	}

	resolver, err := prompts.NewResolver(store, cfg.Logger, prompts.WithObserver(recorder))
	if err != nil {
		return nil, fmt.Errorf("failed to load default templates: %w", err)
	}

	adapter := invoke.NewAdapter(registry, appCfg.Defaults.LLMProvider, cfg.Logger)
	actions := analysis.NewService(resolver, adapter, normalize.New(cfg.Logger), analysis.Options{
		Model:     appCfg.Defaults.Model,
		MaxTokens: appCfg.Defaults.MaxTokens,
		Recorder:  recorder,
		Logger:    cfg.Logger,
	})

	// Watch for config changes
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		registry.Reload(context.Background(), c.ToProviderRegistryConfig())
		adapter.SetProvider(c.Defaults.LLMProvider)
		cfg.Logger.Info("provider registry reloaded from config", "default", c.Defaults.LLMProvider)
	})

	s := &Server{
		registry:     registry,
		remote:       remote,
		remoteSource: source,
		adapter:      adapter,
		recorder:     recorder,
		configMgr:    cfg.ConfigManager,
		logger:       cfg.Logger,
	}

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Registry:        registry,
		Resolver:        resolver,
		Remote:          remote,
		Adapter:         adapter,
		Actions:         actions,
		Metrics:         recorder,
		Config:          cfg.ConfigManager,
		Logger:          cfg.Logger,
		Home:            cfg.Home,
		DefaultLanguage: appCfg.Defaults.Language,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:     s.withServices(mux),
		ReadTimeout: 30 * time.Second,
		// Model calls on long texts are slow
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server.
// It blocks until the context is cancelled or an error occurs.
// A remote configuration service that cannot be reached is logged, not fatal:
// templates fall back to their defaults until it answers.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.remote != nil {
		s.logger.Info("fetching remote configuration", "source", s.remoteSource.Name())
		if err := s.remote.Refresh(ctx); err != nil {
			s.logger.Warn("remote configuration unavailable, using default templates", "error", err)
		} else {
			s.logger.Info("remote configuration loaded", "keys", s.remote.Status().Keys)
		}
	}

	if !s.registry.HasLLM(s.adapter.Provider()) {
		s.logger.Warn("default model provider is not registered", "provider", s.adapter.Provider())
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.setNotRunning()
		s.closeRemote()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and the remote source.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.closeRemote()
	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) closeRemote() {
	if c, ok := s.remoteSource.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Error("remote config source close error", "error", err)
		}
	}
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.listener = nil
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address. Once the server is listening it
// is the bound address, so a "0" port resolves to the chosen one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Handler returns the server's HTTP handler with services attached.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Services returns the services attached to every request.
func (s *Server) Services() *svcctx.Services {
	return s.services
}
