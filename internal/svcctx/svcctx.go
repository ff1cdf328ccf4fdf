// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/waks132/messiahx-sub000/internal/analysis"
	"github.com/waks132/messiahx-sub000/internal/config"
	"github.com/waks132/messiahx-sub000/internal/home"
	"github.com/waks132/messiahx-sub000/internal/invoke"
	"github.com/waks132/messiahx-sub000/internal/metrics"
	"github.com/waks132/messiahx-sub000/internal/prompts"
	"github.com/waks132/messiahx-sub000/internal/providers"
	"github.com/waks132/messiahx-sub000/internal/remoteconfig"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Registry *providers.Registry
	Resolver *prompts.Resolver
	Remote   *remoteconfig.Client // nil when no remote backend is configured
	Adapter  *invoke.Adapter
	Actions  *analysis.Service
	Metrics  *metrics.Recorder
	Config   *config.Manager
	Logger   *slog.Logger
	Home     *home.Dir

	// DefaultLanguage is used for requests that carry no language.
	DefaultLanguage string
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// ResolverFrom extracts the template resolver from context.
func ResolverFrom(ctx context.Context) *prompts.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.Resolver
	}
	return nil
}

// RemoteFrom extracts the remote config client from context.
func RemoteFrom(ctx context.Context) *remoteconfig.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.Remote
	}
	return nil
}

// AdapterFrom extracts the model invocation adapter from context.
func AdapterFrom(ctx context.Context) *invoke.Adapter {
	if s := ServicesFrom(ctx); s != nil {
		return s.Adapter
	}
	return nil
}

// ActionsFrom extracts the action service from context.
func ActionsFrom(ctx context.Context) *analysis.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Actions
	}
	return nil
}

// MetricsFrom extracts the metrics recorder from context.
func MetricsFrom(ctx context.Context) *metrics.Recorder {
	if s := ServicesFrom(ctx); s != nil {
		return s.Metrics
	}
	return nil
}

// LoggerFrom extracts the logger from context, or slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// LanguageFrom returns the default request language, or "".
func LanguageFrom(ctx context.Context) string {
	if s := ServicesFrom(ctx); s != nil {
		return s.DefaultLanguage
	}
	return ""
}
