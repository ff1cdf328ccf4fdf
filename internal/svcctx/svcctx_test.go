package svcctx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/waks132/messiahx-sub000/internal/providers"
)

func TestServicesFrom(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		ctx := context.Background()
		if ServicesFrom(ctx) != nil || RegistryFrom(ctx) != nil || RemoteFrom(ctx) != nil {
			t.Error("expected nil services from empty context")
		}
		if LanguageFrom(ctx) != "" {
			t.Error("expected empty language")
		}
		if LoggerFrom(ctx) != slog.Default() {
			t.Error("expected default logger")
		}
	})

	t.Run("attached services", func(t *testing.T) {
		reg := providers.NewRegistry()
		logger := slog.New(slog.DiscardHandler)
		ctx := WithServices(context.Background(), &Services{
			Registry:        reg,
			Logger:          logger,
			DefaultLanguage: "fr",
		})
		if RegistryFrom(ctx) != reg {
			t.Error("RegistryFrom() did not return the attached registry")
		}
		if LoggerFrom(ctx) != logger {
			t.Error("LoggerFrom() did not return the attached logger")
		}
		if LanguageFrom(ctx) != "fr" {
			t.Errorf("LanguageFrom() = %q, want fr", LanguageFrom(ctx))
		}
		if ActionsFrom(ctx) != nil {
			t.Error("ActionsFrom() should be nil when unset")
		}
	})
}
