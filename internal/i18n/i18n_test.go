package i18n

import (
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		tag  string
		want Locale
	}{
		{"fr", French},
		{"FR", French},
		{"fr-CA", French},
		{" fr-FR ", French},
		{"en", English},
		{"en-US", English},
		{"de", English},
		{"es-MX", English},
		{"", English},
		{"not a tag!", English},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := Resolve(tt.tag); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	t.Run("formats arguments", func(t *testing.T) {
		got := Message(English, MsgPayloadTooLarge, 100001, 100000)
		if !strings.Contains(got, "100001") || !strings.Contains(got, "100000") {
			t.Errorf("Message() = %q, want both counts", got)
		}
	})

	t.Run("french catalog", func(t *testing.T) {
		got := Message(French, MsgEmptyResponse)
		if got != "Le modèle n'a fourni aucune réponse." {
			t.Errorf("Message() = %q", got)
		}
	})

	t.Run("unknown locale uses secondary", func(t *testing.T) {
		got := Message(Locale("xx"), MsgEmptyResponse)
		if got != Message(Secondary, MsgEmptyResponse) {
			t.Errorf("Message() = %q, want secondary locale text", got)
		}
	})
}

func TestFailureMessage(t *testing.T) {
	t.Run("uses localized style as subject", func(t *testing.T) {
		got := FailureMessage(French, "summarize", "critical", "quota exceeded")
		want := "Échec de la génération du résumé critique: quota exceeded"
		if got != want {
			t.Errorf("FailureMessage() = %q, want %q", got, want)
		}
	})

	t.Run("english keeps style identifier", func(t *testing.T) {
		got := FailureMessage(English, "reformulate", "poetic", "timeout")
		want := "Failed to reformulate text poetic: timeout"
		if got != want {
			t.Errorf("FailureMessage() = %q, want %q", got, want)
		}
	})

	t.Run("default style falls back to feature", func(t *testing.T) {
		got := FailureMessage(French, "analyze", "default", "boom")
		want := "Échec de l'analyse du texte analyze: boom"
		if got != want {
			t.Errorf("FailureMessage() = %q, want %q", got, want)
		}
	})

	t.Run("falls back to feature as subject", func(t *testing.T) {
		got := FailureMessage(English, "classify", "", "boom")
		want := "Failed to classify analysis classify: boom"
		if got != want {
			t.Errorf("FailureMessage() = %q, want %q", got, want)
		}
	})

	t.Run("unknown feature", func(t *testing.T) {
		got := FailurePrefix(English, "nope")
		if got != "Operation failed" {
			t.Errorf("FailurePrefix() = %q", got)
		}
	})
}
