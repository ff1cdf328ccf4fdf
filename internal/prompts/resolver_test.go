package prompts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type fakeRemote struct {
	mu         sync.Mutex
	values     map[string]string
	getErr     error
	refreshErr error
	refreshes  int
}

func (f *fakeRemote) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.values[key], nil
}

func (f *fakeRemote) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.refreshErr
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) RecordTemplate(_, source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[source]++
}

func newTestResolver(t *testing.T, remote RemoteStore, opts ...ResolverOption) *Resolver {
	t.Helper()
	r, err := NewResolver(remote, nil, opts...)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}

func TestResolver_DefaultsNeverEmpty(t *testing.T) {
	r := newTestResolver(t, nil)
	ctx := context.Background()

	for _, f := range Features() {
		for _, style := range f.Styles() {
			t.Run(string(f)+"/"+style, func(t *testing.T) {
				tmpl, err := r.Resolve(ctx, f, style)
				if err != nil {
					t.Fatalf("Resolve() error = %v", err)
				}
				if strings.TrimSpace(tmpl.User) == "" {
					t.Error("user body is empty")
				}
				if tmpl.UserSource != SourceDefault {
					t.Errorf("UserSource = %s, want default", tmpl.UserSource)
				}
				if f.SingleBody() {
					if tmpl.System != "" {
						t.Errorf("single-body feature has system body %q", tmpl.System)
					}
					return
				}
				if strings.TrimSpace(tmpl.System) == "" {
					t.Error("system body is empty")
				}
				if tmpl.SystemSource != SourceDefault {
					t.Errorf("SystemSource = %s, want default", tmpl.SystemSource)
				}
			})
		}
	}
}

func TestResolver_RemoteOverride(t *testing.T) {
	remote := &fakeRemote{values: map[string]string{
		"SUMMARIZE_ACADEMIC_SYSTEM_PROMPT": "remote system {{language}}",
		"SUMMARIZE_ACADEMIC_USER_PROMPT":   "   ",
	}}
	r := newTestResolver(t, remote)

	tmpl, err := r.Resolve(context.Background(), FeatureSummarize, "academic")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if tmpl.System != "remote system {{language}}" || tmpl.SystemSource != SourceRemote {
		t.Errorf("system = %q (%s), want remote value", tmpl.System, tmpl.SystemSource)
	}
	if tmpl.UserSource != SourceDefault {
		t.Errorf("blank remote value should fall back to default, got %s", tmpl.UserSource)
	}
	if remote.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", remote.refreshes)
	}
}

func TestResolver_RemoteFailuresAbsorbed(t *testing.T) {
	remote := &fakeRemote{
		getErr:     errors.New("connection refused"),
		refreshErr: errors.New("timeout"),
	}
	r := newTestResolver(t, remote)

	tmpl, err := r.Resolve(context.Background(), FeatureReformulate, "paranoid")
	if err != nil {
		t.Fatalf("Resolve() error = %v, want nil", err)
	}
	if tmpl.SystemSource != SourceDefault || tmpl.UserSource != SourceDefault {
		t.Errorf("sources = %s/%s, want default/default", tmpl.SystemSource, tmpl.UserSource)
	}
}

func TestResolver_Styles(t *testing.T) {
	obs := &countingObserver{}
	r := newTestResolver(t, nil, WithObserver(obs))
	ctx := context.Background()

	t.Run("empty style uses feature default", func(t *testing.T) {
		tmpl, err := r.Resolve(ctx, FeatureSummarize, "")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if tmpl.Style != "critical" {
			t.Errorf("Style = %q, want critical", tmpl.Style)
		}
	})

	t.Run("style is case-normalized", func(t *testing.T) {
		tmpl, err := r.Resolve(ctx, FeatureReformulate, "  Poetic ")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if tmpl.Style != "poetic" || tmpl.UserSource != SourceDefault {
			t.Errorf("got %s (%s), want poetic from defaults", tmpl.Style, tmpl.UserSource)
		}
	})

	t.Run("unknown style synthesizes placeholder", func(t *testing.T) {
		tmpl, err := r.Resolve(ctx, FeatureReformulate, "pirate")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if tmpl.SystemSource != SourcePlaceholder || tmpl.UserSource != SourcePlaceholder {
			t.Fatalf("sources = %s/%s, want placeholder", tmpl.SystemSource, tmpl.UserSource)
		}
		if !strings.Contains(tmpl.System, "REFORMULATE_PIRATE_SYSTEM_PROMPT") {
			t.Errorf("placeholder should name the missing key, got %q", tmpl.System)
		}
		if !strings.Contains(tmpl.User, TokenText) {
			t.Errorf("placeholder user body should keep %s, got %q", TokenText, tmpl.User)
		}
		if obs.counts["placeholder"] != 2 {
			t.Errorf("placeholder count = %d, want 2", obs.counts["placeholder"])
		}
	})

	t.Run("unknown research style keeps research tokens", func(t *testing.T) {
		tmpl, err := r.Resolve(ctx, FeatureResearch, "shallow")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !strings.Contains(tmpl.User, TokenQuery) || !strings.Contains(tmpl.User, TokenResearchText) {
			t.Errorf("research placeholder = %q", tmpl.User)
		}
	})

	t.Run("unknown feature is an error", func(t *testing.T) {
		_, err := r.Resolve(ctx, Feature("horoscope"), "")
		if !errors.Is(err, ErrUnknownFeature) {
			t.Errorf("error = %v, want ErrUnknownFeature", err)
		}
	})
}

func TestResolver_All(t *testing.T) {
	r := newTestResolver(t, nil)

	all, err := r.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}

	want := 0
	for _, f := range Features() {
		want += len(f.Styles())
	}
	if len(all) != want {
		t.Errorf("All() returned %d templates, want %d", len(all), want)
	}
}

func TestLoadDefaults(t *testing.T) {
	defaults, err := LoadDefaults()
	if err != nil {
		t.Fatalf("LoadDefaults() error = %v", err)
	}

	byKey := make(map[string]EmbeddedPrompt)
	for _, p := range defaults {
		byKey[p.Key] = p
	}

	for _, f := range Features() {
		for _, style := range f.Styles() {
			for _, role := range f.Roles() {
				key := Key(f, style, role)
				if _, ok := byKey[key]; !ok {
					t.Errorf("missing default for %s", key)
				}
			}
		}
	}

	t.Run("system defaults carry language token", func(t *testing.T) {
		for _, p := range defaults {
			if p.Role != RoleSystem {
				continue
			}
			found := false
			for _, tok := range p.Placeholders {
				if tok == TokenLanguage {
					found = true
				}
			}
			if !found {
				t.Errorf("%s has no %s placeholder", p.Key, TokenLanguage)
			}
		}
	})
}
