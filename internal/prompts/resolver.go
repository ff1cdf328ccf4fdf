package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// RemoteStore is the remote key/value configuration service templates are
// read from. Get returns "" with a nil error when a key is absent.
type RemoteStore interface {
	Get(ctx context.Context, key string) (string, error)
	Refresh(ctx context.Context) error
}

// Observer receives one call per resolved template body.
type Observer interface {
	RecordTemplate(feature, source string)
}

// Resolver resolves templates with remote overrides.
// Resolution order per body: remote value > embedded default > placeholder.
type Resolver struct {
	remote   RemoteStore
	observer Observer
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithObserver attaches a resolution observer.
func WithObserver(o Observer) ResolverOption {
	return func(r *Resolver) { r.observer = o }
}

// NewResolver creates a resolver and registers the compiled-in defaults.
// remote may be nil, in which case only defaults and placeholders are used.
func NewResolver(remote RemoteStore, logger *slog.Logger, opts ...ResolverOption) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		remote:   remote,
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	defaults, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	for _, p := range defaults {
		r.Register(p)
	}
	return r, nil
}

// Register registers an embedded prompt, replacing any prompt with the same key.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Placeholders == nil {
		prompt.Placeholders = ExtractPlaceholders(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "placeholders", prompt.Placeholders)
}

// Resolve returns the template pair for (feature, style).
//
// An empty style selects the feature default. An unknown style is not an
// error: each body falls through to a placeholder announcing the gap.
// Only an unknown feature returns an error.
func (r *Resolver) Resolve(ctx context.Context, feature Feature, style string) (*Template, error) {
	if !feature.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
	style = NormalizeStyle(feature, style)
	if !feature.HasStyle(style) {
		r.logger.Warn("unknown style requested", "feature", feature, "style", style)
	}

	r.refresh(ctx)

	tmpl := &Template{Feature: feature, Style: style}
	for _, role := range feature.Roles() {
		text, source := r.resolveBody(ctx, feature, style, role)
		switch role {
		case RoleSystem:
			tmpl.System, tmpl.SystemSource = text, source
		case RoleUser:
			tmpl.User, tmpl.UserSource = text, source
		}
	}
	return tmpl, nil
}

// refresh asks the remote store to refresh its cache. Failures are logged
// and never returned; the store bounds how often a refresh really happens.
func (r *Resolver) refresh(ctx context.Context) {
	if r.remote == nil {
		return
	}
	if err := r.remote.Refresh(ctx); err != nil {
		r.logger.Debug("remote config refresh failed", "error", err)
	}
}

func (r *Resolver) resolveBody(ctx context.Context, feature Feature, style string, role Role) (string, Source) {
	key := Key(feature, style, role)
	text, source := r.lookup(ctx, key)
	if source == SourcePlaceholder {
		r.logger.Warn("template missing from remote config and defaults",
			"key", key, "feature", feature, "style", style, "role", role)
		text = placeholderTemplate(feature, style, role)
	}
	if r.observer != nil {
		r.observer.RecordTemplate(string(feature), string(source))
	}
	return text, source
}

func (r *Resolver) lookup(ctx context.Context, key string) (string, Source) {
	if r.remote != nil {
		val, err := r.remote.Get(ctx, key)
		if err != nil {
			r.logger.Warn("remote config lookup failed", "key", key, "error", err)
		} else if strings.TrimSpace(val) != "" {
			return val, SourceRemote
		}
	}

	r.mu.RLock()
	p, ok := r.embedded[key]
	r.mu.RUnlock()
	if ok && p.Text != "" {
		return p.Text, SourceDefault
	}
	return "", SourcePlaceholder
}

// placeholderTemplate synthesizes a visible stand-in for a missing template.
// User bodies keep the primary input token so the caller's text still reaches
// the model.
func placeholderTemplate(feature Feature, style string, role Role) string {
	key := Key(feature, style, role)
	if role == RoleSystem {
		return fmt.Sprintf("[template %s is not configured for feature %q, style %q] "+
			"Answer the user's request as best you can. Write in %s.", key, feature, style, TokenLanguage)
	}
	if feature.SingleBody() {
		return fmt.Sprintf("[template %s is not configured for feature %q, style %q]\n\n"+
			"Question: %s\n\nText:\n%s", key, feature, style, TokenQuery, TokenResearchText)
	}
	return fmt.Sprintf("[template %s is not configured for feature %q, style %q]\n\n%s", key, feature, style, inputTokens(feature))
}

// inputTokens returns the tokens a user body must carry for a feature.
func inputTokens(f Feature) string {
	switch f {
	case FeatureClassify:
		return TokenAnalysis
	case FeatureChat:
		return TokenHistory + "\n\n" + TokenMessage
	default:
		return TokenText
	}
}

// AllEmbedded returns all registered embedded prompts ordered by key.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// All resolves every known (feature, style) pair.
func (r *Resolver) All(ctx context.Context) ([]Template, error) {
	var out []Template
	for _, f := range Features() {
		for _, style := range f.Styles() {
			tmpl, err := r.Resolve(ctx, f, style)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s/%s: %w", f, style, err)
			}
			out = append(out, *tmpl)
		}
	}
	return out, nil
}
