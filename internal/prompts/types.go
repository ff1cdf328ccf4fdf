// Package prompts provides prompt template management with compiled-in
// defaults and remote overrides.
//
// Templates are identified by a (feature, style) pair and carry a system body
// and a user body. Research templates are single-body and only carry a user
// body.
//
// Resolution order for each body:
//  1. Remote configuration value (if non-empty)
//  2. Embedded default (from defaults/*.tmpl)
//  3. Synthesized placeholder naming the missing key
//
// Remote values are looked up by keys of the form {FEATURE}_{STYLE}_{ROLE}_PROMPT.
package prompts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownFeature is returned when a feature identifier is not recognized.
var ErrUnknownFeature = errors.New("unknown feature")

// Feature identifies one model-backed operation.
type Feature string

const (
	FeatureAnalyze         Feature = "analyze"
	FeatureSummarize       Feature = "summarize"
	FeatureClassify        Feature = "classify"
	FeatureDetectNarrative Feature = "detect-narrative"
	FeatureReformulate     Feature = "reformulate"
	FeatureResearch        Feature = "research"
	FeatureChat            Feature = "chat"
	FeatureGeneratePersona Feature = "generate-persona"
)

// Role is the message role a template body is sent as.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Source records where a resolved body came from.
type Source string

const (
	SourceRemote      Source = "remote"
	SourceDefault     Source = "default"
	SourcePlaceholder Source = "placeholder"
)

// featureStyles lists the known styles per feature. The first style is the
// feature default.
var featureStyles = map[Feature][]string{
	FeatureAnalyze:         {"default"},
	FeatureSummarize:       {"critical", "academic", "simple", "bullet"},
	FeatureClassify:        {"default"},
	FeatureDetectNarrative: {"default", "paranoid", "conspiracy", "messianic"},
	FeatureReformulate:     {"neutral", "academic", "simple", "paranoid", "messianic", "poetic"},
	FeatureResearch:        {"default", "deep"},
	FeatureChat:            {"default"},
	FeatureGeneratePersona: {"default"},
}

// featureOrder keeps listings stable.
var featureOrder = []Feature{
	FeatureAnalyze,
	FeatureSummarize,
	FeatureClassify,
	FeatureDetectNarrative,
	FeatureReformulate,
	FeatureResearch,
	FeatureChat,
	FeatureGeneratePersona,
}

// Features returns every known feature in a stable order.
func Features() []Feature {
	out := make([]Feature, len(featureOrder))
	copy(out, featureOrder)
	return out
}

// ParseFeature converts an identifier into a Feature.
func ParseFeature(s string) (Feature, error) {
	f := Feature(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFeature, s)
	}
	return f, nil
}

// Valid reports whether f is a known feature.
func (f Feature) Valid() bool {
	_, ok := featureStyles[f]
	return ok
}

// Styles returns the known styles of f.
func (f Feature) Styles() []string {
	styles := featureStyles[f]
	out := make([]string, len(styles))
	copy(out, styles)
	return out
}

// DefaultStyle returns the style used when a caller passes none.
func (f Feature) DefaultStyle() string {
	if styles := featureStyles[f]; len(styles) > 0 {
		return styles[0]
	}
	return "default"
}

// HasStyle reports whether style is one of f's known styles.
func (f Feature) HasStyle(style string) bool {
	for _, s := range featureStyles[f] {
		if s == style {
			return true
		}
	}
	return false
}

// SingleBody reports whether f uses a single user template with no system part.
func (f Feature) SingleBody() bool {
	return f == FeatureResearch
}

// Roles returns the roles f's templates carry.
func (f Feature) Roles() []Role {
	if f.SingleBody() {
		return []Role{RoleUser}
	}
	return []Role{RoleSystem, RoleUser}
}

var styleCleaner = regexp.MustCompile(`[^a-z0-9_-]+`)

// NormalizeStyle lowercases and strips a style identifier, returning the
// feature default when nothing usable remains.
func NormalizeStyle(f Feature, style string) string {
	style = styleCleaner.ReplaceAllString(strings.ToLower(strings.TrimSpace(style)), "")
	if style == "" {
		return f.DefaultStyle()
	}
	return style
}

// Key derives the remote configuration key for one template body,
// e.g. SUMMARIZE_ACADEMIC_SYSTEM_PROMPT.
func Key(f Feature, style string, role Role) string {
	parts := []string{string(f), style, string(role), "prompt"}
	key := strings.ToUpper(strings.Join(parts, "_"))
	return strings.ReplaceAll(key, "-", "_")
}

// Template is a resolved (feature, style) template pair.
type Template struct {
	Feature      Feature `json:"feature"`
	Style        string  `json:"style"`
	System       string  `json:"system,omitempty"`
	User         string  `json:"user"`
	SystemSource Source  `json:"system_source,omitempty"`
	UserSource   Source  `json:"user_source"`
}

// EmbeddedPrompt is a compiled-in default template body.
type EmbeddedPrompt struct {
	Key          string   // Remote key: SUMMARIZE_CRITICAL_SYSTEM_PROMPT
	Feature      Feature  // Owning feature
	Style        string   // Owning style
	Role         Role     // system or user
	Text         string   // Template text with placeholder tokens
	Placeholders []string // Tokens found in Text
	Hash         string   // SHA256 of Text for change detection
}
