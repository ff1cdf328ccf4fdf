package prompts

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxInputLength is the largest primary text payload, in characters, that is
// ever sent to a model.
const MaxInputLength = 100000

// Placeholder tokens recognized in templates.
const (
	TokenText         = "{text}"
	TokenLanguage     = "{{language}}"
	TokenResearchText = "{{{text}}}"
	TokenQuery        = "{{{query}}}"
	TokenPersona      = "{persona}"
	TokenHistory      = "{history}"
	TokenMessage      = "{message}"
	TokenAnalysis     = "{analysis}"
)

// Values are the runtime values substituted into a template.
type Values struct {
	Text     string
	Language string
	Query    string
	Persona  string
	History  string
	Message  string
	Analysis string
}

// replacer builds a single-pass replacer. Longer tokens are listed first so
// {{{text}}} is matched before {text} can consume its inner part.
func (v Values) replacer() *strings.Replacer {
	return strings.NewReplacer(
		TokenResearchText, v.Text,
		TokenQuery, v.Query,
		TokenLanguage, v.Language,
		TokenPersona, v.Persona,
		TokenHistory, v.History,
		TokenMessage, v.Message,
		TokenAnalysis, v.Analysis,
		TokenText, v.Text,
	)
}

// Substitute replaces every occurrence of every token in template. Values are
// inserted literally; a value that itself looks like a token is not expanded.
func Substitute(template string, values Values) string {
	if template == "" {
		return ""
	}
	return values.replacer().Replace(template)
}

// ResolvedPrompt is a template with all placeholders substituted.
type ResolvedPrompt struct {
	Feature Feature
	Style   string
	System  string
	User    string
}

// Render substitutes values into both bodies of t.
func (t *Template) Render(values Values) ResolvedPrompt {
	r := values.replacer()
	out := ResolvedPrompt{Feature: t.Feature, Style: t.Style}
	if t.System != "" {
		out.System = r.Replace(t.System)
	}
	out.User = r.Replace(t.User)
	return out
}

// PayloadTooLargeError reports a primary text payload above MaxInputLength.
type PayloadTooLargeError struct {
	Length int
	Max    int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload too large: %d characters (max %d)", e.Length, e.Max)
}

// CheckLength returns a *PayloadTooLargeError when text has more than
// MaxInputLength characters.
func CheckLength(text string) error {
	n := utf8.RuneCountInString(text)
	if n > MaxInputLength {
		return &PayloadTooLargeError{Length: n, Max: MaxInputLength}
	}
	return nil
}
