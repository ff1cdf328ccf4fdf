// Package i18n holds the two user-facing locales and the message catalog used
// for every externally visible error string.
//
// French is the primary locale. English is the secondary locale and the
// fallback for any tag that is not French, including empty or malformed tags.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Locale is one of the two supported message locales.
type Locale string

const (
	French  Locale = "fr"
	English Locale = "en"

	Primary   = French
	Secondary = English
)

// MessageID identifies a fixed catalog sentence.
type MessageID string

const (
	MsgEmptyResponse   MessageID = "empty_response"
	MsgPayloadTooLarge MessageID = "payload_too_large"
	MsgInvalidResponse MessageID = "invalid_response"
)

var frenchBase, _ = language.French.Base()

// Resolve maps a caller-supplied language tag to a supported locale.
// Any tag whose base language is French ("fr", "fr-CA", "FR") resolves to
// French; everything else resolves to the secondary locale.
func Resolve(tag string) Locale {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Secondary
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return Secondary
	}
	base, conf := parsed.Base()
	if conf == language.No {
		return Secondary
	}
	if base == frenchBase {
		return French
	}
	return Secondary
}

// String returns the locale code.
func (l Locale) String() string { return string(l) }

// Name returns the language name injected into system prompts through the
// {{language}} placeholder.
func (l Locale) Name() string {
	if l == French {
		return "French"
	}
	return "English"
}

var catalog = map[Locale]map[MessageID]string{
	French: {
		MsgEmptyResponse:   "Le modèle n'a fourni aucune réponse.",
		MsgPayloadTooLarge: "Le texte est trop long : %d caractères (maximum %d caractères).",
		MsgInvalidResponse: "réponse du modèle invalide (%s)",
	},
	English: {
		MsgEmptyResponse:   "The model did not provide a response.",
		MsgPayloadTooLarge: "Text is too long: %d characters (maximum %d characters).",
		MsgInvalidResponse: "invalid model response (%s)",
	},
}

// failurePrefixes are keyed by feature identifier.
var failurePrefixes = map[Locale]map[string]string{
	French: {
		"analyze":          "Échec de l'analyse du texte",
		"summarize":        "Échec de la génération du résumé",
		"classify":         "Échec de la classification",
		"detect-narrative": "Échec de la détection des récits",
		"reformulate":      "Échec de la reformulation",
		"research":         "Échec de la recherche",
		"chat":             "Échec de la réponse du personnage",
		"generate-persona": "Échec de la génération du personnage",
	},
	English: {
		"analyze":          "Failed to analyze text",
		"summarize":        "Failed to generate summary",
		"classify":         "Failed to classify analysis",
		"detect-narrative": "Failed to detect narratives",
		"reformulate":      "Failed to reformulate text",
		"research":         "Failed to complete research",
		"chat":             "Failed to get persona reply",
		"generate-persona": "Failed to generate persona",
	},
}

// styleLabels localizes style identifiers used as failure subjects. Styles
// without an entry are shown as-is.
var styleLabels = map[Locale]map[string]string{
	French: {
		"critical":   "critique",
		"academic":   "académique",
		"simple":     "simple",
		"bullet":     "en points",
		"paranoid":   "paranoïaque",
		"conspiracy": "conspirationniste",
		"messianic":  "messianique",
		"neutral":    "neutre",
		"poetic":     "poétique",
		"deep":       "approfondie",
	},
}

// Message formats a catalog sentence in the given locale.
func Message(loc Locale, id MessageID, args ...any) string {
	msgs, ok := catalog[loc]
	if !ok {
		msgs = catalog[Secondary]
	}
	format, ok := msgs[id]
	if !ok {
		return string(id)
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// FailurePrefix returns the localized "action failed" prefix for a feature.
func FailurePrefix(loc Locale, feature string) string {
	prefixes, ok := failurePrefixes[loc]
	if !ok {
		prefixes = failurePrefixes[Secondary]
	}
	if p, ok := prefixes[feature]; ok {
		return p
	}
	if loc == French {
		return "Échec de l'opération"
	}
	return "Operation failed"
}

// StyleLabel returns the localized name of a style.
func StyleLabel(loc Locale, style string) string {
	if label, ok := styleLabels[loc][style]; ok {
		return label
	}
	return style
}

// FailureMessage builds "{prefix} {subject}: {detail}" where subject is the
// localized style when one other than "default" is set, and the feature
// otherwise.
func FailureMessage(loc Locale, feature, style, detail string) string {
	subject := feature
	if style != "" && style != "default" {
		subject = StyleLabel(loc, style)
	}
	return fmt.Sprintf("%s %s: %s", FailurePrefix(loc, feature), subject, detail)
}
