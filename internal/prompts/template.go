package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
)

// placeholderPattern matches the single, double and triple brace placeholder
// tokens used in templates: {text}, {{language}}, {{{query}}}.
var placeholderPattern = regexp.MustCompile(`\{{1,3}[a-z][a-z_]*\}{1,3}`)

// ExtractPlaceholders returns the distinct placeholder tokens found in text.
// For example, "Analyze {text} in {{language}}" returns ["{text}", "{{language}}"].
func ExtractPlaceholders(text string) []string {
	matches := placeholderPattern.FindAllString(text, -1)
	seen := make(map[string]bool)
	var tokens []string

	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			tokens = append(tokens, m)
		}
	}

	// Sort for consistent ordering
	sort.Strings(tokens)
	return tokens
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
