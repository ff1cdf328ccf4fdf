package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// maxStructuredRepairAttempts limits provider-side self-repair loops when
// structured output cannot be parsed.
const maxStructuredRepairAttempts = 2

// NewJSONSchemaFormat wraps a raw JSON schema document in the
// {"name","strict","schema"} envelope used by chat completion APIs.
func NewJSONSchemaFormat(name string, schema json.RawMessage) *ResponseFormat {
	wrapper := map[string]any{
		"name":   name,
		"strict": false,
		"schema": schema,
	}
	b, _ := json.Marshal(wrapper)
	return &ResponseFormat{Type: "json_schema", JSONSchema: b}
}

// Schema returns the bare schema document inside the response format,
// unwrapping {"schema":...} and {"json_schema":{"schema":...}} envelopes.
func (rf *ResponseFormat) Schema() (json.RawMessage, error) {
	if rf == nil || len(rf.JSONSchema) == 0 {
		return nil, nil
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(rf.JSONSchema, &root); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}
	if inner, ok := root["schema"]; ok {
		return inner, nil
	}
	if rawInner, ok := root["json_schema"]; ok {
		var innerMap map[string]json.RawMessage
		if err := json.Unmarshal(rawInner, &innerMap); err == nil {
			if s, ok := innerMap["schema"]; ok {
				return s, nil
			}
		}
	}
	return rf.JSONSchema, nil
}

// SchemaName returns the "name" of a wrapped schema, or fallback.
func (rf *ResponseFormat) SchemaName(fallback string) string {
	if rf == nil || len(rf.JSONSchema) == 0 {
		return fallback
	}
	var root struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(rf.JSONSchema, &root); err != nil || root.Name == "" {
		return fallback
	}
	return root.Name
}

// adaptedResponseFormat returns an OpenRouter-compatible response format.
// Anthropic models routed through OpenRouter get no native format and rely on
// the prompt plus local parsing and repair.
func adaptedResponseFormat(model string, rf *ResponseFormat) (*openRouterResponseFormat, error) {
	if rf == nil || isAnthropicModel(model) {
		return nil, nil
	}
	return &openRouterResponseFormat{
		Type:       rf.Type,
		JSONSchema: rf.JSONSchema,
	}, nil
}

func isAnthropicModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "anthropic/")
}

var codeFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\\n(.*?)\\n?```\\s*$")

// ParseStructuredJSON parses JSON from model output, recovering from markdown
// code fences and prose around the JSON value. The result is re-marshaled so
// equivalent outputs compare byte-equal.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if m := codeFencePattern.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	if span := firstJSONValue(content); span != "" {
		candidates = append(candidates, span)
	}

	for _, candidate := range candidates {
		var parsed any
		if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &parsed); err != nil {
			continue
		}
		normalized, err := json.Marshal(parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize structured output: %w", err)
		}
		return normalized, nil
	}
	return nil, fmt.Errorf("failed to parse structured JSON")
}

// firstJSONValue returns the first balanced {...} or [...] span in s,
// skipping brackets inside string literals.
func firstJSONValue(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func structuredRepairPrompt(rf *ResponseFormat, lastOutput string, issue error) string {
	schemaText := ""
	if schema, err := rf.Schema(); err == nil {
		schemaText = string(schema)
	}
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > 12000 {
		lastOutput = lastOutput[:12000] + "\n...[truncated]"
	}

	return fmt.Sprintf(`Return ONLY valid JSON (no markdown, no commentary) that conforms to this schema.

Schema:
%s

Your previous output:
%s

Parse issue:
%v`, schemaText, lastOutput, issue)
}
