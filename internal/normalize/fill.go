package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Fill returns value completed against schema. Missing arrays become empty
// arrays, missing objects are built from their properties, missing strings
// become "", numbers 0 and booleans false. A schema "default" is used for a
// missing value before filling continues inside it. For a missing enum the
// first allowed value is used.
//
// Values that are present but of the wrong kind are left alone so that
// validation can reject them. Fill does not modify its input.
func Fill(schema map[string]any, value any) any {
	if schema == nil {
		return value
	}
	if value == nil {
		if def, ok := schema["default"]; ok {
			value = deepCopy(def)
		}
	}

	switch schemaType(schema) {
	case "object":
		if value == nil {
			value = map[string]any{}
		}
		obj, ok := value.(map[string]any)
		if !ok {
			return value
		}
		out := make(map[string]any, len(obj))
		for k, v := range obj {
			out[k] = deepCopy(v)
		}
		props, _ := schema["properties"].(map[string]any)
		for name, raw := range props {
			propSchema, _ := raw.(map[string]any)
			out[name] = Fill(propSchema, out[name])
		}
		return out

	case "array":
		if value == nil {
			return []any{}
		}
		arr, ok := value.([]any)
		if !ok {
			return value
		}
		items, _ := schema["items"].(map[string]any)
		out := make([]any, len(arr))
		for i, v := range arr {
			out[i] = Fill(items, deepCopy(v))
		}
		return out

	case "string":
		if value == nil {
			if enum, ok := schema["enum"].([]any); ok && len(enum) > 0 {
				return enum[0]
			}
			return ""
		}
	case "number", "integer":
		if value == nil {
			return float64(0)
		}
	case "boolean":
		if value == nil {
			return false
		}
	}
	return value
}

// schemaType returns the first non-null declared type.
func schemaType(schema map[string]any) string {
	switch t := schema["type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return s
			}
		}
	}
	if _, ok := schema["properties"]; ok {
		return "object"
	}
	return ""
}

// SetPath stores value at a dot-separated path, creating intermediate objects
// as needed.
func SetPath(obj map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := obj
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// GetPath returns the string stored at a dot-separated path.
func GetPath(obj map[string]any, path string) string {
	var cur any = obj
	for _, p := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[p]
	}
	s, _ := cur.(string)
	return s
}

// ParseSchema decodes a JSON schema document.
func ParseSchema(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return schema, nil
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
