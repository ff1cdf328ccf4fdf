package providers

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain object", `{"ok":true}`, `{"ok":true}`, false},
		{"code fence", "```json\n{\"ok\":true}\n```", `{"ok":true}`, false},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`, false},
		{"prose around", `Here you go: {"a":"b}"} hope it helps`, `{"a":"b}"}`, false},
		{"whitespace normalized", "{ \"a\" :  1 }", `{"a":1}`, false},
		{"empty", "   ", "", true},
		{"no json", "no structure here", "", true},
		{"unbalanced", `{"a":`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStructuredJSON(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStructuredJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResponseFormatSchema(t *testing.T) {
	schema := json.RawMessage(`{"type":"object"}`)

	t.Run("wrapped", func(t *testing.T) {
		rf := NewJSONSchemaFormat("summary", schema)
		got, err := rf.Schema()
		if err != nil {
			t.Fatalf("Schema() error = %v", err)
		}
		if string(got) != `{"type":"object"}` {
			t.Errorf("Schema() = %s", got)
		}
		if rf.SchemaName("fallback") != "summary" {
			t.Errorf("SchemaName() = %q", rf.SchemaName("fallback"))
		}
	})

	t.Run("nested json_schema", func(t *testing.T) {
		rf := &ResponseFormat{Type: "json_schema", JSONSchema: json.RawMessage(`{"json_schema":{"schema":{"type":"array"}}}`)}
		got, err := rf.Schema()
		if err != nil {
			t.Fatalf("Schema() error = %v", err)
		}
		if string(got) != `{"type":"array"}` {
			t.Errorf("Schema() = %s", got)
		}
	})

	t.Run("bare", func(t *testing.T) {
		rf := &ResponseFormat{Type: "json_schema", JSONSchema: schema}
		got, _ := rf.Schema()
		if string(got) != string(schema) {
			t.Errorf("Schema() = %s", got)
		}
		if rf.SchemaName("fallback") != "fallback" {
			t.Errorf("SchemaName() = %q", rf.SchemaName("fallback"))
		}
	})

	t.Run("nil", func(t *testing.T) {
		var rf *ResponseFormat
		got, err := rf.Schema()
		if err != nil || got != nil {
			t.Errorf("Schema() = %s, %v", got, err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		rf := &ResponseFormat{JSONSchema: json.RawMessage(`{`)}
		if _, err := rf.Schema(); err == nil {
			t.Error("expected error for invalid schema JSON")
		}
	})
}

func TestAdaptedResponseFormat(t *testing.T) {
	rf := NewJSONSchemaFormat("x", json.RawMessage(`{"type":"object"}`))

	got, err := adaptedResponseFormat("anthropic/claude-sonnet-4", rf)
	if err != nil || got != nil {
		t.Errorf("anthropic models should get no native format, got %+v, %v", got, err)
	}

	got, err = adaptedResponseFormat("google/gemini-2.5-flash", rf)
	if err != nil {
		t.Fatalf("adaptedResponseFormat() error = %v", err)
	}
	if got == nil || got.Type != "json_schema" {
		t.Errorf("got %+v, want json_schema format", got)
	}
}

func TestStructuredRepairPrompt(t *testing.T) {
	rf := NewJSONSchemaFormat("x", json.RawMessage(`{"type":"object"}`))
	prompt := structuredRepairPrompt(rf, strings.Repeat("x", 13000), errString("bad json"))

	if !strings.Contains(prompt, `{"type":"object"}`) {
		t.Error("repair prompt should include the schema")
	}
	if !strings.Contains(prompt, "...[truncated]") {
		t.Error("long output should be truncated")
	}
	if !strings.Contains(prompt, "bad json") {
		t.Error("repair prompt should include the parse issue")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
