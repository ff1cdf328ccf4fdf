package api

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetOutputFormat(t *testing.T) {
	defer SetOutputFormat("yaml")

	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"json", OutputFormatJSON, false},
		{"yaml", OutputFormatYAML, false},
		{"", OutputFormatYAML, false},
		{"xml", DefaultOutput, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := SetOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got := GetOutputFormat(); got != tt.want {
				t.Errorf("GetOutputFormat() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOutputTo(t *testing.T) {
	data := struct {
		Name  string   `json:"name" yaml:"name"`
		Items []string `json:"items" yaml:"items"`
	}{Name: "summary", Items: []string{"a"}}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
			t.Fatal(err)
		}
		want := "{\n  \"name\": \"summary\",\n  \"items\": [\n    \"a\"\n  ]\n}\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.HasPrefix(out, "name: summary\nitems:\n") || !strings.Contains(out, "- a\n") {
			t.Errorf("unexpected yaml %q", out)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := OutputTo(&bytes.Buffer{}, OutputFormat("toml"), data); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}
