package endpoints

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/waks132/messiahx-sub000/internal/analysis"
	"github.com/waks132/messiahx-sub000/internal/svcctx"
)

func TestTextInput_Read(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech.txt")
	if err := os.WriteFile(path, []byte("from file"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		in      textInput
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "text flag", in: textInput{text: "inline"}, want: "inline"},
		{name: "text wins over file", in: textInput{text: "inline", file: path}, want: "inline"},
		{name: "file", in: textInput{file: path}, want: "from file"},
		{name: "stdin", in: textInput{file: "-"}, stdin: "piped", want: "piped"},
		{name: "missing file", in: textInput{file: filepath.Join(t.TempDir(), "nope")}, wantErr: true},
		{name: "nothing", in: textInput{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.read(strings.NewReader(tt.stdin))
			if (err != nil) != tt.wantErr {
				t.Fatalf("read() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("read() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadJSONFile(t *testing.T) {
	var p analysis.Persona
	if err := readJSONFile("-", strings.NewReader(`{"name":"Ada","traits":["curious"]}`), &p); err != nil {
		t.Fatalf("readJSONFile() error = %v", err)
	}
	if p.Name != "Ada" || len(p.Traits) != 1 {
		t.Errorf("persona = %+v", p)
	}
	if err := readJSONFile("-", strings.NewReader("not json"), &p); err == nil {
		t.Error("expected parse error")
	}
}

func TestActionHandlers_WithoutServices(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"text":"x"}`))
	w := httptest.NewRecorder()
	(&AnalyzeEndpoint{}).handler(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestDecodeBody_Limit(t *testing.T) {
	huge := `{"text":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	tests := []struct {
		name    string
		handler http.HandlerFunc
		method  string
		body    string
		want    int
	}{
		{name: "action over limit", handler: (&AnalyzeEndpoint{}).handler, method: "POST", body: huge, want: http.StatusRequestEntityTooLarge},
		{name: "document over limit", handler: (&SavePromptsEndpoint{}).handler, method: "PUT", body: huge, want: http.StatusRequestEntityTooLarge},
		{name: "malformed body", handler: (&AnalyzeEndpoint{}).handler, method: "POST", body: `{"text":`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			tt.handler(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestLanguage(t *testing.T) {
	ctx := svcctx.WithServices(context.Background(), &svcctx.Services{DefaultLanguage: "fr"})
	req := httptest.NewRequest("POST", "/", nil).WithContext(ctx)

	if got := language(req, "en"); got != "en" {
		t.Errorf("language(en) = %q", got)
	}
	if got := language(req, "  "); got != "fr" {
		t.Errorf("language(blank) = %q, want server default fr", got)
	}
}
