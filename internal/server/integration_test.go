package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/waks132/messiahx-sub000/internal/analysis"
	"github.com/waks132/messiahx-sub000/internal/prompts"
	"github.com/waks132/messiahx-sub000/internal/remoteconfig"
	"github.com/waks132/messiahx-sub000/internal/server/endpoints"
)

const redisHash = "messiahx:test:prompts"

func redisConfig(addr string) string {
	return strings.Replace(mockConfig, "  backend: none\n", fmt.Sprintf(`  backend: redis
  redis_addr: %s
  redis_hash: %s
  min_refresh_seconds: 0
  fetch_timeout_seconds: 2
  retries: 1
`, addr, redisHash), 1)
}

func TestIntegration_RemoteTemplates(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.HSet(redisHash, "SUMMARIZE_CRITICAL_SYSTEM_PROMPT", "Remote critic, answer in {{language}}.")

	srv, ts := newTestServer(t, redisConfig(mr.Addr()))
	mock := mockClient(t, srv)

	t.Run("ready with remote config", func(t *testing.T) {
		var resp endpoints.HealthResponse
		if code := doJSON(t, "GET", ts.URL+"/ready", nil, &resp); code != http.StatusOK {
			t.Errorf("status = %d, want 200", code)
		}
		if resp.RemoteConfig != "ok" {
			t.Errorf("RemoteConfig = %q, want ok", resp.RemoteConfig)
		}
	})

	t.Run("remote body wins over default", func(t *testing.T) {
		var tmpl prompts.Template
		if code := doJSON(t, "GET", ts.URL+"/api/prompts/summarize/critical", nil, &tmpl); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if tmpl.SystemSource != prompts.SourceRemote || tmpl.UserSource != prompts.SourceDefault {
			t.Errorf("sources = %s/%s, want remote/default", tmpl.SystemSource, tmpl.UserSource)
		}
	})

	t.Run("remote body reaches the model", func(t *testing.T) {
		var resp analysis.Envelope[analysis.SummaryResult]
		body := endpoints.TextRequest{Text: "x", Style: "critical", Language: "en"}
		if code := doJSON(t, "POST", ts.URL+"/api/summarize", body, &resp); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		req := mock.LastRequest()
		if req == nil || len(req.Messages) == 0 {
			t.Fatal("model was not called")
		}
		if got := req.Messages[0].Content; got != "Remote critic, answer in English." {
			t.Errorf("system message = %q", got)
		}
	})

	t.Run("publish and refresh", func(t *testing.T) {
		doc := prompts.Document{Version: 1, Prompts: map[string]string{
			"ANALYZE_DEFAULT_SYSTEM_PROMPT": "Published analyst.",
		}}
		var saved endpoints.SaveDocumentResponse
		if code := doJSON(t, "PUT", ts.URL+"/api/prompts/document?publish=true", doc, &saved); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if !saved.Published {
			t.Error("Published = false")
		}
		if got := mr.HGet(redisHash, "ANALYZE_DEFAULT_SYSTEM_PROMPT"); got != "Published analyst." {
			t.Errorf("redis value = %q", got)
		}

		mr.HSet(redisHash, "CHAT_DEFAULT_SYSTEM_PROMPT", "Remote persona {persona}")
		var status remoteconfig.Status
		if code := doJSON(t, "POST", ts.URL+"/api/prompts/refresh", nil, &status); code != http.StatusOK {
			t.Fatalf("refresh status = %d, want 200", code)
		}
		if !status.Loaded || status.Keys != 3 {
			t.Errorf("status = %+v, want loaded with 3 keys", status)
		}

		var tmpl prompts.Template
		doJSON(t, "GET", ts.URL+"/api/prompts/analyze/default", nil, &tmpl)
		if tmpl.System != "Published analyst." {
			t.Errorf("analyze system = %q", tmpl.System)
		}
	})

	t.Run("remote values", func(t *testing.T) {
		var resp endpoints.RemoteValuesResponse
		if code := doJSON(t, "GET", ts.URL+"/api/prompts/remote", nil, &resp); code != http.StatusOK {
			t.Fatalf("status = %d, want 200", code)
		}
		if got := resp.Values["CHAT_DEFAULT_SYSTEM_PROMPT"]; got != "Remote persona {persona}" {
			t.Errorf("CHAT_DEFAULT_SYSTEM_PROMPT = %q", got)
		}
		if len(resp.Values) != resp.Status.Keys {
			t.Errorf("len(Values) = %d, Status.Keys = %d", len(resp.Values), resp.Status.Keys)
		}
	})

	t.Run("status reports the remote cache", func(t *testing.T) {
		var resp endpoints.StatusResponse
		doJSON(t, "GET", ts.URL+"/status", nil, &resp)
		if resp.RemoteConfig == nil || !resp.RemoteConfig.Loaded {
			t.Errorf("remote status = %+v", resp.RemoteConfig)
		}
	})
}

func TestIntegration_RemoteUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, ts := newTestServer(t, redisConfig(addr))

	var ready endpoints.HealthResponse
	if code := doJSON(t, "GET", ts.URL+"/ready", nil, &ready); code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", code)
	}
	if ready.RemoteConfig != "unreachable" {
		t.Errorf("RemoteConfig = %q, want unreachable", ready.RemoteConfig)
	}

	// Actions keep working on the default templates.
	var tmpl prompts.Template
	if code := doJSON(t, "GET", ts.URL+"/api/prompts/analyze/default", nil, &tmpl); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if tmpl.SystemSource != prompts.SourceDefault {
		t.Errorf("SystemSource = %s, want default", tmpl.SystemSource)
	}

	var resp analysis.Envelope[analysis.ReformulationResult]
	if code := doJSON(t, "POST", ts.URL+"/api/reformulate", endpoints.TextRequest{Text: "x"}, &resp); code != http.StatusOK {
		t.Fatalf("reformulate status = %d, want 200", code)
	}
	if resp.Failed {
		t.Errorf("reformulate failed: %s", resp.Message)
	}
}
