package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/waks132/messiahx-sub000/internal/config"
	"github.com/waks132/messiahx-sub000/internal/server/endpoints"
)

func newLifecycleServer(t *testing.T, yamlConfig string) *Server {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlConfig), 0644); err != nil {
		t.Fatal(err)
	}
	mgr, err := config.NewManager(cfgPath, "")
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(Config{ConfigManager: mgr})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

// waitForListen polls until the server has bound its port and returns the base URL.
func waitForListen(t *testing.T, srv *Server, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr := srv.Addr(); !strings.HasSuffix(addr, ":0") {
			resp, err := http.Get("http://" + addr + "/health")
			if err == nil {
				resp.Body.Close()
				return "http://" + addr
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server did not start within %s", timeout)
	return ""
}

func TestServer_FullLifecycle(t *testing.T) {
	srv := newLifecycleServer(t, mockConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Start server in background
	serverErr := make(chan error, 1)
	serverCtx, serverCancel := context.WithCancel(ctx)
	go func() {
		serverErr <- srv.Start(serverCtx)
	}()

	baseURL := waitForListen(t, srv, 5*time.Second)

	t.Run("is_running", func(t *testing.T) {
		if !srv.IsRunning() {
			t.Error("IsRunning() = false, want true")
		}
	})

	t.Run("ready_endpoint", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/ready")
		if err != nil {
			t.Fatalf("ready check failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("ready status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var health endpoints.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if health.Status != "ok" {
			t.Errorf("health.Status = %q, want %q", health.Status, "ok")
		}
	})

	t.Run("double_start", func(t *testing.T) {
		if err := srv.Start(ctx); err == nil {
			t.Error("second Start() should fail while running")
		}
	})

	// Shutdown server
	serverCancel()
	select {
	case err := <-serverErr:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}

	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
	if _, err := http.Get(baseURL + "/health"); err == nil {
		t.Error("server still answering after shutdown")
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	_, port, _ := net.SplitHostPort(ln.Addr().String())

	srv := newLifecycleServer(t, strings.Replace(mockConfig, `port: "0"`, `port: "`+port+`"`, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on a bound port should fail")
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Errorf("expected a listen error, got %v", err)
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after failed start")
	}
}
