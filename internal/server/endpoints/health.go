package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/waks132/messiahx-sub000/internal/api"
	"github.com/waks132/messiahx-sub000/internal/remoteconfig"
	"github.com/waks132/messiahx-sub000/internal/svcctx"
	"github.com/waks132/messiahx-sub000/version"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status       string `json:"status"`
	RemoteConfig string `json:"remote_config,omitempty"`
	Provider     string `json:"provider,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Health check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Ready when the remote configuration has been fetched (or is disabled) and the default model provider is registered
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", RemoteConfig: "disabled", Provider: "ok"}
	ready := true

	if remote := svcctx.RemoteFrom(r.Context()); remote != nil {
		resp.RemoteConfig = "ok"
		if err := remote.Ready(r.Context()); err != nil {
			resp.RemoteConfig = "unreachable"
			ready = false
		}
	}

	adapter := svcctx.AdapterFrom(r.Context())
	registry := svcctx.RegistryFrom(r.Context())
	switch {
	case adapter == nil || registry == nil:
		resp.Provider = "not_initialized"
		ready = false
	case !registry.HasLLM(adapter.Provider()):
		resp.Provider = "missing"
		ready = false
	}

	if !ready {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (remote config and model provider)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:        %s\n", resp.Status)
			fmt.Printf("Remote config: %s\n", resp.RemoteConfig)
			fmt.Printf("Provider:      %s\n", resp.Provider)
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server       string               `json:"server"`
	Version      string               `json:"version"`
	ConfigFile   string               `json:"config_file,omitempty"`
	Providers    ProvidersStatus      `json:"providers"`
	RemoteConfig *remoteconfig.Status `json:"remote_config,omitempty"`
}

// ProvidersStatus shows registered LLM providers.
type ProvidersStatus struct {
	Default string   `json:"default"`
	LLM     []string `json:"llm"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Detailed server status
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Router		/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Server:  "running",
		Version: version.GitRelease,
	}

	if s := svcctx.ServicesFrom(r.Context()); s != nil && s.Config != nil {
		resp.ConfigFile = s.Config.ConfigFile()
	}
	if registry := svcctx.RegistryFrom(r.Context()); registry != nil {
		resp.Providers.LLM = registry.ListLLM()
	}
	if adapter := svcctx.AdapterFrom(r.Context()); adapter != nil {
		resp.Providers.Default = adapter.Provider()
	}
	if remote := svcctx.RemoteFrom(r.Context()); remote != nil {
		st := remote.Status()
		resp.RemoteConfig = &st
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
