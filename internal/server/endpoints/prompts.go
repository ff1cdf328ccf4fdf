package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/waks132/messiahx-sub000/internal/api"
	"github.com/waks132/messiahx-sub000/internal/prompts"
	"github.com/waks132/messiahx-sub000/internal/remoteconfig"
	"github.com/waks132/messiahx-sub000/internal/svcctx"
)

// PromptsListResponse contains every resolved template.
type PromptsListResponse struct {
	Prompts []prompts.Template `json:"prompts"`
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		List all templates
//	@Description	Resolve every known (feature, style) pair and report where each body came from
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	PromptsListResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/prompts [get]
func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.ResolverFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt resolver not initialized")
		return
	}
	all, err := resolver.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PromptsListResponse{Prompts: all})
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resolved templates and their sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptsListResponse
			if err := client.Get(cmd.Context(), "/api/prompts", &resp); err != nil {
				return err
			}
			for _, t := range resp.Prompts {
				src := string(t.UserSource)
				if t.SystemSource != "" {
					src = string(t.SystemSource) + "/" + src
				}
				fmt.Printf("%-18s %-12s %s\n", t.Feature, t.Style, src)
			}
			return nil
		},
	}
}

// GetPromptEndpoint handles GET /api/prompts/{feature}/{style}.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{feature}/{style}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Resolve one template
//	@Tags		prompts
//	@Produce	json
//	@Param		feature	path		string	true	"Feature identifier"
//	@Param		style	path		string	true	"Style identifier"
//	@Success	200		{object}	prompts.Template
//	@Failure	400		{object}	ErrorResponse
//	@Router		/api/prompts/{feature}/{style} [get]
func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.ResolverFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt resolver not initialized")
		return
	}
	feature, err := prompts.ParseFeature(r.PathValue("feature"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tmpl, err := resolver.Resolve(r.Context(), feature, r.PathValue("style"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <feature> <style>",
		Short: "Show one resolved template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/prompts/" + url.PathEscape(args[0]) + "/" + url.PathEscape(args[1])
			var resp prompts.Template
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ExportPromptsEndpoint handles GET /api/prompts/document.
type ExportPromptsEndpoint struct{}

func (e *ExportPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/document", e.handler
}

func (e *ExportPromptsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Export the template document
//	@Description	The editable JSON mirror of the compiled-in default templates
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	prompts.Document
//	@Router			/api/prompts/document [get]
func (e *ExportPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.ResolverFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt resolver not initialized")
		return
	}
	writeJSON(w, http.StatusOK, prompts.ExportDocument(resolver))
}

func (e *ExportPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "document",
		Short: "Print the server's template document as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp prompts.Document
			if err := client.Get(cmd.Context(), "/api/prompts/document", &resp); err != nil {
				return err
			}
			return api.OutputAs(api.OutputFormatJSON, resp)
		},
	}
}

// SaveDocumentResponse reports the outcome of a document upload.
type SaveDocumentResponse struct {
	Path      string `json:"path"`
	Keys      int    `json:"keys"`
	Published bool   `json:"published"`
}

// SavePromptsEndpoint handles PUT /api/prompts/document.
type SavePromptsEndpoint struct{}

func (e *SavePromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/prompts/document", e.handler
}

func (e *SavePromptsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Replace the template document
//	@Description	Validate and store the document in the home directory. With publish=true the values are also written to the remote configuration service.
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			publish		query		bool				false	"Publish to the remote configuration service"
//	@Param			document	body		prompts.Document	true	"Template document"
//	@Success		200			{object}	SaveDocumentResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		413			{object}	ErrorResponse
//	@Router			/api/prompts/document [put]
func (e *SavePromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var doc prompts.Document
	if !decodeBody(w, r, &doc) {
		return
	}
	if doc.Prompts == nil {
		doc.Prompts = make(map[string]string)
	}
	if err := doc.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	publish, _ := strconv.ParseBool(r.URL.Query().Get("publish"))
	resp := SaveDocumentResponse{Keys: len(doc.Prompts)}

	if h := svcctx.HomeFrom(r.Context()); h != nil {
		resp.Path = h.PromptsPath()
		if err := prompts.SaveDocument(resp.Path, &doc); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if publish {
		remote := svcctx.RemoteFrom(r.Context())
		if remote == nil {
			writeError(w, http.StatusConflict, "remote configuration is disabled")
			return
		}
		if err := remote.Publish(r.Context(), doc.Prompts); err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, remoteconfig.ErrReadOnly) {
				status = http.StatusConflict
			}
			writeError(w, status, err.Error())
			return
		}
		resp.Published = true
		svcctx.LoggerFrom(r.Context()).Info("template document published", "keys", resp.Keys)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *SavePromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var publish bool
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a template document to the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := prompts.LoadDocument(args[0])
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			path := "/api/prompts/document"
			if publish {
				path += "?publish=true"
			}
			var resp SaveDocumentResponse
			if err := client.Put(cmd.Context(), path, doc, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&publish, "publish", false, "Also publish to the remote configuration service")
	return cmd
}

// RefreshPromptsEndpoint handles POST /api/prompts/refresh.
type RefreshPromptsEndpoint struct{}

func (e *RefreshPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/prompts/refresh", e.handler
}

func (e *RefreshPromptsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Refresh remote templates
//	@Description	Fetch the remote configuration now, ignoring the minimum refresh interval
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	remoteconfig.Status
//	@Failure		409	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/api/prompts/refresh [post]
func (e *RefreshPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	remote := svcctx.RemoteFrom(r.Context())
	if remote == nil {
		writeError(w, http.StatusConflict, "remote configuration is disabled")
		return
	}
	if err := remote.ForceRefresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, remote.Status())
}

func (e *RefreshPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a remote template refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp remoteconfig.Status
			if err := client.Post(cmd.Context(), "/api/prompts/refresh", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// RemoteValuesResponse is the cached content of the remote configuration.
type RemoteValuesResponse struct {
	Status remoteconfig.Status `json:"status"`
	Values map[string]string   `json:"values"`
}

// RemotePromptsEndpoint handles GET /api/prompts/remote.
type RemotePromptsEndpoint struct{}

func (e *RemotePromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/remote", e.handler
}

func (e *RemotePromptsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Show cached remote templates
//	@Description	The raw key/value pairs last fetched from the remote configuration service. No fetch is made.
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	RemoteValuesResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/prompts/remote [get]
func (e *RemotePromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	remote := svcctx.RemoteFrom(r.Context())
	if remote == nil {
		writeError(w, http.StatusConflict, "remote configuration is disabled")
		return
	}
	writeJSON(w, http.StatusOK, RemoteValuesResponse{
		Status: remote.Status(),
		Values: remote.Values(),
	})
}

func (e *RemotePromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "remote",
		Short: "Show the server's cached remote templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RemoteValuesResponse
			if err := client.Get(cmd.Context(), "/api/prompts/remote", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
