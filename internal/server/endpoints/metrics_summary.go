package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/waks132/messiahx-sub000/internal/api"
	"github.com/waks132/messiahx-sub000/internal/metrics"
	"github.com/waks132/messiahx-sub000/internal/svcctx"
)

// MetricsSummaryEndpoint handles GET /api/metrics/summary.
type MetricsSummaryEndpoint struct{}

func (e *MetricsSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/summary", e.handler
}

func (e *MetricsSummaryEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Action metrics summary
//	@Description	Aggregate counts, tokens and cost of the actions served since start
//	@Tags			metrics
//	@Produce		json
//	@Success		200	{object}	metrics.Summary
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/metrics/summary [get]
func (e *MetricsSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	recorder := svcctx.MetricsFrom(r.Context())
	if recorder == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics recorder not initialized")
		return
	}
	writeJSON(w, http.StatusOK, recorder.Summary())
}

func (e *MetricsSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Get action metrics summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp metrics.Summary
			if err := client.Get(cmd.Context(), "/api/metrics/summary", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
