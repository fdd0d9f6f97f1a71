package handlers

import (
	"net/http"

	"github.com/agentstation/sheetreview/internal/server/response"
)

// HandleHealth handles GET /api/v1/health.
// @Summary Health check
// @Description Health check endpoint (liveness probe)
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Router /api/v1/health [get].
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "sheetreview-api",
		"version": h.app.Version(),
	})
}

// HandleReady handles GET /api/v1/ready.
// @Summary Readiness check
// @Description Ready once the shared watcher has loaded the remote table
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/ready [get].
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	v := h.watcher.View()
	if !v.Loaded {
		msg := "Table not loaded"
		if v.LastError != "" {
			msg += ": " + v.LastError
		}
		response.ServiceUnavailable(w, msg)
		return
	}

	identity, err := h.watcher.Identity(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Identity lookup failed")
	}

	response.OK(w, map[string]any{
		"status":       "ready",
		"reviewing_as": identity,
		"rows":         v.Pagination.Total,
		"fetched_at":   v.FetchedAt,
		"version":      h.watcher.Version(),
		"cache": map[string]any{
			"items": h.cache.ItemCount(),
		},
		"viewers":           h.registry.Len(),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}
