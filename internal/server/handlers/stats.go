package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/agentstation/sheetreview/internal/server/response"
)

// HandleRefresh handles POST /api/v1/refresh.
// @Summary Refresh the shared table
// @Description Polls the remote table now and drops cached table responses
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 503 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/refresh [post].
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.watcher.Refresh(r.Context()); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.cache.Clear()

	v := h.watcher.View()
	response.OK(w, map[string]any{
		"status":     "refreshed",
		"rows":       v.Pagination.Total,
		"version":    h.watcher.Version(),
		"fetched_at": v.FetchedAt,
	})
}

// HandleStats handles GET /api/v1/stats.
// @Summary Server statistics
// @Description Viewer, connection, cache and runtime statistics
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Security ApiKeyAuth
// @Router /api/v1/stats [get].
func (h *Handlers) HandleStats(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	t := h.watcher.Table()
	response.OK(w, map[string]any{
		"table": map[string]any{
			"rows":       t.Len(),
			"columns":    t.Width(),
			"version":    h.watcher.Version(),
			"fetched_at": t.FetchedAt,
		},
		"viewers": h.registry.Len(),
		"connections": map[string]any{
			"websocket": h.wsHub.ClientCount(),
			"sse":       h.sseBroadcaster.ClientCount(),
		},
		"cache": map[string]any{
			"items": h.cache.ItemCount(),
		},
		"server": map[string]any{
			"version":        h.app.Version(),
			"uptime_seconds": int(time.Since(h.started).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"memory_mb":      mem.Alloc / 1024 / 1024,
		},
	})
}
