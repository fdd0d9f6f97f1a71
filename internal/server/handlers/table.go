package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/agentstation/utc"

	"github.com/agentstation/sheetreview/internal/server/filter"
	"github.com/agentstation/sheetreview/internal/server/response"
	"github.com/agentstation/sheetreview/pkg/a1"
	"github.com/agentstation/sheetreview/pkg/constants"
	"github.com/agentstation/sheetreview/pkg/table"
	"github.com/agentstation/sheetreview/pkg/view"
)

type tableResponse struct {
	Headers   []string        `json:"headers"`
	Rows      []table.Row     `json:"rows"`
	Count     int             `json:"count"`
	Filter    *view.Criterion `json:"filter,omitempty"`
	Version   uint64          `json:"version"`
	FetchedAt utc.Time        `json:"fetched_at"`
}

type columnResponse struct {
	Index  int    `json:"index"`
	Number int    `json:"number"`
	Letter string `json:"letter"`
}

// HandleTable handles GET /api/v1/table.
// @Summary Current table
// @Description Headers and rows of the shared snapshot, optionally filtered
// @Tags table
// @Produce json
// @Param column query string false "Filter column (0-based index or letter)"
// @Param value query string false "Filter value (case-insensitive match)"
// @Success 200 {object} response.Response{data=tableResponse}
// @Failure 400 {object} response.Response{error=response.Error}
// @Router /api/v1/table [get].
func (h *Handlers) HandleTable(w http.ResponseWriter, r *http.Request) {
	crit, err := filter.FromQuery(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	// The snapshot version is part of the key, so a new poll result
	// misses the cache instead of serving stale rows.
	version := h.watcher.Version()
	cacheKey := fmt.Sprintf("table:%d:%s", version, r.URL.RawQuery)
	if cached, found := h.cache.Get(cacheKey); found {
		response.OK(w, cached)
		return
	}

	t := h.watcher.Table()
	if err := crit.Validate(t.Width()); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	rows := view.Filter(t, crit)
	if rows == nil {
		rows = []table.Row{}
	}

	result := tableResponse{
		Headers:   t.Headers,
		Rows:      rows,
		Count:     len(rows),
		Filter:    crit,
		Version:   version,
		FetchedAt: t.FetchedAt,
	}
	h.cache.SetWithTTL(cacheKey, result, constants.TableCacheTTL)

	response.OK(w, result)
}

// HandleColumn handles GET /api/v1/columns/{n}.
// @Summary Column addressing
// @Description Converts a 1-based column number to its letter label, or a label to its number
// @Tags table
// @Produce json
// @Param n path string true "Column number (1-based) or letter label"
// @Success 200 {object} response.Response{data=columnResponse}
// @Failure 400 {object} response.Response{error=response.Error}
// @Router /api/v1/columns/{n} [get].
func (h *Handlers) HandleColumn(w http.ResponseWriter, r *http.Request) {
	arg := r.PathValue("n")

	number, err := strconv.Atoi(arg)
	if err != nil {
		n, err := a1.ColumnNumber(arg)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		number = n
	}

	letter, err := a1.ColumnLetter(number)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, columnResponse{Index: number - 1, Number: number, Letter: letter})
}
