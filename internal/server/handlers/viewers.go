package handlers

import (
	"net/http"

	"github.com/agentstation/sheetreview"
	"github.com/agentstation/sheetreview/internal/server/filter"
	"github.com/agentstation/sheetreview/internal/server/response"
	"github.com/agentstation/sheetreview/internal/server/viewers"
	"github.com/agentstation/sheetreview/pkg/logging"
	"github.com/agentstation/sheetreview/pkg/view"
)

type viewerResponse struct {
	ID   string           `json:"id"`
	View sheetreview.View `json:"view"`
}

type openRequest struct {
	Page   int          `json:"page"`
	Filter *filter.Body `json:"filter,omitempty"`
}

type pageRequest struct {
	Page int `json:"page"`
}

type draftRequest struct {
	Text string `json:"text"`
}

type conflictRequest struct {
	Adopt bool `json:"adopt"`
}

// HandleOpenViewer handles POST /api/v1/viewers.
// @Summary Open a viewer
// @Description Opens a review session at a page with an optional filter
// @Tags viewers
// @Accept json
// @Produce json
// @Param request body openRequest false "Initial page and filter"
// @Success 201 {object} response.Response{data=viewerResponse}
// @Failure 400 {object} response.Response{error=response.Error}
// @Router /api/v1/viewers [post].
func (h *Handlers) HandleOpenViewer(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decode(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	var crit *view.Criterion
	if req.Filter != nil {
		crit = req.Filter.Criterion()
	}

	v, err := h.registry.Open(r.Context(), req.Page, crit)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	// A failed first fetch is reported through the view's last error.
	ctx := logging.WithViewer(r.Context(), v.ID)
	if err := v.Client.Refresh(ctx); err != nil {
		logging.FromContext(ctx).Debug().Err(err).Msg("Initial refresh failed")
	}

	response.Created(w, viewerResponse{ID: v.ID, View: v.Client.View()})
}

// HandleGetViewer handles GET /api/v1/viewers/{id}.
// @Summary Get a viewer
// @Description Returns the viewer's current view
// @Tags viewers
// @Produce json
// @Param id path string true "Viewer ID"
// @Success 200 {object} response.Response{data=viewerResponse}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/viewers/{id} [get].
func (h *Handlers) HandleGetViewer(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, func(*viewers.Viewer) error { return nil })
}

// HandleCloseViewer handles DELETE /api/v1/viewers/{id}.
// @Summary Close a viewer
// @Tags viewers
// @Param id path string true "Viewer ID"
// @Success 204
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/viewers/{id} [delete].
func (h *Handlers) HandleCloseViewer(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(r.PathValue("id")); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetPage handles POST /api/v1/viewers/{id}/page.
// @Summary Move to a page
// @Tags viewers
// @Accept json
// @Produce json
// @Param id path string true "Viewer ID"
// @Param request body pageRequest true "1-based page"
// @Success 200 {object} response.Response{data=viewerResponse}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/viewers/{id}/page [post].
func (h *Handlers) HandleSetPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decode(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.withViewer(w, r, func(v *viewers.Viewer) error {
		return v.Client.SetPage(req.Page)
	})
}

// HandleSetFilter handles POST /api/v1/viewers/{id}/filter.
// @Summary Set or clear the row filter
// @Description Send {} to clear the filter
// @Tags viewers
// @Accept json
// @Produce json
// @Param id path string true "Viewer ID"
// @Param request body filter.Body true "Column and value"
// @Success 200 {object} response.Response{data=viewerResponse}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/viewers/{id}/filter [post].
func (h *Handlers) HandleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req filter.Body
	if err := decode(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.withViewer(w, r, func(v *viewers.Viewer) error {
		return v.Client.SetFilter(req.Criterion())
	})
}

// HandleNext handles POST /api/v1/viewers/{id}/next.
func (h *Handlers) HandleNext(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, func(v *viewers.Viewer) error { return v.Client.Next() })
}

// HandlePrevious handles POST /api/v1/viewers/{id}/previous.
func (h *Handlers) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, func(v *viewers.Viewer) error { return v.Client.Previous() })
}

// HandleBeginEdit handles POST /api/v1/viewers/{id}/edit.
// @Summary Begin editing the annotation
// @Tags viewers
// @Produce json
// @Param id path string true "Viewer ID"
// @Success 200 {object} response.Response{data=viewerResponse}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/viewers/{id}/edit [post].
func (h *Handlers) HandleBeginEdit(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, func(v *viewers.Viewer) error { return v.Client.BeginEdit() })
}

// HandleUpdateDraft handles PUT /api/v1/viewers/{id}/draft.
// @Summary Replace the draft text
// @Tags viewers
// @Accept json
// @Produce json
// @Param id path string true "Viewer ID"
// @Param request body draftRequest true "Draft text"
// @Success 200 {object} response.Response{data=viewerResponse}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/viewers/{id}/draft [put].
func (h *Handlers) HandleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decode(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.withViewer(w, r, func(v *viewers.Viewer) error {
		return v.Client.UpdateDraft(req.Text)
	})
}

// HandleCancel handles POST /api/v1/viewers/{id}/cancel.
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, func(v *viewers.Viewer) error { return v.Client.Cancel() })
}

// HandleSave handles POST /api/v1/viewers/{id}/save.
// @Summary Save the draft
// @Description Writes the draft if the remote annotation still matches the baseline
// @Tags viewers
// @Produce json
// @Param id path string true "Viewer ID"
// @Success 200 {object} response.Response{data=viewerResponse}
// @Failure 409 {object} response.Response{error=response.Error} "Conflict, with notice"
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/viewers/{id}/save [post].
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, func(v *viewers.Viewer) error { return v.Client.Save(r.Context()) })
}

// HandleConflict handles POST /api/v1/viewers/{id}/conflict.
// @Summary Acknowledge a conflict
// @Description adopt=true takes the remote value, false keeps the draft
// @Tags viewers
// @Accept json
// @Produce json
// @Param id path string true "Viewer ID"
// @Param request body conflictRequest true "Resolution"
// @Success 200 {object} response.Response{data=viewerResponse}
// @Failure 409 {object} response.Response{error=response.Error}
// @Router /api/v1/viewers/{id}/conflict [post].
func (h *Handlers) HandleConflict(w http.ResponseWriter, r *http.Request) {
	var req conflictRequest
	if err := decode(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.withViewer(w, r, func(v *viewers.Viewer) error {
		return v.Client.AcknowledgeConflict(req.Adopt)
	})
}

// HandleRefreshViewer handles POST /api/v1/viewers/{id}/refresh.
func (h *Handlers) HandleRefreshViewer(w http.ResponseWriter, r *http.Request) {
	h.withViewer(w, r, func(v *viewers.Viewer) error { return v.Client.Refresh(r.Context()) })
}

// withViewer resolves the path's viewer, runs fn and answers with the
// resulting view.
func (h *Handlers) withViewer(w http.ResponseWriter, r *http.Request, fn func(*viewers.Viewer) error) {
	v, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if err := fn(v); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, viewerResponse{ID: v.ID, View: v.Client.View()})
}
