// Package handler exposes the notice read API over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"redwatch/internal/notice/service"
	"redwatch/pkg/platform/httputil"
)

// Handler serves the notice endpoints.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the notice routes. Entity IDs contain a slash, so the
// single-record routes match a wildcard rather than a URL parameter. The
// admin middleware guards the mutating routes only.
func (h *Handler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/notices", h.list)
	r.Get("/notices/*", h.get)
	r.Group(func(r chi.Router) {
		r.Use(admin)
		r.Put("/notices/*", h.update)
		r.Delete("/notices/*", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error("list notices failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := NoticeListResponse{
		Total:   len(views),
		Notices: make([]NoticeSummary, 0, len(views)),
	}
	for _, v := range views {
		resp.Notices = append(resp.Notices, toSummary(v))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "*")
	if entityID == "" {
		httputil.WriteBadRequest(w, "entity id is required")
		return
	}

	view, err := h.svc.Get(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*view))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "*")
	if entityID == "" {
		httputil.WriteBadRequest(w, "entity id is required")
		return
	}

	var req UpdateNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "malformed JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.svc.Update(r.Context(), entityID, req.Fields()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.Info("notice updated", "entity_id", entityID)

	view, err := h.svc.Get(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*view))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "*")
	if entityID == "" {
		httputil.WriteBadRequest(w, "entity id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), entityID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.Info("notice deleted", "entity_id", entityID)
	w.WriteHeader(http.StatusNoContent)
}
