package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"spyosint/internal/classifier"
	"spyosint/internal/models"
	"spyosint/internal/storage"
	"strings"

	"github.com/go-chi/chi/v5"
)

// InvestigationsHandler saved investigation endpoints
type InvestigationsHandler struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewInvestigationsHandler creates a new investigations handler
func NewInvestigationsHandler(repo storage.Repository, logger *slog.Logger) *InvestigationsHandler {
	return &InvestigationsHandler{repo: repo, logger: logger}
}

// List handles GET /api/investigations
func (h *InvestigationsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list investigations", "error", err)
		ErrorResponse(w, http.StatusInternalServerError, "Failed to list investigations", nil)
		return
	}
	JSONResponse(w, http.StatusOK, items)
}

type createInvestigationRequest struct {
	Title   string            `json:"title"`
	Query   string            `json:"query"`
	Type    string            `json:"type"`
	Results models.ResultList `json:"results"`
}

// Create handles POST /api/investigations
func (h *InvestigationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvestigationRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		ErrorResponse(w, http.StatusBadRequest, "Query is required", nil)
		return
	}

	q := classifier.ForSearch(req.Query)
	if req.Type != "" {
		t := models.QueryType(req.Type)
		if !t.Valid() {
			ErrorResponse(w, http.StatusBadRequest, "Unknown query type", nil)
			return
		}
		q.InferredType = t
	}

	inv := &models.Investigation{Title: req.Title, Query: q, Results: req.Results}
	if err := h.repo.Save(r.Context(), inv); err != nil {
		h.logger.Error("Failed to save investigation", "error", err)
		ErrorResponse(w, http.StatusInternalServerError, "Failed to save investigation", nil)
		return
	}
	h.logger.Info("Investigation saved", "id", inv.ID, "data_points", inv.DataPoints)
	JSONResponse(w, http.StatusCreated, inv)
}

// Get handles GET /api/investigations/{id}
func (h *InvestigationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		ErrorResponse(w, http.StatusNotFound, "Investigation not found", nil)
		return
	}
	if err != nil {
		h.logger.Error("Failed to load investigation", "error", err)
		ErrorResponse(w, http.StatusInternalServerError, "Failed to load investigation", nil)
		return
	}
	JSONResponse(w, http.StatusOK, inv)
}

// Delete handles DELETE /api/investigations/{id}
func (h *InvestigationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.repo.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		ErrorResponse(w, http.StatusNotFound, "Investigation not found", nil)
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete investigation", "error", err)
		ErrorResponse(w, http.StatusInternalServerError, "Failed to delete investigation", nil)
		return
	}
	SuccessResponse(w, "Investigation deleted", map[string]string{"id": id})
}
