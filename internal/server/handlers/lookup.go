package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"spyosint/internal/aggregator"
	"spyosint/internal/classifier"
	"spyosint/internal/collector"
	"spyosint/internal/models"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// SessionHeader carries the search session id
const SessionHeader = "X-Session-ID"

// LookupHandler classification and provider fan-out endpoints
type LookupHandler struct {
	registry      *collector.Registry
	sessions      *aggregator.Sessions
	searchTimeout time.Duration
	logger        *slog.Logger
}

// NewLookupHandler creates a new lookup handler. searchTimeout bounds background searches.
func NewLookupHandler(registry *collector.Registry, sessions *aggregator.Sessions, searchTimeout time.Duration, logger *slog.Logger) *LookupHandler {
	if searchTimeout <= 0 {
		searchTimeout = time.Minute
	}
	return &LookupHandler{
		registry:      registry,
		sessions:      sessions,
		searchTimeout: searchTimeout,
		logger:        logger,
	}
}

type classifyRequest struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

// Classify handles POST /api/classify
func (h *LookupHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		ErrorResponse(w, http.StatusBadRequest, "Query is required", nil)
		return
	}
	JSONResponse(w, http.StatusOK, classifier.FromContext(req.Query, req.Context))
}

type fanOutRequest struct {
	Query     string   `json:"query"`
	Context   string   `json:"context"`
	Type      string   `json:"type"`
	Providers []string `json:"providers"`
	Mode      string   `json:"mode"`
	Platforms []string `json:"platforms"`
}

// parse validates the request and returns the classified query and targets
func (req *fanOutRequest) parse() (models.Query, []models.ProviderID, collector.Mode, error) {
	if strings.TrimSpace(req.Query) == "" {
		return models.Query{}, nil, "", models.InvalidInput("", "query is required")
	}
	q := classifier.FromContext(req.Query, req.Context)
	if req.Type != "" {
		t := models.QueryType(req.Type)
		if !t.Valid() {
			return models.Query{}, nil, "", models.InvalidInput("", "unknown query type %q", req.Type)
		}
		q.InferredType = t
	}
	mode, err := collector.ParseMode(req.Mode)
	if err != nil {
		return models.Query{}, nil, "", models.InvalidInput("", "%v", err)
	}
	ids := make([]models.ProviderID, 0, len(req.Providers))
	for _, p := range req.Providers {
		ids = append(ids, models.ProviderID(strings.ToLower(strings.TrimSpace(p))))
	}
	return q, ids, mode, nil
}

type lookupResponse struct {
	Query    models.Query        `json:"query"`
	Outcomes []collector.Outcome `json:"outcomes"`
}

// Lookup handles POST /api/lookup (synchronous fan-out)
func (h *LookupHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req fanOutRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	q, ids, mode, err := req.parse()
	if err != nil {
		ProviderErrorResponse(w, err)
		return
	}

	ctx := r.Context()
	if len(req.Platforms) > 0 {
		ctx = collector.WithPlatforms(ctx, req.Platforms)
	}
	outcomes := h.registry.RunAll(ctx, q, ids, mode)

	h.logger.Info("Lookup completed",
		"query_type", q.InferredType,
		"providers", len(outcomes),
		"succeeded", len(collector.Succeeded(outcomes)),
	)
	JSONResponse(w, http.StatusOK, lookupResponse{Query: q, Outcomes: outcomes})
}

type searchStarted struct {
	SessionID  string              `json:"sessionId"`
	Generation aggregator.Ticket   `json:"generation"`
	Query      models.Query        `json:"query"`
	Providers  []models.ProviderID `json:"providers"`
}

// StartSearch handles POST /api/search. A new search on the same session
// supersedes the previous one; its late outcomes are discarded.
func (h *LookupHandler) StartSearch(w http.ResponseWriter, r *http.Request) {
	var req fanOutRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	q, ids, mode, err := req.parse()
	if err != nil {
		ProviderErrorResponse(w, err)
		return
	}

	sessionID, view := h.sessions.Open(r.Header.Get(SessionHeader))
	targets := h.registry.Targets(q, ids)
	ticket := view.Begin(q, len(targets))

	ctx, cancel := context.WithTimeout(context.Background(), h.searchTimeout)
	if len(req.Platforms) > 0 {
		ctx = collector.WithPlatforms(ctx, req.Platforms)
	}
	go func() {
		defer cancel()
		h.registry.Stream(ctx, q, targets, mode, func(o collector.Outcome) {
			if !view.Deliver(ticket, o) {
				h.logger.Debug("Dropped stale outcome", "session", sessionID, "provider", o.Provider)
			}
		})
	}()

	w.Header().Set(SessionHeader, sessionID)
	JSONResponse(w, http.StatusAccepted, searchStarted{
		SessionID:  sessionID,
		Generation: ticket,
		Query:      q,
		Providers:  targets,
	})
}

// GetSearch handles GET /api/search/{session}
func (h *LookupHandler) GetSearch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")
	view, ok := h.sessions.Get(sessionID)
	if !ok {
		ErrorResponse(w, http.StatusNotFound, "Search session not found", nil)
		return
	}
	w.Header().Set(SessionHeader, sessionID)
	JSONResponse(w, http.StatusOK, view.Snapshot())
}
