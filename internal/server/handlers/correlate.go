package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"spyosint/internal/aggregator"
	"spyosint/internal/models"
	"spyosint/internal/storage"
)

// CorrelateHandler builds correlation reports from posted or saved results
type CorrelateHandler struct {
	aggregator *aggregator.Aggregator
	repo       storage.Repository
	logger     *slog.Logger
}

// NewCorrelateHandler creates a new correlate handler
func NewCorrelateHandler(agg *aggregator.Aggregator, repo storage.Repository, logger *slog.Logger) *CorrelateHandler {
	return &CorrelateHandler{aggregator: agg, repo: repo, logger: logger}
}

type correlateRequest struct {
	Results          models.ResultList `json:"results"`
	InvestigationIDs []string          `json:"investigationIds"`
	UseLLM           bool              `json:"useLLM"`
	AnalysisType     string            `json:"analysisType"`
}

// Correlate handles POST /api/correlate
func (h *CorrelateHandler) Correlate(w http.ResponseWriter, r *http.Request) {
	var req correlateRequest
	if err := DecodeJSON(r, &req); err != nil {
		if errors.Is(err, models.ErrInvalidInput) || errors.Is(err, models.ErrParseFailure) {
			ProviderErrorResponse(w, models.InvalidInput("", "%v", err))
			return
		}
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	results := []models.Result(req.Results)
	for _, id := range req.InvestigationIDs {
		inv, err := h.repo.Get(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			ErrorResponse(w, http.StatusNotFound, "Investigation not found: "+id, nil)
			return
		}
		if err != nil {
			h.logger.Error("Failed to load investigation", "id", id, "error", err)
			ErrorResponse(w, http.StatusInternalServerError, "Failed to load investigation", nil)
			return
		}
		results = append(results, inv.Results...)
	}

	report, err := h.aggregator.Run(r.Context(), aggregator.Request{
		Results:      results,
		UseLLM:       req.UseLLM,
		AnalysisType: req.AnalysisType,
	})
	if err != nil {
		ProviderErrorResponse(w, err)
		return
	}

	h.logger.Info("Correlation report built",
		"results", report.ResultCount,
		"correlations", len(report.Correlations),
		"risk_score", report.RiskScore,
		"llm", req.UseLLM,
	)
	JSONResponse(w, http.StatusOK, report)
}
