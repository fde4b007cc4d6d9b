package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"spyosint/internal/models"
	"spyosint/internal/reporter"
	"strconv"
)

// ExportHandler renders results as downloadable documents
type ExportHandler struct {
	logger *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(logger *slog.Logger) *ExportHandler {
	return &ExportHandler{logger: logger}
}

type exportRequest struct {
	Title   string                    `json:"title"`
	Results models.ResultList         `json:"results"`
	Report  *models.CorrelationReport `json:"report"`
}

// Export handles POST /api/export?format=...
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := reporter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Unsupported export format", err)
		return
	}

	var req exportRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	doc := reporter.NewDocument(req.Title, req.Results, req.Report)
	var buf bytes.Buffer
	if err := reporter.Write(&buf, format, doc); err != nil {
		h.logger.Error("Export failed", "format", format, "error", err)
		ErrorResponse(w, http.StatusInternalServerError, "Export failed", nil)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reporter.Filename(doc, format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
