package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"spyosint/internal/collector"
	"spyosint/internal/credentials"
	"spyosint/internal/models"
	"strings"
)

// ProxyHandler the three dashboard proxy endpoints. Keys come from server configuration only.
type ProxyHandler struct {
	keys       credentials.Store
	virustotal collector.Adapter
	shodan     collector.Adapter
	openrouter *collector.OpenRouter
	logger     *slog.Logger
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(keys credentials.Store, virustotal, shodan collector.Adapter, openrouter *collector.OpenRouter, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		keys:       keys,
		virustotal: virustotal,
		shodan:     shodan,
		openrouter: openrouter,
		logger:     logger,
	}
}

type lookupRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// VirusTotal handles POST /api/virustotal
func (h *ProxyHandler) VirusTotal(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, h.virustotal, "Invalid type. Use: url, domain, ip, or hash")
}

// Shodan handles POST /api/shodan
func (h *ProxyHandler) Shodan(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, h.shodan, "Invalid type. Use: ip, domain, or search")
}

func (h *ProxyHandler) lookup(w http.ResponseWriter, r *http.Request, adapter collector.Adapter, invalidType string) {
	cred, ok := h.credential(w, r, adapter.ID())
	if !ok {
		return
	}

	var req lookupRequest
	if err := DecodeJSON(r, &req); err != nil || req.Type == "" || strings.TrimSpace(req.Value) == "" {
		JSONResponse(w, http.StatusBadRequest, map[string]string{"error": "Type and value are required"})
		return
	}
	t := models.QueryType(req.Type)
	if !adapter.Accepts(t) {
		JSONResponse(w, http.StatusBadRequest, map[string]string{"error": invalidType})
		return
	}

	result, err := adapter.Execute(r.Context(), models.NewQuery(strings.TrimSpace(req.Value), t), cred)
	if err != nil {
		h.logger.Warn("Proxy lookup failed", "provider", adapter.ID(), "kind", models.KindName(err), "error", err)
		ProxyErrorResponse(w, err)
		return
	}
	result.Normalize()
	JSONResponse(w, http.StatusOK, result)
}

type analysisRequest struct {
	Investigations json.RawMessage `json:"investigations"`
	AnalysisType   string          `json:"analysisType"`
}

// OpenRouter handles POST /api/openrouter
func (h *ProxyHandler) OpenRouter(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.credential(w, r, models.ProviderOpenRouter)
	if !ok {
		return
	}

	var req analysisRequest
	if err := DecodeJSON(r, &req); err != nil || !isJSONArray(req.Investigations) {
		JSONResponse(w, http.StatusBadRequest, map[string]string{"error": "Investigations array is required"})
		return
	}
	var investigations []any
	if err := json.Unmarshal(req.Investigations, &investigations); err != nil {
		JSONResponse(w, http.StatusBadRequest, map[string]string{"error": "Investigations array is required"})
		return
	}

	analysis, err := h.openrouter.Analyze(r.Context(), investigations, req.AnalysisType, cred)
	if err != nil {
		h.logger.Warn("Correlation analysis failed", "kind", models.KindName(err), "error", err)
		ProxyErrorResponse(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, analysis)
}

// credential reads the server key, answering 500 when it is not configured
func (h *ProxyHandler) credential(w http.ResponseWriter, r *http.Request, p models.ProviderID) (*models.ProviderCredential, bool) {
	cred, err := credentials.Lookup(r.Context(), h.keys, p)
	if err != nil {
		h.logger.Error("Credential lookup failed", "provider", p, "error", err)
		JSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read API key"})
		return nil, false
	}
	if !cred.Present() {
		ProxyErrorResponse(w, models.MissingCredential(p))
		return nil, false
	}
	return cred, true
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
