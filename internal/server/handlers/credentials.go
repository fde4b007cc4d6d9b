package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"spyosint/internal/credentials"
	"spyosint/internal/models"
	"strings"

	"github.com/go-chi/chi/v5"
)

// CredentialsHandler manages user-supplied provider keys. Secrets are never
// returned, only their masked form.
type CredentialsHandler struct {
	user   credentials.Store
	server credentials.Store
	known  map[models.ProviderID]bool
	logger *slog.Logger
}

// NewCredentialsHandler creates a new credentials handler. server holds the
// keys from configuration and is only read.
func NewCredentialsHandler(user, server credentials.Store, providers []models.ProviderID, logger *slog.Logger) *CredentialsHandler {
	known := make(map[models.ProviderID]bool, len(providers))
	for _, p := range providers {
		known[p] = true
	}
	return &CredentialsHandler{user: user, server: server, known: known, logger: logger}
}

// CredentialStatus masked view of one provider key
type CredentialStatus struct {
	ProviderID models.ProviderID `json:"providerId"`
	Configured bool              `json:"configured"`
	Source     string            `json:"source,omitempty"`
	Masked     string            `json:"masked,omitempty"`
}

func (h *CredentialsHandler) provider(w http.ResponseWriter, r *http.Request) (models.ProviderID, bool) {
	p := models.ProviderID(strings.ToLower(chi.URLParam(r, "provider")))
	if !h.known[p] {
		ErrorResponse(w, http.StatusNotFound, "Unknown provider", nil)
		return "", false
	}
	return p, true
}

func (h *CredentialsHandler) status(r *http.Request, p models.ProviderID) (CredentialStatus, error) {
	st := CredentialStatus{ProviderID: p}
	for _, src := range []struct {
		name  string
		store credentials.Store
	}{{"user", h.user}, {"server", h.server}} {
		if src.store == nil {
			continue
		}
		secret, ok, err := src.store.Get(r.Context(), string(p))
		if err != nil {
			return st, err
		}
		if ok && secret != "" {
			st.Configured = true
			st.Source = src.name
			st.Masked = credentials.Mask(secret)
			return st, nil
		}
	}
	return st, nil
}

// List handles GET /api/credentials
func (h *CredentialsHandler) List(w http.ResponseWriter, r *http.Request) {
	out := make([]CredentialStatus, 0, len(h.known))
	for _, p := range sortedProviders(h.known) {
		st, err := h.status(r, p)
		if err != nil {
			h.logger.Error("Credential lookup failed", "provider", p, "error", err)
			ErrorResponse(w, http.StatusInternalServerError, "Failed to read credentials", nil)
			return
		}
		out = append(out, st)
	}
	JSONResponse(w, http.StatusOK, out)
}

// Get handles GET /api/credentials/{provider}
func (h *CredentialsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	st, err := h.status(r, p)
	if err != nil {
		h.logger.Error("Credential lookup failed", "provider", p, "error", err)
		ErrorResponse(w, http.StatusInternalServerError, "Failed to read credential", nil)
		return
	}
	JSONResponse(w, http.StatusOK, st)
}

type setCredentialRequest struct {
	Secret string `json:"secret"`
}

// Set handles PUT /api/credentials/{provider}
func (h *CredentialsHandler) Set(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	var req setCredentialRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	secret := strings.TrimSpace(req.Secret)
	if secret == "" {
		ErrorResponse(w, http.StatusBadRequest, "Secret is required", nil)
		return
	}
	if err := h.user.Set(r.Context(), string(p), secret); err != nil {
		h.write(w, p, err)
		return
	}
	h.logger.Info("Credential stored", "provider", p)
	JSONResponse(w, http.StatusOK, CredentialStatus{ProviderID: p, Configured: true, Source: "user", Masked: credentials.Mask(secret)})
}

// Clear handles DELETE /api/credentials/{provider}
func (h *CredentialsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	if err := h.user.Clear(r.Context(), string(p)); err != nil {
		h.write(w, p, err)
		return
	}
	h.logger.Info("Credential cleared", "provider", p)
	SuccessResponse(w, "Credential cleared", nil)
}

func (h *CredentialsHandler) write(w http.ResponseWriter, p models.ProviderID, err error) {
	if errors.Is(err, credentials.ErrReadOnly) {
		ErrorResponse(w, http.StatusConflict, "Credential store is read-only", nil)
		return
	}
	h.logger.Error("Credential write failed", "provider", p, "error", err)
	ErrorResponse(w, http.StatusInternalServerError, "Failed to update credential", nil)
}

func sortedProviders(known map[models.ProviderID]bool) []models.ProviderID {
	out := make([]models.ProviderID, 0, len(known))
	for p := range known {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
