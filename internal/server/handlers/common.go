package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"spyosint/internal/models"
)

// JSONResponse sends a JSON response with the given status code
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse sends a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"error":   message,
		"success": false,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	JSONResponse(w, statusCode, response)
}

// SuccessResponse sends a JSON success response
func SuccessResponse(w http.ResponseWriter, message string, data interface{}) {
	response := map[string]interface{}{
		"message": message,
		"success": true,
	}
	if data != nil {
		response["data"] = data
	}
	JSONResponse(w, http.StatusOK, response)
}

// DecodeJSON decodes JSON from request body
func DecodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// StatusFor maps a typed error to an HTTP status. missingCredential is the
// status used for MissingCredential, which differs between proxy and
// store-backed endpoints.
func StatusFor(err error, missingCredential int) int {
	var pe *models.ProviderError
	switch {
	case errors.Is(err, models.ErrMissingCredential):
		return missingCredential
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrInsufficientInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUpstream):
		if errors.As(err, &pe) && pe.StatusCode >= 400 && pe.StatusCode <= 599 {
			return pe.StatusCode
		}
		return http.StatusBadGateway
	case errors.Is(err, models.ErrUpstreamUnavailable), errors.Is(err, models.ErrParseFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ProviderErrorResponse sends a typed error with its kind on a store-backed endpoint
func ProviderErrorResponse(w http.ResponseWriter, err error) {
	info := models.DescribeError(err)
	JSONResponse(w, StatusFor(err, http.StatusPreconditionFailed), map[string]interface{}{
		"error":   info.Message,
		"kind":    info.Kind,
		"success": false,
	})
}

// ProxyErrorResponse sends {error} with the proxy status mapping
func ProxyErrorResponse(w http.ResponseWriter, err error) {
	JSONResponse(w, StatusFor(err, http.StatusInternalServerError), map[string]string{
		"error": models.DescribeError(err).Message,
	})
}
