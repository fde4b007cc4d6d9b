package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure leaving an adapter or the aggregator wraps one of these.
var (
	ErrMissingCredential   = errors.New("missing credential")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstream            = errors.New("upstream error")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInsufficientInput   = errors.New("insufficient input")
	ErrParseFailure        = errors.New("parse failure")
)

// ProviderError typed failure raised by a provider adapter or the aggregator
type ProviderError struct {
	Kind       error      `json:"-"`
	Provider   ProviderID `json:"provider,omitempty"`
	StatusCode int        `json:"statusCode,omitempty"`
	Message    string     `json:"message"`
	Err        error      `json:"-"`
}

func (e *ProviderError) Error() string {
	prefix := e.Kind.Error()
	if e.Provider != "" {
		prefix = fmt.Sprintf("%s: %s", e.Provider, prefix)
	}
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s (%d): %s", prefix, e.StatusCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is/As
func (e *ProviderError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// MissingCredential provider requires a secret and none is stored
func MissingCredential(p ProviderID) *ProviderError {
	return &ProviderError{Kind: ErrMissingCredential, Provider: p, Message: fmt.Sprintf("%s API key not configured", displayName(p))}
}

// InvalidInput query rejected before dispatch
func InvalidInput(p ProviderID, format string, args ...any) *ProviderError {
	return &ProviderError{Kind: ErrInvalidInput, Provider: p, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError remote returned a non-success status. An empty message falls
// back to "<Provider> API error: <status>".
func UpstreamError(p ProviderID, status int, message string) *ProviderError {
	if message == "" {
		message = fmt.Sprintf("%s API error: %d", displayName(p), status)
	}
	return &ProviderError{Kind: ErrUpstream, Provider: p, StatusCode: status, Message: message}
}

// Unavailable network-level failure talking to the provider
func Unavailable(p ProviderID, err error) *ProviderError {
	return &ProviderError{Kind: ErrUpstreamUnavailable, Provider: p, Message: fmt.Sprintf("%s unreachable", displayName(p)), Err: err}
}

// ParseFailure provider answered 2xx with a payload we could not decode
func ParseFailure(p ProviderID, err error) *ProviderError {
	return &ProviderError{Kind: ErrParseFailure, Provider: p, Message: fmt.Sprintf("malformed %s payload", displayName(p)), Err: err}
}

// InsufficientInput aggregation refused for fewer than two results
func InsufficientInput(got int) *ProviderError {
	return &ProviderError{Kind: ErrInsufficientInput, Message: fmt.Sprintf("at least 2 results are required, got %d", got)}
}

// KindName stable name of the error kind, used in API payloads
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return "MissingCredential"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrUpstream):
		return "UpstreamError"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailable"
	case errors.Is(err, ErrInsufficientInput):
		return "InsufficientInput"
	case errors.Is(err, ErrParseFailure):
		return "ParseFailure"
	}
	return "Internal"
}

// ErrorInfo serializable view of an error, attached to fan-out outcomes
type ErrorInfo struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// DescribeError converts any error to its ErrorInfo
func DescribeError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	info := &ErrorInfo{Kind: KindName(err), Message: err.Error()}
	var pe *ProviderError
	if errors.As(err, &pe) {
		info.StatusCode = pe.StatusCode
		if pe.Message != "" {
			info.Message = pe.Message
		}
	}
	return info
}

func displayName(p ProviderID) string {
	switch p {
	case ProviderVirusTotal:
		return "VirusTotal"
	case ProviderShodan:
		return "Shodan"
	case ProviderOpenRouter:
		return "OpenRouter"
	case ProviderWhois:
		return "WHOIS"
	case ProviderWayback:
		return "Wayback Machine"
	case ProviderCommonCrawl:
		return "Common Crawl"
	case ProviderSocial:
		return "Social probe"
	case "":
		return "Provider"
	}
	return string(p)
}
