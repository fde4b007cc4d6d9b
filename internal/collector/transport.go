package collector

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"spyosint/internal/models"
	"sync"
	"time"
)

const userAgent = "SpyOSINT/1.0"

// NewHTTPClient outbound client shared by the adapters
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// exchange status and body of a response
type exchange struct {
	status int
	body   []byte
}

// recorder binds outgoing requests to ctx and remembers the last response.
// Used around SDK clients that hide the status and the raw payload.
type recorder struct {
	ctx  context.Context
	base http.RoundTripper

	mu   sync.Mutex
	last *exchange
}

func newRecorder(ctx context.Context, base http.RoundTripper) *recorder {
	if base == nil {
		base = http.DefaultTransport
	}
	return &recorder{ctx: ctx, base: base}
}

func (r *recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.WithContext(r.ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := r.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	limit := int64(16 << 20)
	if resp.StatusCode >= 300 {
		limit = 64 << 10
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	ex := &exchange{status: resp.StatusCode, body: raw}
	if resp.Header.Get("Content-Encoding") == "gzip" {
		if zr, err := gzip.NewReader(bytes.NewReader(raw)); err == nil {
			if plain, err := io.ReadAll(zr); err == nil {
				ex.body = plain
			}
		}
	}

	r.mu.Lock()
	r.last = ex
	r.mu.Unlock()
	return resp, nil
}

func (r *recorder) lastExchange() *exchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// outcome converts the result of an SDK call into a ProviderError. A non-2xx
// status wins over whatever the SDK reported, including a nil error.
func (r *recorder) outcome(p models.ProviderID, err error) error {
	ex := r.lastExchange()
	switch {
	case ex == nil && err != nil:
		return models.Unavailable(p, err)
	case ex != nil && ex.status >= 300:
		return models.UpstreamError(p, ex.status, upstreamMessage(ex.body))
	case err != nil:
		return models.ParseFailure(p, err)
	}
	return nil
}

// client returns an *http.Client sending through the recorder
func (r *recorder) client(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: r}
}

// rebase sends every request to target, keeping path and query. It points SDKs
// with a fixed endpoint at another host.
type rebase struct {
	target *url.URL
	next   http.RoundTripper
}

func newRebase(baseURL string, next http.RoundTripper) (http.RoundTripper, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return &rebase{target: target, next: next}, nil
}

func (rb *rebase) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = rb.target.Scheme
	out.URL.Host = rb.target.Host
	out.Host = rb.target.Host
	return rb.next.RoundTrip(out)
}

// upstreamMessage extracts the provider's own error text from a failure body.
// Handles {"error":{"message":..}}, {"error":"..."} and {"message":"..."}.
func upstreamMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if len(envelope.Error) > 0 {
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return envelope.Message
}

// fetch performs req and returns the body of a 2xx response. Any other outcome is
// converted to the matching ProviderError.
func fetch(ctx context.Context, client *http.Client, p models.ProviderID, req *http.Request) ([]byte, error) {
	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", userAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, models.Unavailable(p, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, models.Unavailable(p, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.UpstreamError(p, resp.StatusCode, upstreamMessage(body))
	}
	return body, nil
}

// fetchJSON fetch plus decoding into out
func fetchJSON(ctx context.Context, client *http.Client, p models.ProviderID, req *http.Request, out any) error {
	body, err := fetch(ctx, client, p, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return models.ParseFailure(p, err)
	}
	return nil
}
