package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"spyosint/internal/models"
	"strconv"
	"strings"
	"time"
)

// DefaultWaybackURL public Wayback Machine
const DefaultWaybackURL = "https://web.archive.org"

// Wayback web-archive-history adapter over the CDX API
type Wayback struct {
	client  *http.Client
	baseURL string
	limit   int
}

// NewWayback creates the adapter. limit caps the captures requested (default 200).
func NewWayback(client *http.Client, baseURL string, limit int) *Wayback {
	if baseURL == "" {
		baseURL = DefaultWaybackURL
	}
	if limit <= 0 {
		limit = 200
	}
	return &Wayback{client: client, baseURL: strings.TrimRight(baseURL, "/"), limit: limit}
}

func (w *Wayback) ID() models.ProviderID { return models.ProviderWayback }

func (w *Wayback) RequiresCredential() bool { return false }

func (w *Wayback) Accepts(t models.QueryType) bool {
	return acceptsOneOf(t, models.QueryURL, models.QueryDomain)
}

// archiveTarget CDX url pattern: the whole site for a domain, the exact url otherwise
func archiveTarget(q models.Query) string {
	value := strings.TrimSpace(q.RawValue)
	if q.InferredType == models.QueryDomain {
		return strings.ToLower(value) + "/*"
	}
	return value
}

func (w *Wayback) Execute(ctx context.Context, q models.Query, cred *models.ProviderCredential) (models.Result, error) {
	if err := checkGate(w, q, cred); err != nil {
		return nil, err
	}

	params := url.Values{
		"url":    {archiveTarget(q)},
		"output": {"json"},
		"limit":  {strconv.Itoa(w.limit)},
		"fl":     {"timestamp,original,statuscode,mimetype"},
	}
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/cdx/search/cdx?%s", w.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, models.InvalidInput(w.ID(), "bad CDX request: %v", err)
	}

	body, err := fetch(ctx, w.client, w.ID(), req)
	if err != nil {
		return nil, err
	}

	// CDX answers with an empty body when nothing was captured
	var rows [][]string
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, models.ParseFailure(w.ID(), err)
		}
	}

	result := &models.ArchiveHistory{
		Meta: models.NewMeta(w.ID(), models.KindWebArchive, q),
		URL:  strings.TrimSpace(q.RawValue),
	}

	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue // header
		}
		ts, ok := parseArchiveTimestamp(row[0])
		if !ok {
			continue
		}
		capture := models.Capture{
			Timestamp:   ts,
			OriginalURL: row[1],
			SnapshotURL: fmt.Sprintf("%s/web/%s/%s", DefaultWaybackURL, row[0], row[1]),
			Category:    categorizeArchivedURL(row[1]),
		}
		if len(row) > 2 {
			capture.Status = row[2]
		}
		if len(row) > 3 {
			capture.Mime = row[3]
		}
		result.Captures = append(result.Captures, capture)

		if result.FirstCapture == nil || ts.Before(*result.FirstCapture) {
			first := ts
			result.FirstCapture = &first
		}
		if result.LastCapture == nil || ts.After(*result.LastCapture) {
			last := ts
			result.LastCapture = &last
		}
	}
	result.Snapshots = len(result.Captures)

	result.Normalize()
	return result, nil
}

// parseArchiveTimestamp parses the 14-digit yyyyMMddhhmmss capture timestamp.
// Shorter prefixes (yyyyMMdd and up) are accepted.
func parseArchiveTimestamp(ts string) (time.Time, bool) {
	layouts := map[int]string{
		14: "20060102150405",
		12: "200601021504",
		8:  "20060102",
	}
	layout, ok := layouts[len(ts)]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, ts)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// categorizeArchivedURL tags captures of interesting paths
func categorizeArchivedURL(rawURL string) string {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "login") || strings.Contains(u, "signin"):
		return "login_page"
	case strings.HasSuffix(u, ".js") || strings.Contains(u, ".js?"):
		return "js_file"
	case strings.Contains(u, "admin"):
		return "admin_page"
	case strings.Contains(u, "upload"):
		return "upload_page"
	case strings.Contains(u, "config") || strings.Contains(u, ".env"):
		return "config_file"
	case strings.Contains(u, "backup") || strings.HasSuffix(u, ".sql") || strings.HasSuffix(u, ".bak"):
		return "backup_file"
	case strings.Contains(u, "/api"):
		return "api_endpoint"
	}
	return ""
}
