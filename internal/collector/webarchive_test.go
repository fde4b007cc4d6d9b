package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"spyosint/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWayback_Captures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cdx/search/cdx", r.URL.Path)
		assert.Equal(t, "example.com/*", r.URL.Query().Get("url"))
		assert.Equal(t, "json", r.URL.Query().Get("output"))
		fmt.Fprint(w, `[
			["timestamp","original","statuscode","mimetype"],
			["20240128101500","http://example.com/","200","text/html"],
			["20010115000000","http://example.com/admin/login.php","301","text/html"],
			["20150601000000","http://example.com/static/app.js","200","application/javascript"],
			["garbage","http://example.com/x","200","text/html"]
		]`)
	}))
	defer srv.Close()

	w := NewWayback(NewHTTPClient(5*time.Second), srv.URL, 0)
	result, err := w.Execute(context.Background(), models.NewQuery("Example.com", models.QueryDomain), nil)
	require.NoError(t, err)

	history := result.(*models.ArchiveHistory)
	assert.Equal(t, 3, history.Snapshots)
	require.NotNil(t, history.FirstCapture)
	require.NotNil(t, history.LastCapture)
	assert.Equal(t, 2001, history.FirstCapture.Year())
	assert.Equal(t, 2024, history.LastCapture.Year())

	assert.Equal(t, "login_page", history.Captures[1].Category)
	assert.Equal(t, "js_file", history.Captures[2].Category)
	assert.Equal(t, "https://web.archive.org/web/20240128101500/http://example.com/", history.Captures[0].SnapshotURL)
	assert.Equal(t, "200", history.Captures[0].Status)
}

func TestWayback_EmptyBodyMeansNoCaptures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	w := NewWayback(NewHTTPClient(5*time.Second), srv.URL, 10)
	result, err := w.Execute(context.Background(), models.NewQuery("https://example.com/page", models.QueryURL), nil)
	require.NoError(t, err)

	history := result.(*models.ArchiveHistory)
	assert.Zero(t, history.Snapshots)
	assert.NotNil(t, history.Captures)
	assert.Nil(t, history.FirstCapture)
}

func TestWayback_RejectsIP(t *testing.T) {
	w := NewWayback(NewHTTPClient(time.Second), "http://127.0.0.1:1", 0)
	_, err := w.Execute(context.Background(), models.NewQuery("203.0.113.5", models.QueryIP), nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestParseArchiveTimestamp(t *testing.T) {
	ts, ok := parseArchiveTimestamp("20240128101500")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 28, 10, 15, 0, 0, time.UTC), ts)

	_, ok = parseArchiveTimestamp("20240128")
	assert.True(t, ok)

	_, ok = parseArchiveTimestamp("2024")
	assert.False(t, ok)
}

func TestCategorizeArchivedURL(t *testing.T) {
	tests := map[string]string{
		"http://x.com/wp-admin/":       "admin_page",
		"http://x.com/upload.php":      "upload_page",
		"http://x.com/.env":            "config_file",
		"http://x.com/db.sql":          "backup_file",
		"http://x.com/api/v1/users":    "api_endpoint",
		"http://x.com/about":           "",
		"http://x.com/main.js?v=3":     "js_file",
		"http://x.com/signin?next=/me": "login_page",
	}
	for raw, want := range tests {
		assert.Equal(t, want, categorizeArchivedURL(raw), raw)
	}
}
