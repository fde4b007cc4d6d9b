package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"spyosint/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCrawlServer(t *testing.T, index func(w http.ResponseWriter, r *http.Request, crawl string)) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collinfo.json":
			fmt.Fprintf(w, `[
				{"id":"CC-MAIN-2024-10","name":"February 2024","cdx-api":"%[1]s/CC-MAIN-2024-10-index"},
				{"id":"CC-MAIN-2023-50","name":"December 2023","cdx-api":"%[1]s/CC-MAIN-2023-50-index"},
				{"id":"CC-MAIN-2023-40","name":"September 2023","cdx-api":"%[1]s/CC-MAIN-2023-40-index"}
			]`, srv.URL)
		case "/CC-MAIN-2024-10-index", "/CC-MAIN-2023-50-index", "/CC-MAIN-2023-40-index":
			index(w, r, r.URL.Path[1:len(r.URL.Path)-len("-index")])
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCommonCrawl_MergesNewestCrawls(t *testing.T) {
	srv := newCrawlServer(t, func(w http.ResponseWriter, r *http.Request, crawl string) {
		assert.Equal(t, "example.com/*", r.URL.Query().Get("url"))
		assert.Equal(t, "json", r.URL.Query().Get("output"))
		switch crawl {
		case "CC-MAIN-2024-10":
			fmt.Fprintln(w, `{"url":"https://example.com/","timestamp":"20240225083000","status":"200","mime":"text/html","mime-detected":"text/html","languages":"eng"}`)
			fmt.Fprintln(w, `{"url":"https://example.com/app.js","timestamp":"20240226083000","status":"200","mime":"application/javascript"}`)
		case "CC-MAIN-2023-50":
			fmt.Fprintln(w, `{"url":"https://example.com/fr/","timestamp":"20231201120000","status":"200","mime":"text/html","languages":"fra,eng"}`)
		default:
			// no captures in this crawl
			w.WriteHeader(http.StatusNotFound)
		}
	})

	cc := NewCommonCrawl(NewHTTPClient(5*time.Second), srv.URL, 0)
	result, err := cc.Execute(context.Background(), models.NewQuery("example.com", models.QueryDomain), nil)
	require.NoError(t, err)

	index := result.(*models.CrawlIndex)
	assert.Equal(t, models.ProviderCommonCrawl, index.ProviderID)
	assert.Equal(t, 3, index.Records)
	assert.Equal(t, []string{"CC-MAIN-2024-10", "CC-MAIN-2023-50"}, index.Crawls)
	assert.Equal(t, map[string]int{"text/html": 2, "application/javascript": 1}, index.MimeTypes)
	assert.Equal(t, []string{"eng", "fra"}, index.Languages)
	require.Len(t, index.Samples, 3)
	assert.Equal(t, "https://example.com/app.js", index.Samples[0].URL)
	assert.Equal(t, "https://example.com/fr/", index.Samples[2].URL)
}

func TestCommonCrawl_NoCaptures(t *testing.T) {
	srv := newCrawlServer(t, func(w http.ResponseWriter, r *http.Request, crawl string) {
		w.WriteHeader(http.StatusNotFound)
	})

	cc := NewCommonCrawl(NewHTTPClient(5*time.Second), srv.URL, 2)
	result, err := cc.Execute(context.Background(), models.NewQuery("https://nothing.example/", models.QueryURL), nil)
	require.NoError(t, err)

	index := result.(*models.CrawlIndex)
	assert.Zero(t, index.Records)
	assert.NotNil(t, index.Crawls)
	assert.NotNil(t, index.Samples)
	assert.NotNil(t, index.MimeTypes)
}

func TestCommonCrawl_AllCrawlsFailing(t *testing.T) {
	srv := newCrawlServer(t, func(w http.ResponseWriter, r *http.Request, crawl string) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	cc := NewCommonCrawl(NewHTTPClient(5*time.Second), srv.URL, 0)
	_, err := cc.Execute(context.Background(), models.NewQuery("example.com", models.QueryDomain), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUpstream))

	var pe *models.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
}

func TestCommonCrawl_RejectsUnsupportedTypes(t *testing.T) {
	cc := NewCommonCrawl(NewHTTPClient(time.Second), "http://127.0.0.1:1", 0)
	_, err := cc.Execute(context.Background(), models.NewQuery("203.0.113.5", models.QueryIP), nil)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}
