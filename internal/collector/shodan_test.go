package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"spyosint/internal/credentials"
	"spyosint/internal/models"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shodanHostJSON = `{
	"ip_str": "203.0.113.5",
	"org": "Example Hosting",
	"isp": "Example ISP",
	"asn": "AS64500",
	"country_name": "France",
	"city": "Paris",
	"hostnames": ["admin.example.org"],
	"ports": [22, 80, 3306],
	"vulns": ["CVE-2021-41773"],
	"last_update": "2024-01-28T10:00:00",
	"data": [
		{"port": 22, "transport": "tcp", "product": "OpenSSH", "data": "SSH-2.0-OpenSSH_5.3"},
		{"port": 80, "transport": "tcp", "product": "Apache httpd", "version": "2.2.15", "data": "HTTP/1.1 200 OK\r\nServer: Apache/2.2.15"},
		{"port": 3306, "transport": "tcp", "product": "MySQL", "data": "%s"}
	]
}`

func newShodanServer(t *testing.T, handler http.HandlerFunc) (*Shodan, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewShodan(NewHTTPClient(5*time.Second), srv.URL), &calls
}

func TestShodan_EndToEndHostLookup(t *testing.T) {
	banner := strings.Repeat("x", 500)
	s, calls := newShodanServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shodan/host/203.0.113.5", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		fmt.Fprintf(w, shodanHostJSON, banner)
	})

	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "shodan", "secret"))
	registry := NewRegistry(store, newTestLogger(), s)

	q := models.NewQuery("203.0.113.5", models.QueryIP)
	result, err := registry.Run(ctx, models.ProviderShodan, q)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	host, ok := result.(*models.HostIntel)
	require.True(t, ok)
	assert.Equal(t, models.ProviderShodan, host.ProviderID)
	assert.False(t, host.FetchedAt.IsZero())
	assert.Equal(t, []int{22, 80, 3306}, host.Ports)
	assert.Equal(t, "France", host.Country)
	require.Len(t, host.Services, 3)

	assert.Equal(t, "5.3", host.Services[0].Version)
	assert.Contains(t, host.Services[0].SecurityIssues, "Outdated OpenSSH version 5.3")
	assert.Contains(t, host.Services[1].SecurityIssues, "Outdated Apache version 2.2.15")
	assert.Contains(t, host.Services[1].SecurityIssues, "Potential admin interface on port 80")
	assert.Contains(t, host.Services[2].SecurityIssues, "Database service exposed on port 3306")
	assert.Len(t, host.Services[2].Banner, maxBannerLength)
	assert.NotNil(t, host.Services[2].CPE)
}

func TestShodan_MissingCredentialMakesNoRequest(t *testing.T) {
	s, calls := newShodanServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})

	registry := NewRegistry(credentials.NewMemoryStore(), newTestLogger(), s)
	_, err := registry.Run(context.Background(), models.ProviderShodan, models.NewQuery("203.0.113.5", models.QueryIP))

	require.ErrorIs(t, err, models.ErrMissingCredential)
	assert.Equal(t, "Shodan API key not configured", models.DescribeError(err).Message)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestShodan_RejectsUnsupportedType(t *testing.T) {
	s, calls := newShodanServer(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := s.Execute(context.Background(), models.NewQuery("d41d8cd98f00b204e9800998ecf8427e", models.QueryHash), credFor(models.ProviderShodan, "k"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestShodan_UpstreamErrorPassthrough(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"shodan message", http.StatusUnauthorized, `{"error": "Invalid API key"}`, "Invalid API key"},
		{"fallback message", http.StatusServiceUnavailable, `oops`, "Shodan API error: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newShodanServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := s.Execute(context.Background(), models.NewQuery("203.0.113.5", models.QueryIP), credFor(models.ProviderShodan, "k"))
			require.ErrorIs(t, err, models.ErrUpstream)

			info := models.DescribeError(err)
			assert.Equal(t, tt.status, info.StatusCode)
			assert.Equal(t, tt.message, info.Message)
		})
	}
}

func TestShodan_HostFailureWithoutBody(t *testing.T) {
	s, calls := newShodanServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shodan/host/203.0.113.5", r.URL.Path)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	result, err := s.Execute(context.Background(), models.NewQuery("203.0.113.5", models.QueryIP), credFor(models.ProviderShodan, "k"))
	assert.Nil(t, result)
	require.ErrorIs(t, err, models.ErrUpstream)
	assert.Equal(t, http.StatusTooManyRequests, models.DescribeError(err).StatusCode)
	assert.Equal(t, "Shodan API error: 429", models.DescribeError(err).Message)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestShodan_MalformedPayload(t *testing.T) {
	s, _ := newShodanServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ip_str": `)
	})

	_, err := s.Execute(context.Background(), models.NewQuery("203.0.113.5", models.QueryIP), credFor(models.ProviderShodan, "k"))
	assert.ErrorIs(t, err, models.ErrParseFailure)
}

func TestShodan_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	s := NewShodan(NewHTTPClient(time.Second), base)
	_, err := s.Execute(context.Background(), models.NewQuery("203.0.113.5", models.QueryIP), credFor(models.ProviderShodan, "k"))
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestShodan_DomainRecords(t *testing.T) {
	s, _ := newShodanServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dns/domain/example.org", r.URL.Path)
		fmt.Fprint(w, `{
			"domain": "example.org",
			"subdomains": ["www", "mail"],
			"data": [
				{"subdomain": "", "type": "A", "value": "203.0.113.5"},
				{"subdomain": "", "type": "mx", "value": "mail.example.org"},
				{"subdomain": "", "type": "SOA", "value": "ignored"},
				{"subdomain": "www", "type": "CNAME", "value": "example.org"}
			]
		}`)
	})

	result, err := s.Execute(context.Background(), models.NewQuery("Example.org", models.QueryDomain), credFor(models.ProviderShodan, "k"))
	require.NoError(t, err)

	dns := result.(*models.DomainRecords)
	assert.Equal(t, "example.org", dns.Domain)
	assert.Equal(t, []string{"www", "mail"}, dns.Subdomains)
	assert.Equal(t, []string{"203.0.113.5"}, dns.Records.A)
	assert.Equal(t, []string{"mail.example.org"}, dns.Records.MX)
	assert.Equal(t, []string{"example.org"}, dns.Records.CNAME)
	assert.NotNil(t, dns.Records.TXT)
	assert.NotNil(t, dns.Tags)
}

func TestShodan_SearchIsCapped(t *testing.T) {
	s, _ := newShodanServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apache country:FR", r.URL.Query().Get("query"))
		var matches []string
		for i := 0; i < 35; i++ {
			matches = append(matches, fmt.Sprintf(`{"ip_str": "198.51.100.%d", "port": 80, "org": "Org", "location": {"country_name": "France"}}`, i))
		}
		fmt.Fprintf(w, `{"total": 1234, "matches": [%s]}`, strings.Join(matches, ","))
	})

	result, err := s.Execute(context.Background(), models.NewQuery("apache country:FR", models.QuerySearch), credFor(models.ProviderShodan, "k"))
	require.NoError(t, err)

	search := result.(*models.HostSearch)
	assert.Equal(t, 1234, search.Total)
	assert.Len(t, search.Matches, models.MaxSearchMatches)
	assert.Equal(t, "France", search.Matches[0].Country)
	assert.NotNil(t, search.Matches[0].Hostnames)
}

func TestExtractVersionFromBanner(t *testing.T) {
	assert.Equal(t, "1.18.0", extractVersionFromBanner("Server: nginx/1.18.0", "nginx"))
	assert.Equal(t, "2.4", extractVersionFromBanner("version: 2.4", ""))
	assert.Equal(t, "", extractVersionFromBanner("", "nginx"))
	assert.Equal(t, "", extractVersionFromBanner("no digits here", ""))
}
