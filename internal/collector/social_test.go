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

const profilePage = `<html><head>
<title>Jane Doe (@jdoe)</title>
<meta property="og:title" content="Jane Doe (@jdoe)">
<meta property="og:description" content="12.5K Followers, 340 Posts - security researcher">
</head><body><p>Joined March 2019</p></body></html>`

func newSocialServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/found/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, profilePage)
	})
	mux.HandleFunc("/missing/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/soft404/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><title>Page not found</title><body>Sorry, this page isn't available.</body></html>`)
	})
	mux.HandleFunc("/forbidden/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/walled/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/authwall?trk=profile", http.StatusFound)
	})
	mux.HandleFunc("/authwall", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>Sign in</body></html>`)
	})
	mux.HandleFunc("/locked/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h2>This account is private</h2></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testPlatforms(base string) []Platform {
	return []Platform{
		{ID: "found", Name: "Found", ProfileURL: base + "/found/%s"},
		{ID: "missing", Name: "Missing", ProfileURL: base + "/missing/%s"},
		{ID: "soft404", Name: "Soft", ProfileURL: base + "/soft404/%s", NotFoundMarkers: []string{"sorry, this page isn't available"}},
		{ID: "forbidden", Name: "Forbidden", ProfileURL: base + "/forbidden/%s"},
		{ID: "walled", Name: "Walled", ProfileURL: base + "/walled/%s", PrivateMarkers: []string{"/authwall"}},
		{ID: "locked", Name: "Locked", ProfileURL: base + "/locked/%s", PrivateMarkers: []string{"this account is private"}},
	}
}

func TestSocial_StatusMapping(t *testing.T) {
	srv := newSocialServer(t)
	s := NewSocial(NewHTTPClient(5*time.Second), 0, testPlatforms(srv.URL))

	result, err := s.Execute(context.Background(), models.NewQuery("@jdoe", models.QueryUsername), nil)
	require.NoError(t, err)

	profiles := result.(*models.SocialProfiles)
	assert.Equal(t, "jdoe", profiles.Username)
	require.Len(t, profiles.Profiles, 6)

	byID := map[string]models.SocialProfile{}
	for _, p := range profiles.Profiles {
		byID[p.Platform] = p
	}

	found := byID["found"]
	assert.Equal(t, models.StatusFound, found.Status)
	assert.Equal(t, "Jane Doe (@jdoe)", found.DisplayName)
	assert.Equal(t, 12500, found.Followers)
	assert.Equal(t, 340, found.Posts)
	assert.Equal(t, "March 2019", found.JoinDate)
	assert.Equal(t, srv.URL+"/found/jdoe", found.URL)

	assert.Equal(t, models.StatusNotFound, byID["missing"].Status)
	assert.Equal(t, models.StatusNotFound, byID["soft404"].Status)
	assert.Equal(t, models.StatusPrivate, byID["forbidden"].Status)
	assert.Equal(t, models.StatusPrivate, byID["walled"].Status)
	assert.Equal(t, models.StatusPrivate, byID["locked"].Status)
	assert.Equal(t, 1, profiles.Found())
}

func TestSocial_PlatformSelection(t *testing.T) {
	srv := newSocialServer(t)
	s := NewSocial(NewHTTPClient(5*time.Second), 0, testPlatforms(srv.URL))

	ctx := WithPlatforms(context.Background(), []string{"missing", "unknown", "found"})
	result, err := s.Execute(ctx, models.NewQuery("jdoe", models.QueryUsername), nil)
	require.NoError(t, err)

	profiles := result.(*models.SocialProfiles).Profiles
	require.Len(t, profiles, 3)
	assert.Equal(t, "missing", profiles[0].Platform)
	assert.Equal(t, models.StatusNotFound, profiles[1].Status)
	assert.NotEmpty(t, profiles[1].Error)
	assert.Equal(t, models.StatusFound, profiles[2].Status)
}

func TestSocial_AllNetworkFailures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	s := NewSocial(NewHTTPClient(time.Second), 0, testPlatforms(base)[:2])
	_, err := s.Execute(context.Background(), models.NewQuery("jdoe", models.QueryUsername), nil)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestSocial_InvalidUsername(t *testing.T) {
	s := NewSocial(NewHTTPClient(time.Second), 0, nil)

	_, err := s.Execute(context.Background(), models.NewQuery("bad name/../", models.QueryUsername), nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = s.Execute(context.Background(), models.NewQuery("example.com", models.QueryDomain), nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestFilterPlatforms(t *testing.T) {
	got := FilterPlatforms([]string{"github", "nope", "twitter"})
	require.Len(t, got, 2)
	assert.Equal(t, "github", got[0].ID)
	assert.Equal(t, "Twitter/X", got[1].Name)
	assert.Len(t, NewSocial(nil, 1, nil).Platforms(), len(DefaultPlatforms))
}

func TestParseCount(t *testing.T) {
	tests := map[string]int{
		"1,234": 1234,
		"12.5K": 12500,
		"3M":    3000000,
		"2,1K":  2100,
		"42":    42,
		"":      0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseCount(in), in)
	}
}
