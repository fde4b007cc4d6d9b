package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"spyosint/internal/models"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// Platform how to probe one social network for a username
type Platform struct {
	ID         string
	Name       string
	ProfileURL string // fmt pattern with one %s for the username
	// Page text meaning the user does not exist
	NotFoundMarkers []string
	// Page text or redirect path meaning the profile exists but is restricted
	PrivateMarkers []string
}

// DefaultPlatforms platforms probed when none are selected
var DefaultPlatforms = []Platform{
	{
		ID:              "twitter",
		Name:            "Twitter/X",
		ProfileURL:      "https://x.com/%s",
		NotFoundMarkers: []string{"this account doesn't exist", "this account doesn’t exist"},
		PrivateMarkers:  []string{"these posts are protected", "account suspended"},
	},
	{
		ID:              "facebook",
		Name:            "Facebook",
		ProfileURL:      "https://www.facebook.com/%s",
		NotFoundMarkers: []string{"this content isn't available", "page not found"},
		PrivateMarkers:  []string{"/login", "log into facebook"},
	},
	{
		ID:              "instagram",
		Name:            "Instagram",
		ProfileURL:      "https://www.instagram.com/%s/",
		NotFoundMarkers: []string{"sorry, this page isn't available"},
		PrivateMarkers:  []string{"this account is private", "/accounts/login"},
	},
	{
		ID:              "linkedin",
		Name:            "LinkedIn",
		ProfileURL:      "https://www.linkedin.com/in/%s",
		NotFoundMarkers: []string{"page not found", "this page doesn’t exist"},
		PrivateMarkers:  []string{"/authwall", "sign in to view"},
	},
	{
		ID:              "github",
		Name:            "GitHub",
		ProfileURL:      "https://github.com/%s",
		NotFoundMarkers: []string{"not found · github"},
	},
	{
		ID:              "reddit",
		Name:            "Reddit",
		ProfileURL:      "https://www.reddit.com/user/%s",
		NotFoundMarkers: []string{"sorry, nobody on reddit goes by that name"},
		PrivateMarkers:  []string{"this account has been suspended"},
	},
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type platformsKey struct{}

// WithPlatforms selects the platforms probed by the social adapter for one call
func WithPlatforms(ctx context.Context, ids []string) context.Context {
	return context.WithValue(ctx, platformsKey{}, ids)
}

func platformsFrom(ctx context.Context) []string {
	ids, _ := ctx.Value(platformsKey{}).([]string)
	return ids
}

// Social social-profile-probe adapter. One sub-request per platform.
type Social struct {
	client    *http.Client
	platforms []Platform
	limiter   *rate.Limiter
}

// NewSocial creates the adapter. ratePerSecond paces sub-requests across calls;
// zero disables pacing. An empty platform list selects DefaultPlatforms.
func NewSocial(client *http.Client, ratePerSecond float64, platforms []Platform) *Social {
	if len(platforms) == 0 {
		platforms = DefaultPlatforms
	}
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Social{client: client, platforms: platforms, limiter: rate.NewLimiter(limit, len(platforms))}
}

// FilterPlatforms keeps the DefaultPlatforms whose id is listed, in list order
func FilterPlatforms(ids []string) []Platform {
	var out []Platform
	for _, id := range ids {
		for _, p := range DefaultPlatforms {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out
}

func (s *Social) ID() models.ProviderID { return models.ProviderSocial }

func (s *Social) RequiresCredential() bool { return false }

func (s *Social) Accepts(t models.QueryType) bool {
	return t == models.QueryUsername
}

// Platforms configured platform ids
func (s *Social) Platforms() []string {
	ids := make([]string, len(s.platforms))
	for i, p := range s.platforms {
		ids[i] = p.ID
	}
	return ids
}

func (s *Social) Execute(ctx context.Context, q models.Query, cred *models.ProviderCredential) (models.Result, error) {
	if err := checkGate(s, q, cred); err != nil {
		return nil, err
	}
	username := strings.TrimPrefix(strings.TrimSpace(q.RawValue), "@")
	if !usernamePattern.MatchString(username) {
		return nil, models.InvalidInput(s.ID(), "unsupported characters in username %q", username)
	}

	selected := platformsFrom(ctx)
	if len(selected) == 0 {
		selected = s.Platforms()
	}

	profiles := make([]models.SocialProfile, len(selected))
	networkFailures := 0
	var mutex sync.Mutex
	var wg sync.WaitGroup

	for i, id := range selected {
		platform, ok := s.platform(id)
		if !ok {
			// not part of the probe set: reported as absent
			profiles[i] = models.SocialProfile{Platform: id, PlatformName: id, Status: models.StatusNotFound, Error: "unsupported platform"}
			continue
		}

		wg.Add(1)
		go func(i int, platform Platform) {
			defer wg.Done()
			profile, netErr := s.probe(ctx, platform, username)
			mutex.Lock()
			profiles[i] = profile
			if netErr {
				networkFailures++
			}
			mutex.Unlock()
		}(i, platform)
	}
	wg.Wait()

	if networkFailures > 0 && networkFailures == len(selected) {
		return nil, models.Unavailable(s.ID(), fmt.Errorf("all %d platform probes failed", networkFailures))
	}

	result := &models.SocialProfiles{
		Meta:     models.NewMeta(s.ID(), models.KindSocialProfiles, q),
		Username: username,
		Profiles: profiles,
	}
	result.Normalize()
	return result, nil
}

func (s *Social) platform(id string) (Platform, bool) {
	for _, p := range s.platforms {
		if p.ID == id {
			return p, true
		}
	}
	return Platform{}, false
}

// probe checks one platform. The bool reports a network-level failure.
func (s *Social) probe(ctx context.Context, platform Platform, username string) (models.SocialProfile, bool) {
	profileURL := fmt.Sprintf(platform.ProfileURL, url.PathEscape(username))
	profile := models.SocialProfile{
		Platform:     platform.ID,
		PlatformName: platform.Name,
		Status:       models.StatusNotFound,
		URL:          profileURL,
	}

	if err := s.limiter.Wait(ctx); err != nil {
		profile.Error = err.Error()
		return profile, true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		profile.Error = err.Error()
		return profile, false
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		profile.Error = err.Error()
		return profile, true
	}
	defer resp.Body.Close()

	finalPath := strings.ToLower(resp.Request.URL.Path)
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return profile, false
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		profile.Status = models.StatusPrivate
		return profile, false
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		profile.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return profile, false
	}

	for _, marker := range platform.PrivateMarkers {
		if strings.HasPrefix(marker, "/") && strings.HasPrefix(finalPath, marker) {
			profile.Status = models.StatusPrivate
			return profile, false
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		profile.Error = err.Error()
		return profile, false
	}

	text := strings.ToLower(doc.Find("title").Text() + " " + doc.Find("body").Text())
	for _, marker := range platform.NotFoundMarkers {
		if strings.Contains(text, marker) {
			return profile, false
		}
	}
	for _, marker := range platform.PrivateMarkers {
		if !strings.HasPrefix(marker, "/") && strings.Contains(text, marker) {
			profile.Status = models.StatusPrivate
			return profile, false
		}
	}

	profile.Status = models.StatusFound
	fillProfile(&profile, doc)
	return profile, false
}

var (
	followersPattern = regexp.MustCompile(`(?i)([\d.,]+\s*[KMB]?)\s+followers`)
	postsPattern     = regexp.MustCompile(`(?i)([\d.,]+\s*[KMB]?)\s+(?:posts|tweets|publications)`)
	joinedPattern    = regexp.MustCompile(`(?i)joined\s+([A-Za-z]+\s+\d{4})`)
)

// fillProfile reads Open Graph metadata of a found profile page
func fillProfile(p *models.SocialProfile, doc *goquery.Document) {
	meta := func(property string) string {
		if v, ok := doc.Find(fmt.Sprintf(`meta[property="%s"]`, property)).Attr("content"); ok {
			return strings.TrimSpace(v)
		}
		if v, ok := doc.Find(fmt.Sprintf(`meta[name="%s"]`, property)).Attr("content"); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	p.DisplayName = meta("og:title")
	if p.DisplayName == "" {
		p.DisplayName = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if u := meta("og:url"); u != "" {
		p.URL = u
	}

	description := meta("og:description")
	if description == "" {
		description = meta("description")
	}
	p.Bio = description

	if m := followersPattern.FindStringSubmatch(description); len(m) > 1 {
		p.Followers = parseCount(m[1])
	}
	if m := postsPattern.FindStringSubmatch(description); len(m) > 1 {
		p.Posts = parseCount(m[1])
	}
	if m := joinedPattern.FindStringSubmatch(doc.Text()); len(m) > 1 {
		p.JoinDate = m[1]
	}
	p.Verified = strings.Contains(strings.ToLower(description), "verified")
}

// parseCount parses "1,234", "12.5K" or "3M"
func parseCount(s string) int {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier, s = 1e6, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "B"):
		multiplier, s = 1e9, strings.TrimSuffix(s, "B")
	}
	if multiplier == 1 {
		s = strings.NewReplacer(",", "", ".", "").Replace(s)
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f * multiplier)
}
