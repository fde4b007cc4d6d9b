package collector

import (
	"context"
	"fmt"
	"spyosint/internal/models"
	"strings"
	"time"
)

// Fixture wraps an adapter and answers with canned data after the usual gates.
// Used for demos and offline development.
type Fixture struct {
	inner Adapter
}

// WithFixtures wraps every adapter in a Fixture
func WithFixtures(adapters ...Adapter) []Adapter {
	out := make([]Adapter, len(adapters))
	for i, a := range adapters {
		out[i] = &Fixture{inner: a}
	}
	return out
}

func (f *Fixture) ID() models.ProviderID { return f.inner.ID() }

func (f *Fixture) Accepts(t models.QueryType) bool { return f.inner.Accepts(t) }

func (f *Fixture) RequiresCredential() bool { return f.inner.RequiresCredential() }

func (f *Fixture) Execute(ctx context.Context, q models.Query, cred *models.ProviderCredential) (models.Result, error) {
	if err := checkGate(f, q, cred); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, models.Unavailable(f.ID(), err)
	}

	var result models.Result
	switch f.ID() {
	case models.ProviderVirusTotal:
		result = fixtureReputation(q)
	case models.ProviderShodan:
		result = fixtureShodan(q)
	case models.ProviderWhois:
		result = fixtureWhois(q)
	case models.ProviderWayback:
		result = fixtureWayback(q)
	case models.ProviderCommonCrawl:
		result = fixtureCrawl(q)
	case models.ProviderSocial:
		result = fixtureSocial(ctx, q)
	default:
		return nil, models.InvalidInput(f.ID(), "no fixture for provider %s", f.ID())
	}
	result.Normalize()
	return result, nil
}

func day(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func fixtureReputation(q models.Query) *models.MalwareReputation {
	r := &models.MalwareReputation{
		Meta:             models.NewMeta(models.ProviderVirusTotal, models.KindMalwareReputation, q),
		Type:             q.InferredType,
		Value:            q.RawValue,
		Stats:            models.EngineStats{Harmless: 68, Suspicious: 2, Undetected: 10},
		TotalEngines:     80,
		Detections:       []models.Detection{{Engine: "ESET", Category: "suspicious", Result: "suspicious"}},
		LastAnalysisDate: day("2024-01-28"),
		Tags:             []string{},
	}
	switch q.InferredType {
	case models.QueryDomain:
		r.Registrar = "GoDaddy"
		r.CreationDate = day("1997-09-15")
	case models.QueryIP:
		r.Country = "US"
		r.ASN = 15133
		r.ASOwner = "EDGECAST"
		r.Network = "93.184.216.0/24"
	case models.QueryHash:
		r.MeaningfulName = "sample.exe"
		r.TypeDescription = "Win32 EXE"
		r.Size = 24576
	case models.QueryURL:
		r.URL = q.RawValue
		r.FinalURL = q.RawValue
		r.Title = "Example Domain"
	}
	return r
}

func fixtureShodan(q models.Query) models.Result {
	switch q.InferredType {
	case models.QueryDomain:
		return &models.DomainRecords{
			Meta:       models.NewMeta(models.ProviderShodan, models.KindDNS, q),
			Domain:     q.RawValue,
			Subdomains: []string{"www", "mail", "api"},
			Records: models.RecordSet{
				A:  []string{"93.184.216.34"},
				MX: []string{"mail." + q.RawValue},
				NS: []string{"ns1." + q.RawValue, "ns2." + q.RawValue},
			},
		}
	case models.QuerySearch:
		return &models.HostSearch{
			Meta:  models.NewMeta(models.ProviderShodan, models.KindHostSearch, q),
			Total: 1,
			Matches: []models.SearchMatch{{
				IP: "93.184.216.34", Port: 443, Organization: "Edgecast Inc.",
				Country: "United States", Product: "ECS", Version: "2.0",
				Hostnames: []string{"example.com"},
			}},
		}
	}
	return &models.HostIntel{
		Meta:       models.NewMeta(models.ProviderShodan, models.KindHost, q),
		IP:         q.RawValue,
		Hostnames:  []string{"example.com"},
		Country:    "United States",
		City:       "Los Angeles",
		Org:        "Edgecast Inc.",
		ISP:        "Verizon Digital Media Services",
		Ports:      []int{80, 443},
		LastUpdate: "2024-01-28",
		Services: []models.Service{
			{Port: 80, Protocol: "http", Product: "ECS", Version: "2.0"},
			{Port: 443, Protocol: "https", Product: "ECS", Version: "2.0"},
		},
	}
}

func fixtureWhois(q models.Query) *models.WhoisRecord {
	domain, err := domainOf(q)
	if err != nil {
		domain = q.RawValue
	}
	return &models.WhoisRecord{
		Meta:        models.NewMeta(models.ProviderWhois, models.KindWhois, q),
		Domain:      domain,
		Registrar:   "GoDaddy",
		CreatedDate: day("1997-09-15"),
		ExpiryDate:  day("2025-09-14"),
		NameServers: []string{"ns1." + domain, "ns2." + domain},
		Registrant:  models.Registrant{Organization: "Example Inc.", Country: "US", State: "California"},
		Status:      []string{"clientTransferProhibited"},
	}
}

func fixtureWayback(q models.Query) *models.ArchiveHistory {
	r := &models.ArchiveHistory{
		Meta:         models.NewMeta(models.ProviderWayback, models.KindWebArchive, q),
		URL:          q.RawValue,
		Snapshots:    15420,
		FirstCapture: day("2001-01-15"),
		LastCapture:  day("2024-01-28"),
	}
	for _, c := range []struct {
		date   string
		status string
	}{
		{"2024-01-28", "200"}, {"2024-01-15", "200"}, {"2023-12-20", "200"},
		{"2023-11-05", "301"}, {"2023-10-10", "200"},
	} {
		ts := *day(c.date)
		stamp := ts.Format("20060102150405")
		r.Captures = append(r.Captures, models.Capture{
			Timestamp:   ts,
			OriginalURL: q.RawValue,
			SnapshotURL: fmt.Sprintf("%s/web/%s/%s", DefaultWaybackURL, stamp, q.RawValue),
			Status:      c.status,
			Mime:        "text/html",
		})
	}
	return r
}

func fixtureCrawl(q models.Query) *models.CrawlIndex {
	return &models.CrawlIndex{
		Meta:    models.NewMeta(models.ProviderCommonCrawl, models.KindCrawlIndex, q),
		URL:     q.RawValue,
		Records: 8542,
		Crawls:  []string{"CC-MAIN-2024-04", "CC-MAIN-2023-50", "CC-MAIN-2023-40"},
		MimeTypes: map[string]int{
			"text/html":              7250,
			"application/json":       842,
			"text/css":               350,
			"application/javascript": 100,
		},
		Languages: []string{"en", "fr", "es"},
	}
}

func fixtureSocial(ctx context.Context, q models.Query) *models.SocialProfiles {
	username := strings.TrimPrefix(strings.TrimSpace(q.RawValue), "@")
	selected := FilterPlatforms(platformsFrom(ctx))
	if len(selected) == 0 {
		selected = DefaultPlatforms
	}

	r := &models.SocialProfiles{
		Meta:     models.NewMeta(models.ProviderSocial, models.KindSocialProfiles, q),
		Username: username,
	}
	for i, p := range selected {
		profile := models.SocialProfile{
			Platform:     p.ID,
			PlatformName: p.Name,
			URL:          fmt.Sprintf(p.ProfileURL, username),
			Status:       models.StatusNotFound,
		}
		// every other platform reports a profile
		if i%2 == 0 {
			profile.Status = models.StatusFound
			profile.DisplayName = username
			profile.Followers = 12500 / (i + 1)
			profile.Posts = 340 / (i + 1)
			profile.JoinDate = "March 2019"
		}
		r.Profiles = append(r.Profiles, profile)
	}
	return r
}
