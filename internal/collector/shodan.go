package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"spyosint/internal/models"
	"strings"

	"github.com/shadowscatcher/shodan"
	"github.com/shadowscatcher/shodan/search"
)

// DefaultShodanURL public Shodan API
const DefaultShodanURL = "https://api.shodan.io"

const maxBannerLength = 200

// Shodan host-intelligence adapter. Host lookups go through the shodan client;
// the dns and search endpoints are called directly.
type Shodan struct {
	client  *http.Client
	baseURL string
}

// NewShodan creates the adapter. An empty baseURL selects the public API.
func NewShodan(client *http.Client, baseURL string) *Shodan {
	if baseURL == "" {
		baseURL = DefaultShodanURL
	}
	return &Shodan{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Shodan) ID() models.ProviderID { return models.ProviderShodan }

func (s *Shodan) RequiresCredential() bool { return true }

func (s *Shodan) Accepts(t models.QueryType) bool {
	return acceptsOneOf(t, models.QueryIP, models.QueryDomain, models.QuerySearch)
}

func (s *Shodan) Execute(ctx context.Context, q models.Query, cred *models.ProviderCredential) (models.Result, error) {
	if err := checkGate(s, q, cred); err != nil {
		return nil, err
	}

	value := strings.TrimSpace(q.RawValue)
	switch q.InferredType {
	case models.QueryIP:
		return s.host(ctx, q, value, cred.SecretValue)
	case models.QueryDomain:
		return s.domain(ctx, q, strings.ToLower(value), cred.SecretValue)
	default:
		return s.search(ctx, q, value, cred.SecretValue)
	}
}

func (s *Shodan) endpoint(path string, params url.Values) string {
	return fmt.Sprintf("%s%s?%s", s.baseURL, path, params.Encode())
}

type shodanHost struct {
	IPStr       string   `json:"ip_str"`
	Org         string   `json:"org"`
	ISP         string   `json:"isp"`
	ASN         string   `json:"asn"`
	CountryName string   `json:"country_name"`
	City        string   `json:"city"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Ports       []int    `json:"ports"`
	Vulns       []string `json:"vulns"`
	LastUpdate  string   `json:"last_update"`
	Tags        []string `json:"tags"`
	Data        []struct {
		Transport string   `json:"transport"`
		Version   string   `json:"version"`
		CPE       []string `json:"cpe"`
	} `json:"data"`
}

func (s *Shodan) host(ctx context.Context, q models.Query, ip, key string) (models.Result, error) {
	transport, err := newRebase(s.baseURL, s.client.Transport)
	if err != nil {
		return nil, models.InvalidInput(s.ID(), "bad base URL: %v", err)
	}
	rec := newRecorder(ctx, transport)
	client, err := shodan.GetClient(key, rec.client(s.client.Timeout), false)
	if err != nil {
		return nil, models.Unavailable(s.ID(), err)
	}

	host, err := client.Host(ctx, search.HostParams{IP: ip})
	if err := rec.outcome(s.ID(), err); err != nil {
		return nil, err
	}

	// fields the client does not model come from the recorded payload
	var raw shodanHost
	if ex := rec.lastExchange(); ex != nil && len(ex.body) > 0 {
		if err := json.Unmarshal(ex.body, &raw); err != nil {
			return nil, models.ParseFailure(s.ID(), err)
		}
	}

	result := &models.HostIntel{
		Meta:       models.NewMeta(s.ID(), models.KindHost, q),
		IP:         raw.IPStr,
		Org:        raw.Org,
		ISP:        raw.ISP,
		ASN:        raw.ASN,
		Country:    raw.CountryName,
		City:       raw.City,
		Latitude:   raw.Latitude,
		Longitude:  raw.Longitude,
		Hostnames:  host.Hostnames,
		Ports:      raw.Ports,
		Vulns:      raw.Vulns,
		Tags:       raw.Tags,
		LastUpdate: raw.LastUpdate,
	}
	if result.IP == "" {
		result.IP = ip
	}
	if host.OS != nil {
		result.OS = *host.OS
	}

	hostname := ""
	if len(host.Hostnames) > 0 {
		hostname = host.Hostnames[0]
	}
	for i, service := range host.Services {
		if service == nil {
			continue
		}
		product := service.ProductString()
		var protocol, version string
		var cpe []string
		if i < len(raw.Data) {
			protocol, version, cpe = raw.Data[i].Transport, raw.Data[i].Version, raw.Data[i].CPE
		}
		if version == "" {
			version = extractVersionFromBanner(service.Data, product)
		}
		result.Services = append(result.Services, models.Service{
			Port:           service.Port,
			Protocol:       protocol,
			Product:        product,
			Version:        version,
			Banner:         truncate(service.Data, maxBannerLength),
			CPE:            cpe,
			SecurityIssues: assessSecurityIssues(service.Port, product, version, service.Data, hostname),
		})
	}

	result.Normalize()
	return result, nil
}

type shodanDomain struct {
	Domain     string   `json:"domain"`
	Tags       []string `json:"tags"`
	Subdomains []string `json:"subdomains"`
	Data       []struct {
		Subdomain string `json:"subdomain"`
		Type      string `json:"type"`
		Value     string `json:"value"`
	} `json:"data"`
}

func (s *Shodan) domain(ctx context.Context, q models.Query, domain, key string) (models.Result, error) {
	req, err := http.NewRequest(http.MethodGet, s.endpoint("/dns/domain/"+url.PathEscape(domain), url.Values{"key": {key}}), nil)
	if err != nil {
		return nil, models.InvalidInput(s.ID(), "bad domain request: %v", err)
	}

	var raw shodanDomain
	if err := fetchJSON(ctx, s.client, s.ID(), req, &raw); err != nil {
		return nil, err
	}

	result := &models.DomainRecords{
		Meta:       models.NewMeta(s.ID(), models.KindDNS, q),
		Domain:     raw.Domain,
		Subdomains: raw.Subdomains,
		Tags:       raw.Tags,
	}
	if result.Domain == "" {
		result.Domain = domain
	}
	for _, rec := range raw.Data {
		result.Records.Add(strings.ToUpper(rec.Type), rec.Value)
	}

	result.Normalize()
	return result, nil
}

type shodanSearch struct {
	Total   int `json:"total"`
	Matches []struct {
		IPStr     string   `json:"ip_str"`
		Port      int      `json:"port"`
		Org       string   `json:"org"`
		Product   string   `json:"product"`
		Version   string   `json:"version"`
		Hostnames []string `json:"hostnames"`
		Location  struct {
			CountryName string `json:"country_name"`
		} `json:"location"`
	} `json:"matches"`
}

func (s *Shodan) search(ctx context.Context, q models.Query, query, key string) (models.Result, error) {
	req, err := http.NewRequest(http.MethodGet, s.endpoint("/shodan/host/search", url.Values{"key": {key}, "query": {query}}), nil)
	if err != nil {
		return nil, models.InvalidInput(s.ID(), "bad search request: %v", err)
	}

	var raw shodanSearch
	if err := fetchJSON(ctx, s.client, s.ID(), req, &raw); err != nil {
		return nil, err
	}

	result := &models.HostSearch{
		Meta:  models.NewMeta(s.ID(), models.KindHostSearch, q),
		Total: raw.Total,
	}
	for i, m := range raw.Matches {
		if i >= models.MaxSearchMatches {
			break
		}
		result.Matches = append(result.Matches, models.SearchMatch{
			IP:           m.IPStr,
			Port:         m.Port,
			Organization: m.Org,
			Country:      m.Location.CountryName,
			Product:      m.Product,
			Version:      m.Version,
			Hostnames:    m.Hostnames,
		})
	}

	result.Normalize()
	return result, nil
}

var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:version|v|ver)[\s:]*([0-9]+\.[0-9]+(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)([0-9]+\.[0-9]+\.[0-9]+)`),
	regexp.MustCompile(`(?i)Apache[/\s]+([0-9]+\.[0-9]+(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)nginx[/\s]+([0-9]+\.[0-9]+(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)IIS[/\s]+([0-9]+\.[0-9]+)`),
	regexp.MustCompile(`(?i)OpenSSH[_\s]+([0-9]+\.[0-9]+)`),
}

// extractVersionFromBanner pulls a product version out of raw banner text
func extractVersionFromBanner(banner, product string) string {
	if banner == "" {
		return ""
	}
	for _, pattern := range versionPatterns {
		if m := pattern.FindStringSubmatch(banner); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// assessSecurityIssues flags risky exposures of a single service
func assessSecurityIssues(port int, product, version, banner, hostname string) []string {
	var issues []string
	bannerLower := strings.ToLower(banner)

	switch port {
	case 80, 443, 8080, 8443:
		hostnameLower := strings.ToLower(hostname)
		for _, keyword := range []string{"admin", "management", "console", "dashboard", "panel"} {
			if strings.Contains(bannerLower, keyword) || strings.Contains(hostnameLower, keyword) {
				issues = append(issues, fmt.Sprintf("Potential admin interface on port %d", port))
				break
			}
		}
		if strings.Contains(strings.ToLower(product), "apache") || strings.Contains(bannerLower, "apache") {
			if strings.HasPrefix(version, "2.2") || strings.HasPrefix(version, "2.0") || strings.HasPrefix(version, "1.") {
				issues = append(issues, fmt.Sprintf("Outdated Apache version %s", version))
			}
			if strings.Contains(bannerLower, "server-status") || strings.Contains(bannerLower, "server-info") {
				issues = append(issues, "Apache server-status or server-info exposed")
			}
		}
	case 3306, 5432, 1433, 27017, 6379, 9200:
		issues = append(issues, fmt.Sprintf("Database service exposed on port %d", port))
	case 3389:
		issues = append(issues, "RDP service exposed")
	case 5900, 5901:
		issues = append(issues, "VNC service exposed")
	case 21:
		issues = append(issues, "FTP service exposed")
	case 23:
		issues = append(issues, "Telnet service exposed")
	case 139, 445:
		issues = append(issues, "SMB service exposed")
	case 22:
		if strings.Contains(bannerLower, "openssh") &&
			(strings.HasPrefix(version, "6.") || strings.HasPrefix(version, "5.") || strings.HasPrefix(version, "4.")) {
			issues = append(issues, fmt.Sprintf("Outdated OpenSSH version %s", version))
		}
	}

	return issues
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
