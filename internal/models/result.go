package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResultKind discriminator of a normalized result variant
type ResultKind string

const (
	KindMalwareReputation ResultKind = "malware_reputation"
	KindHost              ResultKind = "host"
	KindDNS               ResultKind = "dns"
	KindHostSearch        ResultKind = "host_search"
	KindWhois             ResultKind = "whois"
	KindWebArchive        ResultKind = "web_archive"
	KindCrawlIndex        ResultKind = "crawl_index"
	KindSocialProfiles    ResultKind = "social_profiles"
)

// Meta fields shared by every result variant
type Meta struct {
	ID         string     `json:"id"`
	ProviderID ProviderID `json:"providerId"`
	Kind       ResultKind `json:"kind"`
	Query      Query      `json:"query"`
	FetchedAt  time.Time  `json:"fetchedAt"`
}

// NewMeta stamps a fresh id and fetch time
func NewMeta(p ProviderID, k ResultKind, q Query) Meta {
	return Meta{
		ID:         uuid.NewString(),
		ProviderID: p,
		Kind:       k,
		Query:      q,
		FetchedAt:  time.Now().UTC(),
	}
}

// Header returns the shared metadata
func (m *Meta) Header() *Meta { return m }

// Result a normalized provider result. Implemented by the pointer types below.
type Result interface {
	Header() *Meta
	// Normalize replaces nil collections with empty ones
	Normalize()
}

// EngineStats per-verdict engine counts
type EngineStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
	Timeout    int `json:"timeout"`
}

// Detection one engine flagging the resource
type Detection struct {
	Engine   string `json:"engine"`
	Category string `json:"category"`
	Result   string `json:"result"`
}

// MalwareReputation VirusTotal verdict for a url, domain, ip or file hash
type MalwareReputation struct {
	Meta
	Type             QueryType   `json:"type"`
	Value            string      `json:"value"`
	Reputation       int         `json:"reputation"`
	Stats            EngineStats `json:"stats"`
	TotalEngines     int         `json:"totalEngines"`
	Detections       []Detection `json:"detections"`
	LastAnalysisDate *time.Time  `json:"lastAnalysisDate"`
	Tags             []string    `json:"tags"`

	// domain
	Registrar      string     `json:"registrar,omitempty"`
	CreationDate   *time.Time `json:"creation_date,omitempty"`
	LastUpdateDate *time.Time `json:"last_update_date,omitempty"`

	// ip
	Country string `json:"country,omitempty"`
	ASN     int    `json:"asn,omitempty"`
	ASOwner string `json:"as_owner,omitempty"`
	Network string `json:"network,omitempty"`

	// hash
	MeaningfulName  string `json:"meaningful_name,omitempty"`
	TypeDescription string `json:"type_description,omitempty"`
	Size            int64  `json:"size,omitempty"`
	SHA256          string `json:"sha256,omitempty"`
	MD5             string `json:"md5,omitempty"`

	// url
	URL      string `json:"url,omitempty"`
	FinalURL string `json:"final_url,omitempty"`
	Title    string `json:"title,omitempty"`
}

func (r *MalwareReputation) Normalize() {
	r.Detections = nonNil(r.Detections)
	r.Tags = nonNil(r.Tags)
}

// Service one exposed service on a host
type Service struct {
	Port           int      `json:"port"`
	Protocol       string   `json:"protocol"`
	Product        string   `json:"product"`
	Version        string   `json:"version"`
	Banner         string   `json:"banner"`
	CPE            []string `json:"cpe"`
	SecurityIssues []string `json:"securityIssues"`
}

// HostIntel Shodan host record
type HostIntel struct {
	Meta
	IP         string    `json:"ip"`
	Org        string    `json:"org"`
	ISP        string    `json:"isp"`
	ASN        string    `json:"asn"`
	Country    string    `json:"country"`
	City       string    `json:"city"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Hostnames  []string  `json:"hostnames"`
	Ports      []int     `json:"ports"`
	Vulns      []string  `json:"vulns"`
	OS         string    `json:"os"`
	Tags       []string  `json:"tags"`
	LastUpdate string    `json:"lastUpdate"`
	Services   []Service `json:"services"`
}

func (r *HostIntel) Normalize() {
	r.Hostnames = nonNil(r.Hostnames)
	r.Ports = nonNil(r.Ports)
	r.Vulns = nonNil(r.Vulns)
	r.Tags = nonNil(r.Tags)
	r.Services = nonNil(r.Services)
	for i := range r.Services {
		r.Services[i].CPE = nonNil(r.Services[i].CPE)
		r.Services[i].SecurityIssues = nonNil(r.Services[i].SecurityIssues)
	}
}

// RecordSet DNS records grouped by type
type RecordSet struct {
	A     []string `json:"A"`
	AAAA  []string `json:"AAAA"`
	MX    []string `json:"MX"`
	NS    []string `json:"NS"`
	TXT   []string `json:"TXT"`
	CNAME []string `json:"CNAME"`
}

func (s *RecordSet) normalize() {
	s.A = nonNil(s.A)
	s.AAAA = nonNil(s.AAAA)
	s.MX = nonNil(s.MX)
	s.NS = nonNil(s.NS)
	s.TXT = nonNil(s.TXT)
	s.CNAME = nonNil(s.CNAME)
}

// Add appends value under the given record type. Unknown types are ignored.
func (s *RecordSet) Add(recordType, value string) bool {
	switch recordType {
	case "A":
		s.A = append(s.A, value)
	case "AAAA":
		s.AAAA = append(s.AAAA, value)
	case "MX":
		s.MX = append(s.MX, value)
	case "NS":
		s.NS = append(s.NS, value)
	case "TXT":
		s.TXT = append(s.TXT, value)
	case "CNAME":
		s.CNAME = append(s.CNAME, value)
	default:
		return false
	}
	return true
}

// DomainRecords Shodan DNS view of a domain
type DomainRecords struct {
	Meta
	Domain     string    `json:"domain"`
	Subdomains []string  `json:"subdomains"`
	Tags       []string  `json:"tags"`
	Records    RecordSet `json:"records"`
}

func (r *DomainRecords) Normalize() {
	r.Subdomains = nonNil(r.Subdomains)
	r.Tags = nonNil(r.Tags)
	r.Records.normalize()
}

// SearchMatch one hit of a Shodan search
type SearchMatch struct {
	IP           string   `json:"ip"`
	Port         int      `json:"port"`
	Organization string   `json:"organization"`
	Country      string   `json:"country"`
	Product      string   `json:"product"`
	Version      string   `json:"version"`
	Hostnames    []string `json:"hostnames"`
}

// MaxSearchMatches cap on matches kept from a host search
const MaxSearchMatches = 20

// HostSearch Shodan search results
type HostSearch struct {
	Meta
	Total   int           `json:"total"`
	Matches []SearchMatch `json:"matches"`
}

func (r *HostSearch) Normalize() {
	r.Matches = nonNil(r.Matches)
	for i := range r.Matches {
		r.Matches[i].Hostnames = nonNil(r.Matches[i].Hostnames)
	}
}

// Registrant registrant block of a WHOIS record
type Registrant struct {
	Organization string `json:"organization"`
	Country      string `json:"country"`
	State        string `json:"state"`
}

// WhoisRecord WHOIS registration data plus live DNS
type WhoisRecord struct {
	Meta
	Domain      string     `json:"domain"`
	Registrar   string     `json:"registrar"`
	CreatedDate *time.Time `json:"createdDate"`
	UpdatedDate *time.Time `json:"updatedDate"`
	ExpiryDate  *time.Time `json:"expiryDate"`
	NameServers []string   `json:"nameServers"`
	Registrant  Registrant `json:"registrant"`
	Emails      []string   `json:"emails"`
	Status      []string   `json:"status"`
	Records     RecordSet  `json:"records"`
}

func (r *WhoisRecord) Normalize() {
	r.NameServers = nonNil(r.NameServers)
	r.Emails = nonNil(r.Emails)
	r.Status = nonNil(r.Status)
	r.Records.normalize()
}

// Capture one archived snapshot
type Capture struct {
	Timestamp   time.Time `json:"timestamp"`
	OriginalURL string    `json:"originalUrl"`
	SnapshotURL string    `json:"snapshotUrl"`
	Status      string    `json:"status"`
	Mime        string    `json:"mime"`
	Category    string    `json:"category,omitempty"`
}

// ArchiveHistory Wayback Machine capture history
type ArchiveHistory struct {
	Meta
	URL          string     `json:"url"`
	Snapshots    int        `json:"snapshots"`
	FirstCapture *time.Time `json:"firstCapture"`
	LastCapture  *time.Time `json:"lastCapture"`
	Captures     []Capture  `json:"captures"`
}

func (r *ArchiveHistory) Normalize() {
	r.Captures = nonNil(r.Captures)
}

// CrawlRecord one Common Crawl index line
type CrawlRecord struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Mime      string    `json:"mime"`
}

// CrawlIndex Common Crawl coverage of a url or domain
type CrawlIndex struct {
	Meta
	URL       string         `json:"url"`
	Records   int            `json:"records"`
	Crawls    []string       `json:"crawls"`
	MimeTypes map[string]int `json:"mimeTypes"`
	Languages []string       `json:"languages"`
	Samples   []CrawlRecord  `json:"samples"`
}

func (r *CrawlIndex) Normalize() {
	r.Crawls = nonNil(r.Crawls)
	if r.MimeTypes == nil {
		r.MimeTypes = map[string]int{}
	}
	r.Languages = nonNil(r.Languages)
	r.Samples = nonNil(r.Samples)
}

// ProfileStatus probe outcome for one platform
type ProfileStatus string

const (
	StatusFound    ProfileStatus = "found"
	StatusNotFound ProfileStatus = "not_found"
	StatusPrivate  ProfileStatus = "private"
	StatusChecking ProfileStatus = "checking"
)

// SocialProfile probe result on one platform
type SocialProfile struct {
	Platform     string        `json:"platform"`
	PlatformName string        `json:"platformName"`
	Status       ProfileStatus `json:"status"`
	URL          string        `json:"url,omitempty"`
	DisplayName  string        `json:"displayName,omitempty"`
	Followers    int           `json:"followers,omitempty"`
	Posts        int           `json:"posts,omitempty"`
	Bio          string        `json:"bio,omitempty"`
	JoinDate     string        `json:"joinDate,omitempty"`
	Verified     bool          `json:"verified"`
	Error        string        `json:"error,omitempty"`
}

// SocialProfiles probe results across platforms
type SocialProfiles struct {
	Meta
	Username string          `json:"username"`
	Profiles []SocialProfile `json:"profiles"`
}

func (r *SocialProfiles) Normalize() {
	r.Profiles = nonNil(r.Profiles)
}

// Found number of platforms where the profile exists
func (r *SocialProfiles) Found() int {
	n := 0
	for _, p := range r.Profiles {
		if p.Status == StatusFound {
			n++
		}
	}
	return n
}

// DecodeResult rebuilds the concrete variant from its JSON form using "kind"
func DecodeResult(data []byte) (Result, error) {
	var probe struct {
		Kind ResultKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	var r Result
	switch probe.Kind {
	case KindMalwareReputation:
		r = &MalwareReputation{}
	case KindHost:
		r = &HostIntel{}
	case KindDNS:
		r = &DomainRecords{}
	case KindHostSearch:
		r = &HostSearch{}
	case KindWhois:
		r = &WhoisRecord{}
	case KindWebArchive:
		r = &ArchiveHistory{}
	case KindCrawlIndex:
		r = &CrawlIndex{}
	case KindSocialProfiles:
		r = &SocialProfiles{}
	default:
		return nil, fmt.Errorf("%w: unknown result kind %q", ErrInvalidInput, probe.Kind)
	}

	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if r.Header().ID == "" {
		r.Header().ID = uuid.NewString()
	}
	r.Normalize()
	return r, nil
}

// ResultList a heterogeneous list of results that round-trips through JSON
type ResultList []Result

// UnmarshalJSON decodes each element with DecodeResult
func (l *ResultList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	out := make(ResultList, 0, len(raw))
	for i, item := range raw {
		r, err := DecodeResult(item)
		if err != nil {
			return fmt.Errorf("result %d: %w", i, err)
		}
		out = append(out, r)
	}
	*l = out
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
