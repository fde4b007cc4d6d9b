package collector

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"spyosint/internal/models"
	"strings"
	"time"

	"github.com/VirusTotal/vt-go"
)

// VirusTotal malware-reputation adapter over the v3 API
type VirusTotal struct {
	client *http.Client
}

// NewVirusTotal creates the adapter. Requests go through client's transport.
func NewVirusTotal(client *http.Client) *VirusTotal {
	return &VirusTotal{client: client}
}

func (v *VirusTotal) ID() models.ProviderID { return models.ProviderVirusTotal }

func (v *VirusTotal) RequiresCredential() bool { return true }

func (v *VirusTotal) Accepts(t models.QueryType) bool {
	return acceptsOneOf(t, models.QueryURL, models.QueryDomain, models.QueryIP, models.QueryHash)
}

// URLIdentifier VirusTotal id of a URL: unpadded base64 of the raw string.
// This uses the URL-safe alphabet, not the standard one, so '+' and '/' never
// appear and the id stays a single path segment. VirusTotal documents the
// URL-safe form; standard-alphabet ids break for URLs whose encoding has '/'.
func URLIdentifier(raw string) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(raw)), "=")
}

// objectPath API path of the object describing q
func objectPath(q models.Query) (string, bool) {
	value := strings.TrimSpace(q.RawValue)
	switch q.InferredType {
	case models.QueryURL:
		return "urls/" + URLIdentifier(value), true
	case models.QueryDomain:
		return "domains/" + url.PathEscape(strings.ToLower(value)), true
	case models.QueryIP:
		return "ip_addresses/" + url.PathEscape(value), true
	case models.QueryHash:
		return "files/" + url.PathEscape(strings.ToLower(value)), true
	}
	return "", false
}

type vtEngineResult struct {
	EngineName string `json:"engine_name"`
	Category   string `json:"category"`
	Result     string `json:"result"`
}

type vtObject struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Reputation          int                       `json:"reputation"`
		LastAnalysisStats   models.EngineStats        `json:"last_analysis_stats"`
		LastAnalysisResults map[string]vtEngineResult `json:"last_analysis_results"`
		LastAnalysisDate    int64                     `json:"last_analysis_date"`
		Tags                []string                  `json:"tags"`

		Registrar      string `json:"registrar"`
		CreationDate   int64  `json:"creation_date"`
		LastUpdateDate int64  `json:"last_update_date"`

		Country string `json:"country"`
		ASN     int    `json:"asn"`
		ASOwner string `json:"as_owner"`
		Network string `json:"network"`

		MeaningfulName  string `json:"meaningful_name"`
		TypeDescription string `json:"type_description"`
		Size            int64  `json:"size"`
		SHA256          string `json:"sha256"`
		MD5             string `json:"md5"`

		URL          string `json:"url"`
		LastFinalURL string `json:"last_final_url"`
		Title        string `json:"title"`
	} `json:"attributes"`
}

func (v *VirusTotal) Execute(ctx context.Context, q models.Query, cred *models.ProviderCredential) (models.Result, error) {
	if err := checkGate(v, q, cred); err != nil {
		return nil, err
	}
	path, _ := objectPath(q)

	rec := newRecorder(ctx, v.client.Transport)
	client := vt.NewClient(cred.SecretValue, vt.WithHTTPClient(rec.client(v.client.Timeout)))

	// vt-go returns an empty response without error for a failed request with no body
	resp, err := client.Get(vt.URL("%s", path))
	if err := rec.outcome(v.ID(), err); err != nil {
		return nil, err
	}

	var obj vtObject
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &obj); err != nil {
			return nil, models.ParseFailure(v.ID(), err)
		}
	}

	return v.normalize(q, &obj), nil
}

func (v *VirusTotal) normalize(q models.Query, obj *vtObject) *models.MalwareReputation {
	attrs := obj.Attributes
	result := &models.MalwareReputation{
		Meta:         models.NewMeta(v.ID(), models.KindMalwareReputation, q),
		Type:         q.InferredType,
		Value:        strings.TrimSpace(q.RawValue),
		Reputation:   attrs.Reputation,
		Stats:        attrs.LastAnalysisStats,
		TotalEngines: len(attrs.LastAnalysisResults),
		Detections:   []models.Detection{},
		Tags:         attrs.Tags,
	}

	for engine, r := range attrs.LastAnalysisResults {
		if r.Category != "malicious" && r.Category != "suspicious" {
			continue
		}
		result.Detections = append(result.Detections, models.Detection{
			Engine:   engine,
			Category: r.Category,
			Result:   r.Result,
		})
	}
	sort.Slice(result.Detections, func(i, j int) bool {
		return result.Detections[i].Engine < result.Detections[j].Engine
	})

	result.LastAnalysisDate = unixTime(attrs.LastAnalysisDate)

	switch q.InferredType {
	case models.QueryDomain:
		result.Registrar = attrs.Registrar
		result.CreationDate = unixTime(attrs.CreationDate)
		result.LastUpdateDate = unixTime(attrs.LastUpdateDate)
	case models.QueryIP:
		result.Country = attrs.Country
		result.ASN = attrs.ASN
		result.ASOwner = attrs.ASOwner
		result.Network = attrs.Network
	case models.QueryHash:
		result.MeaningfulName = attrs.MeaningfulName
		result.TypeDescription = attrs.TypeDescription
		result.Size = attrs.Size
		result.SHA256 = attrs.SHA256
		result.MD5 = attrs.MD5
	case models.QueryURL:
		result.URL = attrs.URL
		if result.URL == "" {
			result.URL = result.Value
		}
		result.FinalURL = attrs.LastFinalURL
		result.Title = attrs.Title
	}

	result.Normalize()
	return result
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
