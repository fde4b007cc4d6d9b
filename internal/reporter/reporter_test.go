package reporter

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"spyosint/internal/models"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDocument(t *testing.T) *Document {
	t.Helper()

	host := &models.HostIntel{
		Meta:    models.NewMeta(models.ProviderShodan, models.KindHost, models.NewQuery("203.0.113.5", models.QueryIP)),
		IP:      "203.0.113.5",
		Org:     "Example Hosting",
		Country: "United States",
		Ports:   []int{22, 443},
		Services: []models.Service{
			{Port: 22, Protocol: "tcp", Product: "OpenSSH", Version: "7.4", SecurityIssues: []string{"Outdated OpenSSH"}},
			{Port: 443, Protocol: "tcp", Product: "nginx"},
		},
	}
	host.Normalize()

	created := time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC)
	whois := &models.WhoisRecord{
		Meta:        models.NewMeta(models.ProviderWhois, models.KindWhois, models.NewQuery("example.org", models.QueryDomain)),
		Domain:      "example.org",
		Registrar:   "GoDaddy.com, LLC",
		CreatedDate: &created,
		NameServers: []string{"a.iana-servers.net", "b.iana-servers.net"},
		Records:     models.RecordSet{A: []string{"203.0.113.5"}, TXT: []string{"v=spf1 -all | x"}},
	}
	whois.Normalize()

	social := &models.SocialProfiles{
		Meta:     models.NewMeta(models.ProviderSocial, models.KindSocialProfiles, models.NewQuery("jdoe", models.QueryUsername)),
		Username: "jdoe",
		Profiles: []models.SocialProfile{
			{Platform: "github", PlatformName: "GitHub", Status: models.StatusFound, URL: "https://github.com/jdoe", Followers: 12},
			{Platform: "reddit", PlatformName: "Reddit", Status: models.StatusNotFound},
		},
	}

	report := &models.CorrelationReport{
		ID:          "rep-1",
		SummaryText: "Analyzed 3 results.\nOverall risk score: 42/100 (medium).",
		RiskScore:   42,
		Correlations: []models.Correlation{{
			SourceID: host.ID, TargetID: whois.ID, Type: models.CorrelationInfrastructure,
			ConfidenceScore: 45, SharedEntities: []string{"203.0.113.5"},
		}},
		Entities: []models.Entity{
			{Name: "203.0.113.5", Type: models.EntityIP, RiskLevel: models.RiskHigh},
			{Name: "example.org", Type: models.EntityDomain, RiskLevel: models.RiskLow},
		},
		ResultCount: 3,
	}

	return NewDocument("example.org <investigation>", []models.Result{host, whois, social}, report)
}

func render(t *testing.T, format Format, doc *Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, format, doc))
	require.NotZero(t, buf.Len())
	return buf.Bytes()
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatJSON,
		"JSON":     FormatJSON,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
		"htm":      FormatHTML,
		"excel":    FormatExcel,
		"xlsx":     FormatExcel,
		"docx":     FormatDOCX,
		"pdf":      FormatPDF,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, ".md", FormatMarkdown.Extension())
	assert.Equal(t, ".xlsx", FormatExcel.Extension())
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "application/json", FormatJSON.ContentType())

	doc := NewDocument("Example.org / Recon", nil, nil)
	doc.Generated = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "example.org___recon_20240115_103000.pdf", Filename(doc, FormatPDF))
	assert.Equal(t, "OSINT Investigation", NewDocument("  ", nil, nil).Title)
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	doc := sampleDocument(t)
	data := render(t, FormatJSON, doc)

	var decoded struct {
		Title   string                   `json:"title"`
		Results models.ResultList        `json:"results"`
		Report  models.CorrelationReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, doc.Title, decoded.Title)
	require.Len(t, decoded.Results, 3)
	assert.IsType(t, &models.HostIntel{}, decoded.Results[0])
	assert.IsType(t, &models.SocialProfiles{}, decoded.Results[2])
	assert.Equal(t, 42, decoded.Report.RiskScore)
}

func TestWriteMarkdown(t *testing.T) {
	out := string(render(t, FormatMarkdown, sampleDocument(t)))

	assert.True(t, strings.HasPrefix(out, "# example.org <investigation>\n"))
	assert.Contains(t, out, "## Correlation Analysis")
	assert.Contains(t, out, "| infrastructure | 45% | 203.0.113.5 (Shodan) | example.org (WHOIS) | 203.0.113.5 |")
	assert.Contains(t, out, "### Shodan: 203.0.113.5")
	assert.Contains(t, out, "| 22 | tcp | OpenSSH | 7.4 | Outdated OpenSSH |")
	assert.Contains(t, out, "- **Registrar:** GoDaddy.com, LLC")
	assert.Contains(t, out, `| TXT | v=spf1 -all \| x |`)
}

func TestWriteHTML(t *testing.T) {
	out := render(t, FormatHTML, sampleDocument(t))
	assert.NotContains(t, string(out), "<investigation>")

	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, "example.org <investigation>", dom.Find("title").Text())
	assert.Equal(t, 3, dom.Find("h3[data-kind]").Length())
	assert.Equal(t, "host", dom.Find("h3[data-kind]").First().AttrOr("data-kind", ""))
	assert.Equal(t, 1, dom.Find("span.risk-high").Length())
	assert.Contains(t, dom.Find("div.summary").Text(), "Overall risk score: 42/100")
}

func TestWriteExcel(t *testing.T) {
	out := render(t, FormatExcel, sampleDocument(t))

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetSummary, sheetResults, sheetDetails, sheetCorrelations, sheetEntities}, f.GetSheetList())

	rows, err := f.GetRows(sheetResults)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Provider", rows[0][1])
	assert.Equal(t, "Shodan", rows[1][1])
	assert.Equal(t, "203.0.113.5", rows[1][3])

	rows, err = f.GetRows(sheetEntities)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"203.0.113.5", "ip", "high"}, rows[1])

	value, err := f.GetCellValue(sheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "example.org <investigation>", value)
}

func TestWriteDOCX(t *testing.T) {
	out := render(t, FormatDOCX, sampleDocument(t))

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)

	var body string
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		body = string(data)
	}
	require.NotEmpty(t, body)
	assert.NotContains(t, body, "{{")
	assert.Contains(t, body, "example.org &lt;investigation&gt;")
	assert.Contains(t, body, "Registrar: GoDaddy.com, LLC")
	assert.Contains(t, body, "Correlation Analysis")
}

func TestWritePDF(t *testing.T) {
	out := render(t, FormatPDF, sampleDocument(t))
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out[len(out)-16:]), "%%EOF")
}

func TestWriteWithoutReport(t *testing.T) {
	doc := sampleDocument(t)
	doc.Report = nil
	for _, format := range Formats {
		var buf bytes.Buffer
		assert.NoError(t, Write(&buf, format, doc), format)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.md")
	require.NoError(t, WriteFile(path, FormatMarkdown, sampleDocument(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "### WHOIS: example.org")

	assert.Error(t, WriteFile("", FormatPDF, sampleDocument(t)))
}
