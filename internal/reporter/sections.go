package reporter

import (
	"fmt"
	"sort"
	"spyosint/internal/models"
	"strconv"
	"strings"
	"time"
)

// field one label/value line of a section
type field struct {
	Label string
	Value string
}

// table tabular detail of a section
type table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// section format-neutral view of one result, shared by every renderer
type section struct {
	Title    string
	Provider string
	Kind     models.ResultKind
	Fields   []field
	Tables   []table
}

var providerNames = map[models.ProviderID]string{
	models.ProviderVirusTotal:  "VirusTotal",
	models.ProviderShodan:      "Shodan",
	models.ProviderWhois:       "WHOIS",
	models.ProviderWayback:     "Wayback Machine",
	models.ProviderCommonCrawl: "Common Crawl",
	models.ProviderSocial:      "Social Profiles",
	models.ProviderOpenRouter:  "OpenRouter",
}

func providerName(p models.ProviderID) string {
	if name, ok := providerNames[p]; ok {
		return name
	}
	return string(p)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func join(values []string) string {
	return strings.Join(values, ", ")
}

// add appends a field unless the value is empty
func (s *section) add(label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	s.Fields = append(s.Fields, field{Label: label, Value: value})
}

func (s *section) addTable(name string, header []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	s.Tables = append(s.Tables, table{Name: name, Header: header, Rows: rows})
}

// describe converts a result into its section
func describe(r models.Result) section {
	h := r.Header()
	s := section{
		Title:    fmt.Sprintf("%s: %s", providerName(h.ProviderID), h.Query.RawValue),
		Provider: providerName(h.ProviderID),
		Kind:     h.Kind,
	}
	s.add("Query type", string(h.Query.InferredType))
	s.add("Fetched", formatTime(h.FetchedAt))

	switch v := r.(type) {
	case *models.MalwareReputation:
		describeReputation(&s, v)
	case *models.HostIntel:
		describeHost(&s, v)
	case *models.DomainRecords:
		s.add("Domain", v.Domain)
		s.add("Subdomains", join(v.Subdomains))
		s.add("Tags", join(v.Tags))
		s.addTable("DNS Records", []string{"Type", "Value"}, recordRows(v.Records))
	case *models.HostSearch:
		s.add("Total matches", strconv.Itoa(v.Total))
		var rows [][]string
		for _, m := range v.Matches {
			rows = append(rows, []string{m.IP, strconv.Itoa(m.Port), m.Organization, m.Country, strings.TrimSpace(m.Product + " " + m.Version)})
		}
		s.addTable("Matches", []string{"IP", "Port", "Organization", "Country", "Product"}, rows)
	case *models.WhoisRecord:
		describeWhois(&s, v)
	case *models.ArchiveHistory:
		s.add("URL", v.URL)
		s.add("Snapshots", strconv.Itoa(v.Snapshots))
		s.add("First capture", formatDate(v.FirstCapture))
		s.add("Last capture", formatDate(v.LastCapture))
		var rows [][]string
		for _, c := range v.Captures {
			rows = append(rows, []string{formatTime(c.Timestamp), c.Status, c.Category, c.OriginalURL})
		}
		s.addTable("Captures", []string{"Timestamp", "Status", "Category", "URL"}, rows)
	case *models.CrawlIndex:
		s.add("URL", v.URL)
		s.add("Records", strconv.Itoa(v.Records))
		s.add("Crawls", join(v.Crawls))
		s.add("MIME types", mimeSummary(v.MimeTypes))
		var rows [][]string
		for _, c := range v.Samples {
			rows = append(rows, []string{formatTime(c.Timestamp), c.Status, c.Mime, c.URL})
		}
		s.addTable("Samples", []string{"Timestamp", "Status", "MIME", "URL"}, rows)
	case *models.SocialProfiles:
		s.add("Username", v.Username)
		s.add("Profiles found", fmt.Sprintf("%d/%d", v.Found(), len(v.Profiles)))
		var rows [][]string
		for _, p := range v.Profiles {
			followers := ""
			if p.Followers > 0 {
				followers = strconv.Itoa(p.Followers)
			}
			rows = append(rows, []string{p.PlatformName, string(p.Status), p.URL, followers, p.Error})
		}
		s.addTable("Platforms", []string{"Platform", "Status", "URL", "Followers", "Note"}, rows)
	}
	return s
}

func describeReputation(s *section, v *models.MalwareReputation) {
	st := v.Stats
	s.add("Type", string(v.Type))
	s.add("Value", v.Value)
	s.add("Reputation", strconv.Itoa(v.Reputation))
	s.add("Detections", fmt.Sprintf("%d malicious, %d suspicious, %d harmless, %d undetected (of %d engines)",
		st.Malicious, st.Suspicious, st.Harmless, st.Undetected, v.TotalEngines))
	s.add("Last analysis", formatDate(v.LastAnalysisDate))
	s.add("Registrar", v.Registrar)
	s.add("Created", formatDate(v.CreationDate))
	s.add("Country", v.Country)
	if v.ASN != 0 {
		s.add("ASN", fmt.Sprintf("AS%d %s", v.ASN, v.ASOwner))
	}
	s.add("Network", v.Network)
	s.add("File name", v.MeaningfulName)
	s.add("File type", v.TypeDescription)
	s.add("SHA256", v.SHA256)
	s.add("Final URL", v.FinalURL)
	s.add("Title", v.Title)
	s.add("Tags", join(v.Tags))

	var rows [][]string
	for _, d := range v.Detections {
		rows = append(rows, []string{d.Engine, d.Category, d.Result})
	}
	s.addTable("Engine Detections", []string{"Engine", "Category", "Result"}, rows)
}

func describeHost(s *section, v *models.HostIntel) {
	s.add("IP", v.IP)
	s.add("Organization", v.Org)
	s.add("ISP", v.ISP)
	s.add("ASN", v.ASN)
	s.add("Location", strings.Trim(v.City+", "+v.Country, ", "))
	s.add("OS", v.OS)
	s.add("Hostnames", join(v.Hostnames))
	if len(v.Ports) > 0 {
		ports := make([]string, len(v.Ports))
		for i, p := range v.Ports {
			ports[i] = strconv.Itoa(p)
		}
		s.add("Open ports", join(ports))
	}
	s.add("Vulnerabilities", join(v.Vulns))
	s.add("Last update", v.LastUpdate)

	var rows [][]string
	for _, svc := range v.Services {
		rows = append(rows, []string{
			strconv.Itoa(svc.Port), svc.Protocol, svc.Product, svc.Version, join(svc.SecurityIssues),
		})
	}
	s.addTable("Services", []string{"Port", "Protocol", "Product", "Version", "Security Issues"}, rows)
}

func describeWhois(s *section, v *models.WhoisRecord) {
	s.add("Domain", v.Domain)
	s.add("Registrar", v.Registrar)
	s.add("Created", formatDate(v.CreatedDate))
	s.add("Updated", formatDate(v.UpdatedDate))
	s.add("Expires", formatDate(v.ExpiryDate))
	s.add("Registrant", strings.Trim(strings.Join([]string{v.Registrant.Organization, v.Registrant.State, v.Registrant.Country}, ", "), ", "))
	s.add("Name servers", join(v.NameServers))
	s.add("Status", join(v.Status))
	s.add("Emails", join(v.Emails))
	s.addTable("DNS Records", []string{"Type", "Value"}, recordRows(v.Records))
}

func recordRows(rs models.RecordSet) [][]string {
	var rows [][]string
	for _, group := range []struct {
		name   string
		values []string
	}{
		{"A", rs.A}, {"AAAA", rs.AAAA}, {"MX", rs.MX}, {"NS", rs.NS}, {"TXT", rs.TXT}, {"CNAME", rs.CNAME},
	} {
		for _, value := range group.values {
			rows = append(rows, []string{group.name, value})
		}
	}
	return rows
}

func mimeSummary(m map[string]int) string {
	mimes := make([]string, 0, len(m))
	for mime := range m {
		mimes = append(mimes, mime)
	}
	sort.Slice(mimes, func(i, j int) bool {
		if m[mimes[i]] != m[mimes[j]] {
			return m[mimes[i]] > m[mimes[j]]
		}
		return mimes[i] < mimes[j]
	})
	parts := make([]string, len(mimes))
	for i, mime := range mimes {
		parts[i] = fmt.Sprintf("%s (%d)", mime, m[mime])
	}
	return join(parts)
}

// correlationRows correlations resolved to result titles where possible
func correlationRows(doc *Document) [][]string {
	if doc.Report == nil {
		return nil
	}
	titles := make(map[string]string, len(doc.Results))
	for _, r := range doc.Results {
		h := r.Header()
		titles[h.ID] = fmt.Sprintf("%s (%s)", h.Query.RawValue, providerName(h.ProviderID))
	}
	name := func(id string) string {
		if t, ok := titles[id]; ok {
			return t
		}
		return id
	}

	rows := make([][]string, 0, len(doc.Report.Correlations))
	for _, c := range doc.Report.Correlations {
		rows = append(rows, []string{
			string(c.Type), fmt.Sprintf("%d%%", c.ConfidenceScore), name(c.SourceID), name(c.TargetID), join(c.SharedEntities),
		})
	}
	return rows
}

var correlationHeader = []string{"Type", "Confidence", "Source", "Target", "Shared Entities"}

func entityRows(doc *Document) [][]string {
	if doc.Report == nil {
		return nil
	}
	rows := make([][]string, 0, len(doc.Report.Entities))
	for _, e := range doc.Report.Entities {
		rows = append(rows, []string{e.Name, string(e.Type), string(e.RiskLevel)})
	}
	return rows
}

var entityHeader = []string{"Entity", "Type", "Risk"}

// overview summary lines shown at the top of every document
func overview(doc *Document) []field {
	fields := []field{
		{"Generated", formatTime(doc.Generated)},
		{"Results", strconv.Itoa(len(doc.Results))},
	}
	if doc.Report != nil {
		fields = append(fields,
			field{"Risk score", fmt.Sprintf("%d/100", doc.Report.RiskScore)},
			field{"Correlations", strconv.Itoa(len(doc.Report.Correlations))},
		)
		if doc.Report.Model != "" {
			fields = append(fields, field{"Model", doc.Report.Model})
		}
	}
	return fields
}
