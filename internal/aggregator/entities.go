package aggregator

import (
	"net"
	"net/url"
	"regexp"
	"sort"
	"spyosint/internal/models"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// entity one normalized reference extracted from a result
type entity struct {
	Type  models.EntityType
	Value string
}

func (e entity) key() string { return string(e.Type) + ":" + e.Value }

// entitySet de-duplicated entities of one result
type entitySet map[string]entity

func (s entitySet) add(t models.EntityType, raw string) {
	value, ok := normalizeEntity(t, raw)
	if !ok {
		return
	}
	e := entity{Type: t, Value: value}
	s[e.key()] = e
}

// addDomain adds the host and, when different, its registrable domain
func (s entitySet) addDomain(raw string) {
	host, ok := normalizeDomain(raw)
	if !ok {
		return
	}
	if net.ParseIP(host) != nil {
		s.add(models.EntityIP, host)
		return
	}
	s[entity{models.EntityDomain, host}.key()] = entity{models.EntityDomain, host}
	if root, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil && root != host {
		s[entity{models.EntityDomain, root}.key()] = entity{models.EntityDomain, root}
	}
}

// addURL adds the normalized url plus its host
func (s entitySet) addURL(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return
	}
	s.add(models.EntityURL, raw)
	s.addDomain(u.Hostname())
}

func (s entitySet) sorted() []entity {
	out := make([]entity, 0, len(s))
	for _, e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// normalizeDomain lower-cases and strips a trailing dot and a leading "www."
func normalizeDomain(raw string) (string, bool) {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimSuffix(d, ".")
	d = strings.TrimPrefix(d, "www.")
	d = strings.TrimPrefix(d, "*.")
	if d == "" || strings.ContainsAny(d, " /@") {
		return "", false
	}
	return d, true
}

func normalizeEntity(t models.EntityType, raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", false
	}
	switch t {
	case models.EntityDomain:
		return normalizeDomain(v)
	case models.EntityIP:
		ip := net.ParseIP(v)
		if ip == nil {
			return "", false
		}
		return ip.String(), true
	case models.EntityURL:
		u, err := url.Parse(v)
		if err != nil {
			return "", false
		}
		u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
		u.Scheme = strings.ToLower(u.Scheme)
		u.Fragment = ""
		out := u.String()
		return strings.TrimSuffix(out, "/"), true
	case models.EntityAccount:
		return strings.ToLower(strings.TrimPrefix(v, "@")), true
	case models.EntityOrganization:
		return strings.Join(strings.Fields(strings.ToLower(v)), " "), true
	}
	return strings.ToLower(v), true
}

// extractEntities flat set of entities referenced by a result
func extractEntities(r models.Result) entitySet {
	s := entitySet{}

	switch v := r.(type) {
	case *models.MalwareReputation:
		switch v.Type {
		case models.QueryDomain:
			s.addDomain(v.Value)
		case models.QueryIP:
			s.add(models.EntityIP, v.Value)
		case models.QueryHash:
			s.add(models.EntityHash, v.Value)
		case models.QueryURL:
			s.addURL(v.Value)
		}
		s.add(models.EntityHash, v.SHA256)
		s.add(models.EntityHash, v.MD5)
		s.addURL(v.FinalURL)
		s.add(models.EntityOrganization, v.Registrar)
		s.add(models.EntityOrganization, v.ASOwner)

	case *models.HostIntel:
		s.add(models.EntityIP, v.IP)
		for _, h := range v.Hostnames {
			s.addDomain(h)
		}
		s.add(models.EntityOrganization, v.Org)
		s.add(models.EntityOrganization, v.ISP)

	case *models.DomainRecords:
		s.addDomain(v.Domain)
		for _, sub := range v.Subdomains {
			if sub != "" {
				s.addDomain(sub + "." + v.Domain)
			}
		}
		addRecords(s, v.Records)

	case *models.HostSearch:
		for _, m := range v.Matches {
			s.add(models.EntityIP, m.IP)
			for _, h := range m.Hostnames {
				s.addDomain(h)
			}
			s.add(models.EntityOrganization, m.Organization)
		}

	case *models.WhoisRecord:
		s.addDomain(v.Domain)
		for _, ns := range v.NameServers {
			s.addDomain(ns)
		}
		for _, email := range v.Emails {
			s.add(models.EntityEmail, email)
		}
		s.add(models.EntityOrganization, v.Registrant.Organization)
		s.add(models.EntityOrganization, v.Registrar)
		addRecords(s, v.Records)

	case *models.ArchiveHistory:
		s.addURL(v.URL)
		for _, c := range v.Captures {
			s.addURL(c.OriginalURL)
		}

	case *models.CrawlIndex:
		s.addURL(v.URL)
		for _, sample := range v.Samples {
			s.addURL(sample.URL)
		}

	case *models.SocialProfiles:
		s.add(models.EntityAccount, v.Username)
		for _, p := range v.Profiles {
			if p.Status != models.StatusFound {
				continue
			}
			for _, email := range emailPattern.FindAllString(p.Bio, -1) {
				s.add(models.EntityEmail, email)
			}
		}
	}

	return s
}

func addRecords(s entitySet, records models.RecordSet) {
	for _, ip := range records.A {
		s.add(models.EntityIP, ip)
	}
	for _, ip := range records.AAAA {
		s.add(models.EntityIP, ip)
	}
	for _, host := range records.MX {
		s.addDomain(host)
	}
	for _, host := range records.NS {
		s.addDomain(host)
	}
	for _, host := range records.CNAME {
		s.addDomain(host)
	}
	for _, txt := range records.TXT {
		for _, email := range emailPattern.FindAllString(txt, -1) {
			s.add(models.EntityEmail, email)
		}
	}
}
