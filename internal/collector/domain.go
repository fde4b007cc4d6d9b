package collector

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"spyosint/internal/models"
	"strings"
	"time"

	"github.com/likexian/whois"
)

// WhoisFunc performs a raw WHOIS query. whois.Whois satisfies it.
type WhoisFunc func(domain string, servers ...string) (string, error)

// Whois DNS-history adapter: registration data plus live DNS records
type Whois struct {
	lookup   WhoisFunc
	resolver Resolver
}

// NewWhois creates the adapter. nil arguments select the real WHOIS client and
// the system resolver.
func NewWhois(lookup WhoisFunc, resolver Resolver) *Whois {
	if lookup == nil {
		lookup = whois.Whois
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Whois{lookup: lookup, resolver: resolver}
}

func (w *Whois) ID() models.ProviderID { return models.ProviderWhois }

func (w *Whois) RequiresCredential() bool { return false }

func (w *Whois) Accepts(t models.QueryType) bool {
	return acceptsOneOf(t, models.QueryDomain, models.QueryURL)
}

func (w *Whois) Execute(ctx context.Context, q models.Query, cred *models.ProviderCredential) (models.Result, error) {
	if err := checkGate(w, q, cred); err != nil {
		return nil, err
	}

	domain, err := domainOf(q)
	if err != nil {
		return nil, models.InvalidInput(w.ID(), "%v", err)
	}

	raw, err := w.query(ctx, domain)
	if err != nil {
		return nil, models.Unavailable(w.ID(), err)
	}

	fields := parseWhois(raw)
	if fields.registrar == "" && notFoundPattern.MatchString(raw) {
		return nil, models.UpstreamError(w.ID(), http.StatusNotFound, fmt.Sprintf("no WHOIS record for %s", domain))
	}

	result := &models.WhoisRecord{
		Meta:        models.NewMeta(w.ID(), models.KindWhois, q),
		Domain:      domain,
		Registrar:   fields.registrar,
		CreatedDate: parseDate(fields.created),
		UpdatedDate: parseDate(fields.updated),
		ExpiryDate:  parseDate(fields.expiry),
		NameServers: fields.nameServers,
		Registrant: models.Registrant{
			Organization: fields.registrantOrg,
			Country:      fields.registrantCountry,
			State:        fields.registrantState,
		},
		Emails:  fields.emails,
		Status:  fields.status,
		Records: collectDNSRecords(ctx, w.resolver, domain),
	}

	result.Normalize()
	return result, nil
}

// query runs the blocking WHOIS call so that ctx cancellation is honored
func (w *Whois) query(ctx context.Context, domain string) (string, error) {
	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		text, err := w.lookup(domain)
		ch <- reply{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("WHOIS lookup failed: %w", r.err)
		}
		return r.text, nil
	}
}

// domainOf host name targeted by a domain or url query
func domainOf(q models.Query) (string, error) {
	value := strings.TrimSpace(q.RawValue)
	if q.InferredType == models.QueryURL {
		u, err := url.Parse(value)
		if err != nil || u.Hostname() == "" {
			return "", fmt.Errorf("cannot extract host from %q", value)
		}
		value = u.Hostname()
	}
	if net.ParseIP(value) != nil {
		return "", fmt.Errorf("%s is an IP address, not a domain", value)
	}
	return strings.TrimSuffix(strings.ToLower(value), "."), nil
}

var (
	notFoundPattern = regexp.MustCompile(`(?i)(no match for|not found|no data found|no entries found|domain not found)`)
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

type whoisFields struct {
	registrar         string
	created           string
	updated           string
	expiry            string
	nameServers       []string
	registrantOrg     string
	registrantCountry string
	registrantState   string
	status            []string
	emails            []string
}

// parseWhois extracts known fields from free-form WHOIS text. The first value
// seen for a field wins; registries often repeat them in a registrar section.
func parseWhois(data string) whoisFields {
	var f whoisFields
	seenNS := make(map[string]bool)
	seenStatus := make(map[string]bool)

	setOnce := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
			continue
		}

		if v, ok := extractValue(line, "Registrar:", "registrar:"); ok {
			setOnce(&f.registrar, v)
		}
		if v, ok := extractValue(line, "Creation Date:", "Created:", "created:", "Registered on:"); ok {
			setOnce(&f.created, v)
		}
		if v, ok := extractValue(line, "Updated Date:", "Updated:", "last-modified:", "changed:"); ok {
			setOnce(&f.updated, v)
		}
		if v, ok := extractValue(line, "Registry Expiry Date:", "Registrar Registration Expiration Date:", "Expiry Date:", "Expires:", "paid-till:"); ok {
			setOnce(&f.expiry, v)
		}
		if v, ok := extractValue(line, "Registrant Organization:", "Registrant:", "org:"); ok {
			setOnce(&f.registrantOrg, v)
		}
		if v, ok := extractValue(line, "Registrant Country:"); ok {
			setOnce(&f.registrantCountry, v)
		}
		if v, ok := extractValue(line, "Registrant State/Province:"); ok {
			setOnce(&f.registrantState, v)
		}
		if v, ok := extractValue(line, "Name Server:", "nserver:"); ok && v != "" {
			ns := strings.ToLower(strings.TrimSuffix(strings.Fields(v)[0], "."))
			if !seenNS[ns] {
				seenNS[ns] = true
				f.nameServers = append(f.nameServers, ns)
			}
		}
		if v, ok := extractValue(line, "Domain Status:", "status:"); ok && v != "" {
			// "clientTransferProhibited https://icann.org/epp#clientTransferProhibited"
			status := strings.Fields(v)[0]
			if !seenStatus[status] {
				seenStatus[status] = true
				f.status = append(f.status, status)
			}
		}
	}

	seenEmail := make(map[string]bool)
	for _, email := range emailPattern.FindAllString(data, -1) {
		email = strings.ToLower(email)
		if !seenEmail[email] {
			seenEmail[email] = true
			f.emails = append(f.emails, email)
		}
	}
	sort.Strings(f.emails)

	return f
}

// extractValue returns the text after the first matching prefix at line start
func extractValue(line string, prefixes ...string) (string, bool) {
	for _, prefix := range prefixes {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return "", false
}

var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"02-Jan-2006",
	"02.01.2006",
	time.RFC1123,
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
