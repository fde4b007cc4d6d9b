// Package classifier infers the semantic type of a free-text query.
package classifier

import (
	"net/netip"
	"regexp"
	"spyosint/internal/models"
	"strings"
)

var (
	ipv4Pattern   = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
	urlPattern    = regexp.MustCompile(`(?i)^https?://`)
	hashPattern   = regexp.MustCompile(`^[a-fA-F0-9]{32,64}$`)
	domainPattern = regexp.MustCompile(`(?i)^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)
)

// Classify infers the query type. Rules are applied in order and the first match
// wins: ip, url, hash, domain, then fallback.
func Classify(raw string, fallback models.QueryType) models.QueryType {
	v := strings.TrimSpace(raw)
	switch {
	case isIPv4(v):
		return models.QueryIP
	case urlPattern.MatchString(v):
		return models.QueryURL
	case hashPattern.MatchString(v):
		return models.QueryHash
	case domainPattern.MatchString(v):
		return models.QueryDomain
	}
	return fallback
}

// ForSearch classifies input typed in the general search box
func ForSearch(raw string) models.Query {
	return models.NewQuery(strings.TrimSpace(raw), Classify(raw, models.QuerySearch))
}

// ForProfile classifies input typed in the social profile probe
func ForProfile(raw string) models.Query {
	return models.NewQuery(strings.TrimSpace(raw), Classify(raw, models.QueryUsername))
}

// FromContext picks the call-site helper by name ("profile" or anything else)
func FromContext(raw, context string) models.Query {
	if context == "profile" {
		return ForProfile(raw)
	}
	return ForSearch(raw)
}

func isIPv4(v string) bool {
	if !ipv4Pattern.MatchString(v) {
		return false
	}
	// netip rejects octets above 255 and leading zeros
	addr, err := netip.ParseAddr(v)
	return err == nil && addr.Is4()
}
