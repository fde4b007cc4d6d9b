package models

// QueryType semantic type inferred from a raw query string
type QueryType string

const (
	QueryURL      QueryType = "url"
	QueryIP       QueryType = "ip"
	QueryDomain   QueryType = "domain"
	QueryHash     QueryType = "hash"
	QueryUsername QueryType = "username"
	QuerySearch   QueryType = "search"
)

// Query a classified user submission. Never mutated after classification.
type Query struct {
	RawValue     string    `json:"rawValue"`
	InferredType QueryType `json:"inferredType"`
}

// NewQuery builds a query with an explicit type
func NewQuery(raw string, t QueryType) Query {
	return Query{RawValue: raw, InferredType: t}
}

// Valid reports whether t is one of the known query types
func (t QueryType) Valid() bool {
	switch t {
	case QueryURL, QueryIP, QueryDomain, QueryHash, QueryUsername, QuerySearch:
		return true
	}
	return false
}

// ProviderID identifier of an external data source
type ProviderID string

const (
	ProviderVirusTotal  ProviderID = "virustotal"
	ProviderShodan      ProviderID = "shodan"
	ProviderWhois       ProviderID = "whois"
	ProviderWayback     ProviderID = "wayback"
	ProviderCommonCrawl ProviderID = "commoncrawl"
	ProviderSocial      ProviderID = "social"
	ProviderOpenRouter  ProviderID = "openrouter"
)

// ProviderCredential API secret for one provider
type ProviderCredential struct {
	ProviderID  ProviderID `json:"providerId"`
	SecretValue string     `json:"-"`
}

// Present reports whether the credential carries a usable secret
func (c *ProviderCredential) Present() bool {
	return c != nil && c.SecretValue != ""
}
