package models

import "time"

// CorrelationType kind of link between two results
type CorrelationType string

const (
	CorrelationInfrastructure CorrelationType = "infrastructure"
	CorrelationIdentity       CorrelationType = "identity"
	CorrelationThreat         CorrelationType = "threat"
	CorrelationContextual     CorrelationType = "contextual"
)

// EntityType kind of an extracted entity
type EntityType string

const (
	EntityDomain       EntityType = "domain"
	EntityIP           EntityType = "ip"
	EntityEmail        EntityType = "email"
	EntityAccount      EntityType = "account"
	EntityHash         EntityType = "hash"
	EntityURL          EntityType = "url"
	EntityOrganization EntityType = "organization"
)

// RiskLevel coarse risk bucket
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Correlation link between two results sharing at least one entity
type Correlation struct {
	SourceID        string          `json:"sourceId"`
	TargetID        string          `json:"targetId"`
	Type            CorrelationType `json:"type"`
	ConfidenceScore int             `json:"confidenceScore"`
	SharedEntities  []string        `json:"sharedEntities"`
}

// Entity entity referenced by the analysed results
type Entity struct {
	Name      string     `json:"name"`
	Type      EntityType `json:"type"`
	RiskLevel RiskLevel  `json:"riskLevel"`
}

// Usage token accounting returned by the LLM provider
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CorrelationReport analysis over two or more results. Built per request, never stored.
type CorrelationReport struct {
	ID           string        `json:"id"`
	SummaryText  string        `json:"summaryText"`
	Correlations []Correlation `json:"correlations"`
	RiskScore    int           `json:"riskScore"`
	Entities     []Entity      `json:"entities"`
	ResultCount  int           `json:"resultCount"`
	Model        string        `json:"model,omitempty"`
	Usage        *Usage        `json:"usage,omitempty"`
	GeneratedAt  time.Time     `json:"generatedAt"`
}

// LLMAnalysis response of the correlation-report provider
type LLMAnalysis struct {
	Analysis  string `json:"analysis"`
	RiskScore int    `json:"riskScore"`
	Model     string `json:"model"`
	Usage     *Usage `json:"usage"`
}

// Investigation a saved set of results
type Investigation struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Query      Query      `json:"query"`
	Type       QueryType  `json:"type"`
	CreatedAt  time.Time  `json:"date"`
	DataPoints int        `json:"dataPoints"`
	Results    ResultList `json:"results"`
}
