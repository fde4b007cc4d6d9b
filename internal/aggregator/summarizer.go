package aggregator

import (
	"context"
	"spyosint/internal/collector"
	"spyosint/internal/credentials"
	"spyosint/internal/models"
)

// Summarizer produces the report text from the full result set
type Summarizer interface {
	Summarize(ctx context.Context, results []models.Result, analysisType string) (*models.LLMAnalysis, error)
}

// LLMSummarizer delegates to the correlation-report provider. The API key is
// read from the credential store on each call.
type LLMSummarizer struct {
	client *collector.OpenRouter
	store  credentials.Store
}

// NewLLMSummarizer creates a summarizer over client
func NewLLMSummarizer(client *collector.OpenRouter, store credentials.Store) *LLMSummarizer {
	return &LLMSummarizer{client: client, store: store}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, results []models.Result, analysisType string) (*models.LLMAnalysis, error) {
	cred, err := credentials.Lookup(ctx, s.store, models.ProviderOpenRouter)
	if err != nil {
		return nil, models.Unavailable(models.ProviderOpenRouter, err)
	}
	return s.client.Analyze(ctx, results, analysisType, cred)
}
