package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"spyosint/internal/models"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRiskScore(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Score de risque global: 72/100", 72},
		{"score de confiance: 87%", 87},
		{"RISK SCORE: 15", 15},
		{"score (0-100): 250", 100},
		{"Le score: 0", 0},
		{"aucun chiffre ici", 50},
		{"", 50},
		{"score: 999999999999999999999999", 100},
		{"Score: 40\nSecond score: 90", 40},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractRiskScore(tt.text), tt.text)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt([]map[string]string{{"title": "Case A"}}, "")
	require.NoError(t, err)
	assert.Contains(t, prompt, `"title": "Case A"`)
	assert.Contains(t, prompt, "Type d'analyse demandee: complete")
	assert.Contains(t, prompt, "4. Un score de risque global (0-100) avec justification")

	prompt, err = BuildPrompt([]any{}, "menaces")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Type d'analyse demandee: menaces")
}

func TestOpenRouter_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://spyosint.example", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "SpyOSINT Dashboard", r.Header.Get("X-Title"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "anthropic/claude-3.5-sonnet", body.Model)
		assert.Equal(t, 0.3, body.Temperature)
		assert.Equal(t, 4000, body.MaxTokens)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[1].Content, "Type d'analyse demandee: complete")

		fmt.Fprint(w, `{
			"model": "anthropic/claude-3.5-sonnet",
			"choices": [{"message": {"role": "assistant", "content": "Resume...\nScore de risque: 81\n"}}],
			"usage": {"prompt_tokens": 900, "completion_tokens": 300, "total_tokens": 1200}
		}`)
	}))
	defer srv.Close()

	o := NewOpenRouter(NewHTTPClient(5*time.Second), OpenRouterConfig{
		Endpoint: srv.URL,
		Referer:  "https://spyosint.example",
		Title:    "SpyOSINT Dashboard",
	})

	analysis, err := o.Analyze(context.Background(), []map[string]any{{"id": "1"}}, "", credFor(models.ProviderOpenRouter, "or-key"))
	require.NoError(t, err)
	assert.Equal(t, 81, analysis.RiskScore)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", analysis.Model)
	require.NotNil(t, analysis.Usage)
	assert.Equal(t, 1200, analysis.Usage.TotalTokens)
	assert.Contains(t, analysis.Analysis, "Resume")
}

func TestOpenRouter_Errors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error": {"message": "Insufficient credits", "code": 402}}`)
	}))
	defer srv.Close()

	o := NewOpenRouter(NewHTTPClient(5*time.Second), OpenRouterConfig{Endpoint: srv.URL})

	_, err := o.Analyze(context.Background(), []any{}, "", nil)
	require.ErrorIs(t, err, models.ErrMissingCredential)
	assert.Equal(t, "OpenRouter API key not configured", models.DescribeError(err).Message)
	assert.Zero(t, atomic.LoadInt32(&calls))

	_, err = o.Analyze(context.Background(), []any{}, "", credFor(models.ProviderOpenRouter, "k"))
	require.ErrorIs(t, err, models.ErrUpstream)
	info := models.DescribeError(err)
	assert.Equal(t, http.StatusPaymentRequired, info.StatusCode)
	assert.Equal(t, "Insufficient credits", info.Message)
}

func TestOpenRouter_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model": "m", "choices": []}`)
	}))
	defer srv.Close()

	o := NewOpenRouter(NewHTTPClient(5*time.Second), OpenRouterConfig{Endpoint: srv.URL})
	analysis, err := o.Analyze(context.Background(), []any{}, "", credFor(models.ProviderOpenRouter, "k"))
	require.NoError(t, err)
	assert.Equal(t, "", analysis.Analysis)
	assert.Equal(t, 50, analysis.RiskScore)
	assert.Nil(t, analysis.Usage)
}
