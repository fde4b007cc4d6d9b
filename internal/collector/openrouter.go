package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"spyosint/internal/models"
	"strconv"
)

// DefaultOpenRouterURL chat completions endpoint
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

const defaultAnalysisType = "complete"

const analystSystemPrompt = `Tu es un analyste OSINT expert specialise dans la correlation de donnees d'investigations.
Tu analyses les donnees fournies et identifies les connexions, patterns et risques potentiels.
Reponds toujours en francais avec un format structure.`

const analystUserPrompt = `Analyse les donnees suivantes provenant de plusieurs investigations OSINT et identifie les correlations:

%s

Type d'analyse demandee: %s

Fournis:
1. Un resume executif des correlations trouvees
2. Les entites communes identifiees (personnes, organisations, IPs, domaines)
3. Les liens et connexions entre les investigations
4. Un score de risque global (0-100) avec justification
5. Des recommandations pour approfondir l'enquete
6. Les prochaines etapes suggerees

Format ta reponse de maniere claire et structuree.`

// OpenRouterConfig request settings of the correlation-report provider
type OpenRouterConfig struct {
	Endpoint    string
	Model       string
	Referer     string
	Title       string
	Temperature float64
	MaxTokens   int
}

// OpenRouter correlation-report provider backed by an LLM
type OpenRouter struct {
	client *http.Client
	cfg    OpenRouterConfig
}

// NewOpenRouter creates the client. Zero config fields take the dashboard defaults.
func NewOpenRouter(client *http.Client, cfg OpenRouterConfig) *OpenRouter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOpenRouterURL
	}
	if cfg.Model == "" {
		cfg.Model = "anthropic/claude-3.5-sonnet"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}
	return &OpenRouter{client: client, cfg: cfg}
}

func (o *OpenRouter) ID() models.ProviderID { return models.ProviderOpenRouter }

// Model model requested from the provider
func (o *OpenRouter) Model() string { return o.cfg.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *models.Usage `json:"usage"`
}

// BuildPrompt user prompt for a set of investigations
func BuildPrompt(investigations any, analysisType string) (string, error) {
	if analysisType == "" {
		analysisType = defaultAnalysisType
	}
	data, err := json.MarshalIndent(investigations, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode investigations: %w", err)
	}
	return fmt.Sprintf(analystUserPrompt, data, analysisType), nil
}

// Analyze asks the model to correlate the given investigations
func (o *OpenRouter) Analyze(ctx context.Context, investigations any, analysisType string, cred *models.ProviderCredential) (*models.LLMAnalysis, error) {
	if !cred.Present() {
		return nil, models.MissingCredential(o.ID())
	}

	prompt, err := BuildPrompt(investigations, analysisType)
	if err != nil {
		return nil, models.InvalidInput(o.ID(), "%v", err)
	}

	payload, err := json.Marshal(chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: analystSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	})
	if err != nil {
		return nil, models.InvalidInput(o.ID(), "failed to encode request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, o.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, models.InvalidInput(o.ID(), "bad request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.SecretValue)
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", o.cfg.Referer)
	}
	if o.cfg.Title != "" {
		req.Header.Set("X-Title", o.cfg.Title)
	}

	var resp chatResponse
	if err := fetchJSON(ctx, o.client, o.ID(), req, &resp); err != nil {
		return nil, err
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &models.LLMAnalysis{
		Analysis:  content,
		RiskScore: ExtractRiskScore(content),
		Model:     resp.Model,
		Usage:     resp.Usage,
	}, nil
}

var riskScorePattern = regexp.MustCompile(`(?i)score[^:]*:\s*(\d+)`)

// ExtractRiskScore first "score...: N" in the text clamped to [0,100]; 50 when absent
func ExtractRiskScore(text string) int {
	m := riskScorePattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 50
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		// digits overflowing int
		return 100
	}
	return min(100, max(0, score))
}
