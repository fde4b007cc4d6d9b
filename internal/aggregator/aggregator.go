// Package aggregator correlates normalized results into a report.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"spyosint/internal/collector"
	"spyosint/internal/models"
	"strings"
	"time"

	"github.com/google/uuid"
)

// weights per shared entity type
var weights = map[models.EntityType]float64{
	models.EntityIP:           0.45,
	models.EntityHash:         0.50,
	models.EntityDomain:       0.40,
	models.EntityEmail:        0.35,
	models.EntityAccount:      0.30,
	models.EntityURL:          0.25,
	models.EntityOrganization: 0.15,
}

func correlationKind(t models.EntityType) models.CorrelationType {
	switch t {
	case models.EntityIP, models.EntityDomain, models.EntityURL:
		return models.CorrelationInfrastructure
	case models.EntityAccount, models.EntityEmail:
		return models.CorrelationIdentity
	case models.EntityHash:
		return models.CorrelationThreat
	}
	return models.CorrelationContextual
}

// tie-break order when two kinds carry the same weight
var kindPriority = []models.CorrelationType{
	models.CorrelationInfrastructure,
	models.CorrelationThreat,
	models.CorrelationIdentity,
	models.CorrelationContextual,
}

// Request one aggregation
type Request struct {
	Results []models.Result
	// UseLLM delegates the summary text and risk score to the summarizer
	UseLLM       bool
	AnalysisType string
}

// Aggregator builds correlation reports. The zero summarizer means local summaries only.
type Aggregator struct {
	summarizer Summarizer
	logger     *slog.Logger
	now        func() time.Time
}

// New creates an aggregator. summarizer may be nil.
func New(summarizer Summarizer, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{summarizer: summarizer, logger: logger, now: time.Now}
}

// Aggregate correlates results, delegating the summary when a summarizer is configured
func (a *Aggregator) Aggregate(ctx context.Context, results []models.Result) (*models.CorrelationReport, error) {
	return a.Run(ctx, Request{Results: results, UseLLM: a.summarizer != nil})
}

// Run builds the report for req
func (a *Aggregator) Run(ctx context.Context, req Request) (*models.CorrelationReport, error) {
	results := compact(req.Results)
	if len(results) < 2 {
		return nil, models.InsufficientInput(len(results))
	}
	if req.UseLLM && a.summarizer == nil {
		return nil, models.MissingCredential(models.ProviderOpenRouter)
	}

	now := a.now().UTC()
	sets := make([]entitySet, len(results))
	risks := make([]int, len(results))
	for i, r := range results {
		sets[i] = extractEntities(r)
		risks[i] = ResultRisk(r, now)
	}

	correlations := correlate(results, sets)
	report := &models.CorrelationReport{
		ID:           uuid.NewString(),
		Correlations: correlations,
		Entities:     rankEntities(sets, risks),
		RiskScore:    OverallRisk(risks, correlations),
		ResultCount:  len(results),
		GeneratedAt:  now,
	}

	if !req.UseLLM {
		report.SummaryText = localSummary(results, report)
		return report, nil
	}

	analysis, err := a.summarizer.Summarize(ctx, results, req.AnalysisType)
	if err != nil {
		a.logger.Warn("LLM summary failed", "error", err, "kind", models.KindName(err))
		return nil, err
	}
	report.SummaryText = analysis.Analysis
	report.RiskScore = collector.ExtractRiskScore(analysis.Analysis)
	report.Model = analysis.Model
	report.Usage = analysis.Usage
	return report, nil
}

func compact(results []models.Result) []models.Result {
	out := make([]models.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// correlate links every pair of results sharing at least one entity
func correlate(results []models.Result, sets []entitySet) []models.Correlation {
	correlations := []models.Correlation{}
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			shared := sharedEntities(sets[i], sets[j])
			if len(shared) == 0 {
				continue
			}
			names := make([]string, len(shared))
			for k, e := range shared {
				names[k] = e.Value
			}
			correlations = append(correlations, models.Correlation{
				SourceID:        results[i].Header().ID,
				TargetID:        results[j].Header().ID,
				Type:            dominantKind(shared),
				ConfidenceScore: Confidence(shared),
				SharedEntities:  names,
			})
		}
	}

	sort.SliceStable(correlations, func(i, j int) bool {
		return correlations[i].ConfidenceScore > correlations[j].ConfidenceScore
	})
	return correlations
}

func sharedEntities(a, b entitySet) []entity {
	var shared []entity
	for key, e := range a {
		if _, ok := b[key]; ok {
			shared = append(shared, e)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].key() < shared[j].key() })
	return shared
}

// Confidence 100 × (1 − Π(1 − w)) over the shared entities, rounded
func Confidence(shared []entity) int {
	miss := 1.0
	for _, e := range shared {
		miss *= 1 - weights[e.Type]
	}
	return clamp(int(math.Round(100 * (1 - miss))))
}

func dominantKind(shared []entity) models.CorrelationType {
	totals := make(map[models.CorrelationType]float64)
	for _, e := range shared {
		totals[correlationKind(e.Type)] += weights[e.Type]
	}
	best := kindPriority[0]
	for _, kind := range kindPriority {
		// strict comparison keeps the earlier kind on ties
		if totals[kind] > totals[best] {
			best = kind
		}
	}
	return best
}

// rankEntities every entity with the highest risk of any result referencing it
func rankEntities(sets []entitySet, risks []int) []models.Entity {
	highest := make(map[string]int)
	byKey := make(map[string]entity)
	for i, set := range sets {
		for key, e := range set {
			byKey[key] = e
			if r, ok := highest[key]; !ok || risks[i] > r {
				highest[key] = risks[i]
			}
		}
	}

	entities := make([]models.Entity, 0, len(byKey))
	for key, e := range byKey {
		entities = append(entities, models.Entity{
			Name:      e.Value,
			Type:      e.Type,
			RiskLevel: Level(highest[key]),
		})
	}
	sort.Slice(entities, func(i, j int) bool {
		ri, rj := levelRank(entities[i].RiskLevel), levelRank(entities[j].RiskLevel)
		if ri != rj {
			return ri > rj
		}
		if entities[i].Type != entities[j].Type {
			return entities[i].Type < entities[j].Type
		}
		return entities[i].Name < entities[j].Name
	})
	return entities
}

func levelRank(l models.RiskLevel) int {
	switch l {
	case models.RiskCritical:
		return 3
	case models.RiskHigh:
		return 2
	case models.RiskMedium:
		return 1
	}
	return 0
}

// localSummary plain-text summary used without an LLM
func localSummary(results []models.Result, report *models.CorrelationReport) string {
	providers := make(map[models.ProviderID]bool)
	for _, r := range results {
		providers[r.Header().ProviderID] = true
	}
	names := make([]string, 0, len(providers))
	for p := range providers {
		names = append(names, string(p))
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Analyzed %d results from %s.\n", len(results), strings.Join(names, ", "))

	if len(report.Correlations) == 0 {
		b.WriteString("No shared entities were found between the results.\n")
	} else {
		counts := make(map[models.CorrelationType]int)
		for _, c := range report.Correlations {
			counts[c.Type]++
		}
		var parts []string
		for _, kind := range kindPriority {
			if counts[kind] > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", counts[kind], kind))
			}
		}
		fmt.Fprintf(&b, "Found %d correlations (%s).\n", len(report.Correlations), strings.Join(parts, ", "))

		top := report.Correlations[0]
		fmt.Fprintf(&b, "Strongest link: %s (confidence %d%%) via %s.\n",
			top.Type, top.ConfidenceScore, strings.Join(top.SharedEntities, ", "))
	}

	var flagged []string
	for _, e := range report.Entities {
		if e.RiskLevel == models.RiskHigh || e.RiskLevel == models.RiskCritical {
			flagged = append(flagged, e.Name)
		}
	}
	if len(flagged) > 0 {
		if len(flagged) > 5 {
			flagged = append(flagged[:5], "...")
		}
		fmt.Fprintf(&b, "High-risk entities: %s.\n", strings.Join(flagged, ", "))
	}

	fmt.Fprintf(&b, "Overall risk score: %d/100 (%s).", report.RiskScore, Level(report.RiskScore))
	return b.String()
}
