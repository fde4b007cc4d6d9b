package aggregator

import (
	"math"
	"spyosint/internal/models"
	"time"
)

// Baseline risk of results carrying no threat signal
const baselineRisk = 10

// ResultRisk risk score in [0,100] derived from a single result
func ResultRisk(r models.Result, now time.Time) int {
	switch v := r.(type) {
	case *models.MalwareReputation:
		return reputationRisk(v)
	case *models.HostIntel:
		return hostRisk(v)
	case *models.HostSearch:
		score := baselineRisk
		for _, m := range v.Matches {
			if m.Port == 3389 || m.Port == 23 || m.Port == 445 {
				score += 5
			}
		}
		return clamp(score)
	case *models.WhoisRecord:
		// registered within the last 90 days
		if v.CreatedDate != nil && now.Sub(*v.CreatedDate) < 90*24*time.Hour {
			return 45
		}
		if v.ExpiryDate != nil && v.ExpiryDate.Before(now) {
			return 30
		}
		return baselineRisk
	case *models.ArchiveHistory:
		score := baselineRisk
		for _, c := range v.Captures {
			switch c.Category {
			case "config_file", "backup_file":
				score += 10
			}
		}
		return clamp(min(score, 40))
	case *models.SocialProfiles:
		return 5
	}
	return baselineRisk
}

func reputationRisk(v *models.MalwareReputation) int {
	engines := v.TotalEngines
	if engines == 0 {
		s := v.Stats
		engines = s.Malicious + s.Suspicious + s.Harmless + s.Undetected + s.Timeout
	}

	score := 0.0
	if engines > 0 {
		score = 100 * (float64(v.Stats.Malicious) + 0.5*float64(v.Stats.Suspicious)) / float64(engines)
	}
	switch {
	case v.Stats.Malicious > 0:
		score = math.Max(score, 50+4*math.Min(float64(v.Stats.Malicious), 10))
	case v.Stats.Suspicious > 0:
		score = math.Max(score, 30)
	default:
		score = math.Max(score, 5)
	}
	if v.Reputation < 0 {
		score += math.Min(20, float64(-v.Reputation)/2)
	}
	return clamp(int(math.Round(score)))
}

func hostRisk(v *models.HostIntel) int {
	score := baselineRisk + 15*len(v.Vulns)
	for _, s := range v.Services {
		score += 8 * len(s.SecurityIssues)
	}
	if len(v.Ports) > 10 {
		score += 10
	}
	return clamp(score)
}

// Level risk bucket of a score
func Level(score int) models.RiskLevel {
	switch {
	case score >= 75:
		return models.RiskCritical
	case score >= 50:
		return models.RiskHigh
	case score >= 25:
		return models.RiskMedium
	}
	return models.RiskLow
}

// OverallRisk 0.7 × highest result risk + 0.3 × mean correlation confidence
func OverallRisk(resultRisks []int, correlations []models.Correlation) int {
	maxRisk := 0
	for _, r := range resultRisks {
		maxRisk = max(maxRisk, r)
	}
	mean := 0.0
	if len(correlations) > 0 {
		total := 0
		for _, c := range correlations {
			total += c.ConfidenceScore
		}
		mean = float64(total) / float64(len(correlations))
	}
	return clamp(int(math.Round(0.7*float64(maxRisk) + 0.3*mean)))
}

func clamp(score int) int {
	return min(100, max(0, score))
}
