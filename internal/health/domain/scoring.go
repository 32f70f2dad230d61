package domain

import (
	"fmt"
	"math"

	"github.com/schoolgle/schoolgle/internal/config"
)

// Signals are the per-organization inputs gathered over the scoring window.
type Signals struct {
	DaysActive   int
	FeaturesUsed int
	AIChats      int64
	// DaysSinceLogin is nil when nobody in the organization ever logged in.
	DaysSinceLogin    *int
	ActiveUserPercent float64
	CompletionRate    float64
}

type Breakdown struct {
	Engagement float64
	Adoption   float64
	Value      float64
	Score      int
	Status     Status
	RiskFlags  RiskFlags
}

// Score is a pure function of cfg and s.
func Score(cfg config.ScoringConfig, s Signals) Breakdown {
	engagement := math.Min(100, float64(s.DaysActive)*cfg.Engagement.PointsPerActiveDay+recencyBonus(cfg, s.DaysSinceLogin))
	adoption := math.Min(100, float64(s.FeaturesUsed)*cfg.Adoption.PointsPerFeature+s.ActiveUserPercent*cfg.Adoption.ActiveUserWeight)

	value := s.CompletionRate * cfg.Value.CompletionWeight
	if s.AIChats > 0 {
		value += cfg.Value.AIUsageBonus
	}
	value += math.Min(cfg.Value.ActiveDaysCap, float64(s.DaysActive))
	value = math.Min(100, value)

	w := cfg.Weights
	score := int(math.Round(engagement*w.Engagement + adoption*w.Adoption + value*w.Value))
	score = max(0, min(100, score))

	return Breakdown{
		Engagement: engagement,
		Adoption:   adoption,
		Value:      value,
		Score:      score,
		Status:     ClassifyStatus(cfg.Status, score),
		RiskFlags:  riskFlags(cfg.Risk, s),
	}
}

// ClassifyStatus maps a score to a status; thresholds are inclusive lower bounds.
func ClassifyStatus(t config.StatusThresholds, score int) Status {
	switch {
	case score >= t.Healthy:
		return StatusHealthy
	case score >= t.Neutral:
		return StatusNeutral
	case score >= t.AtRisk:
		return StatusAtRisk
	default:
		return StatusCritical
	}
}

func recencyBonus(cfg config.ScoringConfig, daysSinceLogin *int) float64 {
	if daysSinceLogin == nil {
		return 0
	}
	// bands are sorted ascending by WithinDays when the config is loaded
	for _, band := range cfg.Engagement.RecencyBands {
		if *daysSinceLogin < band.WithinDays {
			return band.Bonus
		}
	}
	return 0
}

func riskFlags(r config.RiskThresholds, s Signals) RiskFlags {
	flags := RiskFlags{}
	if s.DaysSinceLogin == nil || *s.DaysSinceLogin > r.NoLoginDays {
		flags = append(flags, fmt.Sprintf("No login in %d+ days", r.NoLoginDays))
	}
	if s.DaysSinceLogin == nil || *s.DaysSinceLogin > r.NoLoginWarningDays {
		flags = append(flags, fmt.Sprintf("No login in %d+ days", r.NoLoginWarningDays))
	}
	if s.ActiveUserPercent < r.MinActiveUserPercent {
		flags = append(flags, fmt.Sprintf("Low user adoption (<%s%%)", trimFloat(r.MinActiveUserPercent)))
	}
	if s.CompletionRate < r.MinCompletionRate {
		flags = append(flags, fmt.Sprintf("Low action completion rate (<%s%%)", trimFloat(r.MinCompletionRate)))
	}
	if s.FeaturesUsed < r.MinFeaturesUsed {
		flags = append(flags, fmt.Sprintf("Using fewer than %d features", r.MinFeaturesUsed))
	}
	return flags
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
