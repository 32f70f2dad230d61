package domain

import (
	"testing"

	"github.com/schoolgle/schoolgle/internal/config"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestScoreZeroActivityIsCritical(t *testing.T) {
	b := Score(config.DefaultScoringConfig(), Signals{})

	assert.Equal(t, 0, b.Score)
	assert.Equal(t, StatusCritical, b.Status)
	assert.Equal(t, float64(0), b.Engagement)
	assert.Equal(t, float64(0), b.Adoption)
	assert.Equal(t, float64(0), b.Value)
	assert.Equal(t, RiskFlags{
		"No login in 30+ days",
		"No login in 14+ days",
		"Low user adoption (<20%)",
		"Low action completion rate (<20%)",
		"Using fewer than 2 features",
	}, b.RiskFlags)
}

func TestScoreFullyEngagedIsHealthy(t *testing.T) {
	b := Score(config.DefaultScoringConfig(), Signals{
		DaysActive:        30,
		FeaturesUsed:      6,
		AIChats:           12,
		DaysSinceLogin:    intPtr(0),
		ActiveUserPercent: 100,
		CompletionRate:    100,
	})

	assert.Equal(t, float64(100), b.Engagement)
	assert.Equal(t, float64(100), b.Adoption)
	assert.Equal(t, float64(100), b.Value)
	assert.Equal(t, 100, b.Score)
	assert.Equal(t, StatusHealthy, b.Status)
	assert.Empty(t, b.RiskFlags)
	assert.NotNil(t, b.RiskFlags)
}

func TestRecencyBands(t *testing.T) {
	cfg := config.DefaultScoringConfig()
	tests := []struct {
		days *int
		want float64
	}{
		{nil, 0},
		{intPtr(0), 30},
		{intPtr(2), 30},
		{intPtr(3), 20},
		{intPtr(6), 20},
		{intPtr(7), 10},
		{intPtr(13), 10},
		{intPtr(14), 0},
		{intPtr(90), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, recencyBonus(cfg, tt.days))
	}
}

func TestClassifyStatusBoundaries(t *testing.T) {
	th := config.DefaultScoringConfig().Status
	tests := []struct {
		score int
		want  Status
	}{
		{100, StatusHealthy},
		{70, StatusHealthy},
		{69, StatusNeutral},
		{50, StatusNeutral},
		{49, StatusAtRisk},
		{30, StatusAtRisk},
		{29, StatusCritical},
		{0, StatusCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStatus(th, tt.score), "score %d", tt.score)
	}
}

func TestScoreWeightedSum(t *testing.T) {
	// engagement 10*3+20 = 50, adoption 2*15+40*0.5 = 50, value 60*0.5+10 = 40
	b := Score(config.DefaultScoringConfig(), Signals{
		DaysActive:        10,
		FeaturesUsed:      2,
		DaysSinceLogin:    intPtr(5),
		ActiveUserPercent: 40,
		CompletionRate:    60,
	})
	assert.Equal(t, float64(50), b.Engagement)
	assert.Equal(t, float64(50), b.Adoption)
	assert.Equal(t, float64(40), b.Value)
	assert.Equal(t, 47, b.Score)
	assert.Equal(t, StatusAtRisk, b.Status)
	assert.Empty(t, b.RiskFlags)
}

func TestRiskFlagsIndependent(t *testing.T) {
	cfg := config.DefaultScoringConfig()
	b := Score(cfg, Signals{DaysSinceLogin: intPtr(20), FeaturesUsed: 3, ActiveUserPercent: 50, CompletionRate: 19.5})
	assert.Equal(t, RiskFlags{"No login in 14+ days", "Low action completion rate (<20%)"}, b.RiskFlags)

	b = Score(cfg, Signals{DaysSinceLogin: intPtr(14), FeaturesUsed: 2, ActiveUserPercent: 20, CompletionRate: 20})
	assert.Empty(t, b.RiskFlags)
}

func TestScoreUsesConfiguredWeights(t *testing.T) {
	cfg := config.DefaultScoringConfig()
	cfg.Weights = config.ScoreWeights{Engagement: 1}
	b := Score(cfg, Signals{DaysActive: 10, DaysSinceLogin: intPtr(1)})
	assert.Equal(t, 60, b.Score)
	assert.Equal(t, StatusNeutral, b.Status)
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusAtRisk.NeedsAttention())
	assert.True(t, StatusCritical.NeedsAttention())
	assert.False(t, StatusNeutral.NeedsAttention())
	assert.False(t, Status("unknown").Valid())
}
