package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureTotals(t *testing.T) {
	var totals FeatureTotals
	assert.Equal(t, 0, totals.FeaturesUsed())

	totals.Add(UsageDailySummary{AIChats: 3})
	totals.Add(UsageDailySummary{ReportsGenerated: 1, AIChats: 1})
	assert.Equal(t, int64(4), totals.AIChats)
	assert.Equal(t, 2, totals.FeaturesUsed())

	totals.Add(UsageDailySummary{ActionsCreated: 1, VoiceObservations: 1, MockInspections: 1, DocumentsUploaded: 1})
	assert.Equal(t, 6, totals.FeaturesUsed())
}

func TestSummaryActive(t *testing.T) {
	assert.False(t, UsageDailySummary{AITotalCostUSD: 1.5}.Active())
	assert.True(t, UsageDailySummary{MockInspections: 1}.Active())
}
