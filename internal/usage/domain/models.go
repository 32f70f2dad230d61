// Package domain contains read models for the usage telemetry written by the
// product. This service never writes these tables outside of tests.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const EventTypeLogin = "login"

// UsageDailySummary is one organization's activity for one calendar day (UTC).
type UsageDailySummary struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	OrgID             snowflake.ID `gorm:"not null;uniqueIndex:ux_usage_daily_org_date,priority:1"`
	SummaryDate       time.Time    `gorm:"type:date;not null;uniqueIndex:ux_usage_daily_org_date,priority:2"`
	AIChats           int64        `gorm:"column:ai_chats;not null;default:0"`
	ReportsGenerated  int64        `gorm:"not null;default:0"`
	ActionsCreated    int64        `gorm:"not null;default:0"`
	VoiceObservations int64        `gorm:"not null;default:0"`
	MockInspections   int64        `gorm:"not null;default:0"`
	DocumentsUploaded int64        `gorm:"not null;default:0"`
	AITotalCostUSD    float64      `gorm:"column:ai_total_cost_usd;not null;default:0"`
}

func (UsageDailySummary) TableName() string { return "usage_daily_summary" }

// Active reports whether any product feature was used that day.
func (s UsageDailySummary) Active() bool {
	return s.AIChats > 0 ||
		s.ReportsGenerated > 0 ||
		s.ActionsCreated > 0 ||
		s.VoiceObservations > 0 ||
		s.MockInspections > 0 ||
		s.DocumentsUploaded > 0
}

// UsageEvent is a raw product event such as a login.
type UsageEvent struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	OrgID     snowflake.ID  `gorm:"not null;index"`
	UserID    *snowflake.ID `gorm:"column:user_id"`
	EventType string        `gorm:"type:text;not null"`
	CreatedAt time.Time     `gorm:"not null"`
}

func (UsageEvent) TableName() string { return "usage_events" }

// FeatureTotals are the per-category sums over a window.
type FeatureTotals struct {
	AIChats           int64
	ReportsGenerated  int64
	ActionsCreated    int64
	VoiceObservations int64
	MockInspections   int64
	DocumentsUploaded int64
}

// FeaturesUsed counts the categories with any activity.
func (t FeatureTotals) FeaturesUsed() int {
	used := 0
	for _, v := range []int64{
		t.AIChats,
		t.ReportsGenerated,
		t.ActionsCreated,
		t.VoiceObservations,
		t.MockInspections,
		t.DocumentsUploaded,
	} {
		if v > 0 {
			used++
		}
	}
	return used
}

// Add accumulates one day into the totals.
func (t *FeatureTotals) Add(s UsageDailySummary) {
	t.AIChats += s.AIChats
	t.ReportsGenerated += s.ReportsGenerated
	t.ActionsCreated += s.ActionsCreated
	t.VoiceObservations += s.VoiceObservations
	t.MockInspections += s.MockInspections
	t.DocumentsUploaded += s.DocumentsUploaded
}
