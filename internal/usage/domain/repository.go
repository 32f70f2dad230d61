package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// ListDailySummaries returns rows with summary_date >= since, oldest first.
	ListDailySummaries(ctx context.Context, db *gorm.DB, orgID snowflake.ID, since time.Time) ([]UsageDailySummary, error)
	// LastEventAt returns nil when the organization never produced eventType.
	LastEventAt(ctx context.Context, db *gorm.DB, orgID snowflake.ID, eventType string) (*time.Time, error)
	CountDistinctUsers(ctx context.Context, db *gorm.DB, orgID snowflake.ID, eventType string, since time.Time) (int64, error)
}
