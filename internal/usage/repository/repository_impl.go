package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/schoolgle/schoolgle/internal/usage/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) ListDailySummaries(ctx context.Context, db *gorm.DB, orgID snowflake.ID, since time.Time) ([]usagedomain.UsageDailySummary, error) {
	var rows []usagedomain.UsageDailySummary
	err := db.WithContext(ctx).
		Where("org_id = ? AND summary_date >= ?", orgID, since.UTC()).
		Order("summary_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) LastEventAt(ctx context.Context, db *gorm.DB, orgID snowflake.ID, eventType string) (*time.Time, error) {
	var event usagedomain.UsageEvent
	err := db.WithContext(ctx).
		Where("org_id = ? AND event_type = ?", orgID, eventType).
		Order("created_at DESC").
		Limit(1).
		Find(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	at := event.CreatedAt.UTC()
	return &at, nil
}

func (r *repo) CountDistinctUsers(ctx context.Context, db *gorm.DB, orgID snowflake.ID, eventType string, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT user_id)
		 FROM usage_events
		 WHERE org_id = ? AND event_type = ? AND created_at >= ? AND user_id IS NOT NULL`,
		orgID,
		eventType,
		since.UTC(),
	).Scan(&count).Error
	return count, err
}
