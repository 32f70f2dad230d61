package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/schoolgle/schoolgle/internal/action/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CountByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (domain.Counts, error) {
	var counts domain.Counts
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) AS total,
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed
		 FROM actions
		 WHERE org_id = ?`,
		domain.StatusCompleted,
		orgID,
	).Scan(&counts).Error
	return counts, err
}
