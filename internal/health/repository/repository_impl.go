package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/schoolgle/schoolgle/internal/health/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, record *domain.CustomerHealth) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

func (r *repo) FindByOrgID(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*domain.CustomerHealth, error) {
	var record domain.CustomerHealth
	err := db.WithContext(ctx).Raw(
		`SELECT ch.*, o.name AS organization_name
		 FROM customer_health ch
		 JOIN organizations o ON o.id = ch.org_id
		 WHERE ch.org_id = ?`,
		orgID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.OrgID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status *domain.Status) ([]domain.CustomerHealth, error) {
	query := `SELECT ch.*, o.name AS organization_name
		 FROM customer_health ch
		 JOIN organizations o ON o.id = ch.org_id`
	args := []any{}
	if status != nil {
		query += ` WHERE ch.health_status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY ch.health_score ASC, ch.org_id ASC`

	var records []domain.CustomerHealth
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ListOrganizationsWithActiveSubscription(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT s.org_id
		 FROM subscriptions s
		 JOIN organizations o ON o.id = s.org_id
		 WHERE s.status = ?
		 ORDER BY s.org_id ASC`,
		"active",
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
