package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/schoolgle/schoolgle/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const subscriptionColumns = `s.id, s.org_id, s.plan, s.status, s.payment_method, s.base_price_annual,
	s.discount_percent, s.final_price_annual, s.school_count, s.current_period_start,
	s.current_period_end, s.cancel_at_period_end, s.cancelled_at, s.contract_signed_at,
	s.contract_signed_by, s.stripe_customer_id, s.stripe_subscription_id, s.created_at, s.updated_at`

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET plan = ?, status = ?, base_price_annual = ?, discount_percent = ?, final_price_annual = ?,
		     school_count = ?, current_period_start = ?, current_period_end = ?,
		     cancel_at_period_end = ?, cancelled_at = ?, updated_at = ?
		 WHERE id = ?`,
		subscription.Plan,
		subscription.Status,
		subscription.BasePriceAnnual,
		subscription.DiscountPercent,
		subscription.FinalPriceAnnual,
		subscription.SchoolCount,
		subscription.CurrentPeriodStart,
		subscription.CurrentPeriodEnd,
		subscription.CancelAtPeriodEnd,
		subscription.CancelledAt,
		subscription.UpdatedAt,
		subscription.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return r.find(db.WithContext(ctx), id)
}

// FindByIDForUpdate must run inside a transaction. Dialects without row
// locks ignore the clause.
func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), id)
}

func (r *repo) find(db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.Where("id = ?", id).Limit(1).Find(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter subscriptiondomain.ListFilter) ([]subscriptiondomain.SubscriptionRow, error) {
	query := `SELECT ` + subscriptionColumns + `,
		 o.name AS organization_name, o.slug AS organization_slug, o.type AS organization_type,
		 ch.health_score, ch.health_status, ch.risk_flags
		 FROM subscriptions s
		 JOIN organizations o ON o.id = s.org_id
		 LEFT JOIN customer_health ch ON ch.org_id = s.org_id
		 WHERE 1 = 1`
	args := []any{}
	if filter.Status != nil {
		query += ` AND s.status = ?`
		args = append(args, *filter.Status)
	}
	if filter.Plan != nil {
		query += ` AND s.plan = ?`
		args = append(args, *filter.Plan)
	}
	query += ` ORDER BY s.created_at DESC, s.id DESC`

	var rows []subscriptiondomain.SubscriptionRow
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListDueForExpiry(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM subscriptions
		 WHERE cancel_at_period_end = ? AND status <> ? AND current_period_end <= ?
		 ORDER BY current_period_end ASC, id ASC
		 LIMIT ?`,
		true,
		subscriptiondomain.SubscriptionStatusCancelled,
		now,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, history *subscriptiondomain.SubscriptionHistory) error {
	return db.WithContext(ctx).Create(history).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]subscriptiondomain.SubscriptionHistory, error) {
	var history []subscriptiondomain.SubscriptionHistory
	err := db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC, id ASC").
		Find(&history).Error
	if err != nil {
		return nil, err
	}
	return history, nil
}
