package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	healthdomain "github.com/schoolgle/schoolgle/internal/health/domain"
	invoicedomain "github.com/schoolgle/schoolgle/internal/invoice/domain"
	"gorm.io/gorm"
)

// Action is a closed set of admin mutations on a subscription.
type Action string

const (
	ActionCancel      Action = "cancel"
	ActionReactivate  Action = "reactivate"
	ActionUpgrade     Action = "upgrade"
	ActionDowngrade   Action = "downgrade"
	ActionMarkPastDue Action = "mark_past_due"
	ActionMarkActive  Action = "mark_active"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCancel, ActionReactivate, ActionUpgrade, ActionDowngrade, ActionMarkPastDue, ActionMarkActive:
		return true
	default:
		return false
	}
}

// RequiresPlan reports whether the action needs NewPlan.
func (a Action) RequiresPlan() bool {
	return a == ActionUpgrade || a == ActionDowngrade
}

type ListSubscriptionRequest struct {
	Status string
	Plan   string
	Health string
}

type OrganizationSummary struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
	Slug string       `json:"slug"`
	Type string       `json:"type"`
}

type HealthSummary struct {
	HealthScore  int                    `json:"health_score"`
	HealthStatus healthdomain.Status    `json:"health_status"`
	RiskFlags    healthdomain.RiskFlags `json:"risk_flags"`
}

type SubscriptionView struct {
	Subscription
	Organization   OrganizationSummary `json:"organization"`
	CustomerHealth *HealthSummary      `json:"customer_health"`
}

type Summary struct {
	Total    int                        `json:"total"`
	ByStatus map[SubscriptionStatus]int `json:"by_status"`
	MRR      int64                      `json:"mrr"`
	ARR      int64                      `json:"arr"`
	AtRisk   int                        `json:"at_risk"`
}

type ListSubscriptionResponse struct {
	Data    []SubscriptionView `json:"data"`
	Summary Summary            `json:"summary"`
}

type CreateSubscriptionRequest struct {
	OrganizationID       string        `json:"organizationId"`
	Plan                 Plan          `json:"plan"`
	PaymentMethod        PaymentMethod `json:"paymentMethod"`
	BasePriceAnnual      int64         `json:"basePriceAnnual"`
	DiscountPercent      float64       `json:"discountPercent"`
	SchoolCount          int           `json:"schoolCount"`
	ContractSignedBy     string        `json:"contractSignedBy"`
	StripeCustomerID     string        `json:"stripeCustomerId"`
	StripeSubscriptionID string        `json:"stripeSubscriptionId"`
}

type CreateSubscriptionResponse struct {
	Subscription
	Invoice *invoicedomain.Invoice `json:"invoice,omitempty"`
}

type UpdateSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	Action         Action `json:"action"`
	NewPlan        Plan   `json:"newPlan"`
	Reason         string `json:"reason"`
}

// ListFilter is applied in SQL.
type ListFilter struct {
	Status *SubscriptionStatus
	Plan   *Plan
}

// SubscriptionRow is the flat result of the organization and health join.
type SubscriptionRow struct {
	Subscription
	OrganizationName string
	OrganizationSlug string
	OrganizationType string
	HealthScore      *int
	HealthStatus     *string
	RiskFlags        healthdomain.RiskFlags
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]SubscriptionRow, error)
	ListDueForExpiry(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error)
	InsertHistory(ctx context.Context, db *gorm.DB, history *SubscriptionHistory) error
	ListHistory(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]SubscriptionHistory, error)
}

type Service interface {
	List(ctx context.Context, req ListSubscriptionRequest) (ListSubscriptionResponse, error)
	Create(ctx context.Context, req CreateSubscriptionRequest) (CreateSubscriptionResponse, error)
	Update(ctx context.Context, req UpdateSubscriptionRequest) (Subscription, error)
	GetByID(ctx context.Context, id string) (Subscription, error)
	History(ctx context.Context, id string) ([]SubscriptionHistory, error)
	// ExpireDue cancels subscriptions flagged cancel_at_period_end whose
	// period ended at or before now. It returns how many were expired.
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrInvalidPlan          = errors.New("invalid_plan")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidHealthStatus  = errors.New("invalid_health_status")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrInvalidBasePrice     = errors.New("invalid_base_price")
	ErrInvalidDiscount      = errors.New("invalid_discount_percent")
	ErrInvalidSchoolCount   = errors.New("invalid_school_count")
	ErrInvalidAction        = errors.New("invalid_action")
	ErrNewPlanRequired      = errors.New("new_plan_required")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)
