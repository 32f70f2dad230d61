// Package domain contains persistence models for school subscriptions and
// their change history.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Plan string

const (
	PlanCore         Plan = "core"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// PlanPrices are list prices per school per year, in whole pounds.
var PlanPrices = map[Plan]int64{
	PlanCore:         799,
	PlanProfessional: 1499,
	PlanEnterprise:   3999,
}

func (p Plan) Valid() bool {
	_, ok := PlanPrices[p]
	return ok
}

// Price returns the annual list price for p.
func (p Plan) Price() (int64, bool) {
	price, ok := PlanPrices[p]
	return price, ok
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPastDue, SubscriptionStatusCancelled:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodInvoice     PaymentMethod = "invoice"
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodDirectDebit PaymentMethod = "direct_debit"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodInvoice, PaymentMethodCard, PaymentMethodDirectDebit:
		return true
	default:
		return false
	}
}

// Subscription is an organization's annual contract. Prices are whole pounds
// per year; FinalPriceAnnual is derived from the other price fields.
type Subscription struct {
	ID                   snowflake.ID       `gorm:"primaryKey" json:"id"`
	OrgID                snowflake.ID       `gorm:"not null;index" json:"organization_id"`
	Plan                 Plan               `gorm:"type:text;not null" json:"plan"`
	Status               SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	PaymentMethod        PaymentMethod      `gorm:"type:text;not null" json:"payment_method"`
	BasePriceAnnual      int64              `gorm:"not null" json:"base_price_annual"`
	DiscountPercent      float64            `gorm:"not null;default:0" json:"discount_percent"`
	FinalPriceAnnual     int64              `gorm:"not null" json:"final_price_annual"`
	SchoolCount          int                `gorm:"not null;default:1" json:"school_count"`
	CurrentPeriodStart   time.Time          `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd     time.Time          `gorm:"not null" json:"current_period_end"`
	CancelAtPeriodEnd    bool               `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CancelledAt          *time.Time         `json:"cancelled_at"`
	ContractSignedAt     *time.Time         `json:"contract_signed_at"`
	ContractSignedBy     *string            `gorm:"type:text" json:"contract_signed_by"`
	StripeCustomerID     *string            `gorm:"type:text" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `gorm:"type:text" json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time          `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

type ChangeType string

const (
	ChangeTypeCreated         ChangeType = "created"
	ChangeTypeCancelled       ChangeType = "cancelled"
	ChangeTypeReactivated     ChangeType = "reactivated"
	ChangeTypeUpgraded        ChangeType = "upgraded"
	ChangeTypeDowngraded      ChangeType = "downgraded"
	ChangeTypePaymentFailed   ChangeType = "payment_failed"
	ChangeTypePaymentReceived ChangeType = "payment_received"
	ChangeTypeExpired         ChangeType = "expired"
)

// SubscriptionHistory is append-only.
type SubscriptionHistory struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	SubscriptionID snowflake.ID      `gorm:"not null;index" json:"subscription_id"`
	OrgID          snowflake.ID      `gorm:"not null" json:"organization_id"`
	ChangeType     ChangeType        `gorm:"type:text;not null" json:"change_type"`
	PreviousPlan   *Plan             `gorm:"type:text" json:"previous_plan,omitempty"`
	NewPlan        *Plan             `gorm:"type:text" json:"new_plan,omitempty"`
	PreviousPrice  *int64            `json:"previous_price,omitempty"`
	NewPrice       *int64            `json:"new_price,omitempty"`
	Reason         *string           `gorm:"type:text" json:"reason,omitempty"`
	PerformedBy    *string           `gorm:"type:text" json:"performed_by,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null" json:"created_at"`
}

func (SubscriptionHistory) TableName() string { return "subscription_history" }
