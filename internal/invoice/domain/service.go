package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// IssueRequest describes the invoice raised when a subscription is created
// with payment method "invoice".
type IssueRequest struct {
	OrgID          snowflake.ID
	SubscriptionID snowflake.ID
	Plan           string
	SchoolCount    int
	AmountExVAT    int64
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

type RenderedPDF struct {
	Filename string
	Content  []byte
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	ListBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]Invoice, error)
	NextSequence(ctx context.Context, db *gorm.DB, year int, at time.Time) (int64, error)
}

type Service interface {
	// CreateForSubscription runs inside the caller's transaction.
	CreateForSubscription(ctx context.Context, tx *gorm.DB, req IssueRequest) (*Invoice, error)
	// NextNumber must be called with a transaction handle.
	NextNumber(ctx context.Context, db *gorm.DB, at time.Time) string
	GetByID(ctx context.Context, id string) (*Invoice, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]Invoice, error)
	RenderPDF(ctx context.Context, id string) (*RenderedPDF, error)
}

var (
	ErrInvalidInvoiceID    = errors.New("invalid_invoice_id")
	ErrInvalidSubscription = errors.New("invalid_subscription")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvoiceNotFound     = errors.New("invoice_not_found")
)
