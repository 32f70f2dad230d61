package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/schoolgle/schoolgle/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, org_id, subscription_id, invoice_number, amount_ex_vat, vat_amount,
			total_amount, currency, status, issued_at, due_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.OrgID,
		invoice.SubscriptionID,
		invoice.InvoiceNumber,
		invoice.AmountExVAT,
		invoice.VATAmount,
		invoice.TotalAmount,
		invoice.Currency,
		invoice.Status,
		invoice.IssuedAt,
		invoice.DueDate,
		invoice.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, subscription_id, invoice_number, amount_ex_vat, vat_amount,
		 total_amount, currency, status, issued_at, due_date, created_at
		 FROM invoices WHERE id = ?`,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) ListBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, subscription_id, invoice_number, amount_ex_vat, vat_amount,
		 total_amount, currency, status, issued_at, due_date, created_at
		 FROM invoices WHERE subscription_id = ?
		 ORDER BY issued_at DESC, id DESC`,
		subscriptionID,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// NextSequence increments the counter for year and returns the new value.
func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, year int, at time.Time) (int64, error) {
	var next int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO invoice_sequences (year, last_value, updated_at)
		 VALUES (?, 1, ?)
		 ON CONFLICT (year) DO UPDATE
		 SET last_value = invoice_sequences.last_value + 1, updated_at = excluded.updated_at
		 RETURNING last_value`,
		year,
		at,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}
