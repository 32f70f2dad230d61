// Package domain contains persistence models for invoices issued to
// organizations paying by invoice.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type InvoiceStatus string

const (
	InvoiceStatusSent InvoiceStatus = "sent"
	InvoiceStatusPaid InvoiceStatus = "paid"
	InvoiceStatusVoid InvoiceStatus = "void"
)

// Invoice amounts are whole pounds.
type Invoice struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID  `gorm:"not null;index" json:"organization_id"`
	SubscriptionID snowflake.ID  `gorm:"not null;index" json:"subscription_id"`
	InvoiceNumber  string        `gorm:"type:text;not null;uniqueIndex:ux_invoices_number" json:"invoice_number"`
	AmountExVAT    int64         `gorm:"column:amount_ex_vat;not null" json:"amount_ex_vat"`
	VATAmount      int64         `gorm:"column:vat_amount;not null" json:"vat_amount"`
	TotalAmount    int64         `gorm:"not null" json:"total_amount"`
	Currency       string        `gorm:"type:text;not null" json:"currency"`
	Status         InvoiceStatus `gorm:"type:text;not null" json:"status"`
	IssuedAt       time.Time     `gorm:"not null" json:"issued_at"`
	DueDate        time.Time     `gorm:"not null" json:"due_date"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceSequence holds the last number issued in a calendar year.
type InvoiceSequence struct {
	Year      int       `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }
