package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/schoolgle/schoolgle/internal/clock"
	"github.com/schoolgle/schoolgle/internal/config"
	invoicedomain "github.com/schoolgle/schoolgle/internal/invoice/domain"
	"github.com/schoolgle/schoolgle/internal/invoice/format"
	obsmetrics "github.com/schoolgle/schoolgle/internal/observability/metrics"
	orgdomain "github.com/schoolgle/schoolgle/internal/organization/domain"
	"github.com/schoolgle/schoolgle/internal/providers/pdf"
	"github.com/schoolgle/schoolgle/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sequenceSavepoint = "invoice_sequence"

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Repo    invoicedomain.Repository
	Orgs    orgdomain.Repository
	PDF     pdf.Provider
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	cfg     config.InvoiceConfig
	repo    invoicedomain.Repository
	orgs    orgdomain.Repository
	pdf     pdf.Provider
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("invoice.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		cfg:     p.Config.Invoice,
		repo:    p.Repo,
		orgs:    p.Orgs,
		pdf:     p.PDF,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateForSubscription(ctx context.Context, tx *gorm.DB, req invoicedomain.IssueRequest) (*invoicedomain.Invoice, error) {
	if req.SubscriptionID == 0 || req.OrgID == 0 {
		return nil, invoicedomain.ErrInvalidSubscription
	}
	if req.AmountExVAT < 0 {
		return nil, invoicedomain.ErrInvalidAmount
	}

	now := s.clock.Now().UTC()
	vat := money.Percent(req.AmountExVAT, s.cfg.VATPercent)
	invoice := &invoicedomain.Invoice{
		ID:             s.genID.Generate(),
		OrgID:          req.OrgID,
		SubscriptionID: req.SubscriptionID,
		InvoiceNumber:  s.NextNumber(ctx, tx, now),
		AmountExVAT:    req.AmountExVAT,
		VATAmount:      vat,
		TotalAmount:    req.AmountExVAT + vat,
		Currency:       s.currency(),
		Status:         invoicedomain.InvoiceStatusSent,
		IssuedAt:       now,
		DueDate:        now.AddDate(0, 0, s.dueDays()),
		CreatedAt:      now,
	}
	if err := s.repo.Insert(ctx, tx, invoice); err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}

	s.metrics.RecordInvoiceIssued(ctx, req.Plan)
	s.log.Info("invoice issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("subscription_id", req.SubscriptionID.String()),
		zap.Int64("total_amount", invoice.TotalAmount),
	)
	return invoice, nil
}

// NextNumber draws the next yearly sequence value. The increment runs under a
// savepoint so a failure leaves db's transaction usable; in that case a
// ULID-based number is returned instead.
func (s *Service) NextNumber(ctx context.Context, db *gorm.DB, at time.Time) string {
	prefix := s.prefix()
	number, err := s.sequenceNumber(ctx, db, prefix, at)
	if err == nil {
		return number
	}

	fallback := format.FallbackInvoiceNumber(prefix, ulid.MustNew(ulid.Timestamp(at), rand.Reader).String())
	s.log.Warn("invoice sequence unavailable, using fallback number",
		zap.String("invoice_number", fallback),
		zap.Error(err),
	)
	return fallback
}

func (s *Service) sequenceNumber(ctx context.Context, db *gorm.DB, prefix string, at time.Time) (string, error) {
	if err := db.SavePoint(sequenceSavepoint).Error; err != nil {
		return "", err
	}
	seq, err := s.repo.NextSequence(ctx, db, at.Year(), at)
	if err != nil {
		if rbErr := db.RollbackTo(sequenceSavepoint).Error; rbErr != nil {
			s.log.Warn("rollback to savepoint failed", zap.Error(rbErr))
		}
		return "", err
	}
	return format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, prefix, at, seq)
}

func (s *Service) GetByID(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id, invoicedomain.ErrInvalidInvoiceID)
	if err != nil {
		return nil, err
	}
	invoice, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *Service) ListBySubscription(ctx context.Context, subscriptionID string) ([]invoicedomain.Invoice, error) {
	id, err := parseID(subscriptionID, invoicedomain.ErrInvalidSubscription)
	if err != nil {
		return nil, err
	}
	invoices, err := s.repo.ListBySubscription(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoices == nil {
		invoices = []invoicedomain.Invoice{}
	}
	return invoices, nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) (*invoicedomain.RenderedPDF, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.FindByID(ctx, s.db, invoice.OrgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, orgdomain.ErrNotFound
	}

	content, err := s.pdf.RenderInvoice(ctx, s.buildInvoiceData(invoice, org))
	if err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return &invoicedomain.RenderedPDF{
		Filename: slug.Make(org.Name+" "+invoice.InvoiceNumber) + ".pdf",
		Content:  content,
	}, nil
}

func (s *Service) buildInvoiceData(invoice *invoicedomain.Invoice, org *orgdomain.Organization) pdf.InvoiceData {
	const dateLayout = "02 Jan 2006"
	periodEnd := invoice.IssuedAt.AddDate(1, 0, 0)
	return pdf.InvoiceData{
		SellerName:    s.cfg.SellerName,
		SellerAddress: s.cfg.SellerAddress,
		SellerVATNo:   s.cfg.SellerVATNo,
		InvoiceNumber: invoice.InvoiceNumber,
		IssueDate:     invoice.IssuedAt.Format(dateLayout),
		DueDate:       invoice.DueDate.Format(dateLayout),
		ServicePeriod: invoice.IssuedAt.Format(dateLayout) + " to " + periodEnd.Format(dateLayout),
		BillToName:    org.Name,
		BillToType:    strings.ReplaceAll(string(org.Type), "_", " "),
		Items: []pdf.InvoiceItem{{
			Description: "Schoolgle annual subscription",
			Qty:         "1",
			UnitPrice:   money.Format(invoice.AmountExVAT, invoice.Currency),
			Amount:      money.Format(invoice.AmountExVAT, invoice.Currency),
		}},
		Subtotal:   money.Format(invoice.AmountExVAT, invoice.Currency),
		VATLabel:   fmt.Sprintf("VAT %g%%", s.cfg.VATPercent),
		VATAmount:  money.Format(invoice.VATAmount, invoice.Currency),
		Total:      money.Format(invoice.TotalAmount, invoice.Currency),
		PaymentRef: invoice.InvoiceNumber,
	}
}

func (s *Service) prefix() string {
	if p := strings.TrimSpace(s.cfg.Prefix); p != "" {
		return p
	}
	return "SCH"
}

func (s *Service) currency() string {
	if c := strings.TrimSpace(s.cfg.Currency); c != "" {
		return c
	}
	return "GBP"
}

func (s *Service) dueDays() int {
	if s.cfg.DueDays > 0 {
		return s.cfg.DueDays
	}
	return 30
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, invalidErr
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return 0, invalidErr
	}
	return id, nil
}
