package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/schoolgle/schoolgle/internal/auditcontext"
	"github.com/schoolgle/schoolgle/internal/clock"
	healthdomain "github.com/schoolgle/schoolgle/internal/health/domain"
	invoicedomain "github.com/schoolgle/schoolgle/internal/invoice/domain"
	obsmetrics "github.com/schoolgle/schoolgle/internal/observability/metrics"
	orgdomain "github.com/schoolgle/schoolgle/internal/organization/domain"
	subscriptiondomain "github.com/schoolgle/schoolgle/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const systemActor = "system"

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       subscriptiondomain.Repository
	Orgs       orgdomain.Repository
	InvoiceSvc invoicedomain.Service
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       subscriptiondomain.Repository
	orgs       orgdomain.Repository
	invoiceSvc invoicedomain.Service
	metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("subscription.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		orgs:       p.Orgs,
		invoiceSvc: p.InvoiceSvc,
		metrics:    p.Metrics,
	}
}

// List filters status and plan in SQL. The health filter is applied to the
// joined rows afterwards, and the summary covers only the returned rows.
func (s *Service) List(ctx context.Context, req subscriptiondomain.ListSubscriptionRequest) (subscriptiondomain.ListSubscriptionResponse, error) {
	var filter subscriptiondomain.ListFilter
	if v := normalize(req.Status); v != "" {
		status := subscriptiondomain.SubscriptionStatus(v)
		if !status.Valid() {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidStatus
		}
		filter.Status = &status
	}
	if v := normalize(req.Plan); v != "" {
		plan := subscriptiondomain.Plan(v)
		if !plan.Valid() {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidPlan
		}
		filter.Plan = &plan
	}
	var healthFilter *healthdomain.Status
	if v := normalize(req.Health); v != "" {
		status := healthdomain.Status(v)
		if !status.Valid() {
			return subscriptiondomain.ListSubscriptionResponse{}, subscriptiondomain.ErrInvalidHealthStatus
		}
		healthFilter = &status
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return subscriptiondomain.ListSubscriptionResponse{}, err
	}

	views := make([]subscriptiondomain.SubscriptionView, 0, len(rows))
	for _, row := range rows {
		view := toView(row)
		if healthFilter != nil && (view.CustomerHealth == nil || view.CustomerHealth.HealthStatus != *healthFilter) {
			continue
		}
		views = append(views, view)
	}

	return subscriptiondomain.ListSubscriptionResponse{
		Data:    views,
		Summary: summarize(views),
	}, nil
}

func toView(row subscriptiondomain.SubscriptionRow) subscriptiondomain.SubscriptionView {
	view := subscriptiondomain.SubscriptionView{
		Subscription: row.Subscription,
		Organization: subscriptiondomain.OrganizationSummary{
			ID:   row.OrgID,
			Name: row.OrganizationName,
			Slug: row.OrganizationSlug,
			Type: row.OrganizationType,
		},
	}
	if row.HealthStatus != nil && row.HealthScore != nil {
		flags := row.RiskFlags
		if flags == nil {
			flags = healthdomain.RiskFlags{}
		}
		view.CustomerHealth = &subscriptiondomain.HealthSummary{
			HealthScore:  *row.HealthScore,
			HealthStatus: healthdomain.Status(*row.HealthStatus),
			RiskFlags:    flags,
		}
	}
	return view
}

func summarize(views []subscriptiondomain.SubscriptionView) subscriptiondomain.Summary {
	summary := subscriptiondomain.Summary{
		Total: len(views),
		ByStatus: map[subscriptiondomain.SubscriptionStatus]int{
			subscriptiondomain.SubscriptionStatusActive:    0,
			subscriptiondomain.SubscriptionStatusPastDue:   0,
			subscriptiondomain.SubscriptionStatusCancelled: 0,
		},
	}
	for _, v := range views {
		summary.ByStatus[v.Status]++
		if v.Status == subscriptiondomain.SubscriptionStatusActive {
			summary.ARR += v.FinalPriceAnnual
		}
		if v.CustomerHealth != nil && v.CustomerHealth.HealthStatus.NeedsAttention() {
			summary.AtRisk++
		}
	}
	summary.MRR = subscriptiondomain.MonthlyRecurring(summary.ARR)
	return summary
}

func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.CreateSubscriptionResponse, error) {
	orgID, err := parseID(req.OrganizationID, subscriptiondomain.ErrInvalidOrganization)
	if err != nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, err
	}
	if err := validateCreate(&req); err != nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, err
	}

	org, err := s.orgs.FindByID(ctx, s.db, orgID)
	if err != nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, err
	}
	if org == nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, subscriptiondomain.ErrInvalidOrganization
	}

	now := s.clock.Now().UTC()
	sub := subscriptiondomain.Subscription{
		ID:                   s.genID.Generate(),
		OrgID:                orgID,
		Plan:                 req.Plan,
		Status:               subscriptiondomain.SubscriptionStatusActive,
		PaymentMethod:        req.PaymentMethod,
		BasePriceAnnual:      req.BasePriceAnnual,
		DiscountPercent:      req.DiscountPercent,
		FinalPriceAnnual:     subscriptiondomain.FinalPrice(req.BasePriceAnnual, req.SchoolCount, req.DiscountPercent),
		SchoolCount:          req.SchoolCount,
		CurrentPeriodStart:   now,
		CurrentPeriodEnd:     now.AddDate(1, 0, 0),
		ContractSignedBy:     optionalString(req.ContractSignedBy),
		StripeCustomerID:     optionalString(req.StripeCustomerID),
		StripeSubscriptionID: optionalString(req.StripeSubscriptionID),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if sub.ContractSignedBy != nil {
		sub.ContractSignedAt = &now
	}

	var invoice *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &sub); err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}

		plan := sub.Plan
		price := sub.FinalPriceAnnual
		if err := s.appendHistory(ctx, tx, &sub, subscriptiondomain.ChangeTypeCreated, nil, &plan, nil, &price, nil, datatypes.JSONMap{
			"payment_method": string(sub.PaymentMethod),
			"school_count":   sub.SchoolCount,
		}); err != nil {
			return err
		}

		if sub.PaymentMethod == subscriptiondomain.PaymentMethodInvoice {
			created, err := s.invoiceSvc.CreateForSubscription(ctx, tx, invoicedomain.IssueRequest{
				OrgID:          sub.OrgID,
				SubscriptionID: sub.ID,
				Plan:           string(sub.Plan),
				SchoolCount:    sub.SchoolCount,
				AmountExVAT:    sub.FinalPriceAnnual,
				PeriodStart:    sub.CurrentPeriodStart,
				PeriodEnd:      sub.CurrentPeriodEnd,
			})
			if err != nil {
				return fmt.Errorf("create invoice: %w", err)
			}
			invoice = created
		}
		return nil
	})
	if err != nil {
		return subscriptiondomain.CreateSubscriptionResponse{}, err
	}

	s.metrics.RecordSubscriptionChange(ctx, string(subscriptiondomain.ChangeTypeCreated), string(sub.Plan))
	s.log.Info("subscription created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("org_id", sub.OrgID.String()),
		zap.String("plan", string(sub.Plan)),
		zap.Int64("final_price_annual", sub.FinalPriceAnnual),
	)
	return subscriptiondomain.CreateSubscriptionResponse{Subscription: sub, Invoice: invoice}, nil
}

func validateCreate(req *subscriptiondomain.CreateSubscriptionRequest) error {
	req.Plan = subscriptiondomain.Plan(normalize(string(req.Plan)))
	if !req.Plan.Valid() {
		return subscriptiondomain.ErrInvalidPlan
	}
	req.PaymentMethod = subscriptiondomain.PaymentMethod(normalize(string(req.PaymentMethod)))
	if !req.PaymentMethod.Valid() {
		return subscriptiondomain.ErrInvalidPaymentMethod
	}
	if req.BasePriceAnnual < 0 {
		return subscriptiondomain.ErrInvalidBasePrice
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return subscriptiondomain.ErrInvalidDiscount
	}
	if req.SchoolCount == 0 {
		req.SchoolCount = 1
	}
	if req.SchoolCount < 1 {
		return subscriptiondomain.ErrInvalidSchoolCount
	}
	return nil
}

// Update applies one admin action under a row lock and appends exactly one
// history row in the same transaction.
func (s *Service) Update(ctx context.Context, req subscriptiondomain.UpdateSubscriptionRequest) (subscriptiondomain.Subscription, error) {
	action := subscriptiondomain.Action(normalize(string(req.Action)))
	if !action.Valid() {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidAction
	}
	subscriptionID, err := parseID(req.SubscriptionID, subscriptiondomain.ErrInvalidSubscription)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	newPlan := subscriptiondomain.Plan(normalize(string(req.NewPlan)))
	if action.RequiresPlan() {
		if newPlan == "" {
			return subscriptiondomain.Subscription{}, subscriptiondomain.ErrNewPlanRequired
		}
		if !newPlan.Valid() {
			return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidPlan
		}
	}
	reason := optionalString(req.Reason)

	var updated subscriptiondomain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.repo.FindByIDForUpdate(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}

		now := s.clock.Now().UTC()
		var (
			changeType           subscriptiondomain.ChangeType
			prevPlan, nextPlan   *subscriptiondomain.Plan
			prevPrice, nextPrice *int64
			historyReason        *string
		)

		switch action {
		case subscriptiondomain.ActionCancel:
			sub.CancelAtPeriodEnd = true
			sub.CancelledAt = &now
			changeType = subscriptiondomain.ChangeTypeCancelled
			historyReason = reason
		case subscriptiondomain.ActionReactivate:
			sub.CancelAtPeriodEnd = false
			sub.CancelledAt = nil
			changeType = subscriptiondomain.ChangeTypeReactivated
		case subscriptiondomain.ActionUpgrade, subscriptiondomain.ActionDowngrade:
			before, beforePrice := sub.Plan, sub.FinalPriceAnnual
			base, _ := newPlan.Price()
			sub.Plan = newPlan
			sub.BasePriceAnnual = base
			sub.FinalPriceAnnual = subscriptiondomain.FinalPrice(base, sub.SchoolCount, sub.DiscountPercent)
			after, afterPrice := sub.Plan, sub.FinalPriceAnnual
			prevPlan, nextPlan = &before, &after
			prevPrice, nextPrice = &beforePrice, &afterPrice
			changeType = subscriptiondomain.ChangeTypeUpgraded
			if action == subscriptiondomain.ActionDowngrade {
				changeType = subscriptiondomain.ChangeTypeDowngraded
			}
			historyReason = reason
		case subscriptiondomain.ActionMarkPastDue:
			sub.Status = subscriptiondomain.SubscriptionStatusPastDue
			changeType = subscriptiondomain.ChangeTypePaymentFailed
		case subscriptiondomain.ActionMarkActive:
			sub.Status = subscriptiondomain.SubscriptionStatusActive
			changeType = subscriptiondomain.ChangeTypePaymentReceived
		}
		sub.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}
		if err := s.appendHistory(ctx, tx, sub, changeType, prevPlan, nextPlan, prevPrice, nextPrice, historyReason, datatypes.JSONMap{
			"action": string(action),
		}); err != nil {
			return err
		}
		updated = *sub
		return nil
	})
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	s.metrics.RecordSubscriptionChange(ctx, string(action), string(updated.Plan))
	s.log.Info("subscription updated",
		zap.String("subscription_id", updated.ID.String()),
		zap.String("action", string(action)),
		zap.String("status", string(updated.Status)),
		zap.String("plan", string(updated.Plan)),
	)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (subscriptiondomain.Subscription, error) {
	subscriptionID, err := parseID(id, subscriptiondomain.ErrInvalidSubscription)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	sub, err := s.repo.FindByID(ctx, s.db, subscriptionID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if sub == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *sub, nil
}

func (s *Service) History(ctx context.Context, id string) ([]subscriptiondomain.SubscriptionHistory, error) {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, s.db, sub.ID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []subscriptiondomain.SubscriptionHistory{}
	}
	return history, nil
}

func (s *Service) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	now = now.UTC()
	ids, err := s.repo.ListDueForExpiry(ctx, s.db, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		ok, err := s.expireOne(ctx, id, now)
		if err != nil {
			s.log.Warn("expire subscription failed", zap.String("subscription_id", id.String()), zap.Error(err))
			continue
		}
		if ok {
			expired++
		}
	}
	if expired > 0 {
		s.log.Info("subscriptions expired", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *Service) expireOne(ctx context.Context, id snowflake.ID, now time.Time) (bool, error) {
	expired := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil || sub == nil {
			return err
		}
		// re-check under the lock; a reactivation may have raced the scan
		if !sub.CancelAtPeriodEnd || sub.Status == subscriptiondomain.SubscriptionStatusCancelled || sub.CurrentPeriodEnd.After(now) {
			return nil
		}
		sub.Status = subscriptiondomain.SubscriptionStatusCancelled
		sub.UpdatedAt = now
		if sub.CancelledAt == nil {
			sub.CancelledAt = &now
		}
		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, sub, subscriptiondomain.ChangeTypeExpired, nil, nil, nil, nil, nil, datatypes.JSONMap{
			"period_end": sub.CurrentPeriodEnd.Format(time.RFC3339),
		}); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err == nil && expired {
		s.metrics.RecordSubscriptionChange(ctx, string(subscriptiondomain.ChangeTypeExpired), "")
	}
	return expired, err
}

func (s *Service) appendHistory(
	ctx context.Context,
	tx *gorm.DB,
	sub *subscriptiondomain.Subscription,
	changeType subscriptiondomain.ChangeType,
	prevPlan, newPlan *subscriptiondomain.Plan,
	prevPrice, newPrice *int64,
	reason *string,
	metadata datatypes.JSONMap,
) error {
	performedBy := performedBy(ctx)
	history := &subscriptiondomain.SubscriptionHistory{
		ID:             s.genID.Generate(),
		SubscriptionID: sub.ID,
		OrgID:          sub.OrgID,
		ChangeType:     changeType,
		PreviousPlan:   prevPlan,
		NewPlan:        newPlan,
		PreviousPrice:  prevPrice,
		NewPrice:       newPrice,
		Reason:         reason,
		PerformedBy:    &performedBy,
		Metadata:       metadata,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.repo.InsertHistory(ctx, tx, history); err != nil {
		return fmt.Errorf("insert subscription history: %w", err)
	}
	return nil
}

func performedBy(ctx context.Context) string {
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	switch {
	case actorType != "" && actorID != "":
		return actorType + ":" + actorID
	case actorType != "":
		return actorType
	default:
		return systemActor
	}
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
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
