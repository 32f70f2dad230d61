package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/schoolgle/schoolgle/internal/auditcontext"
	"github.com/schoolgle/schoolgle/internal/clock"
	"github.com/schoolgle/schoolgle/internal/config"
	healthdomain "github.com/schoolgle/schoolgle/internal/health/domain"
	invoicedomain "github.com/schoolgle/schoolgle/internal/invoice/domain"
	invoicerepo "github.com/schoolgle/schoolgle/internal/invoice/repository"
	invoicesvc "github.com/schoolgle/schoolgle/internal/invoice/service"
	orgdomain "github.com/schoolgle/schoolgle/internal/organization/domain"
	orgrepo "github.com/schoolgle/schoolgle/internal/organization/repository"
	"github.com/schoolgle/schoolgle/internal/providers/pdf"
	subscriptiondomain "github.com/schoolgle/schoolgle/internal/subscription/domain"
	"github.com/schoolgle/schoolgle/internal/subscription/repository"
	"github.com/schoolgle/schoolgle/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var startedAt = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t,
		&orgdomain.Organization{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.SubscriptionHistory{},
		&healthdomain.CustomerHealth{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceSequence{},
	)
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	fc := clock.NewFakeClock(startedAt)

	invoices := invoicesvc.NewService(invoicesvc.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Config: config.Config{Invoice: config.InvoiceConfig{
			VATPercent: 20, DueDays: 30, Currency: "GBP", Prefix: "SCH",
		}},
		Repo: invoicerepo.Provide(),
		Orgs: orgrepo.Provide(),
		PDF:  pdf.New(),
	})

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fc,
		Repo:       repository.Provide(),
		Orgs:       orgrepo.Provide(),
		InvoiceSvc: invoices,
	}).(*Service)
	return &fixture{svc: svc, db: db, node: node, clock: fc}
}

func (f *fixture) org(t *testing.T, name string) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&orgdomain.Organization{
		ID: id, Name: name, Slug: strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Type: orgdomain.OrganizationTypeSchool, CreatedAt: startedAt, UpdatedAt: startedAt,
	}).Error)
	return id
}

func (f *fixture) create(t *testing.T, req subscriptiondomain.CreateSubscriptionRequest) subscriptiondomain.CreateSubscriptionResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func (f *fixture) historyCount(t *testing.T, subscriptionID snowflake.ID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&subscriptiondomain.SubscriptionHistory{}).Where("subscription_id = ?", subscriptionID).Count(&n).Error)
	return n
}

func TestCreateAppliesSchoolCountAndDiscount(t *testing.T) {
	f := setup(t)
	orgID := f.org(t, "Oakfield Trust")

	resp := f.create(t, subscriptiondomain.CreateSubscriptionRequest{
		OrganizationID:  orgID.String(),
		Plan:            subscriptiondomain.PlanProfessional,
		PaymentMethod:   subscriptiondomain.PaymentMethodCard,
		BasePriceAnnual: 1499,
		DiscountPercent: 10,
		SchoolCount:     3,
	})

	assert.Equal(t, int64(4047), resp.FinalPriceAnnual)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusActive, resp.Status)
	assert.True(t, resp.CurrentPeriodStart.Equal(startedAt))
	assert.True(t, resp.CurrentPeriodEnd.Equal(startedAt.AddDate(1, 0, 0)))
	assert.False(t, resp.CancelAtPeriodEnd)
	assert.Nil(t, resp.Invoice)

	history, err := f.svc.History(context.Background(), resp.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, subscriptiondomain.ChangeTypeCreated, history[0].ChangeType)
	require.NotNil(t, history[0].NewPlan)
	assert.Equal(t, subscriptiondomain.PlanProfessional, *history[0].NewPlan)
	require.NotNil(t, history[0].NewPrice)
	assert.Equal(t, int64(4047), *history[0].NewPrice)
	require.NotNil(t, history[0].PerformedBy)
	assert.Equal(t, "system", *history[0].PerformedBy)
}

func TestCreateDefaultsSchoolCountAndRecordsActor(t *testing.T) {
	f := setup(t)
	orgID := f.org(t, "Riverside Primary")
	ctx := auditcontext.WithActor(context.Background(), "api_key", "sgk_ops")

	resp, err := f.svc.Create(ctx, subscriptiondomain.CreateSubscriptionRequest{
		OrganizationID:  orgID.String(),
		Plan:            "Core",
		PaymentMethod:   subscriptiondomain.PaymentMethodDirectDebit,
		BasePriceAnnual: 799,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.SchoolCount)
	assert.Equal(t, int64(799), resp.FinalPriceAnnual)
	assert.Equal(t, subscriptiondomain.PlanCore, resp.Plan)

	history, err := f.svc.History(ctx, resp.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "api_key:sgk_ops", *history[0].PerformedBy)
}

func TestCreateIssuesInvoiceForInvoicePaymentMethod(t *testing.T) {
	f := setup(t)
	orgID := f.org(t, "Hillcrest Academy")

	resp := f.create(t, subscriptiondomain.CreateSubscriptionRequest{
		OrganizationID:  orgID.String(),
		Plan:            subscriptiondomain.PlanProfessional,
		PaymentMethod:   subscriptiondomain.PaymentMethodInvoice,
		BasePriceAnnual: 1499,
		DiscountPercent: 10,
		SchoolCount:     3,
	})
	require.NotNil(t, resp.Invoice)
	assert.Equal(t, "SCH-2026-00001", resp.Invoice.InvoiceNumber)
	assert.Equal(t, resp.ID, resp.Invoice.SubscriptionID)
	assert.Equal(t, int64(4047), resp.Invoice.AmountExVAT)
	assert.Equal(t, int64(809), resp.Invoice.VATAmount)
	assert.Equal(t, int64(4856), resp.Invoice.TotalAmount)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Where("subscription_id = ?", resp.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	orgID := f.org(t, "Meadow School").String()

	cases := []struct {
		name string
		req  subscriptiondomain.CreateSubscriptionRequest
		err  error
	}{
		{"missing org", subscriptiondomain.CreateSubscriptionRequest{Plan: "core", PaymentMethod: "card"}, subscriptiondomain.ErrInvalidOrganization},
		{"unknown org", subscriptiondomain.CreateSubscriptionRequest{OrganizationID: f.node.Generate().String(), Plan: "core", PaymentMethod: "card"}, subscriptiondomain.ErrInvalidOrganization},
		{"bad plan", subscriptiondomain.CreateSubscriptionRequest{OrganizationID: orgID, Plan: "gold", PaymentMethod: "card"}, subscriptiondomain.ErrInvalidPlan},
		{"bad payment method", subscriptiondomain.CreateSubscriptionRequest{OrganizationID: orgID, Plan: "core", PaymentMethod: "cheque"}, subscriptiondomain.ErrInvalidPaymentMethod},
		{"negative price", subscriptiondomain.CreateSubscriptionRequest{OrganizationID: orgID, Plan: "core", PaymentMethod: "card", BasePriceAnnual: -1}, subscriptiondomain.ErrInvalidBasePrice},
		{"discount over 100", subscriptiondomain.CreateSubscriptionRequest{OrganizationID: orgID, Plan: "core", PaymentMethod: "card", DiscountPercent: 101}, subscriptiondomain.ErrInvalidDiscount},
		{"negative schools", subscriptiondomain.CreateSubscriptionRequest{OrganizationID: orgID, Plan: "core", PaymentMethod: "card", SchoolCount: -2}, subscriptiondomain.ErrInvalidSchoolCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&subscriptiondomain.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpgradeToEnterpriseRepricesPerSchool(t *testing.T) {
	f := setup(t)
	orgID := f.org(t, "Northgate Trust")
	created := f.create(t, subscriptiondomain.CreateSubscriptionRequest{
		OrganizationID:  orgID.String(),
		Plan:            subscriptiondomain.PlanProfessional,
		PaymentMethod:   subscriptiondomain.PaymentMethodCard,
		BasePriceAnnual: 1499,
		SchoolCount:     2,
	})
	require.Equal(t, int64(2998), created.FinalPriceAnnual)

	f.clock.Advance(time.Hour)
	updated, err := f.svc.Update(context.Background(), subscriptiondomain.UpdateSubscriptionRequest{
		SubscriptionID: created.ID.String(),
		Action:         subscriptiondomain.ActionUpgrade,
		NewPlan:        subscriptiondomain.PlanEnterprise,
		Reason:         "trust expansion",
	})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.PlanEnterprise, updated.Plan)
	assert.Equal(t, int64(3999), updated.BasePriceAnnual)
	assert.Equal(t, int64(7998), updated.FinalPriceAnnual)

	stored, err := f.svc.GetByID(context.Background(), created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(7998), stored.FinalPriceAnnual)

	history, err := f.svc.History(context.Background(), created.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 2)
	last := history[1]
	assert.Equal(t, subscriptiondomain.ChangeTypeUpgraded, last.ChangeType)
	require.NotNil(t, last.PreviousPlan)
	require.NotNil(t, last.NewPlan)
	assert.Equal(t, subscriptiondomain.PlanProfessional, *last.PreviousPlan)
	assert.Equal(t, subscriptiondomain.PlanEnterprise, *last.NewPlan)
	assert.Equal(t, int64(2998), *last.PreviousPrice)
	assert.Equal(t, int64(7998), *last.NewPrice)
	require.NotNil(t, last.Reason)
	assert.Equal(t, "trust expansion", *last.Reason)
}

func TestUpdateWritesOneHistoryRowPerAction(t *testing.T) {
	f := setup(t)
	orgID := f.org(t, "Brookside Federation")
	created := f.create(t, subscriptiondomain.CreateSubscriptionRequest{
		OrganizationID:  orgID.String(),
		Plan:            subscriptiondomain.PlanEnterprise,
		PaymentMethod:   subscriptiondomain.PaymentMethodCard,
		BasePriceAnnual: 3999,
	})

	steps := []struct {
		req    subscriptiondomain.UpdateSubscriptionRequest
		change subscriptiondomain.ChangeType
		check  func(t *testing.T, sub subscriptiondomain.Subscription)
	}{
		{
			req:    subscriptiondomain.UpdateSubscriptionRequest{Action: subscriptiondomain.ActionCancel, Reason: "budget"},
			change: subscriptiondomain.ChangeTypeCancelled,
			check: func(t *testing.T, sub subscriptiondomain.Subscription) {
				assert.True(t, sub.CancelAtPeriodEnd)
				assert.NotNil(t, sub.CancelledAt)
				assert.Equal(t, subscriptiondomain.SubscriptionStatusActive, sub.Status)
			},
		},
		{
			req:    subscriptiondomain.UpdateSubscriptionRequest{Action: subscriptiondomain.ActionReactivate},
			change: subscriptiondomain.ChangeTypeReactivated,
			check: func(t *testing.T, sub subscriptiondomain.Subscription) {
				assert.False(t, sub.CancelAtPeriodEnd)
				assert.Nil(t, sub.CancelledAt)
			},
		},
		{
			req:    subscriptiondomain.UpdateSubscriptionRequest{Action: subscriptiondomain.ActionDowngrade, NewPlan: subscriptiondomain.PlanCore},
			change: subscriptiondomain.ChangeTypeDowngraded,
			check: func(t *testing.T, sub subscriptiondomain.Subscription) {
				assert.Equal(t, subscriptiondomain.PlanCore, sub.Plan)
				assert.Equal(t, int64(799), sub.FinalPriceAnnual)
			},
		},
		{
			req:    subscriptiondomain.UpdateSubscriptionRequest{Action: subscriptiondomain.ActionMarkPastDue},
			change: subscriptiondomain.ChangeTypePaymentFailed,
			check: func(t *testing.T, sub subscriptiondomain.Subscription) {
				assert.Equal(t, subscriptiondomain.SubscriptionStatusPastDue, sub.Status)
			},
		},
		{
			req:    subscriptiondomain.UpdateSubscriptionRequest{Action: subscriptiondomain.ActionMarkActive},
			change: subscriptiondomain.ChangeTypePaymentReceived,
			check: func(t *testing.T, sub subscriptiondomain.Subscription) {
				assert.Equal(t, subscriptiondomain.SubscriptionStatusActive, sub.Status)
			},
		},
	}

	for i, step := range steps {
		f.clock.Advance(time.Minute)
		step.req.SubscriptionID = created.ID.String()
		sub, err := f.svc.Update(context.Background(), step.req)
		require.NoError(t, err)
		step.check(t, sub)
		assert.Equal(t, int64(i+2), f.historyCount(t, created.ID))

		history, err := f.svc.History(context.Background(), created.ID.String())
		require.NoError(t, err)
		assert.Equal(t, step.change, history[len(history)-1].ChangeType)
	}
}

func TestUpdateRejectsInvalidRequestsWithoutWriting(t *testing.T) {
	f := setup(t)
	orgID := f.org(t, "Elm Tree Infants")
	created := f.create(t, subscriptiondomain.CreateSubscriptionRequest{
		OrganizationID:  orgID.String(),
		Plan:            subscriptiondomain.PlanCore,
		PaymentMethod:   subscriptiondomain.PaymentMethodCard,
		BasePriceAnnual: 799,
	})
	id := created.ID.String()

	_, err := f.svc.Update(context.Background(), subscriptiondomain.UpdateSubscriptionRequest{SubscriptionID: id, Action: "pause"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidAction)

	_, err = f.svc.Update(context.Background(), subscriptiondomain.UpdateSubscriptionRequest{SubscriptionID: id, Action: subscriptiondomain.ActionUpgrade})
	assert.ErrorIs(t, err, subscriptiondomain.ErrNewPlanRequired)

	_, err = f.svc.Update(context.Background(), subscriptiondomain.UpdateSubscriptionRequest{SubscriptionID: id, Action: subscriptiondomain.ActionUpgrade, NewPlan: "platinum"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidPlan)

	_, err = f.svc.Update(context.Background(), subscriptiondomain.UpdateSubscriptionRequest{SubscriptionID: f.node.Generate().String(), Action: subscriptiondomain.ActionCancel})
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)

	_, err = f.svc.Update(context.Background(), subscriptiondomain.UpdateSubscriptionRequest{SubscriptionID: "nope", Action: subscriptiondomain.ActionCancel})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidSubscription)

	assert.Equal(t, int64(1), f.historyCount(t, created.ID))
	stored, err := f.svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.PlanCore, stored.Plan)
	assert.False(t, stored.CancelAtPeriodEnd)
}

func (f *fixture) subscriptionCount(t *testing.T, orgID snowflake.ID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&subscriptiondomain.Subscription{}).Where("org_id = ?", orgID).Count(&n).Error)
	return n
}

func TestCreateRollsBackWhenHistoryInsertFails(t *testing.T) {
	f := setup(t)
	orgID := f.org(t, "Larch Lane Primary")
	require.NoError(t, f.db.Migrator().DropTable(&subscriptiondomain.SubscriptionHistory{}))

	_, err := f.svc.Create(context.Background(), subscriptiondomain.CreateSubscriptionRequest{
		OrganizationID:  orgID.String(),
		Plan:            subscriptiondomain.PlanProfessional,
		PaymentMethod:   subscriptiondomain.PaymentMethodInvoice,
		BasePriceAnnual: 1499,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription history")

	assert.Zero(t, f.subscriptionCount(t, orgID))
	var invoices int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Where("org_id = ?", orgID).Count(&invoices).Error)
	assert.Zero(t, invoices)
}

func TestCreateRollsBackWhenInvoiceInsertFails(t *testing.T) {
	f := setup(t)
	orgID := f.org(t, "Rowan Hill School")
	require.NoError(t, f.db.Migrator().DropTable(&invoicedomain.Invoice{}))

	_, err := f.svc.Create(context.Background(), subscriptiondomain.CreateSubscriptionRequest{
		OrganizationID:  orgID.String(),
		Plan:            subscriptiondomain.PlanCore,
		PaymentMethod:   subscriptiondomain.PaymentMethodInvoice,
		BasePriceAnnual: 799,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create invoice")

	assert.Zero(t, f.subscriptionCount(t, orgID))
	var history int64
	require.NoError(t, f.db.Model(&subscriptiondomain.SubscriptionHistory{}).Where("org_id = ?", orgID).Count(&history).Error)
	assert.Zero(t, history)
}

func TestUpdateRollsBackWhenHistoryInsertFails(t *testing.T) {
	f := setup(t)
	orgID := f.org(t, "Cedar Park Academy")
	created := f.create(t, subscriptiondomain.CreateSubscriptionRequest{
		OrganizationID:  orgID.String(),
		Plan:            subscriptiondomain.PlanCore,
		PaymentMethod:   subscriptiondomain.PaymentMethodCard,
		BasePriceAnnual: 799,
		SchoolCount:     2,
	})
	require.NoError(t, f.db.Migrator().DropTable(&subscriptiondomain.SubscriptionHistory{}))

	f.clock.Advance(time.Hour)
	for _, req := range []subscriptiondomain.UpdateSubscriptionRequest{
		{Action: subscriptiondomain.ActionUpgrade, NewPlan: subscriptiondomain.PlanEnterprise},
		{Action: subscriptiondomain.ActionCancel, Reason: "closing"},
		{Action: subscriptiondomain.ActionMarkPastDue},
	} {
		req.SubscriptionID = created.ID.String()
		_, err := f.svc.Update(context.Background(), req)
		require.Error(t, err, req.Action)
	}

	stored, err := f.svc.GetByID(context.Background(), created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.PlanCore, stored.Plan)
	assert.Equal(t, int64(1598), stored.FinalPriceAnnual)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusActive, stored.Status)
	assert.False(t, stored.CancelAtPeriodEnd)
	assert.Nil(t, stored.CancelledAt)
	assert.True(t, stored.UpdatedAt.Equal(startedAt), stored.UpdatedAt)
}

func TestListFiltersAndSummarizes(t *testing.T) {
	f := setup(t)
	oak := f.org(t, "Oak Academy")
	ash := f.org(t, "Ash Primary")
	elm := f.org(t, "Elm College")

	oakSub := f.create(t, subscriptiondomain.CreateSubscriptionRequest{OrganizationID: oak.String(), Plan: "professional", PaymentMethod: "card", BasePriceAnnual: 1499, DiscountPercent: 10, SchoolCount: 3})
	f.create(t, subscriptiondomain.CreateSubscriptionRequest{OrganizationID: ash.String(), Plan: "core", PaymentMethod: "card", BasePriceAnnual: 799})
	elmSub := f.create(t, subscriptiondomain.CreateSubscriptionRequest{OrganizationID: elm.String(), Plan: "core", PaymentMethod: "card", BasePriceAnnual: 799})
	_, err := f.svc.Update(context.Background(), subscriptiondomain.UpdateSubscriptionRequest{SubscriptionID: elmSub.ID.String(), Action: subscriptiondomain.ActionMarkPastDue})
	require.NoError(t, err)

	require.NoError(t, f.db.Create(&healthdomain.CustomerHealth{
		OrgID: oak, HealthScore: 35, HealthStatus: healthdomain.StatusAtRisk,
		RiskFlags: healthdomain.RiskFlags{"No login in 14+ days"}, CalculatedAt: startedAt, UpdatedAt: startedAt,
	}).Error)
	require.NoError(t, f.db.Create(&healthdomain.CustomerHealth{
		OrgID: ash, HealthScore: 82, HealthStatus: healthdomain.StatusHealthy,
		RiskFlags: healthdomain.RiskFlags{}, CalculatedAt: startedAt, UpdatedAt: startedAt,
	}).Error)

	all, err := f.svc.List(context.Background(), subscriptiondomain.ListSubscriptionRequest{})
	require.NoError(t, err)
	require.Len(t, all.Data, 3)
	assert.Equal(t, 3, all.Summary.Total)
	assert.Equal(t, 2, all.Summary.ByStatus[subscriptiondomain.SubscriptionStatusActive])
	assert.Equal(t, 1, all.Summary.ByStatus[subscriptiondomain.SubscriptionStatusPastDue])
	assert.Equal(t, 0, all.Summary.ByStatus[subscriptiondomain.SubscriptionStatusCancelled])
	assert.Equal(t, int64(4047+799), all.Summary.ARR)
	assert.Equal(t, int64(404), all.Summary.MRR)
	assert.Equal(t, 1, all.Summary.AtRisk)

	atRisk, err := f.svc.List(context.Background(), subscriptiondomain.ListSubscriptionRequest{Health: "at_risk"})
	require.NoError(t, err)
	require.Len(t, atRisk.Data, 1)
	assert.Equal(t, oakSub.ID, atRisk.Data[0].ID)
	assert.Equal(t, "Oak Academy", atRisk.Data[0].Organization.Name)
	require.NotNil(t, atRisk.Data[0].CustomerHealth)
	assert.Equal(t, 35, atRisk.Data[0].CustomerHealth.HealthScore)
	assert.Equal(t, healthdomain.RiskFlags{"No login in 14+ days"}, atRisk.Data[0].CustomerHealth.RiskFlags)

	pastDue, err := f.svc.List(context.Background(), subscriptiondomain.ListSubscriptionRequest{Status: "past_due"})
	require.NoError(t, err)
	require.Len(t, pastDue.Data, 1)
	assert.Nil(t, pastDue.Data[0].CustomerHealth)
	assert.Equal(t, int64(0), pastDue.Summary.ARR)

	core, err := f.svc.List(context.Background(), subscriptiondomain.ListSubscriptionRequest{Plan: "core"})
	require.NoError(t, err)
	assert.Len(t, core.Data, 2)

	_, err = f.svc.List(context.Background(), subscriptiondomain.ListSubscriptionRequest{Status: "paused"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidStatus)
	_, err = f.svc.List(context.Background(), subscriptiondomain.ListSubscriptionRequest{Health: "great"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidHealthStatus)
}

func TestExpireDueCancelsEndedSubscriptions(t *testing.T) {
	f := setup(t)
	cancelled := f.create(t, subscriptiondomain.CreateSubscriptionRequest{OrganizationID: f.org(t, "Willow School").String(), Plan: "core", PaymentMethod: "card", BasePriceAnnual: 799})
	kept := f.create(t, subscriptiondomain.CreateSubscriptionRequest{OrganizationID: f.org(t, "Birch School").String(), Plan: "core", PaymentMethod: "card", BasePriceAnnual: 799})

	_, err := f.svc.Update(context.Background(), subscriptiondomain.UpdateSubscriptionRequest{SubscriptionID: cancelled.ID.String(), Action: subscriptiondomain.ActionCancel})
	require.NoError(t, err)

	n, err := f.svc.ExpireDue(context.Background(), startedAt.AddDate(0, 6, 0), 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	periodEnd := startedAt.AddDate(1, 0, 0)
	n, err = f.svc.ExpireDue(context.Background(), periodEnd, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.svc.GetByID(context.Background(), cancelled.ID.String())
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusCancelled, stored.Status)
	assert.Equal(t, int64(3), f.historyCount(t, cancelled.ID))

	other, err := f.svc.GetByID(context.Background(), kept.ID.String())
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusActive, other.Status)

	n, err = f.svc.ExpireDue(context.Background(), periodEnd.AddDate(0, 0, 1), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(3), f.historyCount(t, cancelled.ID))
}
