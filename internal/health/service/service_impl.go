package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	actiondomain "github.com/schoolgle/schoolgle/internal/action/domain"
	auditdomain "github.com/schoolgle/schoolgle/internal/audit/domain"
	"github.com/schoolgle/schoolgle/internal/clock"
	"github.com/schoolgle/schoolgle/internal/config"
	"github.com/schoolgle/schoolgle/internal/health/domain"
	obsmetrics "github.com/schoolgle/schoolgle/internal/observability/metrics"
	orgdomain "github.com/schoolgle/schoolgle/internal/organization/domain"
	"github.com/schoolgle/schoolgle/internal/ratelimit"
	usagedomain "github.com/schoolgle/schoolgle/internal/usage/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepLockKey = "schoolgle:lock:health_sweep"

var tracer = otel.Tracer("schoolgle/health")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Config    config.Config
	Scoring   *config.ScoringConfigHolder
	Repo      domain.Repository
	UsageRepo usagedomain.Repository
	Actions   actiondomain.Repository
	Orgs      orgdomain.Repository
	Metrics   *obsmetrics.Metrics `optional:"true"`
	Locker    *ratelimit.Locker   `optional:"true"`
	AuditSvc  auditdomain.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	scoring   *config.ScoringConfigHolder
	repo      domain.Repository
	usageRepo usagedomain.Repository
	actions   actiondomain.Repository
	orgs      orgdomain.Repository
	metrics   *obsmetrics.Metrics
	locker    *ratelimit.Locker
	auditSvc  auditdomain.Service

	sweepTimeout time.Duration
	lockTTL      time.Duration
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("health.service"),
		clock:        p.Clock,
		scoring:      p.Scoring,
		repo:         p.Repo,
		usageRepo:    p.UsageRepo,
		actions:      p.Actions,
		orgs:         p.Orgs,
		metrics:      p.Metrics,
		locker:       p.Locker,
		auditSvc:     p.AuditSvc,
		sweepTimeout: p.Config.Scheduler.HealthSweepTimeout,
		lockTTL:      p.Config.Scheduler.SweepLockTTL,
	}
}

func (s *Service) ComputeOrganization(ctx context.Context, orgID snowflake.ID) (*domain.CustomerHealth, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	org, err := s.orgs.FindByID(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, orgdomain.ErrNotFound
	}

	cfg := s.scoring.Get()
	now := s.clock.Now().UTC()
	signals, err := s.collectSignals(ctx, orgID, cfg, now)
	if err != nil {
		return nil, err
	}

	b := domain.Score(cfg, signals)
	record := &domain.CustomerHealth{
		OrgID:             orgID,
		OrganizationName:  org.Name,
		HealthScore:       b.Score,
		HealthStatus:      b.Status,
		EngagementScore:   roundScore(b.Engagement),
		AdoptionScore:     roundScore(b.Adoption),
		ValueScore:        roundScore(b.Value),
		RiskFlags:         b.RiskFlags,
		DaysActive:        signals.DaysActive,
		DaysSinceLogin:    signals.DaysSinceLogin,
		ActiveUserPercent: round2(signals.ActiveUserPercent),
		CompletionRate:    round2(signals.CompletionRate),
		FeaturesUsed:      signals.FeaturesUsed,
		CalculatedAt:      now,
		UpdatedAt:         now,
	}
	if err := s.repo.Upsert(ctx, s.db, record); err != nil {
		return nil, fmt.Errorf("upsert customer health: %w", err)
	}

	s.metrics.RecordHealthScore(ctx, string(record.HealthStatus), record.HealthScore)
	s.log.Debug("customer health computed",
		zap.String("org_id", orgID.String()),
		zap.Int("health_score", record.HealthScore),
		zap.String("health_status", string(record.HealthStatus)),
		zap.Strings("risk_flags", record.RiskFlags),
	)
	return record, nil
}

func (s *Service) collectSignals(ctx context.Context, orgID snowflake.ID, cfg config.ScoringConfig, now time.Time) (domain.Signals, error) {
	since := windowStart(now, cfg.WindowDays)

	summaries, err := s.usageRepo.ListDailySummaries(ctx, s.db, orgID, since)
	if err != nil {
		return domain.Signals{}, fmt.Errorf("list usage summaries: %w", err)
	}
	var totals usagedomain.FeatureTotals
	daysActive := 0
	for _, row := range summaries {
		totals.Add(row)
		if row.Active() {
			daysActive++
		}
	}

	lastLogin, err := s.usageRepo.LastEventAt(ctx, s.db, orgID, usagedomain.EventTypeLogin)
	if err != nil {
		return domain.Signals{}, fmt.Errorf("last login: %w", err)
	}
	var daysSinceLogin *int
	if lastLogin != nil {
		days := max(0, int(now.Sub(*lastLogin).Hours()/24))
		daysSinceLogin = &days
	}

	activeUsers, err := s.usageRepo.CountDistinctUsers(ctx, s.db, orgID, usagedomain.EventTypeLogin, since)
	if err != nil {
		return domain.Signals{}, fmt.Errorf("count active users: %w", err)
	}
	members, err := s.orgs.CountMembers(ctx, s.db, orgID)
	if err != nil {
		return domain.Signals{}, fmt.Errorf("count members: %w", err)
	}
	activePercent := 0.0
	if members > 0 {
		activePercent = min(100, float64(activeUsers)/float64(members)*100)
	}

	counts, err := s.actions.CountByOrg(ctx, s.db, orgID)
	if err != nil {
		return domain.Signals{}, fmt.Errorf("count actions: %w", err)
	}

	return domain.Signals{
		DaysActive:        daysActive,
		FeaturesUsed:      totals.FeaturesUsed(),
		AIChats:           totals.AIChats,
		DaysSinceLogin:    daysSinceLogin,
		ActiveUserPercent: activePercent,
		CompletionRate:    counts.CompletionRate(),
	}, nil
}

// Sweep recomputes every organization holding an active subscription. One
// organization failing does not stop the others.
func (s *Service) Sweep(ctx context.Context) (*domain.SweepResult, error) {
	var result *domain.SweepResult
	err := s.locker.WithLock(ctx, sweepLockKey, s.lockTTL, func(ctx context.Context) error {
		var err error
		result, err = s.sweep(ctx)
		return err
	})
	if errors.Is(err, ratelimit.ErrLockHeld) {
		s.log.Info("health sweep skipped, another instance holds the lock")
		return nil, domain.ErrSweepInProgress
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) sweep(ctx context.Context) (*domain.SweepResult, error) {
	ctx, span := tracer.Start(ctx, "health.sweep")
	defer span.End()

	if s.sweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sweepTimeout)
		defer cancel()
	}

	start := s.clock.Now()
	orgIDs, err := s.repo.ListOrganizationsWithActiveSubscription(ctx, s.db)
	if err != nil {
		s.metrics.RecordHealthSweepFailure(ctx, "list_organizations")
		span.SetStatus(codes.Error, "list organizations")
		return nil, fmt.Errorf("list organizations: %w", err)
	}

	result := &domain.SweepResult{Success: true, Results: make([]domain.SweepItem, 0, len(orgIDs))}
	for i, orgID := range orgIDs {
		if ctxErr := ctx.Err(); ctxErr != nil {
			for _, remaining := range orgIDs[i:] {
				result.Results = append(result.Results, domain.SweepItem{OrganizationID: remaining, Error: ctxErr.Error()})
				result.Failed++
			}
			s.metrics.RecordHealthSweepFailure(ctx, "deadline")
			s.log.Warn("health sweep stopped early", zap.Int("remaining", len(orgIDs)-i), zap.Error(ctxErr))
			break
		}

		record, err := s.ComputeOrganization(ctx, orgID)
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, domain.SweepItem{OrganizationID: orgID, Error: err.Error()})
			s.metrics.RecordHealthSweepFailure(ctx, "compute")
			s.log.Warn("customer health computation failed", zap.String("org_id", orgID.String()), zap.Error(err))
			continue
		}
		result.Processed++
		result.Results = append(result.Results, domain.SweepItem{
			OrganizationID: orgID,
			HealthScore:    &record.HealthScore,
			HealthStatus:   record.HealthStatus,
		})
	}

	span.SetAttributes(
		attribute.Int("health.processed", result.Processed),
		attribute.Int("health.failed", result.Failed),
	)
	s.log.Info("health sweep finished",
		zap.Int("organizations", len(orgIDs)),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", s.clock.Now().Sub(start)),
	)

	if s.auditSvc != nil {
		// deadline may have fired; the audit row should still land
		auditCtx := context.WithoutCancel(ctx)
		if err := s.auditSvc.AuditLog(auditCtx, nil, "", nil, "health.sweep", "customer_health", nil, map[string]any{
			"processed": result.Processed,
			"failed":    result.Failed,
		}); err != nil {
			s.log.Warn("audit health sweep failed", zap.Error(err))
		}
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, orgID snowflake.ID) (*domain.CustomerHealth, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	record, err := s.repo.FindByOrgID(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

func (s *Service) List(ctx context.Context, status string) ([]domain.CustomerHealth, error) {
	var filter *domain.Status
	if status = strings.TrimSpace(status); status != "" {
		st := domain.Status(strings.ToLower(status))
		if !st.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		filter = &st
	}
	records, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.CustomerHealth{}
	}
	return records, nil
}

// windowStart is midnight UTC windowDays-1 days before now, so the window
// covers windowDays calendar days including today.
func windowStart(now time.Time, windowDays int) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(windowDays - 1))
}

func roundScore(v float64) int {
	return int(math.Round(v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
