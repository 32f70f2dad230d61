package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/schoolgle/schoolgle/internal/audit/domain"
	"github.com/schoolgle/schoolgle/internal/auditcontext"
	"github.com/schoolgle/schoolgle/internal/clock"
	healthdomain "github.com/schoolgle/schoolgle/internal/health/domain"
	obsmetrics "github.com/schoolgle/schoolgle/internal/observability/metrics"
	subscriptiondomain "github.com/schoolgle/schoolgle/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log             *zap.Logger
	HealthSvc       healthdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	GenID           *snowflake.Node
	Clock           clock.Clock
	Config          Config `optional:"true"`
}

type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	genID           *snowflake.Node
	clock           clock.Clock
	healthSvc       healthdomain.Service
	subscriptionSvc subscriptiondomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.HealthSvc == nil || p.SubscriptionSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		genID:           p.GenID,
		clock:           p.Clock,
		healthSvc:       p.HealthSvc,
		subscriptionSvc: p.SubscriptionSvc,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")
	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errs == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick picks up the rest
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobHealthSweep, s.isJobEnabled(JobHealthSweep), func(ctx context.Context) error {
			return s.runJob(ctx, JobHealthSweep, 0, s.cfg.HealthSweepTimeout, s.HealthSweepJob)
		}},
		{JobExpireCancelled, s.isJobEnabled(JobExpireCancelled), func(ctx context.Context) error {
			return s.runJob(ctx, JobExpireCancelled, s.cfg.ExpireBatchSize, s.cfg.ExpireTimeout, s.ExpireCancelledJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// empty list enables every job
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// HealthSweepJob recomputes every organization with an active subscription.
// A sweep already running elsewhere is not an error.
func (s *Scheduler) HealthSweepJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobHealthSweep, 0)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	result, err := s.healthSvc.Sweep(ctx)
	if errors.Is(err, healthdomain.ErrSweepInProgress) {
		obsmetrics.Scheduler().IncBatchDeferred(JobHealthSweep, obsmetrics.SchedulerBatchDeferredReasonLockHeld)
		run.Defer(obsmetrics.SchedulerBatchDeferredReasonLockHeld)
		return nil
	}
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.health_sweep.failed", err)
		return err
	}

	run.AddProcessed(result.Processed)
	obsmetrics.Scheduler().AddBatchProcessed(JobHealthSweep, obsmetrics.BatchResourceOrganizations, result.Processed)
	for _, item := range result.Results {
		if item.Error == "" {
			continue
		}
		s.logItemFailure(ctx, run, item.OrganizationID, item.Error)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// ExpireCancelledJob drains subscriptions whose cancellation took effect at
// period end, one batch at a time.
func (s *Scheduler) ExpireCancelledJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobExpireCancelled, s.cfg.ExpireBatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	now := s.clock.Now()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		expired, err := s.subscriptionSvc.ExpireDue(ctx, now, s.cfg.ExpireBatchSize)
		run.AddProcessed(expired)
		obsmetrics.Scheduler().AddBatchProcessed(JobExpireCancelled, obsmetrics.BatchResourceSubscriptions, expired)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.expire.failed", err)
			return err
		}
		if expired < s.cfg.ExpireBatchSize {
			return nil
		}
	}
}
