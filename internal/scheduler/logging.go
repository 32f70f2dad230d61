package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	obscontext "github.com/schoolgle/schoolgle/internal/observability/context"
	obslogger "github.com/schoolgle/schoolgle/internal/observability/logger"
	obsmetrics "github.com/schoolgle/schoolgle/internal/observability/metrics"
	"go.uber.org/zap"
)

// jobRun accumulates the outcome of one job invocation for the finish log.
// Item failures (one organization that could not be scored) are counted apart
// from job errors, which abort the run.
type jobRun struct {
	job       string
	runID     string
	batchSize int
	startedAt time.Time

	processed int
	failed    int
	errs      int
	deferred  string
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.processed += count
}

func (r *jobRun) AddFailed() {
	if r == nil {
		return
	}
	r.failed++
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errs++
}

func (r *jobRun) Defer(reason string) {
	if r == nil {
		return
	}
	r.deferred = reason
}

// ensureJobRun attaches a run to ctx unless the caller already did. The
// returned bool is true for the owner, which logs start and finish.
func (s *Scheduler) ensureJobRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing := jobRunFromContext(ctx); existing != nil {
		return ctx, existing, false
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = s.withLogContext(ctx, 0)
	return ctx, run, true
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (s *Scheduler) withLogContext(ctx context.Context, orgID snowflake.ID) context.Context {
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	if orgID != 0 {
		ctx = obscontext.WithOrgID(ctx, orgID.String())
	}
	return ctx
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
	}
	if run.batchSize > 0 {
		fields = append(fields, zap.Int("batch_size", run.batchSize))
	}
	s.logger(ctx).Info("scheduler.job.start", fields...)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processed),
		zap.Int("failed_count", run.failed),
		zap.Int("error_count", run.errs),
	}
	if run.deferred != "" {
		fields = append(fields, zap.String("deferred", run.deferred))
	}

	log := s.logger(ctx)
	switch {
	case run.errs > 0:
		log.Error("scheduler.job.finish", fields...)
	case run.failed > 0:
		log.Warn("scheduler.job.finish", fields...)
	default:
		log.Info("scheduler.job.finish", fields...)
	}
}

// logItemFailure records one organization the job could not process. The run
// continues.
func (s *Scheduler) logItemFailure(ctx context.Context, run *jobRun, orgID snowflake.ID, reason string) {
	run.AddFailed()
	// org_id comes from the log context
	s.logger(s.withLogContext(ctx, orgID)).Warn("scheduler.item.failed",
		zap.String("job", run.job),
		zap.String("error", reason),
	)
}

func (s *Scheduler) logSchedulerError(ctx context.Context, run *jobRun, msg string, err error) {
	if err == nil {
		return
	}
	job := ""
	if run != nil {
		run.IncError()
		job = run.job
	}
	s.logger(ctx).Error(msg,
		zap.String("job", job),
		zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Error(err),
	)
}
