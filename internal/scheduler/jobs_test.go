package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schoolgle/schoolgle/internal/auditcontext"
	"github.com/schoolgle/schoolgle/internal/clock"
	"github.com/schoolgle/schoolgle/internal/config"
	healthdomain "github.com/schoolgle/schoolgle/internal/health/domain"
	obsmetrics "github.com/schoolgle/schoolgle/internal/observability/metrics"
	subscriptiondomain "github.com/schoolgle/schoolgle/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeHealthSvc struct {
	healthdomain.Service
	sweeps int
	actor  string
	result *healthdomain.SweepResult
	err    error
}

func (f *fakeHealthSvc) Sweep(ctx context.Context) (*healthdomain.SweepResult, error) {
	f.sweeps++
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	f.actor = actorType + ":" + actorID
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSubscriptionSvc struct {
	subscriptiondomain.Service
	due   int
	calls []time.Time
	err   error
}

func (f *fakeSubscriptionSvc) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	f.calls = append(f.calls, now)
	if f.err != nil {
		return 0, f.err
	}
	n := f.due
	if n > limit {
		n = limit
	}
	f.due -= n
	return n, nil
}

var tick = time.Date(2026, 10, 1, 2, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, health *fakeHealthSvc, subs *fakeSubscriptionSvc, cfg Config) *Scheduler {
	t.Helper()
	restore := swapPrometheusRegistry(prometheus.NewRegistry())
	t.Cleanup(restore)
	obsmetrics.ResetSchedulerMetricsForTest()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s, err := New(Params{
		Log:             zap.NewNop(),
		HealthSvc:       health,
		SubscriptionSvc: subs,
		GenID:           node,
		Clock:           clock.NewFakeClock(tick),
		Config:          cfg,
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresServices(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceRunsBothJobs(t *testing.T) {
	health := &fakeHealthSvc{result: &healthdomain.SweepResult{Success: true, Processed: 4}}
	subs := &fakeSubscriptionSvc{due: 5}
	s := newTestScheduler(t, health, subs, Config{ExpireBatchSize: 2})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, health.sweeps)
	assert.Equal(t, "system:scheduler", health.actor)

	// 2 + 2 + 1, the short batch ends the drain
	assert.Len(t, subs.calls, 3)
	assert.Zero(t, subs.due)
	for _, at := range subs.calls {
		assert.True(t, at.Equal(tick))
	}
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	health := &fakeHealthSvc{result: &healthdomain.SweepResult{Success: true}}
	subs := &fakeSubscriptionSvc{}
	s := newTestScheduler(t, health, subs, Config{EnabledJobs: []string{"HEALTH_SWEEP"}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, health.sweeps)
	assert.Empty(t, subs.calls)
}

func TestHealthSweepInProgressIsNotAnError(t *testing.T) {
	health := &fakeHealthSvc{err: healthdomain.ErrSweepInProgress}
	s := newTestScheduler(t, health, &fakeSubscriptionSvc{}, Config{EnabledJobs: []string{JobHealthSweep}})

	assert.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, health.sweeps)
}

func TestRunOnceJoinsJobErrors(t *testing.T) {
	sweepErr := errors.New("list organizations: connection refused")
	expireErr := errors.New("list due: connection refused")
	s := newTestScheduler(t,
		&fakeHealthSvc{err: sweepErr},
		&fakeSubscriptionSvc{err: expireErr},
		Config{},
	)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sweepErr)
	assert.ErrorIs(t, err, expireErr)
	assert.Contains(t, err.Error(), JobHealthSweep)
	assert.Contains(t, err.Error(), JobExpireCancelled)
}

func TestProvideConfigAppliesDefaults(t *testing.T) {
	cfg := ProvideConfig(config.Config{}).withDefaults()
	assert.Equal(t, 24*time.Hour, cfg.RunInterval)
	assert.Equal(t, 10*time.Minute, cfg.HealthSweepTimeout)
	assert.Equal(t, time.Minute, cfg.ExpireTimeout)
	assert.Equal(t, 100, cfg.ExpireBatchSize)
}

func TestHealthSweepOrgFailuresDoNotFailTheRun(t *testing.T) {
	failing := snowflake.ID(42)
	score := 72
	health := &fakeHealthSvc{result: &healthdomain.SweepResult{
		Success:   true,
		Processed: 1,
		Failed:    1,
		Results: []healthdomain.SweepItem{
			{OrganizationID: 41, HealthScore: &score, HealthStatus: healthdomain.StatusHealthy},
			{OrganizationID: failing, Error: "organization_not_found"},
		},
	}}
	s := newTestScheduler(t, health, &fakeSubscriptionSvc{}, Config{EnabledJobs: []string{JobHealthSweep}})
	core, logs := observer.New(zap.InfoLevel)
	s.log = zap.New(core)

	require.NoError(t, s.RunOnce(context.Background()))

	failed := logs.FilterMessage("scheduler.item.failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, failing.String(), failed[0].ContextMap()["org_id"])

	finish := logs.FilterMessage("scheduler.job.finish").All()
	require.Len(t, finish, 1)
	assert.Equal(t, zap.WarnLevel, finish[0].Level)
	assert.EqualValues(t, 1, finish[0].ContextMap()["processed_count"])
	assert.EqualValues(t, 1, finish[0].ContextMap()["failed_count"])
}

func TestHealthSweepInProgressIsLoggedAsDeferred(t *testing.T) {
	s := newTestScheduler(t, &fakeHealthSvc{err: healthdomain.ErrSweepInProgress}, &fakeSubscriptionSvc{}, Config{EnabledJobs: []string{JobHealthSweep}})
	core, logs := observer.New(zap.InfoLevel)
	s.log = zap.New(core)

	require.NoError(t, s.RunOnce(context.Background()))

	finish := logs.FilterMessage("scheduler.job.finish").All()
	require.Len(t, finish, 1)
	assert.Equal(t, obsmetrics.SchedulerBatchDeferredReasonLockHeld, finish[0].ContextMap()["deferred"])
}
