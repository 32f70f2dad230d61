package scheduler

import (
	"time"

	"github.com/schoolgle/schoolgle/internal/config"
)

const (
	JobHealthSweep     = "health_sweep"
	JobExpireCancelled = "expire_cancelled"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval        time.Duration
	EnabledJobs        []string
	HealthSweepTimeout time.Duration
	ExpireTimeout      time.Duration
	ExpireBatchSize    int
}

func DefaultConfig() Config {
	return Config{
		RunInterval:        24 * time.Hour,
		HealthSweepTimeout: 10 * time.Minute,
		ExpireTimeout:      time.Minute,
		ExpireBatchSize:    100,
	}
}

// ProvideConfig maps the application config onto the scheduler.
func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:        cfg.Scheduler.RunInterval,
		EnabledJobs:        cfg.Scheduler.EnabledJobs,
		HealthSweepTimeout: cfg.Scheduler.HealthSweepTimeout,
		ExpireBatchSize:    cfg.Scheduler.ExpireBatchSize,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.HealthSweepTimeout <= 0 {
		c.HealthSweepTimeout = defaults.HealthSweepTimeout
	}
	if c.ExpireTimeout <= 0 {
		c.ExpireTimeout = defaults.ExpireTimeout
	}
	if c.ExpireBatchSize <= 0 {
		c.ExpireBatchSize = defaults.ExpireBatchSize
	}
	return c
}
