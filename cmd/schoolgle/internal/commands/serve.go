package commands

import (
	"context"

	"github.com/schoolgle/schoolgle/internal/migration"
	"github.com/schoolgle/schoolgle/internal/observability"
	"github.com/schoolgle/schoolgle/internal/scheduler"
	"github.com/schoolgle/schoolgle/internal/server"
	"go.uber.org/fx"
)

type ServeCmd struct {
	WithScheduler bool `help:"Also run the scheduler in this process." name:"with-scheduler"`
}

func (s *ServeCmd) Run(ctx context.Context, g *Globals) error {
	opts := []fx.Option{
		infrastructure(1),
		observability.FxLogger,
		migration.Module,
		server.Module,
	}
	if s.WithScheduler {
		opts = append(opts, scheduler.Module)
	}
	fx.New(opts...).Run()
	return nil
}

type SchedulerCmd struct {
	Once bool `help:"Run every enabled job once and exit."`
}

func (s *SchedulerCmd) Run(ctx context.Context, g *Globals) error {
	if !s.Once {
		fx.New(
			infrastructure(2),
			observability.FxLogger,
			server.Services,
			scheduler.Module,
		).Run()
		return nil
	}

	var sched *scheduler.Scheduler
	return withApp(ctx, g,
		fx.Options(
			server.Services,
			fx.Provide(scheduler.ProvideConfig),
			fx.Provide(scheduler.New),
		),
		func(ctx context.Context) error {
			return sched.RunOnce(ctx)
		},
		&sched,
	)
}
