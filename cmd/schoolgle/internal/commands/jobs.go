package commands

import (
	"context"
	"fmt"

	"github.com/schoolgle/schoolgle/internal/auditcontext"
	"github.com/schoolgle/schoolgle/internal/clock"
	healthdomain "github.com/schoolgle/schoolgle/internal/health/domain"
	"github.com/schoolgle/schoolgle/internal/server"
	subscriptiondomain "github.com/schoolgle/schoolgle/internal/subscription/domain"
)

type SweepCmd struct{}

func (s *SweepCmd) Run(ctx context.Context, g *Globals) error {
	var healthSvc healthdomain.Service
	return withApp(ctx, g, server.Services, func(ctx context.Context) error {
		ctx = auditcontext.WithActor(ctx, "system", "cli")
		result, err := healthSvc.Sweep(ctx)
		if err != nil {
			return err
		}
		return printJSON(result)
	}, &healthSvc)
}

type ExpireCmd struct {
	Limit int `help:"Maximum subscriptions to expire in one pass." default:"100"`
}

func (e *ExpireCmd) Run(ctx context.Context, g *Globals) error {
	var (
		subscriptionSvc subscriptiondomain.Service
		clk             clock.Clock
	)
	return withApp(ctx, g, server.Services, func(ctx context.Context) error {
		ctx = auditcontext.WithActor(ctx, "system", "cli")
		expired, err := subscriptionSvc.ExpireDue(ctx, clk.Now(), e.Limit)
		if err != nil {
			return err
		}
		fmt.Printf("expired %d subscription(s)\n", expired)
		return nil
	}, &subscriptionSvc, &clk)
}
