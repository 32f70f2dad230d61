package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/schoolgle/schoolgle/internal/clock"
	"github.com/schoolgle/schoolgle/internal/config"
	"github.com/schoolgle/schoolgle/internal/observability"
	"github.com/schoolgle/schoolgle/pkg/db"
	"go.uber.org/fx"
)

// Globals are shared by every subcommand.
type Globals struct {
	Debug   bool
	Version string
}

// cliNodeID keeps ids minted by one-off commands apart from the long-running
// admin (1) and scheduler (2) processes.
const cliNodeID = 3

func snowflakeNode(id int64) func(config.Config) (*snowflake.Node, error) {
	return func(cfg config.Config) (*snowflake.Node, error) {
		return snowflake.NewNode(cfg.NodeID(id))
	}
}

func infrastructure(nodeID int64) fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(snowflakeNode(nodeID)),
		db.Module,
		clock.Module,
	)
}

// withApp builds a short-lived container, populates targets, and runs fn
// between start and stop.
func withApp(ctx context.Context, g *Globals, modules fx.Option, fn func(context.Context) error, targets ...any) error {
	opts := []fx.Option{
		infrastructure(cliNodeID),
		modules,
		fx.Populate(targets...),
	}
	if g != nil && g.Debug {
		opts = append(opts, observability.FxLogger)
	} else {
		opts = append(opts, fx.NopLogger)
	}

	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
