package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/schoolgle/schoolgle/internal/clock"
	"github.com/schoolgle/schoolgle/internal/config"
	"github.com/schoolgle/schoolgle/internal/observability"
	"github.com/schoolgle/schoolgle/internal/scheduler"
	"github.com/schoolgle/schoolgle/internal/server"
	"github.com/schoolgle/schoolgle/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		observability.FxLogger,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services only, no HTTP listener.
		server.Services,
		scheduler.Module,
	)
	app.Run()
}

// Node 2 keeps scheduler-generated ids apart from the admin API unless
// SNOWFLAKE_NODE_ID is set.
func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID(2))
}
