package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/schoolgle/schoolgle/internal/clock"
	"github.com/schoolgle/schoolgle/internal/config"
	"github.com/schoolgle/schoolgle/internal/migration"
	"github.com/schoolgle/schoolgle/internal/observability"
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
		migration.Module,
		clock.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID(1))
}
