package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/schoolgle/schoolgle/cmd/schoolgle/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Serve     commands.ServeCmd     `cmd:"" help:"Run the admin HTTP API"`
		Scheduler commands.SchedulerCmd `cmd:"" help:"Run the background scheduler"`
		Sweep     commands.SweepCmd     `cmd:"" help:"Recompute customer health for every active subscription"`
		Expire    commands.ExpireCmd    `cmd:"" help:"Cancel subscriptions whose period ended after a cancel request"`
		Migrate   commands.MigrateCmd   `cmd:"" help:"Manage database schema migrations"`
		APIKey    commands.APIKeyCmd    `cmd:"" name:"apikey" help:"Manage admin API keys"`
		Org       commands.OrgCmd       `cmd:"" help:"Manage organizations"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("schoolgle"),
		kong.Description("Schoolgle customer health and subscription operations."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
