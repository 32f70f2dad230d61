package commands

import (
	"context"
	"fmt"

	"github.com/schoolgle/schoolgle/internal/migration"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type MigrateCmd struct {
	Up      MigrateUpCmd      `cmd:"" help:"Apply pending migrations"`
	Down    MigrateDownCmd    `cmd:"" help:"Revert applied migrations"`
	Version MigrateVersionCmd `cmd:"" help:"Print the applied schema version"`
}

type MigrateUpCmd struct{}

func (m *MigrateUpCmd) Run(ctx context.Context, g *Globals) error {
	var conn *gorm.DB
	return withApp(ctx, g, fx.Options(), func(ctx context.Context) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := migration.RunMigrations(sqlDB); err != nil {
			return err
		}
		return printVersion(conn)
	}, &conn)
}

type MigrateDownCmd struct {
	Steps int `help:"Number of migrations to revert. Zero reverts all of them." default:"1"`
}

func (m *MigrateDownCmd) Run(ctx context.Context, g *Globals) error {
	var conn *gorm.DB
	return withApp(ctx, g, fx.Options(), func(ctx context.Context) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := migration.Rollback(sqlDB, m.Steps); err != nil {
			return err
		}
		return printVersion(conn)
	}, &conn)
}

type MigrateVersionCmd struct{}

func (m *MigrateVersionCmd) Run(ctx context.Context, g *Globals) error {
	var conn *gorm.DB
	return withApp(ctx, g, fx.Options(), func(ctx context.Context) error {
		return printVersion(conn)
	}, &conn)
}

func printVersion(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	version, dirty, err := migration.Version(sqlDB)
	if err != nil {
		return err
	}
	fmt.Printf("version=%d dirty=%t\n", version, dirty)
	return nil
}
