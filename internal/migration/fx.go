package migration

import (
	"github.com/schoolgle/schoolgle/internal/config"
	"github.com/schoolgle/schoolgle/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module applies migrations on start. The embedded SQL targets postgres, so
// other dialects are left to their operators.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, dbCfg db.Config, log *zap.Logger) error {
		if !cfg.MigrateOnStart {
			return nil
		}
		if !dbCfg.IsPostgres() {
			log.Warn("skipping embedded migrations for non-postgres database", zap.String("type", dbCfg.Type))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		version, dirty, err := Version(sqlDB)
		if err != nil {
			return err
		}
		log.Info("database migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}),
)
