package migration

import (
	"github.com/savingsapp/groupservice/internal/config"
	"github.com/savingsapp/groupservice/internal/group/domain"
	"github.com/savingsapp/groupservice/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(&domain.Group{}); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData && cfg.Environment != "production" {
			return seed.EnsureDemoGroup(conn)
		}
		return nil
	}),
)
