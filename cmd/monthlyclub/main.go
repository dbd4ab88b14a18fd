package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/garethtyler2/monthlyclub-sub003/internal/billing"
	"github.com/garethtyler2/monthlyclub-sub003/internal/clock"
	"github.com/garethtyler2/monthlyclub-sub003/internal/config"
	"github.com/garethtyler2/monthlyclub-sub003/internal/events"
	"github.com/garethtyler2/monthlyclub-sub003/internal/events/dispatch"
	"github.com/garethtyler2/monthlyclub-sub003/internal/migration"
	"github.com/garethtyler2/monthlyclub-sub003/internal/observability"
	"github.com/garethtyler2/monthlyclub-sub003/internal/payment"
	"github.com/garethtyler2/monthlyclub-sub003/internal/scheduler"
	"github.com/garethtyler2/monthlyclub-sub003/internal/seed"
	"github.com/garethtyler2/monthlyclub-sub003/internal/server"
	"github.com/garethtyler2/monthlyclub-sub003/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		events.Module,
		payment.Module,
		billing.Module,
		dispatch.Module,
		scheduler.Module,

		fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if cfg.SeedDemoData && !cfg.IsProduction() {
				return seed.EnsureDemoData(conn, node)
			}
			return nil
		}),

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
