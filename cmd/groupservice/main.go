package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/savingsapp/groupservice/internal/clock"
	"github.com/savingsapp/groupservice/internal/config"
	"github.com/savingsapp/groupservice/internal/group"
	"github.com/savingsapp/groupservice/internal/lock"
	"github.com/savingsapp/groupservice/internal/metrics"
	"github.com/savingsapp/groupservice/internal/migration"
	"github.com/savingsapp/groupservice/internal/server"
	"github.com/savingsapp/groupservice/pkg/db"
	"github.com/savingsapp/groupservice/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		metrics.Module,
		group.Module,
		migration.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {}),
		fx.Invoke(server.RunHTTP),
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
