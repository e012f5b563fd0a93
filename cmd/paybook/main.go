package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paybook/internal/clock"
	"github.com/smallbiznis/paybook/internal/config"
	"github.com/smallbiznis/paybook/internal/migration"
	"github.com/smallbiznis/paybook/internal/observability"
	"github.com/smallbiznis/paybook/internal/scheduler"
	"github.com/smallbiznis/paybook/internal/server"
	"github.com/smallbiznis/paybook/pkg/db"
	"github.com/smallbiznis/paybook/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
