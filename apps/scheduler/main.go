package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingcore/internal/clock"
	"github.com/smallbiznis/billingcore/internal/config"
	"github.com/smallbiznis/billingcore/internal/observability"
	"github.com/smallbiznis/billingcore/internal/scheduler"
	"github.com/smallbiznis/billingcore/internal/server"
	"github.com/smallbiznis/billingcore/pkg/db"
	"go.uber.org/fx"
)

// The standalone scheduler runs the quotation expiry sweep without serving HTTP.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by scheduler
		server.DomainModules,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	// Node 2 keeps ids distinct from the API process.
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
