package main

import (
	"flag"
	"log"

	"authgate/cfg"
	"authgate/pkg/db"
	"authgate/pkg/logger"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down (one step)")
	flag.Parse()

	// ============
	// config
	// ============
	config, errCfg := cfg.Load()
	if errCfg != nil {
		log.Fatal(errCfg)
	}
	zlogger := logger.NewZeroLog(config.AppEnv)

	// ============
	// DB
	// ============
	dsn := config.Database.SQLitePath
	if config.Database.Driver == cfg.DriverPostgres {
		pg := config.Database.Postgres
		dsn = db.PostgresDSN(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode)
	}
	client, err := db.NewSQLClient(config.Database.Driver, dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	// =========
	// Migrate
	// =========
	switch *direction {
	case "up":
		err = db.MigrateUp(client)
	case "down":
		err = db.MigrateDown(client)
	default:
		log.Fatalf("unknown direction %q", *direction)
	}
	if err != nil {
		log.Fatal(err)
	}

	zlogger.Info("migrations applied",
		logger.Field{Key: "driver", Value: config.Database.Driver},
		logger.Field{Key: "direction", Value: *direction},
	)
}
