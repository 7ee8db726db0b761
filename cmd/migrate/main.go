package main

import (
	"errors"
	"log/slog"
	"os"

	"NovaRamp/internal/config"
	"NovaRamp/internal/db"
	"NovaRamp/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type options struct {
	Config string `short:"c" long:"config" description:"path to config.yaml"`
	Args   struct {
		Command string `positional-arg-name:"command" description:"up, down or version"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	_ = godotenv.Load()

	cfg, err := config.Load(opts.Config)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	logger, closer, err := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		slog.Error("logging setup failed", "err", err)
		os.Exit(1)
	}
	defer closer.Close()

	if cfg.DB.Driver != config.DriverPostgres {
		logger.Error("migrations need db.driver=postgres", "driver", cfg.DB.Driver)
		os.Exit(1)
	}

	m, err := db.NewMigrator(cfg.DB.DSN)
	if err != nil {
		logger.Error("migrator init failed", "err", err)
		os.Exit(1)
	}
	defer m.Close()

	cmd := opts.Args.Command
	if cmd == "" {
		cmd = "up"
	}
	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			err = verr
			break
		}
		logger.Info("schema version", "version", v, "dirty", dirty)
		return
	default:
		logger.Error("unknown command", "command", cmd)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("migration failed", "command", cmd, "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied", "command", cmd)
}
