// Command migrate applies the embedded postgres schema migrations.
package main

import (
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/repository"
)

func main() {
	fs := ff.NewFlagSet("migrate")
	var (
		dbURL    = fs.StringLong("db-url", "", "postgres URL (or set RADAR_DB_URL)")
		steps    = fs.IntLong("steps", 1, "migrations to roll back with down")
		logLevel = fs.StringLong("log-level", "info", "debug, info, warn or error")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix(common.EnvPrefix)); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs, "migrate [FLAGS] up|down|version"))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger := common.NewLogger(*logLevel, os.Stderr)

	if *dbURL == "" {
		logger.Error("missing database URL", "flag", "--db-url", "env", "RADAR_DB_URL")
		os.Exit(2)
	}
	action := "up"
	if args := fs.GetArgs(); len(args) > 0 {
		action = args[0]
	}

	mg, err := repository.NewMigrator(*dbURL, logger)
	if err != nil {
		logger.Error("failed to open migrator", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := mg.Close(); err != nil {
			logger.Warn("migrator close failed", "error", err)
		}
	}()

	switch action {
	case "up":
		err = mg.Up()
	case "down":
		err = mg.Down(*steps)
	case "version":
	default:
		logger.Error("unknown action", "action", action, "valid", "up, down, version")
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migration failed", "action", action, "error", err)
		os.Exit(1)
	}

	version, dirty, err := mg.Version()
	if err != nil {
		logger.Error("failed to read version", "error", err)
		os.Exit(1)
	}
	fmt.Printf("schema version %d (dirty=%t)\n", version, dirty)
}
