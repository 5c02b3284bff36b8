// Command migrate applies schema migrations for the bibliometrics database.
//
// Usage:
//
//	migrate [-path dir] up          apply all pending migrations
//	migrate [-path dir] down        roll back all migrations
//	migrate [-path dir] steps N     apply N steps (negative rolls back)
//	migrate [-path dir] version     print the current schema version
//	migrate [-path dir] force V     mark version V as applied after a failure
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/papertalks/bibliometrics-service/internal/config"
	"github.com/papertalks/bibliometrics-service/internal/database"
	"github.com/papertalks/bibliometrics-service/internal/observability"
)

func main() {
	pathOverride := flag.String("path", "", "migrations directory (defaults to the configured path)")
	flag.Parse()

	if err := run(*pathOverride, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(pathOverride string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate [-path dir] up|down|steps N|version|force V")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if pathOverride != "" {
		migrationDir = pathOverride
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch cmd := args[0]; cmd {
	case "up":
		logger.Info().Msg("applying pending migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		logger.Warn().Msg("rolling back all migrations")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "steps":
		n, err := intArg(args, "steps")
		if err != nil {
			return err
		}
		logger.Info().Int("steps", n).Msg("applying migration steps")
		if err := migrator.Steps(n); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case "version":
		// Falls through to the version report below.
	case "force":
		v, err := intArg(args, "force")
		if err != nil {
			return err
		}
		logger.Warn().Int("version", v).Msg("forcing schema version")
		if err := migrator.Force(v); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	reportVersion(migrator, logger)
	return nil
}

func intArg(args []string, cmd string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a numeric argument", cmd)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%s argument %q is not a number", cmd, args[1])
	}
	return n, nil
}

func reportVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine schema version")
		return
	}
	logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("current schema version")
}
