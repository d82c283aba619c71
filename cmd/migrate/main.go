package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/infrastructure/config"
	"github.com/storesync/backend/internal/infrastructure/logger"
	"github.com/storesync/backend/internal/infrastructure/migration"
)

const defaultMigrationsPath = "migrations"

var errUnknownCommand = errors.New("unknown command")

func main() {
	var (
		pathFlag string
		logLevel string
	)
	flag.StringVar(&pathFlag, "path", "", "path to the migrations directory (default: ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(log, pathFlag, args[0], args[1:]); err != nil {
		if errors.Is(err, errUnknownCommand) {
			printUsage()
		}
		log.Fatal("migrate failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func run(log *zap.Logger, pathFlag, command string, args []string) error {
	path, err := resolveMigrationsPath(pathFlag)
	if err != nil {
		return err
	}

	log.Info("migration tool started",
		zap.String("command", command),
		zap.String("migrations_path", path),
	)

	// create and list work on the filesystem alone.
	switch command {
	case "create":
		return runCreate(log, path, args)
	case "list":
		return runList(log, path)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, path, log)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg(args, "step <n>")
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "goto":
		version, err := uintArg(args, "goto <version>")
		if err != nil {
			return err
		}
		return m.GoTo(version)
	case "version":
		return reportVersion(log, m)
	case "force":
		version, err := intArg(args, "force <version>")
		if err != nil {
			return err
		}
		log.Warn("forcing migration version", zap.Int("version", version))
		return m.Force(version)
	case "drop":
		if !confirmed(args) {
			return errors.New("drop aborted, rerun with -confirm to wipe the schema")
		}
		return m.Drop()
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, command)
	}
}

func runCreate(log *zap.Logger, path string, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: migrate create <name> [description]")
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(path, args[0], description)
	if err != nil {
		return fmt.Errorf("create migration: %w", err)
	}

	log.Info("migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(log *zap.Logger, path string) error {
	migrations, err := migration.ListMigrations(path)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(migrations) == 0 {
		log.Info("no migrations found")
		return nil
	}

	log.Info("available migrations", zap.Int("count", len(migrations)))
	for _, m := range migrations {
		fmt.Println("  -", m)
	}
	return nil
}

func reportVersion(log *zap.Logger, m *migration.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if version == 0 {
		log.Info("no migrations applied")
		return nil
	}
	log.Info("current migration version",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

func intArg(args []string, usage string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("usage: migrate %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", args[0])
	}
	return n, nil
}

func uintArg(args []string, usage string) (uint, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("usage: migrate %s", usage)
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not a version number: %q", args[0])
	}
	return uint(n), nil
}

func confirmed(args []string) bool {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return true
		}
	}
	return false
}

// resolveMigrationsPath falls back to ./migrations, then to the
// directory two levels above the binary for container layouts where
// the tool lives in a bin subdirectory.
func resolveMigrationsPath(flagPath string) (string, error) {
	path := flagPath
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if execPath, execErr := os.Executable(); execErr == nil {
				candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsPath)
				if _, statErr := os.Stat(candidate); statErr == nil {
					path = candidate
				}
			}
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}
	return abs, nil
}

func printUsage() {
	fmt.Println(`StoreSync database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (use with caution)
  drop -confirm         Drop all database objects (DANGEROUS)
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Path to migrations directory (default: ./migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  STORESYNC_DATABASE_HOST, STORESYNC_DATABASE_PORT, STORESYNC_DATABASE_USER,
  STORESYNC_DATABASE_PASSWORD, STORESYNC_DATABASE_DBNAME, STORESYNC_DATABASE_SSLMODE

Examples:
  # Apply all pending migrations
  migrate up

  # Roll back the last migration
  migrate step -1

  # Create a new migration
  migrate create add_store_tokens "Store OAuth token table"

  # Check current version
  migrate version`)
}
