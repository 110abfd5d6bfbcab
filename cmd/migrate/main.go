package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/migration"
	"github.com/erp/fulfillment/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

// fileCommands work on migration files only
var fileCommands = map[string]func(log *zap.Logger, dir string, args []string) error{
	"create": createCmd,
	"list":   listCmd,
}

// dbCommands need a migrator bound to the configured database
var dbCommands = map[string]func(log *zap.Logger, m *migration.Migrator, args []string) error{
	"up":      func(_ *zap.Logger, m *migration.Migrator, _ []string) error { return m.Up() },
	"down":    func(_ *zap.Logger, m *migration.Migrator, _ []string) error { return m.Down() },
	"step":    stepCmd,
	"version": versionCmd,
	"force":   forceCmd,
}

func main() {
	migrationsPath := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command, rest := args[0], args[1:]

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	dir := *migrationsPath
	if dir != "" {
		if dir, err = filepath.Abs(dir); err != nil {
			log.Fatal("Failed to resolve migrations path", zap.Error(err))
		}
	}
	log.Info("Migration CLI started", zap.String("command", command), zap.String("migrations_path", dir))

	if run, ok := fileCommands[command]; ok {
		if err := run(log, dir, rest); err != nil {
			log.Fatal("Command failed", zap.String("command", command), zap.Error(err))
		}
		return
	}

	run, ok := dbCommands[command]
	if !ok {
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	m, err := openMigrator(cfg.Database.DSN(), dir, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	runErr := run(log, m, rest)
	if err := m.Close(); err != nil {
		log.Error("Error closing migrator", zap.Error(err))
	}
	if runErr != nil {
		log.Fatal("Command failed", zap.String("command", command), zap.Error(runErr))
	}
}

// openMigrator uses the embedded migrations unless dir is set
func openMigrator(dsn, dir string, log *zap.Logger) (*migration.Migrator, error) {
	if dir != "" {
		return migration.NewFromDir(dsn, dir, log)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return migration.New(db, log)
}

func createCmd(log *zap.Logger, dir string, args []string) error {
	if len(args) < 1 {
		return errors.New("migration name required: migrate create <name> [description]")
	}
	if dir == "" {
		dir = defaultMigrationsPath
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func listCmd(log *zap.Logger, dir string, _ []string) error {
	var source fs.FS = migrations.FS
	if dir != "" {
		source = os.DirFS(dir)
	}
	list, err := migration.ListMigrations(source)
	if err != nil {
		return err
	}
	log.Info("Available migrations", zap.Int("count", len(list)))
	for _, m := range list {
		fmt.Println("  -", m)
	}
	return nil
}

func stepCmd(_ *zap.Logger, m *migration.Migrator, args []string) error {
	n, err := intArg(args, "step count", "migrate step <n>")
	if err != nil {
		return err
	}
	return m.Steps(n)
}

func versionCmd(log *zap.Logger, m *migration.Migrator, _ []string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		log.Info("No migrations applied")
		return nil
	}
	log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func forceCmd(log *zap.Logger, m *migration.Migrator, args []string) error {
	version, err := intArg(args, "version", "migrate force <version>")
	if err != nil {
		return err
	}
	log.Warn("Forcing migration version", zap.Int("version", version))
	return m.Force(version)
}

func intArg(args []string, what, usage string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%s required: %s", what, usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Println(`Fulfillment Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  version               Show current migration version
  force <version>       Force set migration version (use with caution)
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: the set built into the binary)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  FULFILLMENT_DATABASE_HOST, FULFILLMENT_DATABASE_PORT, FULFILLMENT_DATABASE_USER,
  FULFILLMENT_DATABASE_PASSWORD, FULFILLMENT_DATABASE_DBNAME, FULFILLMENT_DATABASE_SSLMODE

Examples:
  migrate up
  migrate step -1
  migrate -path ./migrations create add_carrier_column "Track the carrier of a shipment"
  migrate version`)
}
