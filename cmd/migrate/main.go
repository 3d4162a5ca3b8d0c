package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/liamcoop/scholarship/applicant"
	"github.com/liamcoop/scholarship/internal/config"
	"github.com/liamcoop/scholarship/internal/logger"
)

func main() {
	var databaseURL string
	var migrationsPath string
	var command string
	var configPath string

	flag.StringVar(&databaseURL, "database", "", "Database URL, e.g. postgres://... or sqlite://applicants.db")
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to migrations directory")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, version, force")
	flag.StringVar(&configPath, "config", os.Getenv("SCHOLARSHIP_CONFIG"), "Advisor config file; its applicants section is used when -database is empty")
	flag.Parse()

	if err := logger.Setup(logger.Options{Level: "info", Format: logger.FormatText, Output: os.Stderr}); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			logger.Fatal("Failed to load configuration", "error", err)
		}
		databaseURL, err = migrationURL(cfg.Applicants)
		if err != nil {
			logger.Fatal("Database URL is required. Use -database, DATABASE_URL or the applicants config section", "error", err)
		}
	}

	logger.Info("Connecting to database...", "migrations", migrationsPath)

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		logger.Fatal("Failed to create migration instance", "error", err)
	}
	defer m.Close()

	switch command {
	case "up":
		logger.Info("Running migrations up...")
		err = m.Up()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Failed to run migrations", "error", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No migrations to run (database is up to date)")
		} else {
			logger.Info("Migrations completed successfully")
		}

	case "down":
		logger.Info("Rolling back migrations...")
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Failed to rollback migrations", "error", err)
		}
		logger.Info("Rollback completed successfully")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			logger.Fatal("Failed to get version", "error", err)
		}
		logger.Info("Current version", "version", version, "dirty", dirty)

	case "force":
		if len(flag.Args()) < 1 {
			logger.Fatal("Force command requires a version number: -command force <version>")
		}
		var version int
		if _, err := fmt.Sscanf(flag.Arg(0), "%d", &version); err != nil {
			logger.Fatal("Invalid version number", "error", err)
		}
		if err := m.Force(version); err != nil {
			logger.Fatal("Failed to force version", "error", err)
		}
		logger.Info("Forced version", "version", version)

	default:
		logger.Fatal("Unknown command (use: up, down, version, force)", "command", command)
	}
}

// migrationURL turns the applicants config into a URL golang-migrate understands.
// Postgres DSNs must already be in URL form; sqlite DSNs are file paths.
func migrationURL(cfg config.ApplicantsConfig) (string, error) {
	switch cfg.Driver {
	case applicant.DriverPostgres:
		if !strings.HasPrefix(cfg.DSN, "postgres://") && !strings.HasPrefix(cfg.DSN, "postgresql://") {
			return "", fmt.Errorf("postgres dsn must be a postgres:// URL for migrations")
		}
		return cfg.DSN, nil
	case applicant.DriverSQLite:
		if strings.HasPrefix(cfg.DSN, "sqlite://") {
			return cfg.DSN, nil
		}
		return "sqlite://" + cfg.DSN, nil
	case "":
		return "", fmt.Errorf("no applicant database configured")
	default:
		return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}
