package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateIdentifier ensures an identifier contains only safe characters for SQL.
// Returns an error if the identifier contains characters that could be used for SQL injection.
func validateIdentifier(name, fieldName string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%s must start with a letter and contain only letters, numbers, and underscores (got: %s)", fieldName, name)
	}
	return nil
}

// validateConfig validates all configuration values to prevent SQL injection.
func validateConfig(config *Config) error {
	if err := validateIdentifier(config.SchemaName, "SchemaName"); err != nil {
		return err
	}
	if err := validateIdentifier(config.LeaseTable, "LeaseTable"); err != nil {
		return err
	}
	if err := validateIdentifier(config.ProgressTable, "ProgressTable"); err != nil {
		return err
	}
	return nil
}

// Config configures migration generation for the lease and progress tables
// the worker depends on.
type Config struct {
	// OutputFolder is the directory where the migration file will be written.
	OutputFolder string

	// OutputFilename is the name of the migration file.
	OutputFilename string

	// SchemaName is the database schema name (PostgreSQL) or database name
	// (MySQL). SQLite has no schemas, so table name prefixes are used
	// instead (e.g. batchworker_lease).
	SchemaName string

	// LeaseTable is the name of the leader-election lease table.
	LeaseTable string

	// ProgressTable is the name of the per-file progress table.
	ProgressTable string
}

// DefaultConfig returns the default configuration for worker migrations.
func DefaultConfig() Config {
	timestamp := time.Now().Format("20060102150405")
	return Config{
		OutputFolder:   "migrations",
		OutputFilename: fmt.Sprintf("%s_init_batchworker_coordination.sql", timestamp),
		SchemaName:     "batchworker",
		LeaseTable:     "lease",
		ProgressTable:  "file_progress",
	}
}

// GeneratePostgres generates a PostgreSQL migration file.
func GeneratePostgres(config *Config) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	sql := generatePostgresSQL(config)

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}
	return nil
}

func generatePostgresSQL(config *Config) string {
	return fmt.Sprintf(`-- Batch worker coordination infrastructure migration
-- Generated: %s
-- Database: PostgreSQL

CREATE SCHEMA IF NOT EXISTS %s;

-- Lease table implements TTL-expiring single-holder leader election.
-- One row per workerId; a replica holds leadership iff it owns instance_id
-- and expires_at has not passed.
CREATE TABLE IF NOT EXISTS %s.%s (
    worker_id TEXT PRIMARY KEY,
    instance_id TEXT NOT NULL,
    acquired_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%s_expires
    ON %s.%s (expires_at);

-- File progress table tracks crash-resumable extraction state per output
-- file. UpsertProgress is idempotent on file_id so a takeover replica can
-- safely re-apply the last recorded page.
CREATE TABLE IF NOT EXISTS %s.%s (
    file_id TEXT PRIMARY KEY,
    worker_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'started' CHECK (status IN ('started', 'in_progress', 'completed')),
    last_page INTEGER NOT NULL DEFAULT 0,
    cumulative_rows BIGINT NOT NULL DEFAULT 0,
    started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_%s_worker
    ON %s.%s (worker_id, status);
`,
		time.Now().Format(time.RFC3339),
		config.SchemaName,
		config.SchemaName, config.LeaseTable,
		config.LeaseTable, config.SchemaName, config.LeaseTable,
		config.SchemaName, config.ProgressTable,
		config.ProgressTable, config.SchemaName, config.ProgressTable,
	)
}

// GenerateMySQL generates a MySQL/MariaDB migration file.
func GenerateMySQL(config *Config) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	sql := generateMySQLSQL(config)

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}
	return nil
}

func generateMySQLSQL(config *Config) string {
	return fmt.Sprintf(`-- Batch worker coordination infrastructure migration
-- Generated: %s
-- Database: MySQL/MariaDB

CREATE DATABASE IF NOT EXISTS %s
    DEFAULT CHARACTER SET utf8mb4
    DEFAULT COLLATE utf8mb4_unicode_ci;

USE %s;

CREATE TABLE IF NOT EXISTS %s (
    worker_id VARCHAR(255) PRIMARY KEY,
    instance_id VARCHAR(255) NOT NULL,
    acquired_at TIMESTAMP(6) NOT NULL,
    expires_at TIMESTAMP(6) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;

CREATE INDEX idx_%s_expires
    ON %s (expires_at);

CREATE TABLE IF NOT EXISTS %s (
    file_id VARCHAR(255) PRIMARY KEY,
    worker_id VARCHAR(255) NOT NULL,
    status ENUM('started', 'in_progress', 'completed') NOT NULL DEFAULT 'started',
    last_page INT NOT NULL DEFAULT 0,
    cumulative_rows BIGINT NOT NULL DEFAULT 0,
    started_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    completed_at TIMESTAMP(6) NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;

CREATE INDEX idx_%s_worker
    ON %s (worker_id, status);
`,
		time.Now().Format(time.RFC3339),
		config.SchemaName,
		config.SchemaName,
		config.LeaseTable,
		config.LeaseTable, config.LeaseTable,
		config.ProgressTable,
		config.ProgressTable, config.ProgressTable,
	)
}

// GenerateSQLite generates a SQLite migration file.
func GenerateSQLite(config *Config) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	sql := generateSQLiteSQL(config)

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}
	return nil
}

func generateSQLiteSQL(config *Config) string {
	leaseTable := config.SchemaName + "_" + config.LeaseTable
	progressTable := config.SchemaName + "_" + config.ProgressTable

	return fmt.Sprintf(`-- Batch worker coordination infrastructure migration
-- Generated: %s
-- Database: SQLite

CREATE TABLE IF NOT EXISTS %s (
    worker_id TEXT PRIMARY KEY,
    instance_id TEXT NOT NULL,
    acquired_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%s_expires
    ON %s (expires_at);

CREATE TABLE IF NOT EXISTS %s (
    file_id TEXT PRIMARY KEY,
    worker_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'started' CHECK (status IN ('started', 'in_progress', 'completed')),
    last_page INTEGER NOT NULL DEFAULT 0,
    cumulative_rows INTEGER NOT NULL DEFAULT 0,
    started_at TEXT NOT NULL DEFAULT (datetime('now')),
    completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_%s_worker
    ON %s (worker_id, status);
`,
		time.Now().Format(time.RFC3339),
		leaseTable,
		leaseTable, leaseTable,
		progressTable,
		progressTable, progressTable,
	)
}
