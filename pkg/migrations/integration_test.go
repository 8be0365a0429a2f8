//go:build integration

package migrations_test

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/acme/batchworker/pkg/migrations"
)

// NOTE: Integration tests use string interpolation for SQL queries with validated
// configuration values. This is acceptable in test code as all config values are
// controlled by the test and have been validated by the migrations package.
// Production code should always use parameterized queries.

func TestIntegrationPostgres(t *testing.T) {
	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping PostgreSQL integration test")
	}

	tmpDir := t.TempDir()
	config := migrations.Config{
		OutputFolder:   tmpDir,
		OutputFilename: "postgres_integration.sql",
		SchemaName:     "batchworker_test",
		LeaseTable:     "lease",
		ProgressTable:  "file_progress",
	}

	err := migrations.GeneratePostgres(&config)
	if err != nil {
		t.Fatalf("Failed to generate migration: %v", err)
	}

	migrationPath := filepath.Join(tmpDir, config.OutputFilename)
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(string(migrationSQL))
	if err != nil {
		t.Fatalf("Failed to execute migration: %v", err)
	}

	var schemaExists bool
	err = db.QueryRow("SELECT EXISTS(SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)", config.SchemaName).Scan(&schemaExists)
	if err != nil {
		t.Fatalf("Failed to check schema existence: %v", err)
	}
	if !schemaExists {
		t.Errorf("Schema %s was not created", config.SchemaName)
	}

	var leaseExists bool
	err = db.QueryRow(fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_schema = '%s' AND table_name = '%s')",
		config.SchemaName, config.LeaseTable)).Scan(&leaseExists)
	if err != nil {
		t.Fatalf("Failed to check lease table: %v", err)
	}
	if !leaseExists {
		t.Error("lease table was not created")
	}

	var progressExists bool
	err = db.QueryRow(fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_schema = '%s' AND table_name = '%s')",
		config.SchemaName, config.ProgressTable)).Scan(&progressExists)
	if err != nil {
		t.Fatalf("Failed to check file_progress table: %v", err)
	}
	if !progressExists {
		t.Error("file_progress table was not created")
	}

	_, err = db.Exec(fmt.Sprintf("INSERT INTO %s.%s (worker_id, instance_id, acquired_at, expires_at) VALUES ($1, $2, NOW(), NOW())",
		config.SchemaName, config.LeaseTable), "worker-1", "instance-1")
	if err != nil {
		t.Fatalf("Failed to insert into lease: %v", err)
	}

	_, err = db.Exec(fmt.Sprintf("INSERT INTO %s.%s (file_id, worker_id, status) VALUES ($1, $2, $3)",
		config.SchemaName, config.ProgressTable), "file-1", "worker-1", "started")
	if err != nil {
		t.Fatalf("Failed to insert into file_progress: %v", err)
	}

	_, err = db.Exec(fmt.Sprintf("DROP SCHEMA %s CASCADE", config.SchemaName))
	if err != nil {
		t.Logf("Warning: Failed to clean up schema: %v", err)
	}
}

func TestIntegrationMySQL(t *testing.T) {
	dbURL := os.Getenv("MYSQL_URL")
	if dbURL == "" {
		t.Skip("MYSQL_URL not set, skipping MySQL integration test")
	}

	tmpDir := t.TempDir()
	config := migrations.Config{
		OutputFolder:   tmpDir,
		OutputFilename: "mysql_integration.sql",
		SchemaName:     "batchworker_test",
		LeaseTable:     "lease",
		ProgressTable:  "file_progress",
	}

	err := migrations.GenerateMySQL(&config)
	if err != nil {
		t.Fatalf("Failed to generate migration: %v", err)
	}

	migrationPath := filepath.Join(tmpDir, config.OutputFilename)
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}

	db, err := sql.Open("mysql", dbURL+"?multiStatements=true")
	if err != nil {
		t.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(string(migrationSQL))
	if err != nil {
		t.Fatalf("Failed to execute migration: %v", err)
	}

	var dbExists int
	err = db.QueryRow("SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = ?", config.SchemaName).Scan(&dbExists)
	if err != nil {
		t.Fatalf("Failed to check database existence: %v", err)
	}
	if dbExists == 0 {
		t.Errorf("Database %s was not created", config.SchemaName)
	}

	_, err = db.Exec(fmt.Sprintf("USE %s", config.SchemaName))
	if err != nil {
		t.Fatalf("Failed to switch to test database: %v", err)
	}

	var leaseExists int
	err = db.QueryRow("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
		config.SchemaName, config.LeaseTable).Scan(&leaseExists)
	if err != nil {
		t.Fatalf("Failed to check lease table: %v", err)
	}
	if leaseExists == 0 {
		t.Error("lease table was not created")
	}

	_, err = db.Exec(fmt.Sprintf("INSERT INTO %s (worker_id, instance_id, acquired_at, expires_at) VALUES (?, ?, NOW(), NOW())",
		config.LeaseTable), "worker-1", "instance-1")
	if err != nil {
		t.Fatalf("Failed to insert into lease: %v", err)
	}

	_, err = db.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", config.SchemaName))
	if err != nil {
		t.Logf("Warning: Failed to clean up database: %v", err)
	}
}

func TestIntegrationSQLite(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	config := migrations.Config{
		OutputFolder:   tmpDir,
		OutputFilename: "sqlite_integration.sql",
		SchemaName:     "batchworker",
		LeaseTable:     "lease",
		ProgressTable:  "file_progress",
	}

	err := migrations.GenerateSQLite(&config)
	if err != nil {
		t.Fatalf("Failed to generate migration: %v", err)
	}

	migrationPath := filepath.Join(tmpDir, config.OutputFilename)
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to connect to SQLite: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(string(migrationSQL))
	if err != nil {
		t.Fatalf("Failed to execute migration: %v", err)
	}

	leaseTable := config.SchemaName + "_" + config.LeaseTable
	progressTable := config.SchemaName + "_" + config.ProgressTable

	var leaseExists int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
		leaseTable).Scan(&leaseExists)
	if err != nil {
		t.Fatalf("Failed to check lease table: %v", err)
	}
	if leaseExists == 0 {
		t.Error("lease table was not created")
	}

	var progressExists int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
		progressTable).Scan(&progressExists)
	if err != nil {
		t.Fatalf("Failed to check file_progress table: %v", err)
	}
	if progressExists == 0 {
		t.Error("file_progress table was not created")
	}

	_, err = db.Exec(fmt.Sprintf("INSERT INTO %s (worker_id, instance_id, acquired_at, expires_at) VALUES (?, ?, datetime('now'), datetime('now'))",
		leaseTable), "worker-1", "instance-1")
	if err != nil {
		t.Fatalf("Failed to insert into lease: %v", err)
	}

	_, err = db.Exec(fmt.Sprintf("INSERT INTO %s (file_id, worker_id, status) VALUES (?, ?, ?)",
		progressTable), "file-1", "worker-1", "started")
	if err != nil {
		t.Fatalf("Failed to insert into file_progress: %v", err)
	}
}
