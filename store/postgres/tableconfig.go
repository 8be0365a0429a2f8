// Package postgres provides a PostgreSQL-backed implementation of
// store.LeaseStore and store.ProgressStore.
package postgres

import "fmt"

// TableConfig configures the table names used by the store.
type TableConfig struct {
	// LeaseTable is the name of the table storing lease records.
	LeaseTable string

	// ProgressTable is the name of the table storing file progress records.
	ProgressTable string
}

// DefaultTableConfig returns the default table configuration.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		LeaseTable:    "batchworker_lease",
		ProgressTable: "batchworker_file_progress",
	}
}

// MigrationUp returns the SQL to create the store's tables.
func MigrationUp(config TableConfig) string {
	return fmt.Sprintf(`-- Create lease table
CREATE TABLE %s (
    worker_id TEXT PRIMARY KEY,
    instance_id TEXT NOT NULL,
    acquired_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX idx_%s_expires ON %s(expires_at);

-- Create file progress table
CREATE TABLE %s (
    file_id TEXT PRIMARY KEY,
    worker_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'started',
    last_page INTEGER NOT NULL DEFAULT 0,
    cumulative_rows BIGINT NOT NULL DEFAULT 0,
    started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);

CREATE INDEX idx_%s_worker ON %s(worker_id);
`, config.LeaseTable, config.LeaseTable, config.LeaseTable,
		config.ProgressTable, config.ProgressTable, config.ProgressTable)
}

// MigrationDown returns the SQL to drop the store's tables.
func MigrationDown(config TableConfig) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s;
DROP TABLE IF EXISTS %s;
`, config.ProgressTable, config.LeaseTable)
}
