// Package mysql provides a MySQL-backed implementation of store.LeaseStore
// and store.ProgressStore.
package mysql

import "fmt"

// TableConfig configures the table names used by the store.
type TableConfig struct {
	LeaseTable    string
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
    worker_id VARCHAR(255) PRIMARY KEY,
    instance_id VARCHAR(255) NOT NULL,
    acquired_at DATETIME NOT NULL,
    expires_at DATETIME NOT NULL,
    INDEX idx_%s_expires (expires_at)
);

-- Create file progress table
CREATE TABLE %s (
    file_id VARCHAR(255) PRIMARY KEY,
    worker_id VARCHAR(255) NOT NULL,
    status VARCHAR(32) NOT NULL DEFAULT 'started',
    last_page INT NOT NULL DEFAULT 0,
    cumulative_rows BIGINT NOT NULL DEFAULT 0,
    started_at DATETIME NOT NULL,
    completed_at DATETIME NULL,
    INDEX idx_%s_worker (worker_id)
);
`, config.LeaseTable, config.LeaseTable, config.ProgressTable, config.ProgressTable)
}

// MigrationDown returns the SQL to drop the store's tables.
func MigrationDown(config TableConfig) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s;
DROP TABLE IF EXISTS %s;
`, config.ProgressTable, config.LeaseTable)
}
