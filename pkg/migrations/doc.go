// Package migrations generates the lease and file-progress table schemas the
// store implementations in this module depend on, across PostgreSQL,
// MySQL/MariaDB, and SQLite.
package migrations
