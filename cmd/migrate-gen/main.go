// Command migrate-gen generates SQL migration files for the lease and
// file-progress tables the worker depends on.
//
// Usage:
//
//	go run github.com/acme/batchworker/cmd/migrate-gen -output migrations
//
// Generate migrations for different database adapters:
//
//	go run github.com/acme/batchworker/cmd/migrate-gen -adapter postgres -output migrations
//	go run github.com/acme/batchworker/cmd/migrate-gen -adapter mysql -output migrations
//	go run github.com/acme/batchworker/cmd/migrate-gen -adapter sqlite -output migrations
//
// Customize table names:
//
//	go run github.com/acme/batchworker/cmd/migrate-gen -schema batchworker -lease-table lease -output migrations
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/acme/batchworker/pkg/migrations"
)

func main() {
	var (
		adapter        = flag.String("adapter", "postgres", "Database adapter: postgres, mysql, or sqlite")
		outputFolder   = flag.String("output", "migrations", "Output folder for migration file")
		outputFilename = flag.String("filename", "", "Output filename (default: timestamp-based)")
		schemaName     = flag.String("schema", "batchworker", "Schema name (PostgreSQL) or database name (MySQL)")
		leaseTable     = flag.String("lease-table", "lease", "Name of the lease table")
		progressTable  = flag.String("progress-table", "file_progress", "Name of the file progress table")
	)

	flag.Parse()

	config := migrations.DefaultConfig()
	config.OutputFolder = *outputFolder
	config.SchemaName = *schemaName
	config.LeaseTable = *leaseTable
	config.ProgressTable = *progressTable

	if *outputFilename != "" {
		config.OutputFilename = *outputFilename
	}

	var err error
	switch *adapter {
	case "postgres":
		err = migrations.GeneratePostgres(&config)
	case "mysql":
		err = migrations.GenerateMySQL(&config)
	case "sqlite":
		err = migrations.GenerateSQLite(&config)
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported adapter '%s'. Supported adapters are: postgres, mysql, sqlite\n", *adapter)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s migration: %s/%s\n", *adapter, config.OutputFolder, config.OutputFilename)
}
