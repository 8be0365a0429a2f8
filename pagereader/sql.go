package pagereader

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	batchworker "github.com/acme/batchworker"
	"github.com/acme/batchworker/retry"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateIdentifier rejects anything that isn't a safe bare SQL identifier,
// since view and column names are interpolated directly into the query
// rather than bound as placeholders.
func validateIdentifier(name, fieldName string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%s must start with a letter and contain only letters, numbers, and underscores (got: %s)", fieldName, name)
	}
	return nil
}

// Dialect selects the placeholder syntax used for bound parameters.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// Config configures a SQLPageReader.
type Config struct {
	ViewName   string
	OrderBy    string
	PageSize   int
	Dialect    Dialect
	RetryConfig retry.Config
}

// SQLPageReader reads pages directly from a database/sql view using
// ORDER BY/LIMIT/OFFSET, with identifiers validated and interpolated via
// fmt.Sprintf and values always bound as placeholders.
type SQLPageReader struct {
	db     *sql.DB
	config Config
}

// New creates a SQLPageReader. It returns an error if ViewName or OrderBy
// are not safe bare identifiers.
func New(db *sql.DB, config Config) (*SQLPageReader, error) {
	if err := validateIdentifier(config.ViewName, "ViewName"); err != nil {
		return nil, err
	}
	if err := validateIdentifier(config.OrderBy, "OrderBy"); err != nil {
		return nil, err
	}
	if config.PageSize <= 0 {
		config.PageSize = 10000
	}
	return &SQLPageReader{db: db, config: config}, nil
}

func (r *SQLPageReader) limitOffsetPlaceholders() (string, string) {
	switch r.config.Dialect {
	case DialectPostgres:
		return "$1", "$2"
	default:
		return "?", "?"
	}
}

func (r *SQLPageReader) ReadPage(ctx context.Context, p int) ([]batchworker.Row, error) {
	limitPlaceholder, offsetPlaceholder := r.limitOffsetPlaceholders()
	query := fmt.Sprintf(
		`SELECT * FROM %s ORDER BY %s LIMIT %s OFFSET %s`,
		r.config.ViewName, r.config.OrderBy, limitPlaceholder, offsetPlaceholder,
	)

	var rows []batchworker.Row
	err := retry.Do(ctx, r.config.RetryConfig, func(ctx context.Context) error {
		rows = nil

		res, err := r.db.QueryContext(ctx, query, r.config.PageSize, p*r.config.PageSize)
		if err != nil {
			return fmt.Errorf("reading page %d: %w", p, err)
		}
		defer res.Close()

		cols, err := res.Columns()
		if err != nil {
			return fmt.Errorf("reading page %d columns: %w", p, err)
		}

		for res.Next() {
			values := make([]any, len(cols))
			scanTargets := make([]any, len(cols))
			for i := range values {
				scanTargets[i] = &values[i]
			}
			if err := res.Scan(scanTargets...); err != nil {
				return fmt.Errorf("scanning page %d row: %w", p, err)
			}

			row := make(batchworker.Row, len(cols))
			for i, col := range cols {
				row[col] = values[i]
			}
			rows = append(rows, row)
		}
		return res.Err()
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SQLPageReader) GetTotalRowCount(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.config.ViewName)

	var count int64
	err := retry.Do(ctx, r.config.RetryConfig, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, query).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return count, nil
}
