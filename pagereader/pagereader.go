// Package pagereader provides stable-ordered, offset-based pagination over a
// relational view.
package pagereader

import (
	"context"

	batchworker "github.com/acme/batchworker"
)

// PageReader returns ordered slices of rows from a view and the view's
// current row count.
type PageReader interface {
	// ReadPage returns rows [p*PageSize, (p+1)*PageSize) in the configured
	// stable order. An empty result (with a nil error) signals the end of
	// the view.
	ReadPage(ctx context.Context, p int) ([]batchworker.Row, error)

	// GetTotalRowCount returns the view's current row count.
	GetTotalRowCount(ctx context.Context) (int64, error)
}

// TotalPages computes the number of pages needed to cover count rows of
// pageSize, rounding up.
func TotalPages(count int64, pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	if count <= 0 {
		return 0
	}
	return (count + int64(pageSize) - 1) / int64(pageSize)
}
