package pagereader

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "pagereader-*.db")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	db, err := sql.Open("sqlite3", f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE loans (id INTEGER PRIMARY KEY, amount INTEGER)`)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err = db.Exec(`INSERT INTO loans (id, amount) VALUES (?, ?)`, i, i*100)
		require.NoError(t, err)
	}

	return db
}

func TestNew_RejectsUnsafeIdentifiers(t *testing.T) {
	_, err := New(nil, Config{ViewName: "loans; DROP TABLE loans", OrderBy: "id"})
	assert.Error(t, err)

	_, err = New(nil, Config{ViewName: "loans", OrderBy: "id; DROP TABLE loans"})
	assert.Error(t, err)
}

func TestNew_DefaultsPageSize(t *testing.T) {
	r, err := New(nil, Config{ViewName: "loans", OrderBy: "id"})
	require.NoError(t, err)
	assert.Equal(t, 10000, r.config.PageSize)
}

func TestReadPage_ReturnsRowsInOrder(t *testing.T) {
	db := openTestDB(t)
	r, err := New(db, Config{ViewName: "loans", OrderBy: "id", PageSize: 2, Dialect: DialectSQLite})
	require.NoError(t, err)

	rows, err := r.ReadPage(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 1, rows[0]["id"])
	assert.EqualValues(t, 2, rows[1]["id"])
}

func TestReadPage_ReturnsEmptyPastEnd(t *testing.T) {
	db := openTestDB(t)
	r, err := New(db, Config{ViewName: "loans", OrderBy: "id", PageSize: 2, Dialect: DialectSQLite})
	require.NoError(t, err)

	rows, err := r.ReadPage(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGetTotalRowCount(t *testing.T) {
	db := openTestDB(t)
	r, err := New(db, Config{ViewName: "loans", OrderBy: "id", PageSize: 2, Dialect: DialectSQLite})
	require.NoError(t, err)

	count, err := r.GetTotalRowCount(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}

func TestTotalPages(t *testing.T) {
	assert.EqualValues(t, 0, TotalPages(0, 10))
	assert.EqualValues(t, 1, TotalPages(5, 10))
	assert.EqualValues(t, 2, TotalPages(10, 5))
	assert.EqualValues(t, 3, TotalPages(11, 5))
	assert.EqualValues(t, 0, TotalPages(10, 0))
}
