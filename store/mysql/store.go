package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	batchworker "github.com/acme/batchworker"
	"github.com/acme/batchworker/store"
)

// LeaseStore is a MySQL-backed implementation of store.LeaseStore.
type LeaseStore struct {
	db         *sql.DB
	leaseTable string
}

// NewLeaseStore creates a LeaseStore using the default table name.
func NewLeaseStore(db *sql.DB) *LeaseStore {
	return NewLeaseStoreWithConfig(db, DefaultTableConfig())
}

// NewLeaseStoreWithConfig creates a LeaseStore using the given table
// configuration.
func NewLeaseStoreWithConfig(db *sql.DB, config TableConfig) *LeaseStore {
	return &LeaseStore{db: db, leaseTable: config.LeaseTable}
}

func (s *LeaseStore) TryAcquire(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	query := fmt.Sprintf(`
		INSERT INTO %s (worker_id, instance_id, acquired_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			instance_id = IF(expires_at < ? OR instance_id = ?, ?, instance_id),
			acquired_at = IF(expires_at < ? OR instance_id = ?, ?, acquired_at),
			expires_at = IF(expires_at < ? OR instance_id = ?, ?, expires_at)
	`, s.leaseTable)

	result, err := s.db.ExecContext(ctx, query,
		workerID, instanceID, now, expiresAt,
		now, instanceID, instanceID,
		now, instanceID, now,
		now, instanceID, expiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("acquiring lease: %w", err)
	}

	// MySQL's ON DUPLICATE KEY UPDATE reports 2 affected rows when a row is
	// updated and the new values differ, 0 when nothing changed, 1 on insert.
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking lease acquisition: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	// No-op update: confirm whether we already hold it (idempotent re-acquire).
	var existingInstance string
	checkQuery := fmt.Sprintf(`SELECT instance_id FROM %s WHERE worker_id = ?`, s.leaseTable)
	if err := s.db.QueryRowContext(ctx, checkQuery, workerID).Scan(&existingInstance); err != nil {
		return false, fmt.Errorf("verifying lease acquisition: %w", err)
	}
	return existingInstance == instanceID, nil
}

func (s *LeaseStore) Renew(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET expires_at = ?
		WHERE worker_id = ? AND instance_id = ?
	`, s.leaseTable)

	result, err := s.db.ExecContext(ctx, query, time.Now().Add(ttl), workerID, instanceID)
	if err != nil {
		return false, fmt.Errorf("renewing lease: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking lease renewal: %w", err)
	}
	return rows > 0, nil
}

func (s *LeaseStore) Release(ctx context.Context, workerID, instanceID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE worker_id = ? AND instance_id = ?`, s.leaseTable)

	if _, err := s.db.ExecContext(ctx, query, workerID, instanceID); err != nil {
		return fmt.Errorf("releasing lease: %w", err)
	}
	return nil
}

func (s *LeaseStore) IsExpiredOrUnheld(ctx context.Context, workerID string) (bool, error) {
	query := fmt.Sprintf(`SELECT expires_at FROM %s WHERE worker_id = ?`, s.leaseTable)

	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, query, workerID).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading lease: %w", err)
	}
	return !expiresAt.After(time.Now()), nil
}

func (s *LeaseStore) Get(ctx context.Context, workerID string) (batchworker.LeaseInfo, error) {
	query := fmt.Sprintf(`
		SELECT worker_id, instance_id, acquired_at, expires_at FROM %s WHERE worker_id = ?
	`, s.leaseTable)

	var info batchworker.LeaseInfo
	err := s.db.QueryRowContext(ctx, query, workerID).Scan(&info.WorkerID, &info.InstanceID, &info.AcquiredAt, &info.ExpiresAt)
	if err == sql.ErrNoRows {
		return batchworker.LeaseInfo{}, store.ErrLeaseNotFound
	}
	if err != nil {
		return batchworker.LeaseInfo{}, fmt.Errorf("reading lease: %w", err)
	}
	return info, nil
}

// ProgressStore is a MySQL-backed implementation of store.ProgressStore.
type ProgressStore struct {
	db            *sql.DB
	progressTable string
}

// NewProgressStore creates a ProgressStore using the default table name.
func NewProgressStore(db *sql.DB) *ProgressStore {
	return NewProgressStoreWithConfig(db, DefaultTableConfig())
}

// NewProgressStoreWithConfig creates a ProgressStore using the given table
// configuration.
func NewProgressStoreWithConfig(db *sql.DB, config TableConfig) *ProgressStore {
	return &ProgressStore{db: db, progressTable: config.ProgressTable}
}

func (s *ProgressStore) SetStart(ctx context.Context, fileID, workerID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (file_id, worker_id, status, last_page, cumulative_rows, started_at)
		VALUES (?, ?, 'started', 0, 0, ?)
		ON DUPLICATE KEY UPDATE file_id = file_id
	`, s.progressTable)

	if _, err := s.db.ExecContext(ctx, query, fileID, workerID, time.Now()); err != nil {
		return fmt.Errorf("setting file start: %w", err)
	}
	return nil
}

func (s *ProgressStore) UpsertProgress(ctx context.Context, fileID string, page int, cumulativeRows int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = 'in_progress', last_page = ?, cumulative_rows = ?
		WHERE file_id = ?
	`, s.progressTable)

	result, err := s.db.ExecContext(ctx, query, page, cumulativeRows, fileID)
	if err != nil {
		return fmt.Errorf("updating file progress: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking progress update: %w", err)
	}
	if rows == 0 {
		var exists int
		checkQuery := fmt.Sprintf(`SELECT 1 FROM %s WHERE file_id = ?`, s.progressTable)
		if err := s.db.QueryRowContext(ctx, checkQuery, fileID).Scan(&exists); err == sql.ErrNoRows {
			return store.ErrFileNotFound
		}
	}
	return nil
}

func (s *ProgressStore) SetCompleted(ctx context.Context, fileID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = 'completed', completed_at = ?
		WHERE file_id = ?
	`, s.progressTable)

	result, err := s.db.ExecContext(ctx, query, time.Now(), fileID)
	if err != nil {
		return fmt.Errorf("setting file completed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking completion update: %w", err)
	}
	if rows == 0 {
		var exists int
		checkQuery := fmt.Sprintf(`SELECT 1 FROM %s WHERE file_id = ?`, s.progressTable)
		if err := s.db.QueryRowContext(ctx, checkQuery, fileID).Scan(&exists); err == sql.ErrNoRows {
			return store.ErrFileNotFound
		}
	}
	return nil
}

func (s *ProgressStore) Get(ctx context.Context, fileID string) (batchworker.FileProgress, error) {
	query := fmt.Sprintf(`
		SELECT file_id, worker_id, status, last_page, cumulative_rows, started_at, completed_at
		FROM %s WHERE file_id = ?
	`, s.progressTable)

	var p batchworker.FileProgress
	var status string
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, fileID).Scan(
		&p.FileID, &p.WorkerID, &status, &p.LastPage, &p.CumulativeRows, &p.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return batchworker.FileProgress{}, store.ErrFileNotFound
	}
	if err != nil {
		return batchworker.FileProgress{}, fmt.Errorf("reading file progress: %w", err)
	}

	p.Status = batchworker.FileStatus(status)
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return p, nil
}

func (s *ProgressStore) ListByWorker(ctx context.Context, workerID string) ([]batchworker.FileProgress, error) {
	query := fmt.Sprintf(`
		SELECT file_id, worker_id, status, last_page, cumulative_rows, started_at, completed_at
		FROM %s WHERE worker_id = ?
	`, s.progressTable)

	rows, err := s.db.QueryContext(ctx, query, workerID)
	if err != nil {
		return nil, fmt.Errorf("listing file progress: %w", err)
	}
	defer rows.Close()

	var results []batchworker.FileProgress
	for rows.Next() {
		var p batchworker.FileProgress
		var status string
		var completedAt sql.NullTime
		if err := rows.Scan(&p.FileID, &p.WorkerID, &status, &p.LastPage, &p.CumulativeRows, &p.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning file progress: %w", err)
		}
		p.Status = batchworker.FileStatus(status)
		if completedAt.Valid {
			p.CompletedAt = &completedAt.Time
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file progress: %w", err)
	}
	return results, nil
}

func (s *ProgressStore) GetMinOutstandingPage(ctx context.Context, workerID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MIN(last_page), 0) FROM %s
		WHERE worker_id = ? AND status != 'completed'
	`, s.progressTable)

	var minPage int
	if err := s.db.QueryRowContext(ctx, query, workerID).Scan(&minPage); err != nil {
		return 0, fmt.Errorf("reading min outstanding page: %w", err)
	}
	return minPage, nil
}
