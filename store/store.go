// Package store defines the persistence contracts the orchestrator depends
// on for leader election (LeaseStore) and crash-resume bookkeeping
// (ProgressStore), plus PostgreSQL, MySQL, SQLite, and in-memory
// implementations of both.
package store

import (
	"context"
	"time"

	batchworker "github.com/acme/batchworker"
)

// LeaseStore provides a durable, TTL-expiring single-holder mutex keyed by
// worker identity. Implementations must be safe for concurrent access from
// multiple replicas across process and machine boundaries.
type LeaseStore interface {
	// TryAcquire atomically claims the lease for workerId on behalf of
	// instanceId if no record exists or the existing record has expired.
	// Returns true iff the caller now holds the lease.
	//
	// Implementations that cannot express this as a single atomic
	// conditional write must upsert and then read back the record,
	// returning true only if it still names instanceId.
	//
	// Transient store errors are reported as false, never as true: the
	// safety bias is to lose leadership, not to falsely claim it.
	TryAcquire(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error)

	// Renew extends expiresAt for workerId only if instanceId still holds
	// the lease. Returns true iff exactly one record was modified.
	Renew(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error)

	// Release deletes the lease record for workerId if instanceId holds it.
	// A missing record is not an error.
	Release(ctx context.Context, workerID, instanceID string) error

	// IsExpiredOrUnheld reports whether no record exists for workerId or its
	// expiresAt has passed.
	IsExpiredOrUnheld(ctx context.Context, workerID string) (bool, error)

	// Get returns a diagnostic read of the current lease holder.
	// Returns ErrLeaseNotFound if no record exists.
	Get(ctx context.Context, workerID string) (batchworker.LeaseInfo, error)
}

// ProgressStore tracks the per-file status and page/row counters for a
// worker's runs. Operations are upsert-shaped and idempotent so that a
// replica taking over from a crashed leader can safely re-apply them.
type ProgressStore interface {
	// SetStart creates the FileProgress record with status Started on
	// first observation of fileId, or re-asserts Started on an existing
	// record only if it has not already progressed to InProgress or
	// Completed.
	SetStart(ctx context.Context, fileID, workerID string) error

	// UpsertProgress sets status InProgress and records lastPage and
	// cumulativeRows. Callers must ensure page is monotonically
	// non-decreasing for a given fileId.
	UpsertProgress(ctx context.Context, fileID string, page int, cumulativeRows int64) error

	// SetCompleted transitions fileId to Completed and records
	// completedAt.
	SetCompleted(ctx context.Context, fileID string) error

	// Get returns the FileProgress record for fileId, or ErrFileNotFound
	// if none exists.
	Get(ctx context.Context, fileID string) (batchworker.FileProgress, error)

	// ListByWorker returns every FileProgress record for workerId.
	ListByWorker(ctx context.Context, workerID string) ([]batchworker.FileProgress, error)

	// GetMinOutstandingPage returns the minimum lastPage across records for
	// workerId whose status is not Completed, or 0 if none are outstanding.
	// This is the page at which extraction resumes after a takeover.
	GetMinOutstandingPage(ctx context.Context, workerID string) (int, error)
}
