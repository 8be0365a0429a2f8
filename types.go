package batchworker

import "time"

// FileStatus represents the lifecycle state of one configured output file
// within a single daily run.
type FileStatus string

const (
	// FileStatusStarted indicates SetStart has been called for the file but
	// no page has been written yet.
	FileStatusStarted FileStatus = "started"

	// FileStatusInProgress indicates at least one page has been written.
	FileStatusInProgress FileStatus = "in_progress"

	// FileStatusCompleted indicates finalization has run for the file.
	FileStatusCompleted FileStatus = "completed"
)

// LeaseInfo is a diagnostic read of the current lease holder for a worker.
type LeaseInfo struct {
	WorkerID   string
	InstanceID string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// FileProgress is the durable per-file record tracked by the ProgressStore.
//
// Invariants: Status progresses monotonically Started -> InProgress ->
// Completed; LastPage never decreases; CompletedAt is set iff
// Status == FileStatusCompleted.
type FileProgress struct {
	FileID         string
	WorkerID       string
	Status         FileStatus
	LastPage       int
	CumulativeRows int64
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// Row is one extracted record, keyed by column name. Values may be nil to
// represent SQL NULL.
type Row map[string]any

// FileConfig describes one output file the orchestrator maintains for a
// worker: its stable identity, the path pattern used to derive its on-disk
// name, and which translator turns rows into lines for it.
type FileConfig struct {
	FileID          string
	FileNamePattern string
	TranslatorID    string
}
