// Package trigger implements the at-most-once-per-day gate that decides
// whether a worker should start a new extraction run.
package trigger

import (
	"context"
	"time"

	"github.com/acme/batchworker/store"
)

// Guard decides whether a worker should begin a new run today.
type Guard interface {
	// ShouldProcess returns false if a completed or in-progress run already
	// exists for workerId whose StartedAt falls within the current UTC
	// calendar day.
	ShouldProcess(ctx context.Context, workerID string) (bool, error)

	// MarkProcessed is a hook called after a successful run. The default
	// implementation is a no-op, since the decision is derived entirely
	// from ProgressStore.
	MarkProcessed(ctx context.Context, workerID string) error
}

// ProgressGuard derives ShouldProcess from ProgressStore.ListByWorker,
// treating any file record whose StartedAt is today (UTC) as evidence that
// today's run has already begun.
//
// This inspects FileProgress.StartedAt as a proxy for "did today's run
// start" rather than maintaining a dedicated daily-marker record.
type ProgressGuard struct {
	Store store.ProgressStore
	Now   func() time.Time
}

// NewProgressGuard creates a ProgressGuard backed by s.
func NewProgressGuard(s store.ProgressStore) *ProgressGuard {
	return &ProgressGuard{Store: s, Now: time.Now}
}

func (g *ProgressGuard) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *ProgressGuard) ShouldProcess(ctx context.Context, workerID string) (bool, error) {
	records, err := g.Store.ListByWorker(ctx, workerID)
	if err != nil {
		return false, err
	}

	today := g.now().UTC()
	for _, r := range records {
		if sameUTCDay(r.StartedAt, today) {
			return false, nil
		}
	}
	return true, nil
}

// MarkProcessed is a no-op: the decision is derived from ProgressStore, not
// from a separate daily-marker record.
func (g *ProgressGuard) MarkProcessed(ctx context.Context, workerID string) error {
	return nil
}

func sameUTCDay(a, b time.Time) bool {
	a = a.UTC()
	b = b.UTC()
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
