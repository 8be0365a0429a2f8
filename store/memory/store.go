// Package memory provides in-memory implementations of LeaseStore and
// ProgressStore, primarily for tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	batchworker "github.com/acme/batchworker"
	"github.com/acme/batchworker/store"
)

type leaseRecord struct {
	instanceID string
	acquiredAt time.Time
	expiresAt  time.Time
}

// LeaseStore is a mutex-guarded in-memory implementation of store.LeaseStore.
type LeaseStore struct {
	mu     sync.RWMutex
	leases map[string]leaseRecord
	now    func() time.Time
}

// NewLeaseStore creates a new in-memory lease store.
func NewLeaseStore() *LeaseStore {
	return &LeaseStore{
		leases: make(map[string]leaseRecord),
		now:    time.Now,
	}
}

func (s *LeaseStore) TryAcquire(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.leases[workerID]
	if ok && existing.expiresAt.After(now) && existing.instanceID != instanceID {
		return false, nil
	}

	s.leases[workerID] = leaseRecord{
		instanceID: instanceID,
		acquiredAt: now,
		expiresAt:  now.Add(ttl),
	}
	return true, nil
}

func (s *LeaseStore) Renew(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.leases[workerID]
	if !ok || existing.instanceID != instanceID {
		return false, nil
	}

	existing.expiresAt = s.now().Add(ttl)
	s.leases[workerID] = existing
	return true, nil
}

func (s *LeaseStore) Release(ctx context.Context, workerID, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.leases[workerID]
	if !ok || existing.instanceID != instanceID {
		return nil
	}
	delete(s.leases, workerID)
	return nil
}

func (s *LeaseStore) IsExpiredOrUnheld(ctx context.Context, workerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.leases[workerID]
	if !ok {
		return true, nil
	}
	return !existing.expiresAt.After(s.now()), nil
}

func (s *LeaseStore) Get(ctx context.Context, workerID string) (batchworker.LeaseInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.leases[workerID]
	if !ok {
		return batchworker.LeaseInfo{}, store.ErrLeaseNotFound
	}

	return batchworker.LeaseInfo{
		WorkerID:   workerID,
		InstanceID: existing.instanceID,
		AcquiredAt: existing.acquiredAt,
		ExpiresAt:  existing.expiresAt,
	}, nil
}

// ProgressStore is a mutex-guarded in-memory implementation of
// store.ProgressStore.
type ProgressStore struct {
	mu       sync.RWMutex
	progress map[string]batchworker.FileProgress // fileID -> progress
	now      func() time.Time
}

// NewProgressStore creates a new in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		progress: make(map[string]batchworker.FileProgress),
		now:      time.Now,
	}
}

func (s *ProgressStore) SetStart(ctx context.Context, fileID, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.progress[fileID]; ok && existing.Status != batchworker.FileStatusStarted {
		return nil
	}

	s.progress[fileID] = batchworker.FileProgress{
		FileID:    fileID,
		WorkerID:  workerID,
		Status:    batchworker.FileStatusStarted,
		StartedAt: s.now(),
	}
	return nil
}

func (s *ProgressStore) UpsertProgress(ctx context.Context, fileID string, page int, cumulativeRows int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.progress[fileID]
	if !ok {
		return store.ErrFileNotFound
	}

	existing.Status = batchworker.FileStatusInProgress
	existing.LastPage = page
	existing.CumulativeRows = cumulativeRows
	s.progress[fileID] = existing
	return nil
}

func (s *ProgressStore) SetCompleted(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.progress[fileID]
	if !ok {
		return store.ErrFileNotFound
	}

	now := s.now()
	existing.Status = batchworker.FileStatusCompleted
	existing.CompletedAt = &now
	s.progress[fileID] = existing
	return nil
}

func (s *ProgressStore) Get(ctx context.Context, fileID string) (batchworker.FileProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.progress[fileID]
	if !ok {
		return batchworker.FileProgress{}, store.ErrFileNotFound
	}
	return existing, nil
}

func (s *ProgressStore) ListByWorker(ctx context.Context, workerID string) ([]batchworker.FileProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []batchworker.FileProgress
	for _, p := range s.progress {
		if p.WorkerID == workerID {
			results = append(results, p)
		}
	}
	return results, nil
}

func (s *ProgressStore) GetMinOutstandingPage(ctx context.Context, workerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	min := 0
	first := true
	for _, p := range s.progress {
		if p.WorkerID != workerID || p.Status == batchworker.FileStatusCompleted {
			continue
		}
		if first || p.LastPage < min {
			min = p.LastPage
			first = false
		}
	}
	return min, nil
}
