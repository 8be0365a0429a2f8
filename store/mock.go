package store

import (
	"context"
	"sync"
	"time"

	batchworker "github.com/acme/batchworker"
)

// MockLeaseStore is a configurable mock implementation of LeaseStore for use
// in tests. It allows setting up expected return values, tracking method
// calls, and injecting errors for testing error paths.
type MockLeaseStore struct {
	mu sync.RWMutex

	TryAcquireFunc        func(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error)
	RenewFunc             func(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error)
	ReleaseFunc           func(ctx context.Context, workerID, instanceID string) error
	IsExpiredOrUnheldFunc func(ctx context.Context, workerID string) (bool, error)
	GetFunc               func(ctx context.Context, workerID string) (batchworker.LeaseInfo, error)

	TryAcquireCalls        []TryAcquireCall
	RenewCalls             []RenewCall
	ReleaseCalls           []ReleaseCall
	IsExpiredOrUnheldCalls []IsExpiredOrUnheldCall
	GetCalls               []GetLeaseCall
}

type TryAcquireCall struct {
	WorkerID, InstanceID string
	TTL                  time.Duration
}

type RenewCall struct {
	WorkerID, InstanceID string
	TTL                  time.Duration
}

type ReleaseCall struct {
	WorkerID, InstanceID string
}

type IsExpiredOrUnheldCall struct {
	WorkerID string
}

type GetLeaseCall struct {
	WorkerID string
}

// NewMockLeaseStore creates a new mock lease store.
func NewMockLeaseStore() *MockLeaseStore {
	return &MockLeaseStore{}
}

func (m *MockLeaseStore) TryAcquire(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	m.TryAcquireCalls = append(m.TryAcquireCalls, TryAcquireCall{workerID, instanceID, ttl})
	m.mu.Unlock()

	if m.TryAcquireFunc != nil {
		return m.TryAcquireFunc(ctx, workerID, instanceID, ttl)
	}
	return true, nil
}

func (m *MockLeaseStore) Renew(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	m.RenewCalls = append(m.RenewCalls, RenewCall{workerID, instanceID, ttl})
	m.mu.Unlock()

	if m.RenewFunc != nil {
		return m.RenewFunc(ctx, workerID, instanceID, ttl)
	}
	return true, nil
}

func (m *MockLeaseStore) Release(ctx context.Context, workerID, instanceID string) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, ReleaseCall{workerID, instanceID})
	m.mu.Unlock()

	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, workerID, instanceID)
	}
	return nil
}

func (m *MockLeaseStore) IsExpiredOrUnheld(ctx context.Context, workerID string) (bool, error) {
	m.mu.Lock()
	m.IsExpiredOrUnheldCalls = append(m.IsExpiredOrUnheldCalls, IsExpiredOrUnheldCall{workerID})
	m.mu.Unlock()

	if m.IsExpiredOrUnheldFunc != nil {
		return m.IsExpiredOrUnheldFunc(ctx, workerID)
	}
	return true, nil
}

func (m *MockLeaseStore) Get(ctx context.Context, workerID string) (batchworker.LeaseInfo, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, GetLeaseCall{workerID})
	m.mu.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(ctx, workerID)
	}
	return batchworker.LeaseInfo{}, ErrLeaseNotFound
}

// Reset clears all call tracking data.
func (m *MockLeaseStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TryAcquireCalls = nil
	m.RenewCalls = nil
	m.ReleaseCalls = nil
	m.IsExpiredOrUnheldCalls = nil
	m.GetCalls = nil
}

// MockProgressStore is a configurable mock implementation of ProgressStore.
type MockProgressStore struct {
	mu sync.RWMutex

	SetStartFunc              func(ctx context.Context, fileID, workerID string) error
	UpsertProgressFunc        func(ctx context.Context, fileID string, page int, cumulativeRows int64) error
	SetCompletedFunc          func(ctx context.Context, fileID string) error
	GetFunc                   func(ctx context.Context, fileID string) (batchworker.FileProgress, error)
	ListByWorkerFunc          func(ctx context.Context, workerID string) ([]batchworker.FileProgress, error)
	GetMinOutstandingPageFunc func(ctx context.Context, workerID string) (int, error)

	SetStartCalls              []SetStartCall
	UpsertProgressCalls        []UpsertProgressCall
	SetCompletedCalls          []SetCompletedCall
	GetCalls                   []GetProgressCall
	ListByWorkerCalls          []ListByWorkerCall
	GetMinOutstandingPageCalls []GetMinOutstandingPageCall
}

type SetStartCall struct{ FileID, WorkerID string }
type UpsertProgressCall struct {
	FileID         string
	Page           int
	CumulativeRows int64
}
type SetCompletedCall struct{ FileID string }
type GetProgressCall struct{ FileID string }
type ListByWorkerCall struct{ WorkerID string }
type GetMinOutstandingPageCall struct{ WorkerID string }

// NewMockProgressStore creates a new mock progress store.
func NewMockProgressStore() *MockProgressStore {
	return &MockProgressStore{}
}

func (m *MockProgressStore) SetStart(ctx context.Context, fileID, workerID string) error {
	m.mu.Lock()
	m.SetStartCalls = append(m.SetStartCalls, SetStartCall{fileID, workerID})
	m.mu.Unlock()

	if m.SetStartFunc != nil {
		return m.SetStartFunc(ctx, fileID, workerID)
	}
	return nil
}

func (m *MockProgressStore) UpsertProgress(ctx context.Context, fileID string, page int, cumulativeRows int64) error {
	m.mu.Lock()
	m.UpsertProgressCalls = append(m.UpsertProgressCalls, UpsertProgressCall{fileID, page, cumulativeRows})
	m.mu.Unlock()

	if m.UpsertProgressFunc != nil {
		return m.UpsertProgressFunc(ctx, fileID, page, cumulativeRows)
	}
	return nil
}

func (m *MockProgressStore) SetCompleted(ctx context.Context, fileID string) error {
	m.mu.Lock()
	m.SetCompletedCalls = append(m.SetCompletedCalls, SetCompletedCall{fileID})
	m.mu.Unlock()

	if m.SetCompletedFunc != nil {
		return m.SetCompletedFunc(ctx, fileID)
	}
	return nil
}

func (m *MockProgressStore) Get(ctx context.Context, fileID string) (batchworker.FileProgress, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, GetProgressCall{fileID})
	m.mu.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(ctx, fileID)
	}
	return batchworker.FileProgress{}, ErrFileNotFound
}

func (m *MockProgressStore) ListByWorker(ctx context.Context, workerID string) ([]batchworker.FileProgress, error) {
	m.mu.Lock()
	m.ListByWorkerCalls = append(m.ListByWorkerCalls, ListByWorkerCall{workerID})
	m.mu.Unlock()

	if m.ListByWorkerFunc != nil {
		return m.ListByWorkerFunc(ctx, workerID)
	}
	return nil, nil
}

func (m *MockProgressStore) GetMinOutstandingPage(ctx context.Context, workerID string) (int, error) {
	m.mu.Lock()
	m.GetMinOutstandingPageCalls = append(m.GetMinOutstandingPageCalls, GetMinOutstandingPageCall{workerID})
	m.mu.Unlock()

	if m.GetMinOutstandingPageFunc != nil {
		return m.GetMinOutstandingPageFunc(ctx, workerID)
	}
	return 0, nil
}

// Reset clears all call tracking data.
func (m *MockProgressStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetStartCalls = nil
	m.UpsertProgressCalls = nil
	m.SetCompletedCalls = nil
	m.GetCalls = nil
	m.ListByWorkerCalls = nil
	m.GetMinOutstandingPageCalls = nil
}
