package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acme/batchworker/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartHeartbeat_RenewsAtConfiguredInterval(t *testing.T) {
	mockStore := store.NewMockLeaseStore()

	renewCount := 0
	mockStore.RenewFunc = func(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
		renewCount++
		return true, nil
	}

	manager := New(Config{Store: mockStore, HeartbeatInterval: 50 * time.Millisecond}, "worker-1", "instance-1")

	ctx, cancel := context.WithTimeout(context.Background(), 170*time.Millisecond)
	defer cancel()

	lost := make(chan bool, 1)
	manager.StartHeartbeat(ctx, lost)

	assert.GreaterOrEqual(t, renewCount, 2)
	select {
	case <-lost:
		t.Fatal("did not expect lease-lost signal")
	default:
	}
}

func TestStartHeartbeat_SignalsLostWhenRenewalReturnsFalse(t *testing.T) {
	mockStore := store.NewMockLeaseStore()
	mockStore.RenewFunc = func(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
		return false, nil
	}

	manager := New(Config{Store: mockStore, HeartbeatInterval: 10 * time.Millisecond}, "worker-1", "instance-1")

	lost := make(chan bool, 1)
	done := make(chan struct{})
	go func() {
		manager.StartHeartbeat(context.Background(), lost)
		close(done)
	}()

	select {
	case wasLost := <-lost:
		assert.True(t, wasLost)
	case <-time.After(time.Second):
		t.Fatal("expected lease-lost signal")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartHeartbeat did not return after losing the lease")
	}
}

func TestStartHeartbeat_ContinuesAfterTransientRenewError(t *testing.T) {
	mockStore := store.NewMockLeaseStore()

	calls := 0
	mockStore.RenewFunc = func(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
		calls++
		if calls == 1 {
			return false, errors.New("transient")
		}
		return true, nil
	}

	manager := New(Config{Store: mockStore, HeartbeatInterval: 20 * time.Millisecond}, "worker-1", "instance-1")

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
	defer cancel()

	lost := make(chan bool, 1)
	manager.StartHeartbeat(ctx, lost)

	assert.GreaterOrEqual(t, calls, 2)
	select {
	case <-lost:
		t.Fatal("a transient error must not be treated as lease loss")
	default:
	}
}

func TestContextCancellation_StopsHeartbeatPromptly(t *testing.T) {
	mockStore := store.NewMockLeaseStore()
	mockStore.RenewFunc = func(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
		return true, nil
	}

	manager := New(Config{Store: mockStore, HeartbeatInterval: time.Second}, "worker-1", "instance-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.StartHeartbeat(ctx, make(chan bool, 1))
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("StartHeartbeat did not return promptly after context cancellation")
	}
}

func TestStop_StopsHeartbeatLoop(t *testing.T) {
	mockStore := store.NewMockLeaseStore()
	mockStore.RenewFunc = func(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
		return true, nil
	}

	manager := New(Config{Store: mockStore, HeartbeatInterval: time.Second}, "worker-1", "instance-1")

	done := make(chan struct{})
	go func() {
		manager.StartHeartbeat(context.Background(), make(chan bool, 1))
		close(done)
	}()

	manager.Stop(time.Second)

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Stop did not cause StartHeartbeat to return")
	}
}

func TestNilLogger_DoesntPanic(t *testing.T) {
	mockStore := store.NewMockLeaseStore()
	mockStore.RenewFunc = func(ctx context.Context, workerID, instanceID string, ttl time.Duration) (bool, error) {
		return true, nil
	}

	manager := New(Config{Store: mockStore, Logger: nil, HeartbeatInterval: 20 * time.Millisecond}, "worker-1", "instance-1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NotPanics(t, func() {
		manager.StartHeartbeat(ctx, make(chan bool, 1))
	})
}
