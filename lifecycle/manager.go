// Package lifecycle manages the heartbeat goroutine that keeps a held lease
// alive for as long as a replica remains leader.
package lifecycle

import (
	"context"
	"time"

	"github.com/acme/batchworker/logging"
	"github.com/acme/batchworker/store"
)

// Config holds configuration for the lifecycle Manager.
type Config struct {
	// Store is the lease store used to renew the held lease (required).
	Store store.LeaseStore

	// HeartbeatInterval is the interval between renewal attempts (default: 5s).
	HeartbeatInterval time.Duration

	// TTL is the lease duration requested on each renewal (default: 15s).
	TTL time.Duration

	// Logger is for observability (optional).
	Logger logging.Logger
}

// Manager renews a held lease on a fixed interval until told to stop, and
// signals the caller if a renewal fails or is lost.
type Manager struct {
	config     Config
	workerID   string
	instanceID string

	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a new lifecycle Manager for the given worker/instance pair.
// Applies default values for HeartbeatInterval and TTL if not set.
func New(cfg Config, workerID, instanceID string) *Manager {
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}
	if cfg.TTL == 0 {
		cfg.TTL = 15 * time.Second
	}

	return &Manager{
		config:     cfg,
		workerID:   workerID,
		instanceID: instanceID,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// StartHeartbeat runs the renewal loop in the current goroutine until ctx is
// cancelled, Stop is called, or a renewal reports the lease is no longer
// held. lost receives true in the latter case so the caller can step down.
func (m *Manager) StartHeartbeat(ctx context.Context, lost chan<- bool) {
	defer close(m.doneChan)

	ticker := time.NewTicker(m.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			held, err := m.config.Store.Renew(ctx, m.workerID, m.instanceID, m.config.TTL)
			if err != nil {
				if m.config.Logger != nil {
					m.config.Logger.Warn(ctx, "lease renewal failed", "workerID", m.workerID, "error", err)
				}
				continue
			}
			if !held {
				if m.config.Logger != nil {
					m.config.Logger.Warn(ctx, "lease lost during renewal", "workerID", m.workerID)
				}
				select {
				case lost <- true:
				default:
				}
				return
			}
			if m.config.Logger != nil {
				m.config.Logger.Debug(ctx, "lease renewed", "workerID", m.workerID)
			}
		}
	}
}

// Stop signals the heartbeat loop to exit and blocks until it has, or until
// timeout elapses.
func (m *Manager) Stop(timeout time.Duration) {
	close(m.stopChan)
	select {
	case <-m.doneChan:
	case <-time.After(timeout):
	}
}
