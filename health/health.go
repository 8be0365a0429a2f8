// Package health implements the readiness and liveness checks exposed by
// the worker host, following the corpus's small *http.Server wrapper
// convention for auxiliary endpoints (metrics, health).
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	batchworker "github.com/acme/batchworker"
	"github.com/acme/batchworker/pagereader"
	"github.com/acme/batchworker/store"
)

// ErrNotLeader is returned by Liveness when the named worker does not
// currently hold the lease; callers should treat this as "not applicable"
// rather than as a failed check.
var ErrNotLeader = errors.New("health: instance does not hold the lease")

// Checker answers readiness and liveness probes against the same
// collaborators the Orchestrator depends on, so a health check reflects the
// actual backing stores rather than a separate, possibly-stale connection.
type Checker struct {
	LeaseStore    store.LeaseStore
	ProgressStore store.ProgressStore
	PageReader    pagereader.PageReader

	// StaleProgressAge bounds how old the most recent progress update may be
	// for Liveness to consider the leader alive. Defaults to 5 minutes.
	StaleProgressAge time.Duration
}

// NewChecker constructs a Checker with the documented StaleProgressAge
// default.
func NewChecker(leaseStore store.LeaseStore, progressStore store.ProgressStore, reader pagereader.PageReader) *Checker {
	return &Checker{
		LeaseStore:       leaseStore,
		ProgressStore:    progressStore,
		PageReader:       reader,
		StaleProgressAge: 5 * time.Minute,
	}
}

// Readiness exercises store reachability and the configured view's total
// row count, reporting whether the worker is able to do useful work at all.
func (c *Checker) Readiness(ctx context.Context) error {
	if _, err := c.LeaseStore.IsExpiredOrUnheld(ctx, "__health_probe__"); err != nil {
		return fmt.Errorf("lease store unreachable: %w", err)
	}
	if _, err := c.ProgressStore.GetMinOutstandingPage(ctx, "__health_probe__"); err != nil {
		return fmt.Errorf("progress store unreachable: %w", err)
	}
	if _, err := c.PageReader.GetTotalRowCount(ctx); err != nil {
		return fmt.Errorf("page reader unreachable: %w", err)
	}
	return nil
}

// Liveness verifies that, if instanceId currently holds workerId's lease, it
// has recorded progress recently. It returns ErrNotLeader when the instance
// is not the current holder, since liveness is only meaningful for the
// active leader.
func (c *Checker) Liveness(ctx context.Context, workerID, instanceID string) error {
	lease, err := c.LeaseStore.Get(ctx, workerID)
	if err != nil {
		if errors.Is(err, store.ErrLeaseNotFound) {
			return ErrNotLeader
		}
		return fmt.Errorf("reading lease: %w", err)
	}
	if lease.InstanceID != instanceID {
		return ErrNotLeader
	}

	records, err := c.ProgressStore.ListByWorker(ctx, workerID)
	if err != nil {
		return fmt.Errorf("listing progress: %w", err)
	}

	staleAge := c.StaleProgressAge
	if staleAge <= 0 {
		staleAge = 5 * time.Minute
	}

	var mostRecent time.Time
	for _, r := range records {
		if r.Status == batchworker.FileStatusCompleted {
			continue
		}
		if r.StartedAt.After(mostRecent) {
			mostRecent = r.StartedAt
		}
	}
	if mostRecent.IsZero() {
		return nil
	}
	if time.Since(mostRecent) > staleAge {
		return fmt.Errorf("no progress recorded in the last %s", staleAge)
	}
	return nil
}

// Server provides an optional HTTP server exposing /readyz and /livez,
// mirroring the metrics package's Server construction style.
type Server struct {
	server  *http.Server
	errChan chan error
}

// NewServer creates a health server on addr. workerID and instanceID
// parameterize the /livez check; readiness does not depend on either.
func NewServer(addr string, checker *Checker, workerID, instanceID string) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := checker.Readiness(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		err := checker.Liveness(r.Context(), workerID, instanceID)
		if err == nil || errors.Is(err, ErrNotLeader) {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	})

	return &Server{
		server:  &http.Server{Addr: addr, Handler: mux},
		errChan: make(chan error, 1),
	}
}

// Start starts the health server in a goroutine. Check Err() to detect
// startup failures; use Shutdown to stop the server.
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.errChan <- err
		}
	}()
}

// Err returns any error that occurred during server startup, non-blocking.
func (s *Server) Err() error {
	select {
	case err := <-s.errChan:
		return err
	default:
		return nil
	}
}

// Shutdown gracefully shuts down the health server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
