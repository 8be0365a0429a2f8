package batchworker

import "context"

// Runner drives a single worker through the leader-election, extraction, and
// finalization lifecycle described in the orchestrator package, against the
// set of output files it was constructed with.
//
// Run blocks until ctx is cancelled or an unrecoverable error occurs. While
// running it repeatedly attempts to acquire the worker's lease; whichever
// replica holds it extracts every configured file to completion before
// releasing. Run returns nil when ctx is cancelled and any held lease has
// been released; it returns an error only for conditions that cannot be
// retried, such as a misconfigured translator.
type Runner interface {
	Run(ctx context.Context) error
}
