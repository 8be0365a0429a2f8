// Package batchworker implements the coordination and durability subsystem for
// a distributed, horizontally-replicated daily extraction worker.
//
// A single logical worker (identified by a stable WorkerID) may run as many
// replicas across failure domains. Exactly one replica acts as leader at a
// time, holding a time-bounded lease; the leader paginates a relational view,
// fans each page out to one append-only output file per configured format,
// and publishes a completion event per file once every page has been written.
// If the leader dies mid-run, any surviving replica can take over the lease
// and resume from the durable progress recorded in the ProgressStore and in
// each output file's trailing marker line, without producing duplicates or
// gaps.
//
// See the orchestrator package for the state machine that drives this
// process, and the store package for the Lease/Progress persistence
// contracts it depends on.
package batchworker
