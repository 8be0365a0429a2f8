package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LeaseAcquisitionsTotal tracks the total number of successful lease
// acquisitions (one per leadership term; renewals are not counted).
var LeaseAcquisitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batchworker_lease_acquisitions_total",
		Help: "Total number of successful lease acquisitions",
	},
	[]string{"worker_id"},
)

// LeaseLostTotal tracks the total number of times a held lease was lost,
// either to a failed renewal or to a competing instance.
var LeaseLostTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batchworker_lease_lost_total",
		Help: "Total number of times a held lease was lost",
	},
	[]string{"worker_id"},
)

// PagesProcessedTotal tracks the total number of pages read from the source
// and fanned out to every output file.
var PagesProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batchworker_pages_processed_total",
		Help: "Total number of pages processed",
	},
	[]string{"worker_id", "file_id"},
)

// RowsWrittenTotal tracks the total number of rows appended to output files.
var RowsWrittenTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batchworker_rows_written_total",
		Help: "Total number of rows written to output files",
	},
	[]string{"worker_id", "file_id"},
)

// PublishFailuresTotal tracks completion events that failed to publish after
// exhausting retries.
var PublishFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batchworker_publish_failures_total",
		Help: "Total completion events that failed to publish",
	},
	[]string{"worker_id", "file_id"},
)

// FilesCompletedTotal tracks files that reached the Completed status.
var FilesCompletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batchworker_files_completed_total",
		Help: "Total files that reached the completed status",
	},
	[]string{"worker_id", "file_id"},
)

// IsLeader reports whether this replica currently holds the worker's lease
// (1) or not (0).
var IsLeader = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "batchworker_is_leader",
		Help: "1 if this replica currently holds the lease, 0 otherwise",
	},
	[]string{"worker_id"},
)

// OrchestratorState tracks the orchestrator's current state (value 1 for the
// current state, 0 for all others).
var OrchestratorState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "batchworker_orchestrator_state",
		Help: "Orchestrator state (1 for current state, 0 otherwise)",
	},
	[]string{"worker_id", "state"},
)

// ExtractionDuration tracks the time spent extracting and writing a single
// file to completion.
var ExtractionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "batchworker_extraction_duration_seconds",
		Help:    "Time spent extracting a single file to completion",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"worker_id", "file_id"},
)

// HeartbeatLatency tracks lease renewal round-trip latency.
var HeartbeatLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "batchworker_heartbeat_latency_seconds",
		Help:    "Lease renewal round-trip latency",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"worker_id"},
)
