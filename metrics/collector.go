package metrics

// Collector wraps the package-level metrics with a pre-filled worker_id
// label.
type Collector struct {
	workerID string
}

// NewCollector creates a new Collector for the given worker.
func NewCollector(workerID string) *Collector {
	return &Collector{workerID: workerID}
}

// IncLeaseAcquisitions increments the lease acquisitions counter.
func (c *Collector) IncLeaseAcquisitions() {
	LeaseAcquisitionsTotal.WithLabelValues(c.workerID).Inc()
}

// IncLeaseLost increments the lease lost counter.
func (c *Collector) IncLeaseLost() {
	LeaseLostTotal.WithLabelValues(c.workerID).Inc()
}

// IncPagesProcessed increments the pages processed counter for a file.
func (c *Collector) IncPagesProcessed(fileID string) {
	PagesProcessedTotal.WithLabelValues(c.workerID, fileID).Inc()
}

// AddRowsWritten adds n to the rows written counter for a file.
func (c *Collector) AddRowsWritten(fileID string, n int) {
	RowsWrittenTotal.WithLabelValues(c.workerID, fileID).Add(float64(n))
}

// IncPublishFailures increments the publish failures counter for a file.
func (c *Collector) IncPublishFailures(fileID string) {
	PublishFailuresTotal.WithLabelValues(c.workerID, fileID).Inc()
}

// IncFilesCompleted increments the files completed counter for a file.
func (c *Collector) IncFilesCompleted(fileID string) {
	FilesCompletedTotal.WithLabelValues(c.workerID, fileID).Inc()
}

// SetIsLeader sets the leadership gauge.
func (c *Collector) SetIsLeader(isLeader bool) {
	if isLeader {
		IsLeader.WithLabelValues(c.workerID).Set(1)
	} else {
		IsLeader.WithLabelValues(c.workerID).Set(0)
	}
}

// SetOrchestratorState sets the orchestrator state gauge. Sets value to 1
// for the given state, 0 for every other known state.
func (c *Collector) SetOrchestratorState(state string) {
	states := []string{"follower", "candidate", "preparing", "extracting", "finalizing", "releasing"}
	for _, s := range states {
		if s == state {
			OrchestratorState.WithLabelValues(c.workerID, s).Set(1)
		} else {
			OrchestratorState.WithLabelValues(c.workerID, s).Set(0)
		}
	}
}

// ObserveExtractionDuration records an extraction duration observation for a
// file.
func (c *Collector) ObserveExtractionDuration(fileID string, seconds float64) {
	ExtractionDuration.WithLabelValues(c.workerID, fileID).Observe(seconds)
}

// ObserveHeartbeatLatency records a heartbeat latency observation.
func (c *Collector) ObserveHeartbeatLatency(seconds float64) {
	HeartbeatLatency.WithLabelValues(c.workerID).Observe(seconds)
}
