package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLeaseAcquisitionsTotal_Increment(t *testing.T) {
	before := testutil.ToFloat64(LeaseAcquisitionsTotal.WithLabelValues("test-w"))
	LeaseAcquisitionsTotal.WithLabelValues("test-w").Inc()
	after := testutil.ToFloat64(LeaseAcquisitionsTotal.WithLabelValues("test-w"))

	assert.Equal(t, before+1, after)
}

func TestLeaseLostTotal_Increment(t *testing.T) {
	before := testutil.ToFloat64(LeaseLostTotal.WithLabelValues("test-w-2"))
	LeaseLostTotal.WithLabelValues("test-w-2").Inc()
	after := testutil.ToFloat64(LeaseLostTotal.WithLabelValues("test-w-2"))

	assert.Equal(t, before+1, after)
}

func TestIsLeader_SetValue(t *testing.T) {
	IsLeader.WithLabelValues("test-w-3").Set(1)
	value := testutil.ToFloat64(IsLeader.WithLabelValues("test-w-3"))

	assert.Equal(t, float64(1), value)
}

func TestPagesProcessedTotal_IncrementWithFile(t *testing.T) {
	before := testutil.ToFloat64(PagesProcessedTotal.WithLabelValues("test-w-4", "file-a"))
	PagesProcessedTotal.WithLabelValues("test-w-4", "file-a").Inc()
	after := testutil.ToFloat64(PagesProcessedTotal.WithLabelValues("test-w-4", "file-a"))

	assert.Equal(t, before+1, after)
}

func TestExtractionDuration_Observe(t *testing.T) {
	ExtractionDuration.WithLabelValues("test-w-5", "file-a").Observe(1.5)
	count := testutil.CollectAndCount(ExtractionDuration)

	assert.Greater(t, count, 0)
}

func TestHeartbeatLatency_Observe(t *testing.T) {
	HeartbeatLatency.WithLabelValues("test-w-6").Observe(0.1)
	count := testutil.CollectAndCount(HeartbeatLatency)

	assert.Greater(t, count, 0)
}

func TestMetrics_LabelsAppliedCorrectly(t *testing.T) {
	workerID := "test-w-labels"

	LeaseAcquisitionsTotal.WithLabelValues(workerID).Inc()

	metricValue := testutil.ToFloat64(LeaseAcquisitionsTotal.WithLabelValues(workerID))
	assert.Greater(t, metricValue, float64(0))

	differentWorker := "test-w-different"
	differentValue := testutil.ToFloat64(LeaseAcquisitionsTotal.WithLabelValues(differentWorker))

	assert.LessOrEqual(t, differentValue, metricValue)
}

func TestRowsWrittenTotal_Increment(t *testing.T) {
	before := testutil.ToFloat64(RowsWrittenTotal.WithLabelValues("test-w-7", "file-a"))
	RowsWrittenTotal.WithLabelValues("test-w-7", "file-a").Add(10)
	after := testutil.ToFloat64(RowsWrittenTotal.WithLabelValues("test-w-7", "file-a"))

	assert.Equal(t, before+10, after)
}

func TestPublishFailuresTotal_Increment(t *testing.T) {
	before := testutil.ToFloat64(PublishFailuresTotal.WithLabelValues("test-w-8", "file-a"))
	PublishFailuresTotal.WithLabelValues("test-w-8", "file-a").Inc()
	after := testutil.ToFloat64(PublishFailuresTotal.WithLabelValues("test-w-8", "file-a"))

	assert.Equal(t, before+1, after)
}

func TestFilesCompletedTotal_Increment(t *testing.T) {
	before := testutil.ToFloat64(FilesCompletedTotal.WithLabelValues("test-w-9", "file-a"))
	FilesCompletedTotal.WithLabelValues("test-w-9", "file-a").Inc()
	after := testutil.ToFloat64(FilesCompletedTotal.WithLabelValues("test-w-9", "file-a"))

	assert.Equal(t, before+1, after)
}

func TestOrchestratorState_SetValue(t *testing.T) {
	OrchestratorState.WithLabelValues("test-w-10", "extracting").Set(1)
	value := testutil.ToFloat64(OrchestratorState.WithLabelValues("test-w-10", "extracting"))

	assert.Equal(t, float64(1), value)
}

func TestMetrics_AreRegisteredToDefaultRegistry(t *testing.T) {
	metrics := []prometheus.Collector{
		LeaseAcquisitionsTotal,
		LeaseLostTotal,
		PagesProcessedTotal,
		RowsWrittenTotal,
		PublishFailuresTotal,
		FilesCompletedTotal,
		IsLeader,
		OrchestratorState,
		ExtractionDuration,
		HeartbeatLatency,
	}

	for _, metric := range metrics {
		var already prometheus.AlreadyRegisteredError
		assert.ErrorAs(t, prometheus.Register(metric), &already)
	}
}
