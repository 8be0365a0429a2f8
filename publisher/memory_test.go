package publisher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisher_RecordsEvent(t *testing.T) {
	p := NewMemoryPublisher()

	err := p.PublishCompleted(context.Background(), "worker-1", "file-1", "FileCompleted", 500)
	require.NoError(t, err)

	events := p.EventsFor("file-1")
	require.Len(t, events, 1)
	assert.Equal(t, "worker-1", events[0].WorkerID)
	assert.Equal(t, "FileCompleted", events[0].EventType)
	assert.EqualValues(t, 500, events[0].TotalRows)
	assert.Contains(t, events[0].CorrelationID, "worker-1:file-1:")
}

func TestMemoryPublisher_CorrelationIDsAreDistinct(t *testing.T) {
	p := NewMemoryPublisher()
	ctx := context.Background()

	require.NoError(t, p.PublishCompleted(ctx, "worker-1", "file-1", "FileCompleted", 100))
	require.NoError(t, p.PublishCompleted(ctx, "worker-1", "file-1", "FileCompleted", 200))

	events := p.EventsFor("file-1")
	require.Len(t, events, 2)
	assert.NotEqual(t, events[0].CorrelationID, events[1].CorrelationID)
}

func TestMemoryPublisher_FailNext_FailsConfiguredNumberOfCalls(t *testing.T) {
	p := NewMemoryPublisher()
	p.FailNext = 1
	ctx := context.Background()

	err := p.PublishCompleted(ctx, "worker-1", "file-1", "FileCompleted", 100)
	assert.Error(t, err)

	err = p.PublishCompleted(ctx, "worker-1", "file-1", "FileCompleted", 100)
	assert.NoError(t, err)
	assert.Len(t, p.EventsFor("file-1"), 1)
}

func TestMemoryPublisher_EventsFor_FiltersByFileID(t *testing.T) {
	p := NewMemoryPublisher()
	ctx := context.Background()

	require.NoError(t, p.PublishCompleted(ctx, "worker-1", "file-1", "FileCompleted", 100))
	require.NoError(t, p.PublishCompleted(ctx, "worker-1", "file-2", "FileCompleted", 200))

	assert.Len(t, p.EventsFor("file-1"), 1)
	assert.Len(t, p.EventsFor("file-2"), 1)
	assert.Empty(t, p.EventsFor("file-3"))
}
