package publisher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryPublisher records every published event for inspection in tests,
// optionally failing a configured number of calls before succeeding.
type MemoryPublisher struct {
	mu       sync.Mutex
	Events   []CompletedEvent
	FailNext int
	sequence atomic.Int64
}

// NewMemoryPublisher creates an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) PublishCompleted(ctx context.Context, workerID, fileID, eventType string, totalRows int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailNext > 0 {
		p.FailNext--
		return fmt.Errorf("publisher: simulated failure for %s/%s", workerID, fileID)
	}

	event := CompletedEvent{
		WorkerID:      workerID,
		FileID:        fileID,
		EventType:     eventType,
		CompletedAt:   time.Now().UTC(),
		TotalRows:     totalRows,
		CorrelationID: fmt.Sprintf("%s:%s:%d", workerID, fileID, p.sequence.Add(1)),
	}
	p.Events = append(p.Events, event)
	return nil
}

// EventsFor returns every recorded event for fileID, in publish order.
func (p *MemoryPublisher) EventsFor(fileID string) []CompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matches []CompletedEvent
	for _, e := range p.Events {
		if e.FileID == fileID {
			matches = append(matches, e)
		}
	}
	return matches
}
