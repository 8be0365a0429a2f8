// Package publisher implements at-least-once publication of per-file
// completion events to a message bus.
package publisher

import (
	"context"
	"time"
)

// CompletedEvent is the record published when a file finishes extraction.
type CompletedEvent struct {
	WorkerID      string    `json:"workerId"`
	FileID        string    `json:"fileId"`
	EventType     string    `json:"eventType"`
	CompletedAt   time.Time `json:"completedAt"`
	TotalRows     int64     `json:"totalRows"`
	CorrelationID string    `json:"correlationId"`
}

// EventPublisher publishes completion events, decoupling the orchestrator
// from the transport.
type EventPublisher interface {
	// PublishCompleted publishes a completion record for fileId. Delivery is
	// at-least-once; correlationId lets downstream consumers deduplicate.
	PublishCompleted(ctx context.Context, workerID, fileID, eventType string, totalRows int64) error
}
