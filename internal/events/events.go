// Package events publishes process lifecycle events for downstream consumers
// (notifications, reporting). Publishing is best effort.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	ProcessCreated       = "process.created"
	ProcessUpdated       = "process.updated"
	ProcessStatusChanged = "process.status_changed"
	ProcessDeleted       = "process.deleted"
)

// ProcessEvent is the JSON body of every message.
type ProcessEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ProcessID  int64     `json:"process_id"`
	ResidentID int64     `json:"resident_id"`
	Category   string    `json:"category,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewProcessEvent stamps an event with a fresh id.
func NewProcessEvent(eventType string, processID, residentID int64, category, status string, at time.Time) ProcessEvent {
	return ProcessEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		ProcessID:  processID,
		ResidentID: residentID,
		Category:   category,
		Status:     status,
		OccurredAt: at.UTC(),
	}
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event ProcessEvent) error
	Close() error
}

// NoopPublisher discards events; used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ProcessEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
