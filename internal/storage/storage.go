package storage

import (
	"context"
	"time"

	"worktrack/internal/event"
)

// Storage archives closed activities and timeline entries. Writes are best
// effort; the in-memory session is the source of truth.
type Storage interface {
	Init(ctx context.Context) error
	SaveEvent(ctx context.Context, e event.Event) (int64, error)
	GetEvents(ctx context.Context, start, end time.Time, eventTypes ...event.EventType) ([]event.Event, error)
	// GetActivities returns archived activities that overlap [start, end].
	GetActivities(ctx context.Context, start, end time.Time) ([]event.ActivityEntry, error)
	Close() error
}
