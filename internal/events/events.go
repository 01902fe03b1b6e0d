// Package events announces writes to downstream notification delivery.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event types published by the portal.
const (
	AppointmentBooked        = "appointment.booked"
	AppointmentStatusChanged = "appointment.status_changed"
)

// Event is one notification about a stored resource.
type Event struct {
	Type       string         `json:"type"`
	Reference  string         `json:"reference"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

// Publisher hands events to whatever delivers notifications.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher only logs events. It is used when no broker is configured.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.Info().
		Str("event_type", e.Type).
		Str("ref", e.Reference).
		Interface("data", e.Data).
		Msg("Event published")
	return nil
}
