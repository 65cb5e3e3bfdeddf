// Package events publishes call lifecycle notifications for downstream consumers.
package events

import (
	"context"
	"time"
)

const (
	CallStarted     = "call.started"
	CallStatus      = "call.status"
	CallEnded       = "call.ended"
	TranscriptChunk = "transcript.chunk"
)

type Event struct {
	Name       string    `json:"event"`
	CallID     string    `json:"call_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
