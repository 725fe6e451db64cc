// Package queue carries completed signals from the analysis stage to the risk
// gate so the two run at their own cadence.
package queue

import (
	"context"

	"momentum-trader/internal/trader/dto"
)

// Message is a delivered signal. ID is the transport's message id.
type Message struct {
	ID     string
	Signal dto.QueuedSignal
}

// SignalQueue is an at-least-once queue of analyzed signals.
type SignalQueue interface {
	Publish(ctx context.Context, signal dto.QueuedSignal) error
	// Next blocks up to the configured timeout and returns nil, nil when idle.
	Next(ctx context.Context) (*Message, error)
	Ack(ctx context.Context, msg *Message) error
	// Reclaim returns a message delivered earlier but never acknowledged, or nil.
	Reclaim(ctx context.Context) (*Message, error)
}
