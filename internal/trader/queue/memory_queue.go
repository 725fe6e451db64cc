package queue

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"momentum-trader/internal/trader/dto"
)

type memoryQueue struct {
	ch           chan Message
	blockTimeout time.Duration
	seq          atomic.Int64
}

// NewMemoryQueue returns an in-process queue backed by a buffered channel.
func NewMemoryQueue(size int, blockTimeout time.Duration) SignalQueue {
	return &memoryQueue{
		ch:           make(chan Message, size),
		blockTimeout: blockTimeout,
	}
}

func (q *memoryQueue) Publish(ctx context.Context, signal dto.QueuedSignal) error {
	msg := Message{ID: strconv.FormatInt(q.seq.Add(1), 10), Signal: signal}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *memoryQueue) Next(ctx context.Context) (*Message, error) {
	timer := time.NewTimer(q.blockTimeout)
	defer timer.Stop()

	select {
	case msg := <-q.ch:
		return &msg, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *memoryQueue) Ack(context.Context, *Message) error {
	return nil
}

func (q *memoryQueue) Reclaim(context.Context) (*Message, error) {
	return nil, nil
}
