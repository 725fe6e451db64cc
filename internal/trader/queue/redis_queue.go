package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/common"

	"github.com/redis/go-redis/v9"
)

type redisQueue struct {
	client       *redis.Client
	stream       string
	group        string
	consumer     string
	blockTimeout time.Duration
	maxLen       int64
	minIdle      time.Duration
}

// NewRedisQueue returns a queue on a Redis stream read through a consumer group.
func NewRedisQueue(client *redis.Client, blockTimeout time.Duration, maxLen int64, minIdle time.Duration) SignalQueue {
	return &redisQueue{
		client:       client,
		stream:       common.RedisStreamSignalCandidates,
		group:        common.RedisStreamGroup,
		consumer:     common.RedisStreamConsumer,
		blockTimeout: blockTimeout,
		maxLen:       maxLen,
		minIdle:      minIdle,
	}
}

// EnsureGroup creates the stream and consumer group if they do not exist yet.
func EnsureGroup(ctx context.Context, client *redis.Client) error {
	err := client.XGroupCreateMkStream(ctx, common.RedisStreamSignalCandidates, common.RedisStreamGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (q *redisQueue) Publish(ctx context.Context, signal dto.QueuedSignal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("failed to marshal queued signal: %w", err)
	}
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}).Err()
}

func (q *redisQueue) Next(ctx context.Context) (*Message, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    q.blockTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return decode(streams[0].Messages[0])
}

func (q *redisQueue) Ack(ctx context.Context, msg *Message) error {
	if err := q.client.XAck(ctx, q.stream, q.group, msg.ID).Err(); err != nil {
		return fmt.Errorf("failed to ack %s: %w", msg.ID, err)
	}
	if err := q.client.XDel(ctx, q.stream, msg.ID).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", msg.ID, err)
	}
	return nil
}

func (q *redisQueue) Reclaim(ctx context.Context) (*Message, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer + "-retry",
		MinIdle:  q.minIdle,
		Start:    "0",
		Count:    1,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return decode(msgs[0])
}

func decode(m redis.XMessage) (*Message, error) {
	raw, ok := m.Values["payload"].(string)
	if !ok {
		return &Message{ID: m.ID}, fmt.Errorf("field 'payload' not found or not a string in message %s", m.ID)
	}
	var signal dto.QueuedSignal
	if err := json.Unmarshal([]byte(raw), &signal); err != nil {
		return &Message{ID: m.ID}, fmt.Errorf("failed to unmarshal message %s: %w", m.ID, err)
	}
	return &Message{ID: m.ID, Signal: signal}, nil
}
