package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/pkg/common"

	"github.com/redis/go-redis/v9"
)

var haltReasons = []entity.ReasonCode{entity.ReasonDailyLossLimit, entity.ReasonWeeklyLossLimit}

type breakerStateRepository struct {
	client *redis.Client
}

// NewBreakerStateRepository stores loss-limit halts as expiring Redis keys.
func NewBreakerStateRepository(client *redis.Client) BreakerStateRepository {
	return &breakerStateRepository{client: client}
}

func haltKey(reason entity.ReasonCode) string {
	return fmt.Sprintf(common.RedisKeyBreakerHalt, reason)
}

func (r *breakerStateRepository) SaveHalt(ctx context.Context, reason entity.ReasonCode, trippedAt, until time.Time) error {
	ttl := until.Sub(trippedAt)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(BreakerHalt{Reason: reason, TrippedAt: trippedAt.UTC(), Until: until.UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal halt: %w", err)
	}
	if err := r.client.Set(ctx, haltKey(reason), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save %s halt: %w", reason, err)
	}
	return nil
}

// LoadHalts returns the halts that have not expired yet.
func (r *breakerStateRepository) LoadHalts(ctx context.Context) ([]BreakerHalt, error) {
	var halts []BreakerHalt
	for _, reason := range haltReasons {
		raw, err := r.client.Get(ctx, haltKey(reason)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s halt: %w", reason, err)
		}
		var h BreakerHalt
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, fmt.Errorf("failed to decode %s halt: %w", reason, err)
		}
		halts = append(halts, h)
	}
	return halts, nil
}

func (r *breakerStateRepository) ClearHalt(ctx context.Context, reason entity.ReasonCode) error {
	if err := r.client.Del(ctx, haltKey(reason)).Err(); err != nil {
		return fmt.Errorf("failed to clear %s halt: %w", reason, err)
	}
	return nil
}
