package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"momentum-trader/internal/entity"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStateRepositorySaveHalt(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewBreakerStateRepository(client)

	tripped := time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)
	until := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(BreakerHalt{Reason: entity.ReasonDailyLossLimit, TrippedAt: tripped, Until: until})
	require.NoError(t, err)

	mock.ExpectSet("trader:breaker:DAILY_LOSS_LIMIT", payload, 9*time.Hour).SetVal("OK")

	require.NoError(t, repo.SaveHalt(context.Background(), entity.ReasonDailyLossLimit, tripped, until))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakerStateRepositorySaveHaltAlreadyExpired(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewBreakerStateRepository(client)

	now := time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveHalt(context.Background(), entity.ReasonWeeklyLossLimit, now, now.Add(-time.Minute)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakerStateRepositoryLoadHalts(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewBreakerStateRepository(client)

	halt := BreakerHalt{
		Reason:    entity.ReasonDailyLossLimit,
		TrippedAt: time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC),
		Until:     time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(halt)
	require.NoError(t, err)

	mock.ExpectGet("trader:breaker:DAILY_LOSS_LIMIT").SetVal(string(payload))
	mock.ExpectGet("trader:breaker:WEEKLY_LOSS_LIMIT").RedisNil()

	halts, err := repo.LoadHalts(context.Background())
	require.NoError(t, err)
	require.Len(t, halts, 1)
	assert.Equal(t, entity.ReasonDailyLossLimit, halts[0].Reason)
	assert.True(t, halt.Until.Equal(halts[0].Until))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakerStateRepositoryClearHalt(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewBreakerStateRepository(client)

	mock.ExpectDel("trader:breaker:WEEKLY_LOSS_LIMIT").SetVal(1)

	require.NoError(t, repo.ClearHalt(context.Background(), entity.ReasonWeeklyLossLimit))
	assert.NoError(t, mock.ExpectationsWereMet())
}
