package service

import (
	"context"
	"testing"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMomentumDetectorScan(t *testing.T) {
	market := newFakeMarket()
	market.set("SOLUSDT", "1h", 100, 106).set("SOLUSDT", "4h", 100, 108)   // gainer, 8%
	market.set("ETHUSDT", "1h", 100, 101).set("ETHUSDT", "4h", 100, 100.5) // below threshold
	market.set("DOGEUSDT", "1h", 100, 94).set("DOGEUSDT", "4h", 100, 97)   // loser, 6%
	market.set("PEPEUSDT", "1h", 100, 99).set("PEPEUSDT", "4h", 100, 112)  // 4h drives size, 1h drives side
	market.set("ARBUSDT", "1h", 100, 108).set("ARBUSDT", "4h", 100, 101)   // gainer, 8%, ties with SOL
	market.fail["BADUSDT"] = true
	market.set("THINUSDT", "1h", 100).set("THINUSDT", "4h", 100, 120)

	trading := config.DefaultTrading()
	trading.FetchBatchSize = 2
	d := NewMomentumDetector(trading, logger.NewNop(), market)

	res, err := d.Scan(context.Background(), []string{"SOLUSDT", "ETHUSDT", "DOGEUSDT", "PEPEUSDT", "BADUSDT", "ARBUSDT", "THINUSDT"})
	require.NoError(t, err)

	assert.Equal(t, 7, res.Scanned)
	require.Len(t, res.Gainers, 2)
	assert.Equal(t, "ARBUSDT", res.Gainers[0].Symbol, "ties break by symbol")
	assert.Equal(t, "SOLUSDT", res.Gainers[1].Symbol)
	assert.InDelta(t, 8, res.Gainers[1].MaxChange, 1e-9)
	assert.Equal(t, 106.0, res.Gainers[1].CurrentPrice)

	require.Len(t, res.Losers, 2)
	assert.Equal(t, "PEPEUSDT", res.Losers[0].Symbol)
	assert.Equal(t, entity.DirectionShort, res.Losers[0].Direction)
	assert.InDelta(t, 12, res.Losers[0].MaxChange, 1e-9)
	assert.Equal(t, "DOGEUSDT", res.Losers[1].Symbol)

	require.Len(t, res.Failures, 2)
	assert.Equal(t, "BADUSDT", res.Failures[0].Symbol)
	assert.Equal(t, "THINUSDT", res.Failures[1].Symbol)
	assert.Len(t, res.Movers(), 4)
}

func TestMomentumDetectorThresholdIsInclusive(t *testing.T) {
	market := newFakeMarket()
	market.set("SOLUSDT", "1h", 100, 105).set("SOLUSDT", "4h", 100, 100)

	d := NewMomentumDetector(config.DefaultTrading(), logger.NewNop(), market)
	res, err := d.Scan(context.Background(), []string{"SOLUSDT"})
	require.NoError(t, err)
	require.Len(t, res.Gainers, 1)
	assert.Equal(t, entity.DirectionLong, res.Gainers[0].Direction)
}

func TestMomentumDetectorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewMomentumDetector(config.DefaultTrading(), logger.NewNop(), newFakeMarket())
	_, err := d.Scan(ctx, []string{"SOLUSDT"})
	assert.ErrorIs(t, err, context.Canceled)
}
