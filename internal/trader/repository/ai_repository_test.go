package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/common"
	"momentum-trader/pkg/logger"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisResponse(t *testing.T) {
	raw := "```json\n{\"direction\":\"long\",\"technical_score\":35,\"sentiment_score\":25,\"liquidity_score\":18,\"correlation_score\":9,\"entry_price\":145.30,\"stop_loss\":141.00,\"position_size_pct\":5,\"reasoning\":\"breakout\"}\n```"

	resp, err := ParseAnalysisResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "LONG", resp.Direction)
	require.NotNil(t, resp.TechnicalScore)
	assert.Equal(t, 35.0, *resp.TechnicalScore)
	assert.Equal(t, 141.00, *resp.StopLoss)
	assert.Nil(t, resp.TakeProfit)
	assert.NotEmpty(t, resp.Raw)
}

func TestParseAnalysisResponseNoTrade(t *testing.T) {
	resp, err := ParseAnalysisResponse(`{"no_trade":true,"reasoning":"exhausted move"}`)
	require.NoError(t, err)
	assert.True(t, resp.NoTrade)
}

func TestParseAnalysisResponseFailures(t *testing.T) {
	cases := map[string]string{
		"malformed":     `{"direction":`,
		"missing stop":  `{"entry_price":145.30}`,
		"missing entry": `{"stop_loss":141.00}`,
		"zero entry":    `{"entry_price":0,"stop_loss":141.00}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAnalysisResponse(raw)
			assert.ErrorIs(t, err, common.ErrOracleFailure)
		})
	}
}

func TestParseReviewResponse(t *testing.T) {
	resp, err := ParseReviewResponse(`{"confidence":35,"action":"close","reasoning":"momentum faded"}`)
	require.NoError(t, err)
	assert.Equal(t, 35.0, *resp.Confidence)
	assert.Equal(t, "CLOSE", resp.Action)

	_, err = ParseReviewResponse(`{"action":"HOLD"}`)
	assert.ErrorIs(t, err, common.ErrOracleFailure)
}

type stubAIRepository struct {
	calls int
	err   error
}

func (s *stubAIRepository) AnalyzeMover(ctx context.Context, req dto.AnalysisRequest) (*dto.AnalysisResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AnalysisResponse{NoTrade: true}, nil
}

func (s *stubAIRepository) ReviewPosition(ctx context.Context, req dto.PositionReviewRequest) (*dto.PositionReviewResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	c := 70.0
	return &dto.PositionReviewResponse{Confidence: &c, Action: "HOLD"}, nil
}

func TestGuardedAIRepositoryOpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubAIRepository{err: errors.New("upstream 503")}
	repo := NewGuardedAIRepository(config.AI{MaxConsecutiveFailures: 3, BreakerOpenTimeout: time.Minute}, stub, logger.NewNop())

	for i := 0; i < 3; i++ {
		_, err := repo.AnalyzeMover(context.Background(), dto.AnalysisRequest{})
		assert.ErrorIs(t, err, common.ErrOracleFailure)
	}
	assert.Equal(t, 3, stub.calls)

	_, err := repo.ReviewPosition(context.Background(), dto.PositionReviewRequest{})
	assert.ErrorIs(t, err, common.ErrOracleFailure)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, stub.calls, "open breaker must not reach the oracle")
}

func TestGuardedAIRepositoryPassesThrough(t *testing.T) {
	stub := &stubAIRepository{}
	repo := NewGuardedAIRepository(config.AI{MaxConsecutiveFailures: 2, BreakerOpenTimeout: time.Minute}, stub, logger.NewNop())

	resp, err := repo.AnalyzeMover(context.Background(), dto.AnalysisRequest{})
	require.NoError(t, err)
	assert.True(t, resp.NoTrade)

	review, err := repo.ReviewPosition(context.Background(), dto.PositionReviewRequest{})
	require.NoError(t, err)
	assert.Equal(t, 70.0, *review.Confidence)
}

// fakeMarket serves canned candles keyed by symbol and interval.
type fakeMarket struct {
	candles map[string][]dto.Candle
	depth   float64
}

func (f *fakeMarket) ListSymbols(ctx context.Context, quoteAsset string, limit int) ([]string, error) {
	return nil, nil
}

func (f *fakeMarket) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]dto.Candle, error) {
	c, ok := f.candles[symbol+"/"+interval]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", common.ErrDataUnavailable, symbol, interval)
	}
	return c, nil
}

func (f *fakeMarket) GetTicker(ctx context.Context, symbol string) (*dto.Ticker, error) {
	return nil, common.ErrDataUnavailable
}

func (f *fakeMarket) GetOrderBookDepth(ctx context.Context, symbol string, bandPct float64) (*dto.OrderBookDepth, error) {
	return &dto.OrderBookDepth{Symbol: symbol, BandPct: bandPct, TotalUSD: f.depth}, nil
}

func trendCandles(n int, start, step, volume float64) []dto.Candle {
	out := make([]dto.Candle, n)
	price := start
	for i := range out {
		out[i] = dto.Candle{
			OpenTime: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
			Open:     price,
			High:     price * 1.01,
			Low:      price * 0.99,
			Close:    price + step,
			Volume:   volume,
		}
		price += step
	}
	return out
}

func TestRulesAIRepositoryScoresUptrend(t *testing.T) {
	market := &fakeMarket{
		candles: map[string][]dto.Candle{
			"SOLUSDT/1h": trendCandles(48, 100, 1, 1000),
			"SOLUSDT/1d": trendCandles(8, 100, 1, 1000),
			"BTCUSDT/4h": trendCandles(7, 60000, 100, 10),
		},
		depth: 1_000_000,
	}
	repo := NewRulesAIRepository(config.DefaultTrading(), market, logger.NewNop())

	resp, err := repo.AnalyzeMover(context.Background(), dto.AnalysisRequest{
		Mover: entity.Mover{Symbol: "SOLUSDT", Direction: entity.DirectionLong, Change1h: 6, Change4h: 9, MaxChange: 9, CurrentPrice: 148},
	})
	require.NoError(t, err)
	require.False(t, resp.NoTrade)
	require.NotNil(t, resp.EntryPrice)
	require.NotNil(t, resp.StopLoss)

	assert.Equal(t, 148.0, *resp.EntryPrice)
	assert.Less(t, *resp.StopLoss, *resp.EntryPrice)
	distance := (*resp.EntryPrice - *resp.StopLoss) / *resp.EntryPrice * 100
	assert.GreaterOrEqual(t, distance, 2.0-1e-9)
	assert.LessOrEqual(t, distance, 5.0+1e-9)
	assert.Equal(t, 13.0, *resp.CorrelationScore)
	assert.Equal(t, 11.0, *resp.LiquidityScore)
	assert.Equal(t, 15.0, *resp.SentimentScore)
	assert.NotEmpty(t, resp.Raw)
}

func TestRulesAIRepositoryDeclinesWeakSetup(t *testing.T) {
	market := &fakeMarket{candles: map[string][]dto.Candle{
		"SOLUSDT/1h": trendCandles(10, 100, 1, 1000),
	}}
	repo := NewRulesAIRepository(config.DefaultTrading(), market, logger.NewNop())

	resp, err := repo.AnalyzeMover(context.Background(), dto.AnalysisRequest{
		Mover: entity.Mover{Symbol: "SOLUSDT", Direction: entity.DirectionLong, CurrentPrice: 110},
	})
	require.NoError(t, err)
	assert.True(t, resp.NoTrade)
	assert.Nil(t, resp.EntryPrice)
}

func TestRulesAIRepositoryReview(t *testing.T) {
	market := &fakeMarket{candles: map[string][]dto.Candle{
		"SOLUSDT/1h": trendCandles(48, 160, -1, 1000),
	}}
	repo := NewRulesAIRepository(config.DefaultTrading(), market, logger.NewNop())

	resp, err := repo.ReviewPosition(context.Background(), dto.PositionReviewRequest{
		Position: entity.Position{Symbol: "SOLUSDT", Direction: entity.DirectionLong, EntryPrice: 150},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Confidence)
	assert.Less(t, *resp.Confidence, 40.0)
	assert.Equal(t, "CLOSE", resp.Action)
}
