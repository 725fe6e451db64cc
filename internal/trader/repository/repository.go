package repository

import (
	"context"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/dto"
)

// AIRepository is the analysis oracle.
type AIRepository interface {
	// AnalyzeMover scores a mover. A declined trade is returned as a response
	// with NoTrade set; malformed or incomplete output wraps common.ErrOracleFailure.
	AnalyzeMover(ctx context.Context, req dto.AnalysisRequest) (*dto.AnalysisResponse, error)
	// ReviewPosition re-scores an open position.
	ReviewPosition(ctx context.Context, req dto.PositionReviewRequest) (*dto.PositionReviewResponse, error)
}

// MarketDataRepository is the market snapshot provider. Every failure wraps
// common.ErrDataUnavailable so callers can skip the symbol.
type MarketDataRepository interface {
	ListSymbols(ctx context.Context, quoteAsset string, limit int) ([]string, error)
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]dto.Candle, error)
	GetTicker(ctx context.Context, symbol string) (*dto.Ticker, error)
	GetOrderBookDepth(ctx context.Context, symbol string, bandPct float64) (*dto.OrderBookDepth, error)
}

// NewsRepository supplies recent headlines for a symbol.
type NewsRepository interface {
	GetHeadlines(ctx context.Context, symbol string, limit int) ([]dto.NewsItem, error)
}

// BreakerStateRepository persists loss-limit halts so a restart keeps them.
type BreakerStateRepository interface {
	SaveHalt(ctx context.Context, reason entity.ReasonCode, trippedAt, until time.Time) error
	LoadHalts(ctx context.Context) ([]BreakerHalt, error)
	ClearHalt(ctx context.Context, reason entity.ReasonCode) error
}

// BreakerHalt is a persisted halt.
type BreakerHalt struct {
	Reason    entity.ReasonCode `json:"reason"`
	TrippedAt time.Time         `json:"tripped_at"`
	Until     time.Time         `json:"until"`
}
