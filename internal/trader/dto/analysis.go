package dto

import (
	"encoding/json"

	"momentum-trader/internal/entity"
)

// AnalysisRequest is the context handed to the analysis oracle for a mover.
type AnalysisRequest struct {
	Mover     entity.Mover      `json:"mover"`
	Ticker    *Ticker           `json:"ticker,omitempty"`
	Candles1h []Candle          `json:"candles_1h,omitempty"`
	Portfolio PortfolioSnapshot `json:"portfolio"`
	News      []NewsItem        `json:"news,omitempty"`
}

// AnalysisResponse is the oracle's structured answer. Sub-scores are pointers so
// an omitted field can be told apart from an explicit zero.
type AnalysisResponse struct {
	NoTrade          bool     `json:"no_trade"`
	Direction        string   `json:"direction,omitempty"`
	TechnicalScore   *float64 `json:"technical_score"`
	SentimentScore   *float64 `json:"sentiment_score"`
	LiquidityScore   *float64 `json:"liquidity_score"`
	CorrelationScore *float64 `json:"correlation_score"`
	EntryPrice       *float64 `json:"entry_price"`
	StopLoss         *float64 `json:"stop_loss"`
	TakeProfit       *float64 `json:"take_profit"`
	PositionSizePct  *float64 `json:"position_size_pct"`
	Reasoning        string   `json:"reasoning"`

	Raw json.RawMessage `json:"-"`
}

// SubScores extracts the four raw sub-scores.
func (r *AnalysisResponse) SubScores() SubScores {
	return SubScores{
		Technical:   r.TechnicalScore,
		Sentiment:   r.SentimentScore,
		Liquidity:   r.LiquidityScore,
		Correlation: r.CorrelationScore,
	}
}

// SubScores are the raw oracle scores before aggregation. nil means omitted.
type SubScores struct {
	Technical   *float64 `json:"technical"`
	Sentiment   *float64 `json:"sentiment"`
	Liquidity   *float64 `json:"liquidity"`
	Correlation *float64 `json:"correlation"`
}

// ConfidenceResult is the aggregated confidence with the scores actually used.
type ConfidenceResult struct {
	Confidence  int      `json:"confidence"`
	Technical   float64  `json:"technical"`
	Sentiment   float64  `json:"sentiment"`
	Liquidity   float64  `json:"liquidity"`
	Correlation float64  `json:"correlation"`
	Warnings    []string `json:"warnings,omitempty"`
}

// PositionReviewRequest asks the oracle to re-score an open position.
type PositionReviewRequest struct {
	Position entity.Position `json:"position"`
	Ticker   *Ticker         `json:"ticker,omitempty"`
	News     []NewsItem      `json:"news,omitempty"`
}

// PositionReviewResponse is the oracle's re-score of an open position.
type PositionReviewResponse struct {
	Confidence *float64 `json:"confidence"`
	Action     string   `json:"action"`
	Reasoning  string   `json:"reasoning"`
}
