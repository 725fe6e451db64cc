package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/scoring"
	"momentum-trader/pkg/common"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/utils"
)

const (
	benchmarkSymbol   = "BTCUSDT"
	depthBandPct      = 0.5
	candles1h         = 48
	dailyCandles      = 8
	benchmarkCandles  = 7
	atrPeriod         = 14
	atrStopMultiple   = 1.5
	minTradeTechnical = 10.0
	reviewTechWeight  = 70.0
	reviewNewsWeight  = 30.0
	reviewCloseBelow  = 40.0
)

// rulesAIRepository is a deterministic oracle that scores movers with the
// published rubric from market data alone. It needs no API key.
type rulesAIRepository struct {
	market  MarketDataRepository
	trading config.Trading
	log     *logger.Logger
}

// NewRulesAIRepository creates the rules-based AIRepository.
func NewRulesAIRepository(trading config.Trading, market MarketDataRepository, log *logger.Logger) AIRepository {
	return &rulesAIRepository{market: market, trading: trading, log: log}
}

func (r *rulesAIRepository) AnalyzeMover(ctx context.Context, req dto.AnalysisRequest) (*dto.AnalysisResponse, error) {
	mover := req.Mover
	dir := mover.Direction

	candles := req.Candles1h
	if len(candles) == 0 {
		var err error
		candles, err = r.market.GetCandles(ctx, mover.Symbol, "1h", candles1h)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrOracleFailure, err)
		}
	}
	closes, volumes := series(candles)

	entry := mover.CurrentPrice
	spread := -1.0
	if req.Ticker != nil {
		entry = req.Ticker.Price
		spread = req.Ticker.SpreadPct
	}
	if entry <= 0 {
		return nil, fmt.Errorf("%w: no price for %s", common.ErrOracleFailure, mover.Symbol)
	}

	technical := scoring.TechnicalScore(closes, volumes, dir)
	sentiment := scoring.SentimentScore(headlines(req.News), dir)
	liquidity := scoring.LiquidityScore(r.volumeRatio(ctx, mover.Symbol), spread, r.depth(ctx, mover.Symbol))
	btcUp, btcChange := r.benchmarkTrend(ctx)
	aligned := (dir == entity.DirectionLong) == btcUp
	relStrength := (mover.Change4h - btcChange) * dir.Sign()
	correlation := scoring.CorrelationScore(btcUp, aligned, relStrength)

	resp := &dto.AnalysisResponse{
		Direction:        string(dir),
		TechnicalScore:   utils.ToPointer(technical),
		SentimentScore:   utils.ToPointer(sentiment),
		LiquidityScore:   utils.ToPointer(liquidity),
		CorrelationScore: utils.ToPointer(correlation),
	}

	if technical < minTradeTechnical {
		resp.NoTrade = true
		resp.Reasoning = fmt.Sprintf("%s technical score %.1f is too weak to trade the %.2f%% move", mover.Symbol, technical, mover.MaxChange)
		resp.Raw, _ = json.Marshal(resp)
		return resp, nil
	}

	stopPct := scoring.Clamp(atrPct(candles, atrPeriod)*atrStopMultiple, r.trading.MinStopDistancePct, r.trading.MaxStopDistancePct)
	stop := utils.ScalePrice(entry, -stopPct*dir.Sign())
	target := utils.ScalePrice(entry, stopPct*r.trading.TP1RiskMultiple*dir.Sign())

	resp.EntryPrice = utils.ToPointer(entry)
	resp.StopLoss = utils.ToPointer(stop)
	resp.TakeProfit = utils.ToPointer(target)
	resp.PositionSizePct = utils.ToPointer(r.sizePct(technical + sentiment + math.Min(liquidity, scoring.LiquidityMax) + math.Min(correlation, scoring.CorrelationMax)))
	resp.Reasoning = fmt.Sprintf("%s %s: technical %.1f, sentiment %.1f, liquidity %.1f, correlation %.1f (BTC %s, relative strength %.2f%%), stop %.2f%% from entry",
		mover.Symbol, dir, technical, sentiment, liquidity, correlation, trendWord(btcUp), relStrength, stopPct)
	resp.Raw, _ = json.Marshal(resp)
	return resp, nil
}

func (r *rulesAIRepository) ReviewPosition(ctx context.Context, req dto.PositionReviewRequest) (*dto.PositionReviewResponse, error) {
	pos := req.Position
	candles, err := r.market.GetCandles(ctx, pos.Symbol, "1h", candles1h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrOracleFailure, err)
	}
	closes, volumes := series(candles)

	technical := scoring.TechnicalScore(closes, volumes, pos.Direction)
	sentiment := scoring.SentimentScore(headlines(req.News), pos.Direction)
	confidence := technical/scoring.TechnicalMax*reviewTechWeight + sentiment/scoring.SentimentMax*reviewNewsWeight

	action := "HOLD"
	if confidence < reviewCloseBelow {
		action = "CLOSE"
	}
	return &dto.PositionReviewResponse{
		Confidence: utils.ToPointer(utils.RoundTo(confidence, 1)),
		Action:     action,
		Reasoning:  fmt.Sprintf("%s %s: technical %.1f, sentiment %.1f", pos.Symbol, pos.Direction, technical, sentiment),
	}, nil
}

// sizePct scales the position between the configured bounds by confidence.
func (r *rulesAIRepository) sizePct(confidence float64) float64 {
	t := r.trading
	floor := float64(t.MinConfidence)
	if confidence <= floor {
		return t.MinPositionSizePct
	}
	frac := math.Min((confidence-floor)/(scoring.ConfidenceMax-floor), 1)
	return utils.RoundTo(t.MinPositionSizePct+frac*(t.DefaultPositionSizePct-t.MinPositionSizePct), 2)
}

// volumeRatio compares the latest daily volume with the prior seven-day average.
func (r *rulesAIRepository) volumeRatio(ctx context.Context, symbol string) float64 {
	daily, err := r.market.GetCandles(ctx, symbol, "1d", dailyCandles)
	if err != nil || len(daily) < 2 {
		r.log.DebugContext(ctx, "Daily volume unavailable", logger.StringField("symbol", symbol), logger.ErrorField(err))
		return 0
	}
	var sum float64
	prior := daily[:len(daily)-1]
	for _, c := range prior {
		sum += c.Volume
	}
	avg := sum / float64(len(prior))
	if avg <= 0 {
		return 0
	}
	return daily[len(daily)-1].Volume / avg
}

func (r *rulesAIRepository) depth(ctx context.Context, symbol string) float64 {
	d, err := r.market.GetOrderBookDepth(ctx, symbol, depthBandPct)
	if err != nil {
		r.log.DebugContext(ctx, "Order book depth unavailable", logger.StringField("symbol", symbol), logger.ErrorField(err))
		return 0
	}
	return d.TotalUSD
}

// benchmarkTrend reports whether BTC is rising over the last day of 4h candles
// and by how much.
func (r *rulesAIRepository) benchmarkTrend(ctx context.Context) (bool, float64) {
	candles, err := r.market.GetCandles(ctx, benchmarkSymbol, "4h", benchmarkCandles)
	if err != nil || len(candles) < 2 {
		r.log.DebugContext(ctx, "Benchmark trend unavailable", logger.ErrorField(err))
		return false, 0
	}
	first, last := candles[0].Close, candles[len(candles)-1].Close
	change := utils.PercentChange(first, last)
	return change > 0, change
}

func series(candles []dto.Candle) ([]float64, []float64) {
	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}
	return closes, volumes
}

func headlines(news []dto.NewsItem) []string {
	out := make([]string, 0, len(news))
	for _, n := range news {
		out = append(out, n.Title)
	}
	return out
}

// atrPct is the average true range over period as a percentage of the last close.
func atrPct(candles []dto.Candle, period int) float64 {
	if len(candles) < 2 {
		return 0
	}
	start := 1
	if len(candles) > period+1 {
		start = len(candles) - period
	}
	var sum float64
	for i := start; i < len(candles); i++ {
		c, prev := candles[i], candles[i-1].Close
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
		sum += tr
	}
	atr := sum / float64(len(candles)-start)
	last := candles[len(candles)-1].Close
	if last <= 0 {
		return 0
	}
	return atr / last * 100
}

func trendWord(up bool) string {
	if up {
		return "uptrend"
	}
	return "downtrend"
}
