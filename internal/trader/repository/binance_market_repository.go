package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/common"
	"momentum-trader/pkg/logger"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const depthLevels = 100

// binanceMarketRepository reads public spot market data from the Binance REST API.
type binanceMarketRepository struct {
	client  *resty.Client
	log     *logger.Logger
	limiter *rate.Limiter
	cache   *cache.Cache
}

// NewBinanceMarketRepository creates a market data repository for the configured base URL.
func NewBinanceMarketRepository(cfg config.Market, log *logger.Logger) MarketDataRepository {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")

	perRequest := time.Minute / time.Duration(cfg.MaxRequestPerMinute)
	return &binanceMarketRepository{
		client:  client,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(perRequest), 10),
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	BidPrice           string `json:"bidPrice"`
	AskPrice           string `json:"askPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
}

type binanceDepth struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

type binanceError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (r *binanceMarketRepository) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", common.ErrDataUnavailable, err)
	}

	var apiErr binanceError
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: request %s: %w", common.ErrDataUnavailable, path, err)
	}
	if resp.IsError() {
		r.log.Debug("Binance API error", logger.StringField("path", path), logger.IntField("status_code", resp.StatusCode()), logger.StringField("body", resp.String()))
		return fmt.Errorf("%w: %s returned %d: %s", common.ErrDataUnavailable, path, resp.StatusCode(), apiErr.Msg)
	}
	return nil
}

func (r *binanceMarketRepository) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]dto.Candle, error) {
	key := fmt.Sprintf("candles:%s:%s:%d", symbol, interval, limit)
	if cached, found := r.cache.Get(key); found {
		return cached.([]dto.Candle), nil
	}

	var raw [][]json.RawMessage
	err := r.get(ctx, "/api/v3/klines", map[string]string{
		"symbol":   symbol,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}, &raw)
	if err != nil {
		return nil, err
	}

	candles := make([]dto.Candle, 0, len(raw))
	for _, k := range raw {
		c, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s kline: %w", common.ErrDataUnavailable, symbol, interval, err)
		}
		candles = append(candles, c)
	}
	r.cache.SetDefault(key, candles)
	return candles, nil
}

// parseKline decodes [openTime, open, high, low, close, volume, ...].
func parseKline(k []json.RawMessage) (dto.Candle, error) {
	if len(k) < 6 {
		return dto.Candle{}, fmt.Errorf("expected at least 6 fields, got %d", len(k))
	}
	var openTime int64
	if err := json.Unmarshal(k[0], &openTime); err != nil {
		return dto.Candle{}, err
	}
	values := make([]float64, 5)
	for i := range values {
		var s string
		if err := json.Unmarshal(k[i+1], &s); err != nil {
			return dto.Candle{}, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return dto.Candle{}, err
		}
		values[i] = v
	}
	return dto.Candle{
		OpenTime: time.UnixMilli(openTime).UTC(),
		Open:     values[0],
		High:     values[1],
		Low:      values[2],
		Close:    values[3],
		Volume:   values[4],
	}, nil
}

func (r *binanceMarketRepository) GetTicker(ctx context.Context, symbol string) (*dto.Ticker, error) {
	key := "ticker:" + symbol
	if cached, found := r.cache.Get(key); found {
		t := cached.(dto.Ticker)
		return &t, nil
	}

	var raw binanceTicker
	if err := r.get(ctx, "/api/v3/ticker/24hr", map[string]string{"symbol": symbol}, &raw); err != nil {
		return nil, err
	}
	ticker, err := toTicker(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s ticker: %w", common.ErrDataUnavailable, symbol, err)
	}
	if ticker.Price <= 0 {
		return nil, fmt.Errorf("%w: %s has no last price", common.ErrDataUnavailable, symbol)
	}
	r.cache.SetDefault(key, *ticker)
	return ticker, nil
}

func toTicker(raw binanceTicker) (*dto.Ticker, error) {
	fields := []string{raw.LastPrice, raw.PriceChangePercent, raw.BidPrice, raw.AskPrice, raw.Volume, raw.QuoteVolume}
	values := make([]float64, len(fields))
	for i, f := range fields {
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	t := &dto.Ticker{
		Symbol:      raw.Symbol,
		Price:       values[0],
		Change24h:   values[1],
		BidPrice:    values[2],
		AskPrice:    values[3],
		Volume24h:   values[4],
		QuoteVolume: values[5],
		ObservedAt:  time.Now().UTC(),
	}
	if mid := (t.BidPrice + t.AskPrice) / 2; mid > 0 && t.AskPrice >= t.BidPrice {
		t.SpreadPct = (t.AskPrice - t.BidPrice) / mid * 100
	}
	return t, nil
}

// GetOrderBookDepth sums bid and ask notional within bandPct of the mid price.
func (r *binanceMarketRepository) GetOrderBookDepth(ctx context.Context, symbol string, bandPct float64) (*dto.OrderBookDepth, error) {
	var raw binanceDepth
	if err := r.get(ctx, "/api/v3/depth", map[string]string{"symbol": symbol, "limit": strconv.Itoa(depthLevels)}, &raw); err != nil {
		return nil, err
	}
	if len(raw.Bids) == 0 || len(raw.Asks) == 0 {
		return nil, fmt.Errorf("%w: %s order book is empty", common.ErrDataUnavailable, symbol)
	}

	bestBid, _ := strconv.ParseFloat(raw.Bids[0][0], 64)
	bestAsk, _ := strconv.ParseFloat(raw.Asks[0][0], 64)
	mid := (bestBid + bestAsk) / 2
	lo, hi := mid*(1-bandPct/100), mid*(1+bandPct/100)

	depth := &dto.OrderBookDepth{Symbol: symbol, BandPct: bandPct}
	depth.BidUSD = sumLevels(raw.Bids, func(p float64) bool { return p >= lo })
	depth.AskUSD = sumLevels(raw.Asks, func(p float64) bool { return p <= hi })
	depth.TotalUSD = depth.BidUSD + depth.AskUSD
	return depth, nil
}

func sumLevels(levels [][]string, inBand func(price float64) bool) float64 {
	var total float64
	for _, lvl := range levels {
		if len(lvl) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(lvl[0], 64)
		qty, err2 := strconv.ParseFloat(lvl[1], 64)
		if err1 != nil || err2 != nil || !inBand(price) {
			continue
		}
		total += price * qty
	}
	return total
}

// ListSymbols returns the most traded symbols quoted in quoteAsset.
func (r *binanceMarketRepository) ListSymbols(ctx context.Context, quoteAsset string, limit int) ([]string, error) {
	key := "symbols:" + quoteAsset
	if cached, found := r.cache.Get(key); found {
		return truncate(cached.([]string), limit), nil
	}

	var raw []binanceTicker
	if err := r.get(ctx, "/api/v3/ticker/24hr", nil, &raw); err != nil {
		return nil, err
	}

	type ranked struct {
		symbol string
		volume float64
	}
	var candidates []ranked
	for _, t := range raw {
		if !strings.HasSuffix(t.Symbol, quoteAsset) || isLeveragedToken(t.Symbol, quoteAsset) {
			continue
		}
		v, err := strconv.ParseFloat(t.QuoteVolume, 64)
		if err != nil || v <= 0 {
			continue
		}
		candidates = append(candidates, ranked{t.Symbol, v})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].volume > candidates[j].volume })

	symbols := make([]string, 0, len(candidates))
	for _, c := range candidates {
		symbols = append(symbols, c.symbol)
	}
	r.cache.SetDefault(key, symbols)
	return truncate(symbols, limit), nil
}

func isLeveragedToken(symbol, quote string) bool {
	base := strings.TrimSuffix(symbol, quote)
	return strings.HasSuffix(base, "UP") || strings.HasSuffix(base, "DOWN") || strings.HasSuffix(base, "BULL") || strings.HasSuffix(base, "BEAR")
}

func truncate(symbols []string, limit int) []string {
	if limit > 0 && len(symbols) > limit {
		return symbols[:limit]
	}
	return symbols
}
