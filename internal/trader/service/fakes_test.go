package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/repository"
	"momentum-trader/pkg/common"
)

// fakeMarket returns canned closes per symbol and interval and canned tickers.
type fakeMarket struct {
	mu      sync.Mutex
	closes  map[string][]float64
	tickers map[string]float64
	fail    map[string]bool
	symbols []string
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		closes:  make(map[string][]float64),
		tickers: make(map[string]float64),
		fail:    make(map[string]bool),
	}
}

func (f *fakeMarket) set(symbol, interval string, closes ...float64) *fakeMarket {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes[symbol+"/"+interval] = closes
	return f
}

func (f *fakeMarket) price(symbol string, p float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickers[symbol] = p
}

func (f *fakeMarket) ListSymbols(ctx context.Context, quoteAsset string, limit int) ([]string, error) {
	return f.symbols, nil
}

func (f *fakeMarket) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]dto.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[symbol] {
		return nil, fmt.Errorf("%w: %s timed out", common.ErrDataUnavailable, symbol)
	}
	closes, ok := f.closes[symbol+"/"+interval]
	if !ok {
		return nil, fmt.Errorf("%w: no %s candles for %s", common.ErrDataUnavailable, interval, symbol)
	}
	out := make([]dto.Candle, len(closes))
	for i, c := range closes {
		out[i] = dto.Candle{Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return out, nil
}

func (f *fakeMarket) GetTicker(ctx context.Context, symbol string) (*dto.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.tickers[symbol]
	if !ok || f.fail[symbol] {
		return nil, fmt.Errorf("%w: no ticker for %s", common.ErrDataUnavailable, symbol)
	}
	return &dto.Ticker{Symbol: symbol, Price: p}, nil
}

func (f *fakeMarket) GetOrderBookDepth(ctx context.Context, symbol string, bandPct float64) (*dto.OrderBookDepth, error) {
	return &dto.OrderBookDepth{Symbol: symbol, BandPct: bandPct}, nil
}

// fakeOracle answers from a per-symbol table.
type fakeOracle struct {
	mu       sync.Mutex
	analyses map[string]*dto.AnalysisResponse
	reviews  map[string]*dto.PositionReviewResponse
	err      error
	calls    []string
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		analyses: make(map[string]*dto.AnalysisResponse),
		reviews:  make(map[string]*dto.PositionReviewResponse),
	}
}

func (f *fakeOracle) AnalyzeMover(ctx context.Context, req dto.AnalysisRequest) (*dto.AnalysisResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Mover.Symbol)
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.analyses[req.Mover.Symbol]
	if !ok {
		return &dto.AnalysisResponse{NoTrade: true, Reasoning: "no setup"}, nil
	}
	return resp, nil
}

func (f *fakeOracle) ReviewPosition(ctx context.Context, req dto.PositionReviewRequest) (*dto.PositionReviewResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Position.Symbol)
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.reviews[req.Position.Symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no review", common.ErrOracleFailure)
	}
	return resp, nil
}

// memoryBreakerStore is an in-memory BreakerStateRepository.
type memoryBreakerStore struct {
	halts map[entity.ReasonCode]repository.BreakerHalt
}

func newMemoryBreakerStore() *memoryBreakerStore {
	return &memoryBreakerStore{halts: make(map[entity.ReasonCode]repository.BreakerHalt)}
}

func (m *memoryBreakerStore) SaveHalt(ctx context.Context, reason entity.ReasonCode, trippedAt, until time.Time) error {
	m.halts[reason] = repository.BreakerHalt{Reason: reason, TrippedAt: trippedAt, Until: until}
	return nil
}

func (m *memoryBreakerStore) LoadHalts(ctx context.Context) ([]repository.BreakerHalt, error) {
	var out []repository.BreakerHalt
	for _, h := range m.halts {
		out = append(out, h)
	}
	return out, nil
}

func (m *memoryBreakerStore) ClearHalt(ctx context.Context, reason entity.ReasonCode) error {
	delete(m.halts, reason)
	return nil
}

// recordingRecorder captures what would have been persisted.
type recordingRecorder struct {
	mu         sync.Mutex
	signals    []entity.Signal
	rejections []entity.RejectionRecord
	positions  []entity.Position
	events     []entity.PositionEvent
	metrics    []entity.PortfolioMetric
}

func (r *recordingRecorder) Start(ctx context.Context) {}
func (r *recordingRecorder) Stop()                     {}

func (r *recordingRecorder) RecordSignal(s entity.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
}

func (r *recordingRecorder) RecordRejection(rej entity.RejectionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejections = append(r.rejections, rej)
}

func (r *recordingRecorder) RecordPosition(p entity.Position, e entity.PositionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, p)
	r.events = append(r.events, e)
}

func (r *recordingRecorder) RecordMetric(m entity.PortfolioMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
}

func (r *recordingRecorder) eventTypes() []entity.PositionEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.PositionEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// captureNotifier collects outgoing messages.
type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (c *captureNotifier) SendMessage(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, text)
	return nil
}
