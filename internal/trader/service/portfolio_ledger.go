package service

import (
	"sort"
	"sync"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/utils"
)

// Risk level thresholds on daily pnl (<=) and exposure (>=).
var riskLevels = []struct {
	level       string
	dailyPnLPct float64
	exposurePct float64
}{
	{dto.RiskLevelCritical, -6, 22},
	{dto.RiskLevelHigh, -4, 18},
	{dto.RiskLevelModerate, -2, 12},
}

// ClassifyRisk maps daily pnl and exposure to a portfolio risk level.
func ClassifyRisk(dailyPnLPct, exposurePct float64) string {
	for _, r := range riskLevels {
		if dailyPnLPct <= r.dailyPnLPct || exposurePct >= r.exposurePct {
			return r.level
		}
	}
	return dto.RiskLevelLow
}

// LedgerTx is the view handed to a Write callback. Positions it returns are
// live and may be mutated only inside the callback.
type LedgerTx interface {
	Snapshot() dto.PortfolioSnapshot
	OpenPositions() []*entity.Position
	Position(id string) (*entity.Position, bool)
	HasOpen(symbol string) bool
	Mark(symbol string) (float64, bool)
	UpdateMark(symbol string, price float64)
	AddPosition(p *entity.Position)
	RecordRealized(pnlUSD float64, at time.Time)
	RemovePosition(id string)
}

// PortfolioLedger is the authoritative record of open positions and realized
// P&L. All mutation goes through Write, which serializes writers so the risk
// gate and lifecycle updates always see a consistent snapshot.
type PortfolioLedger interface {
	Write(fn func(tx LedgerTx) error) error
	Snapshot() dto.PortfolioSnapshot
	OpenPositions() []entity.Position
	Position(id string) (entity.Position, bool)
	HasOpen(symbol string) bool
	Restore(open []entity.Position, realizedTotal float64, realized []entity.PositionEvent)
}

type realizedEvent struct {
	at     time.Time
	pnlUSD float64
}

type portfolioLedger struct {
	trading config.Trading
	log     *logger.Logger
	now     func() time.Time

	mu        sync.RWMutex
	positions map[string]*entity.Position
	marks     map[string]float64
	// realizedTotal covers every realized event, events only the recent ones
	// needed for the daily and weekly windows.
	realizedTotal float64
	events        []realizedEvent
}

func NewPortfolioLedger(trading config.Trading, log *logger.Logger) PortfolioLedger {
	return &portfolioLedger{
		trading:   trading,
		log:       log,
		now:       utils.TimeNowUTC,
		positions: make(map[string]*entity.Position),
		marks:     make(map[string]float64),
	}
}

func (l *portfolioLedger) Write(fn func(tx LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ledgerTx{l})
}

func (l *portfolioLedger) Snapshot() dto.PortfolioSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot()
}

func (l *portfolioLedger) OpenPositions() []entity.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]entity.Position, 0, len(l.positions))
	for _, p := range l.sorted() {
		out = append(out, *p)
	}
	return out
}

func (l *portfolioLedger) Position(id string) (entity.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[id]
	if !ok {
		return entity.Position{}, false
	}
	return *p, true
}

func (l *portfolioLedger) HasOpen(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hasOpen(symbol)
}

// Restore rebuilds state from persisted open positions and realized events.
func (l *portfolioLedger) Restore(open []entity.Position, realizedTotal float64, realized []entity.PositionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.positions = make(map[string]*entity.Position, len(open))
	for i := range open {
		if !open[i].IsOpen() {
			continue
		}
		p := open[i]
		l.positions[p.ID] = &p
	}
	l.realizedTotal = realizedTotal
	l.events = l.events[:0]
	for _, e := range realized {
		l.events = append(l.events, realizedEvent{at: e.CreatedAt.UTC(), pnlUSD: e.PnLUSD})
	}
	l.log.Info("Portfolio ledger restored",
		logger.IntField("open_positions", len(l.positions)),
		logger.FloatField("realized_pnl_usd", realizedTotal))
}

func (l *portfolioLedger) hasOpen(symbol string) bool {
	for _, p := range l.positions {
		if p.Symbol == symbol {
			return true
		}
	}
	return false
}

func (l *portfolioLedger) sorted() []*entity.Position {
	out := make([]*entity.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

func (l *portfolioLedger) markOf(p *entity.Position) float64 {
	if m, ok := l.marks[p.Symbol]; ok && m > 0 {
		return m
	}
	return p.EntryPrice
}

// snapshot derives the portfolio view. Window P&L is realized-in-window plus
// current unrealized, over the portfolio value at the window start.
func (l *portfolioLedger) snapshot() dto.PortfolioSnapshot {
	now := l.now()
	dayStart, weekStart := utils.StartOfDayUTC(now), utils.StartOfWeekUTC(now)

	snap := dto.PortfolioSnapshot{
		OpenPositionCount: len(l.positions),
		RealizedPnLUSD:    l.realizedTotal,
		GroupCounts:       make(map[string]int),
		CapturedAt:        now,
	}

	var notional float64
	for _, p := range l.positions {
		snap.UnrealizedPnLUSD += p.UnrealizedUSD(l.markOf(p))
		notional += p.NotionalUSD()
		snap.TotalRiskUSD += p.RiskUSD()
		if g := CorrelationGroupOf(p.Symbol); g != "" {
			snap.GroupCounts[g]++
		}
	}

	var realizedDay, realizedWeek float64
	for _, e := range l.events {
		if !e.at.Before(weekStart) {
			realizedWeek += e.pnlUSD
		}
		if !e.at.Before(dayStart) {
			realizedDay += e.pnlUSD
		}
	}

	snap.TotalValue = l.trading.StartingCapital + snap.RealizedPnLUSD + snap.UnrealizedPnLUSD
	snap.Cash = l.trading.StartingCapital + snap.RealizedPnLUSD - notional
	if snap.TotalValue > 0 {
		snap.TotalExposurePct = notional / snap.TotalValue * 100
	}
	snap.DailyPnLPct = windowPct(realizedDay+snap.UnrealizedPnLUSD, l.trading.StartingCapital+l.realizedTotal-realizedDay)
	snap.WeeklyPnLPct = windowPct(realizedWeek+snap.UnrealizedPnLUSD, l.trading.StartingCapital+l.realizedTotal-realizedWeek)
	snap.RiskLevel = ClassifyRisk(snap.DailyPnLPct, snap.TotalExposurePct)
	return snap
}

func windowPct(pnl, startValue float64) float64 {
	if startValue <= 0 {
		return 0
	}
	return pnl / startValue * 100
}

// prune drops events older than the current week; realizedTotal keeps them.
func (l *portfolioLedger) prune() {
	weekStart := utils.StartOfWeekUTC(l.now())
	kept := l.events[:0]
	for _, e := range l.events {
		if !e.at.Before(weekStart) {
			kept = append(kept, e)
		}
	}
	l.events = kept
}

// ledgerTx exposes the ledger to a Write callback while the write lock is held.
type ledgerTx struct {
	l *portfolioLedger
}

func (tx ledgerTx) Snapshot() dto.PortfolioSnapshot {
	return tx.l.snapshot()
}

func (tx ledgerTx) OpenPositions() []*entity.Position {
	return tx.l.sorted()
}

func (tx ledgerTx) Position(id string) (*entity.Position, bool) {
	p, ok := tx.l.positions[id]
	return p, ok
}

func (tx ledgerTx) HasOpen(symbol string) bool {
	return tx.l.hasOpen(symbol)
}

func (tx ledgerTx) Mark(symbol string) (float64, bool) {
	m, ok := tx.l.marks[symbol]
	return m, ok
}

func (tx ledgerTx) UpdateMark(symbol string, price float64) {
	if price > 0 {
		tx.l.marks[symbol] = price
	}
}

func (tx ledgerTx) AddPosition(p *entity.Position) {
	tx.l.positions[p.ID] = p
	if _, ok := tx.l.marks[p.Symbol]; !ok {
		tx.l.marks[p.Symbol] = p.EntryPrice
	}
}

func (tx ledgerTx) RecordRealized(pnlUSD float64, at time.Time) {
	tx.l.realizedTotal += pnlUSD
	tx.l.events = append(tx.l.events, realizedEvent{at: at.UTC(), pnlUSD: pnlUSD})
	tx.l.prune()
}

func (tx ledgerTx) RemovePosition(id string) {
	p, ok := tx.l.positions[id]
	if !ok {
		return
	}
	delete(tx.l.positions, id)
	if !tx.l.hasOpen(p.Symbol) {
		delete(tx.l.marks, p.Symbol)
	}
}
