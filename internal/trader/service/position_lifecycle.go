package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionLifecycle owns stop and target management for open positions.
//
// Phases move INITIAL -> BREAKEVEN -> TRAILING and never back. Each tick checks
// the stop first, then TP1, then updates the peak, breakeven and trailing stop.
// The stop only ever moves in the direction that reduces risk.
type PositionLifecycle interface {
	Open(ctx context.Context, signal entity.Signal, now time.Time) *entity.Position
	Evaluate(ctx context.Context, position *entity.Position, price float64, now time.Time) dto.LifecycleOutcome
	Close(ctx context.Context, position *entity.Position, price float64, reason entity.ExitReason, now time.Time) dto.Fill
	NormalizeStop(direction entity.Direction, entry, stop float64) (float64, []string)
	TP1Price(direction entity.Direction, entry, stop float64) float64
}

type positionLifecycle struct {
	trading config.Trading
	log     *logger.Logger
}

func NewPositionLifecycle(trading config.Trading, log *logger.Logger) PositionLifecycle {
	return &positionLifecycle{trading: trading, log: log}
}

// Open creates an INITIAL position from an approved signal.
func (l *positionLifecycle) Open(ctx context.Context, signal entity.Signal, now time.Time) *entity.Position {
	stop, warnings := l.NormalizeStop(signal.Direction, signal.EntryPrice, signal.StopLoss)
	for _, w := range warnings {
		l.log.WarnContext(ctx, "Adjusted stop on open", logger.StringField("symbol", signal.Symbol), logger.StringField("warning", w))
	}

	size := signal.PositionSizeUSD / signal.EntryPrice
	return &entity.Position{
		ID:              uuid.NewString(),
		SignalID:        signal.ID,
		Symbol:          signal.Symbol,
		Direction:       signal.Direction,
		EntryPrice:      signal.EntryPrice,
		InitialSize:     size,
		Size:            size,
		InitialStopLoss: stop,
		StopLoss:        stop,
		TP1Price:        l.TP1Price(signal.Direction, signal.EntryPrice, stop),
		PeakPrice:       signal.EntryPrice,
		Confidence:      signal.Confidence,
		Phase:           entity.PhaseInitial,
		Status:          entity.PositionStatusOpen,
		OpenedAt:        now,
		UpdatedAt:       now,
	}
}

// NormalizeStop puts the stop on the loss side of entry and clamps its
// distance to the configured bounds.
func (l *positionLifecycle) NormalizeStop(direction entity.Direction, entry, stop float64) (float64, []string) {
	var warnings []string
	sign := direction.Sign()

	if (entry-stop)*sign < 0 {
		mirrored := utils.RoundPrice(2*entry - stop)
		warnings = append(warnings, fmt.Sprintf("stop %.8g on the wrong side of entry %.8g, mirrored to %.8g", stop, entry, mirrored))
		stop = mirrored
	}

	distPct := math.Abs(entry-stop) / entry * 100
	switch {
	case distPct < l.trading.MinStopDistancePct:
		clamped := utils.ScalePrice(entry, -sign*l.trading.MinStopDistancePct)
		warnings = append(warnings, fmt.Sprintf("stop distance %.2f%% below %.2f%%, stop moved to %.8g", distPct, l.trading.MinStopDistancePct, clamped))
		stop = clamped
	case distPct > l.trading.MaxStopDistancePct:
		clamped := utils.ScalePrice(entry, -sign*l.trading.MaxStopDistancePct)
		warnings = append(warnings, fmt.Sprintf("stop distance %.2f%% above %.2f%%, stop moved to %.8g", distPct, l.trading.MaxStopDistancePct, clamped))
		stop = clamped
	}
	return utils.RoundPrice(stop), warnings
}

// TP1Price is entry plus TP1RiskMultiple times the risk distance, in the trade's favour.
func (l *positionLifecycle) TP1Price(direction entity.Direction, entry, stop float64) float64 {
	e := decimal.NewFromFloat(entry)
	risk := e.Sub(decimal.NewFromFloat(stop)).Abs()
	offset := risk.Mul(decimal.NewFromFloat(l.trading.TP1RiskMultiple))
	if direction == entity.DirectionShort {
		return e.Sub(offset).Round(utils.PricePrecision).InexactFloat64()
	}
	return e.Add(offset).Round(utils.PricePrecision).InexactFloat64()
}

// Evaluate runs one monitoring tick against price and mutates the position.
func (l *positionLifecycle) Evaluate(ctx context.Context, p *entity.Position, price float64, now time.Time) dto.LifecycleOutcome {
	out := dto.LifecycleOutcome{
		PositionID:    p.ID,
		Symbol:        p.Symbol,
		Price:         price,
		PreviousStop:  p.StopLoss,
		StopLoss:      p.StopLoss,
		PreviousPhase: p.Phase,
		Phase:         p.Phase,
	}
	if !p.IsOpen() || price <= 0 {
		return out
	}
	out.PnLPct = p.PnLPctAt(price)

	if p.StopHit(price) {
		fill := l.Close(ctx, p, price, stopExitReason(p.Phase), now)
		out.Closed = &fill
		out.StopLoss, out.Phase = p.StopLoss, p.Phase
		return out
	}

	if !p.TP1Hit && p.TP1Reached(price) {
		fill := l.takeTP1(p, now)
		out.PartialExit = &fill
		l.tighten(p, p.EntryPrice)
		l.advance(p, entity.PhaseBreakeven)
	}

	if (price-p.PeakPrice)*p.Direction.Sign() > 0 {
		p.PeakPrice = price
	}

	if out.PnLPct >= l.trading.BreakevenTriggerPct {
		l.advance(p, entity.PhaseBreakeven)
		l.tighten(p, p.EntryPrice)
	}

	if out.PnLPct >= l.trading.TrailingActivationPct || p.Phase == entity.PhaseTrailing {
		l.advance(p, entity.PhaseTrailing)
		l.tighten(p, l.trailingCandidate(p))
	}

	if (p.StopLoss-out.PreviousStop)*p.Direction.Sign() < 0 {
		w := fmt.Sprintf("stop loosened from %.8g to %.8g, restored", out.PreviousStop, p.StopLoss)
		out.Warnings = append(out.Warnings, w)
		l.log.WarnContext(ctx, "Lifecycle invariant violation", logger.StringField("position_id", p.ID), logger.StringField("warning", w))
		p.StopLoss = out.PreviousStop
	}
	if p.Phase.Before(out.PreviousPhase) {
		w := fmt.Sprintf("phase regressed from %s to %s, restored", out.PreviousPhase, p.Phase)
		out.Warnings = append(out.Warnings, w)
		l.log.WarnContext(ctx, "Lifecycle invariant violation", logger.StringField("position_id", p.ID), logger.StringField("warning", w))
		p.Phase = out.PreviousPhase
	}

	out.StopLoss, out.Phase = p.StopLoss, p.Phase
	if out.Changed() {
		p.UpdatedAt = now
	}
	return out
}

// Close exits the remaining size at price.
func (l *positionLifecycle) Close(ctx context.Context, p *entity.Position, price float64, reason entity.ExitReason, now time.Time) dto.Fill {
	fill := dto.Fill{
		Price:  price,
		Size:   p.Size,
		PnLUSD: (price - p.EntryPrice) * p.Size * p.Direction.Sign(),
		PnLPct: p.PnLPctAt(price),
		Reason: reason,
	}

	p.PnLUSD += fill.PnLUSD
	if initial := p.InitialSize * p.EntryPrice; initial > 0 {
		p.PnLPct = p.PnLUSD / initial * 100
	}
	p.ExitPrice = &price
	p.ExitReason = reason
	p.Status = entity.PositionStatusClosed
	p.ClosedAt = &now
	p.UpdatedAt = now

	l.log.InfoContext(ctx, "Position closed",
		logger.StringField("position_id", p.ID),
		logger.StringField("symbol", p.Symbol),
		logger.StringField("reason", string(reason)),
		logger.FloatField("exit_price", price),
		logger.FloatField("pnl_pct", fill.PnLPct),
		logger.FloatField("pnl_usd", fill.PnLUSD))
	return fill
}

// takeTP1 exits TP1ExitFraction of the current size at the TP1 price.
func (l *positionLifecycle) takeTP1(p *entity.Position, now time.Time) dto.Fill {
	exitSize := p.Size * l.trading.TP1ExitFraction
	fill := dto.Fill{
		Price:  p.TP1Price,
		Size:   exitSize,
		PnLUSD: (p.TP1Price - p.EntryPrice) * exitSize * p.Direction.Sign(),
		PnLPct: p.PnLPctAt(p.TP1Price),
		Reason: entity.ExitReasonTP1Partial,
	}
	p.Size -= exitSize
	p.PnLUSD += fill.PnLUSD
	p.TP1Hit = true
	p.UpdatedAt = now
	return fill
}

// trailingCandidate trails the peak by the confidence-dependent distance.
func (l *positionLifecycle) trailingCandidate(p *entity.Position) float64 {
	dist := l.trading.TrailingDistancePct
	if p.Confidence >= l.trading.HighConfidenceThreshold {
		dist = l.trading.HighConfidenceTrailingDistancePct
	}
	return utils.ScalePrice(p.PeakPrice, -p.Direction.Sign()*dist)
}

// tighten moves the stop to candidate only if that reduces risk.
func (l *positionLifecycle) tighten(p *entity.Position, candidate float64) bool {
	candidate = utils.RoundPrice(candidate)
	if !p.Tighter(candidate) {
		return false
	}
	p.StopLoss = candidate
	return true
}

func (l *positionLifecycle) advance(p *entity.Position, phase entity.LifecyclePhase) {
	if p.Phase.Before(phase) {
		p.Phase = phase
	}
}

func stopExitReason(phase entity.LifecyclePhase) entity.ExitReason {
	switch phase {
	case entity.PhaseTrailing:
		return entity.ExitReasonTrailingStop
	case entity.PhaseBreakeven:
		return entity.ExitReasonBreakevenStop
	default:
		return entity.ExitReasonStopLoss
	}
}
