package service

import (
	"context"
	"testing"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func newLifecycle() PositionLifecycle {
	return NewPositionLifecycle(config.DefaultTrading(), logger.NewNop())
}

func solSignal(confidence int) entity.Signal {
	return entity.Signal{
		ID:              "5b0e8a40-7d0f-4a4f-9d8f-2d0c1f0e6a11",
		Symbol:          "SOLUSDT",
		Direction:       entity.DirectionLong,
		Confidence:      confidence,
		EntryPrice:      145.30,
		StopLoss:        138.20,
		PositionSizePct: 5,
		PositionSizeUSD: 500,
	}
}

func TestTP1Price(t *testing.T) {
	lc := newLifecycle()
	assert.Equal(t, 159.50, lc.TP1Price(entity.DirectionLong, 145.30, 138.20))
	assert.Equal(t, 131.10, lc.TP1Price(entity.DirectionShort, 145.30, 152.40))
}

func TestOpenCreatesInitialPosition(t *testing.T) {
	p := newLifecycle().Open(context.Background(), solSignal(85), t0)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, entity.PhaseInitial, p.Phase)
	assert.Equal(t, entity.PositionStatusOpen, p.Status)
	assert.Equal(t, 138.20, p.StopLoss)
	assert.Equal(t, 159.50, p.TP1Price)
	assert.Equal(t, 145.30, p.PeakPrice)
	assert.InDelta(t, 500/145.30, p.Size, 1e-12)
	assert.Equal(t, p.Size, p.InitialSize)
}

func TestNormalizeStop(t *testing.T) {
	lc := newLifecycle()

	stop, warnings := lc.NormalizeStop(entity.DirectionLong, 100, 104)
	assert.Equal(t, 96.0, stop, "wrong-side stop is mirrored")
	assert.Len(t, warnings, 1)

	stop, warnings = lc.NormalizeStop(entity.DirectionLong, 100, 99.5)
	assert.Equal(t, 98.0, stop, "too tight is widened to the minimum")
	assert.Len(t, warnings, 1)

	stop, warnings = lc.NormalizeStop(entity.DirectionShort, 100, 110)
	assert.Equal(t, 105.0, stop, "too wide is narrowed to the maximum")
	assert.Len(t, warnings, 1)

	stop, warnings = lc.NormalizeStop(entity.DirectionShort, 100, 103)
	assert.Equal(t, 103.0, stop)
	assert.Empty(t, warnings)
}

func TestTrailingStopScenario(t *testing.T) {
	lc := newLifecycle()
	ctx := context.Background()
	p := lc.Open(ctx, solSignal(85), t0)

	// The 2.5% trail off 148.21 sits under the breakeven stop, so breakeven holds.
	steps := []struct {
		price float64
		stop  float64
		phase entity.LifecyclePhase
	}{
		{148.21, 145.30, entity.PhaseTrailing},
		{149.80, 146.055, entity.PhaseTrailing},
		{149.80, 146.055, entity.PhaseTrailing},
		{151.20, 147.42, entity.PhaseTrailing},
	}
	for i, s := range steps {
		out := lc.Evaluate(ctx, p, s.price, t0.Add(time.Duration(i+1)*5*time.Minute))
		require.Nil(t, out.Closed)
		assert.InDelta(t, s.stop, p.StopLoss, 1e-9, "step %d", i)
		assert.Equal(t, s.phase, p.Phase, "step %d", i)
	}
	assert.Equal(t, 151.20, p.PeakPrice)

	out := lc.Evaluate(ctx, p, 147.42, t0.Add(time.Hour))
	require.NotNil(t, out.Closed)
	assert.Equal(t, entity.ExitReasonTrailingStop, out.Closed.Reason)
	assert.InDelta(t, 1.459, out.Closed.PnLPct, 0.001)
	assert.Equal(t, entity.PositionStatusClosed, p.Status)
	require.NotNil(t, p.ExitPrice)
	assert.Equal(t, 147.42, *p.ExitPrice)
}

func TestStopIsMonotonic(t *testing.T) {
	lc := newLifecycle()
	ctx := context.Background()
	p := lc.Open(ctx, solSignal(70), t0)

	prices := []float64{146, 147.5, 150, 149, 152, 148.9, 151, 153.4, 150.2}
	prev := p.StopLoss
	for i, price := range prices {
		out := lc.Evaluate(ctx, p, price, t0.Add(time.Duration(i)*time.Minute))
		if out.Closed != nil {
			break
		}
		assert.GreaterOrEqual(t, p.StopLoss, prev, "stop loosened at step %d", i)
		assert.Empty(t, out.Warnings)
		prev = p.StopLoss
	}
}

func TestBreakevenIsIdempotent(t *testing.T) {
	lc := newLifecycle()
	ctx := context.Background()
	p := lc.Open(ctx, solSignal(70), t0)

	first := lc.Evaluate(ctx, p, 147.0, t0.Add(time.Minute))
	assert.True(t, first.StopMoved())
	assert.Equal(t, entity.PhaseBreakeven, p.Phase)
	assert.Equal(t, 145.30, p.StopLoss)

	second := lc.Evaluate(ctx, p, 147.0, t0.Add(2*time.Minute))
	assert.False(t, second.StopMoved())
	assert.False(t, second.Changed())
	assert.Equal(t, 145.30, p.StopLoss)
}

func TestTP1PartialExit(t *testing.T) {
	lc := newLifecycle()
	ctx := context.Background()
	p := lc.Open(ctx, solSignal(70), t0)
	initial := p.Size

	out := lc.Evaluate(ctx, p, 160.0, t0.Add(time.Minute))
	require.NotNil(t, out.PartialExit)
	assert.Nil(t, out.Closed)
	assert.Equal(t, 159.50, out.PartialExit.Price)
	assert.InDelta(t, initial/2, out.PartialExit.Size, 1e-12)
	assert.InDelta(t, initial/2, p.Size, 1e-12)
	assert.True(t, p.TP1Hit)
	assert.InDelta(t, (159.50-145.30)*initial/2, p.PnLUSD, 1e-9)
	assert.Equal(t, entity.PhaseTrailing, p.Phase)
	assert.Greater(t, p.StopLoss, 145.30)

	again := lc.Evaluate(ctx, p, 161.0, t0.Add(2*time.Minute))
	assert.Nil(t, again.PartialExit, "TP1 fires once")
}

func TestInitialStopLossExit(t *testing.T) {
	lc := newLifecycle()
	ctx := context.Background()
	p := lc.Open(ctx, solSignal(70), t0)

	out := lc.Evaluate(ctx, p, 138.0, t0.Add(time.Minute))
	require.NotNil(t, out.Closed)
	assert.Equal(t, entity.ExitReasonStopLoss, out.Closed.Reason)
	assert.Less(t, p.PnLUSD, 0.0)
	assert.False(t, p.IsOpen())
}

func TestShortPositionBreakevenStop(t *testing.T) {
	lc := newLifecycle()
	ctx := context.Background()
	sig := solSignal(70)
	sig.Symbol = "DOGEUSDT"
	sig.Direction = entity.DirectionShort
	sig.EntryPrice = 0.20
	sig.StopLoss = 0.208
	sig.PositionSizeUSD = 400
	p := lc.Open(ctx, sig, t0)

	lc.Evaluate(ctx, p, 0.197, t0.Add(time.Minute))
	assert.Equal(t, entity.PhaseBreakeven, p.Phase)
	assert.Equal(t, 0.20, p.StopLoss)

	out := lc.Evaluate(ctx, p, 0.2001, t0.Add(2*time.Minute))
	require.NotNil(t, out.Closed)
	assert.Equal(t, entity.ExitReasonBreakevenStop, out.Closed.Reason)
}

func TestShortPositionTrailingStop(t *testing.T) {
	lc := newLifecycle()
	ctx := context.Background()
	sig := solSignal(70)
	sig.Symbol = "AVAXUSDT"
	sig.Direction = entity.DirectionShort
	sig.EntryPrice = 100
	sig.StopLoss = 103
	p := lc.Open(ctx, sig, t0)
	require.Equal(t, 94.0, p.TP1Price)

	steps := []struct {
		price float64
		stop  float64
		peak  float64
		phase entity.LifecyclePhase
	}{
		{99, 100, 99, entity.PhaseBreakeven},
		{97.5, 99.45, 97.5, entity.PhaseTrailing},
		{96, 97.92, 96, entity.PhaseTrailing},
		{97, 97.92, 96, entity.PhaseTrailing},
		{95, 96.9, 95, entity.PhaseTrailing},
	}
	prev := p.StopLoss
	for i, s := range steps {
		out := lc.Evaluate(ctx, p, s.price, t0.Add(time.Duration(i+1)*5*time.Minute))
		require.Nil(t, out.Closed, "step %d", i)
		assert.InDelta(t, s.stop, p.StopLoss, 1e-9, "step %d", i)
		assert.Equal(t, s.peak, p.PeakPrice, "step %d", i)
		assert.Equal(t, s.phase, p.Phase, "step %d", i)
		assert.LessOrEqual(t, p.StopLoss, prev, "stop rose at step %d", i)
		prev = p.StopLoss
	}

	out := lc.Evaluate(ctx, p, 97.2, t0.Add(time.Hour))
	require.NotNil(t, out.Closed)
	assert.Equal(t, entity.ExitReasonTrailingStop, out.Closed.Reason)
	assert.InDelta(t, 2.8, out.Closed.PnLPct, 1e-9)
	require.NotNil(t, p.ExitPrice)
	assert.Equal(t, 97.2, *p.ExitPrice)
}
