package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adaSignal(confidence int) entity.Signal {
	return entity.Signal{
		ID:              "7c1d1a3e-52a4-4c7f-8f0b-0e6f7b1f9a22",
		Symbol:          "ADAUSDT",
		Direction:       entity.DirectionLong,
		Confidence:      confidence,
		EntryPrice:      0.45,
		StopLoss:        0.441,
		PositionSizePct: 5,
		PositionSizeUSD: 500,
		RiskAmount:      10,
	}
}

func emptySnapshot() dto.PortfolioSnapshot {
	return dto.PortfolioSnapshot{
		TotalValue:  10000,
		Cash:        10000,
		RiskLevel:   dto.RiskLevelLow,
		GroupCounts: map[string]int{},
	}
}

func newGate(mutate func(*config.Trading)) RiskGate {
	trading := config.DefaultTrading()
	if mutate != nil {
		mutate(&trading)
	}
	return NewRiskGate(trading, logger.NewNop())
}

func TestRiskGateApproves(t *testing.T) {
	d := newGate(nil).Evaluate(context.Background(), adaSignal(75), emptySnapshot(), dto.BreakerStatus{})
	assert.Equal(t, entity.DecisionApprove, d.Kind)
	assert.True(t, d.Approved())
	assert.Empty(t, d.Warnings)
}

func TestRiskGateConfidenceThreshold(t *testing.T) {
	gate := newGate(nil)

	d := gate.Evaluate(context.Background(), adaSignal(59), emptySnapshot(), dto.BreakerStatus{})
	assert.Equal(t, entity.DecisionReject, d.Kind)
	assert.Equal(t, entity.ReasonConfidenceBelowThreshold, d.Reason)

	d = gate.Evaluate(context.Background(), adaSignal(60), emptySnapshot(), dto.BreakerStatus{})
	assert.True(t, d.Approved())
}

func TestRiskGateMaxPositions(t *testing.T) {
	snap := emptySnapshot()
	snap.OpenPositionCount = 5

	d := newGate(nil).Evaluate(context.Background(), adaSignal(90), snap, dto.BreakerStatus{})
	assert.Equal(t, entity.ReasonMaxPositionsReached, d.Reason)
}

func TestRiskGateExposureReject(t *testing.T) {
	snap := emptySnapshot()
	snap.TotalExposurePct = 22

	d := newGate(nil).Evaluate(context.Background(), adaSignal(90), snap, dto.BreakerStatus{})
	assert.Equal(t, entity.ReasonExposureLimitExceeded, d.Reason)

	snap.TotalExposurePct = 20
	d = newGate(nil).Evaluate(context.Background(), adaSignal(90), snap, dto.BreakerStatus{})
	assert.True(t, d.Approved(), "exactly at the limit is allowed")
}

func TestRiskGateExposureModify(t *testing.T) {
	gate := newGate(func(tr *config.Trading) { tr.ExposurePolicy = config.ExposurePolicyModify })
	snap := emptySnapshot()
	snap.TotalExposurePct = 22

	d := gate.Evaluate(context.Background(), adaSignal(90), snap, dto.BreakerStatus{})
	require.Equal(t, entity.DecisionModify, d.Kind)
	assert.True(t, d.Approved())
	assert.Equal(t, 3.0, d.Signal.PositionSizePct)
	assert.InDelta(t, 300, d.Signal.PositionSizeUSD, 1e-9)
	assert.InDelta(t, 6, d.Signal.RiskAmount, 1e-9)
	assert.Len(t, d.Modifications, 1)
	assert.LessOrEqual(t, snap.TotalExposurePct+d.Signal.PositionSizeUSD/snap.TotalValue*100, 25.0)

	snap.TotalExposurePct = 24.5
	d = gate.Evaluate(context.Background(), adaSignal(90), snap, dto.BreakerStatus{})
	assert.Equal(t, entity.ReasonExposureLimitExceeded, d.Reason, "headroom below the minimum size")
}

func TestRiskGateDailyLossRejectsRegardlessOfConfidence(t *testing.T) {
	snap := emptySnapshot()
	snap.DailyPnLPct = -8.5

	for _, conf := range []int{20, 75, 100} {
		d := newGate(nil).Evaluate(context.Background(), adaSignal(conf), snap, dto.BreakerStatus{})
		assert.Equal(t, entity.DecisionReject, d.Kind)
		assert.Equal(t, entity.ReasonDailyLossLimit, d.Reason)
		assert.Contains(t, strings.ToLower(d.Details), "daily")
	}
}

func TestRiskGateWorstCaseDailyLoss(t *testing.T) {
	snap := emptySnapshot()
	snap.DailyPnLPct = -7.95

	d := newGate(nil).Evaluate(context.Background(), adaSignal(80), snap, dto.BreakerStatus{})
	assert.Equal(t, entity.ReasonDailyLossLimit, d.Reason)
	assert.Contains(t, d.Details, "worst case")
}

func TestRiskGateWeeklyLoss(t *testing.T) {
	snap := emptySnapshot()
	snap.WeeklyPnLPct = -15

	d := newGate(nil).Evaluate(context.Background(), adaSignal(80), snap, dto.BreakerStatus{})
	assert.Equal(t, entity.ReasonWeeklyLossLimit, d.Reason)
}

func TestRiskGateCorrelationGroup(t *testing.T) {
	ledger := NewPortfolioLedger(config.DefaultTrading(), logger.NewNop())
	lc := newLifecycle()
	require.NoError(t, ledger.Write(func(tx LedgerTx) error {
		for _, sym := range []string{"ETHUSDT", "SOLUSDT"} {
			s := solSignal(80)
			s.Symbol = sym
			tx.AddPosition(lc.Open(context.Background(), s, t0))
		}
		return nil
	}))

	snap := ledger.Snapshot()
	require.Equal(t, 2, snap.GroupCounts[GroupBTCCorrelated])

	d := newGate(nil).Evaluate(context.Background(), adaSignal(75), snap, dto.BreakerStatus{})
	assert.Equal(t, entity.DecisionReject, d.Kind)
	assert.Equal(t, entity.ReasonCorrelationGroupLimit, d.Reason)
	assert.Contains(t, strings.ToLower(d.Details), "correlation")

	doge := adaSignal(75)
	doge.Symbol = "DOGEUSDT"
	d = newGate(nil).Evaluate(context.Background(), doge, snap, dto.BreakerStatus{})
	assert.True(t, d.Approved(), "other groups are unaffected")
}

func TestRiskGateBreakerHalt(t *testing.T) {
	resumes := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	status := dto.BreakerStatus{Halted: true, Reason: entity.ReasonDailyLossLimit, ResumesAt: &resumes, DailyHalted: true}

	d := newGate(nil).Evaluate(context.Background(), adaSignal(95), emptySnapshot(), status)
	assert.Equal(t, entity.ReasonDailyLossLimit, d.Reason)
	assert.Contains(t, d.Details, "daily")
}

func TestRiskGateWarnsOnHighRisk(t *testing.T) {
	snap := emptySnapshot()
	snap.RiskLevel = dto.RiskLevelHigh

	d := newGate(nil).Evaluate(context.Background(), adaSignal(75), snap, dto.BreakerStatus{})
	assert.True(t, d.Approved())
	assert.Equal(t, []string{"portfolio risk level HIGH"}, d.Warnings)
}

func TestRiskGateFirstFailingCheckWins(t *testing.T) {
	crowded := func() dto.PortfolioSnapshot {
		snap := emptySnapshot()
		snap.OpenPositionCount = 5
		snap.TotalExposurePct = 24.9
		snap.GroupCounts = map[string]int{GroupBTCCorrelated: 2}
		return snap
	}

	tests := []struct {
		name       string
		confidence int
		mutate     func(*dto.PortfolioSnapshot)
		want       entity.ReasonCode
	}{
		{"confidence first", 50, nil, entity.ReasonConfidenceBelowThreshold},
		{"position count before exposure", 90, nil, entity.ReasonMaxPositionsReached},
		{"exposure before loss limits", 90, func(s *dto.PortfolioSnapshot) { s.OpenPositionCount = 4; s.DailyPnLPct = -7.95 }, entity.ReasonExposureLimitExceeded},
		{"daily worst case before weekly", 90, func(s *dto.PortfolioSnapshot) {
			s.OpenPositionCount, s.TotalExposurePct, s.DailyPnLPct, s.WeeklyPnLPct = 4, 10, -7.95, -14.99
		}, entity.ReasonDailyLossLimit},
		{"correlation last", 90, func(s *dto.PortfolioSnapshot) { s.OpenPositionCount, s.TotalExposurePct = 4, 10 }, entity.ReasonCorrelationGroupLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := crowded()
			if tt.mutate != nil {
				tt.mutate(&snap)
			}
			d := newGate(nil).Evaluate(context.Background(), adaSignal(tt.confidence), snap, dto.BreakerStatus{})
			assert.Equal(t, entity.DecisionReject, d.Kind)
			assert.Equal(t, tt.want, d.Reason)
		})
	}
}

func TestRiskGateWeeklyReportedBeforeDaily(t *testing.T) {
	snap := emptySnapshot()
	snap.DailyPnLPct = -9
	snap.WeeklyPnLPct = -16

	d := newGate(nil).Evaluate(context.Background(), adaSignal(90), snap, dto.BreakerStatus{})
	assert.Equal(t, entity.ReasonWeeklyLossLimit, d.Reason)
}

func TestRiskGateUnmappedSymbolSkipsCorrelation(t *testing.T) {
	snap := emptySnapshot()
	snap.GroupCounts = map[string]int{
		GroupBTCCorrelated: 5,
		GroupDeFi:          5,
		GroupGaming:        5,
		GroupMeme:          5,
		GroupLayer2:        5,
		"":                 5,
	}
	sig := adaSignal(80)
	sig.Symbol = "ZZZUSDT"
	require.Empty(t, CorrelationGroupOf(sig.Symbol))

	d := newGate(nil).Evaluate(context.Background(), sig, snap, dto.BreakerStatus{})
	assert.Equal(t, entity.DecisionApprove, d.Kind)
}
