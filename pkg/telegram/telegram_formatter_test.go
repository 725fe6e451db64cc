package telegram

import (
	"testing"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPositionOpenedMessage(t *testing.T) {
	p := &entity.Position{
		Symbol: "SOLUSDT", Direction: entity.DirectionLong,
		EntryPrice: 145.30, StopLoss: 138.20, TP1Price: 159.50, Confidence: 89,
		OpenedAt: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
	}
	decision := dto.RiskDecision{
		Kind:          entity.DecisionModify,
		Signal:        entity.Signal{PositionSizeUSD: 300, PositionSizePct: 3, Reasoning: "breakout on volume"},
		Modifications: []string{"position_size_pct 5.00 -> 3.00"},
	}

	msg := FormatPositionOpenedMessage(p, decision)
	assert.Contains(t, msg, "LONG SOLUSDT opened")
	assert.Contains(t, msg, "Entry: $145.3")
	assert.Contains(t, msg, "Size: $300.00 (3.00%)")
	assert.Contains(t, msg, "Modified by risk gate")
	assert.Contains(t, msg, "Breakout on volume")
	assert.Contains(t, msg, "Wed, 14 Oct 2026 09:00 UTC")
}

func TestFormatPositionClosedMessage(t *testing.T) {
	p := &entity.Position{Symbol: "SOLUSDT", EntryPrice: 145.30, PnLPct: -2.1, PnLUSD: -10.5, ClosedAt: utils.ToPointer(time.Now())}
	msg := FormatPositionClosedMessage(p, dto.Fill{Price: 142.25, Reason: entity.ExitReasonStopLoss, PnLPct: -2.1, PnLUSD: -10.5})
	assert.Contains(t, msg, "⚠️")
	assert.Contains(t, msg, "closed: STOP_LOSS")
	assert.Contains(t, msg, "-2.10%")
}

func TestFormatBreakerTrippedMessage(t *testing.T) {
	resumes := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	msg := FormatBreakerTrippedMessage(
		dto.BreakerStatus{Halted: true, Reason: entity.ReasonDailyLossLimit, ResumesAt: &resumes},
		dto.PortfolioSnapshot{DailyPnLPct: -8.2, WeeklyPnLPct: 1.5},
	)
	assert.Contains(t, msg, "DAILY_LOSS_LIMIT")
	assert.Contains(t, msg, "-8.20%")
	assert.Contains(t, msg, "+1.50%")
	assert.Contains(t, msg, "Thu, 15 Oct 2026 00:00 UTC")
}

func TestNewClientWithoutToken(t *testing.T) {
	n, err := NewClient("", 0)
	require.NoError(t, err)
	assert.NoError(t, n.SendMessage("dropped"))
}
