package service

import (
	"context"
	"fmt"
	"math"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/utils"

	"go.uber.org/zap"
)

// exposureTolerance absorbs float noise when comparing percentages against limits.
const exposureTolerance = 1e-9

// RiskGate runs the ordered portfolio checks for a candidate signal.
type RiskGate interface {
	Evaluate(ctx context.Context, signal entity.Signal, snapshot dto.PortfolioSnapshot, breaker dto.BreakerStatus) dto.RiskDecision
}

type riskGate struct {
	trading config.Trading
	log     *logger.Logger
}

func NewRiskGate(trading config.Trading, log *logger.Logger) RiskGate {
	return &riskGate{trading: trading, log: log}
}

// Evaluate short-circuits on the first failing check. A tripped loss breaker,
// or a snapshot already at a loss floor, rejects before any other check so a
// halt applies regardless of confidence.
func (g *riskGate) Evaluate(ctx context.Context, signal entity.Signal, snapshot dto.PortfolioSnapshot, breaker dto.BreakerStatus) dto.RiskDecision {
	decision := g.evaluate(signal, snapshot, breaker)

	fields := []zap.Field{
		logger.StringField("symbol", signal.Symbol),
		logger.StringField("direction", string(signal.Direction)),
		logger.IntField("confidence", signal.Confidence),
		logger.StringField("decision", string(decision.Kind)),
	}
	if decision.Reason != "" {
		fields = append(fields, logger.StringField("reason", string(decision.Reason)), logger.StringField("details", decision.Details))
	}
	if len(decision.Modifications) > 0 {
		fields = append(fields, logger.Field("modifications", decision.Modifications))
	}
	g.log.InfoContext(ctx, "Risk gate decision", fields...)
	return decision
}

func (g *riskGate) evaluate(signal entity.Signal, snapshot dto.PortfolioSnapshot, breaker dto.BreakerStatus) dto.RiskDecision {
	t := g.trading

	if breaker.Halted {
		details := "trading halted by loss breaker"
		if breaker.ResumesAt != nil {
			details = fmt.Sprintf("trading halted by %s breaker until %s", windowName(breaker.Reason), breaker.ResumesAt.Format("2006-01-02 15:04 MST"))
		}
		return dto.Reject(signal, breaker.Reason, details)
	}
	if snapshot.WeeklyPnLPct <= t.WeeklyLossLimitPct {
		return dto.Reject(signal, entity.ReasonWeeklyLossLimit,
			fmt.Sprintf("weekly pnl %.2f%% at or below limit %.2f%%", snapshot.WeeklyPnLPct, t.WeeklyLossLimitPct))
	}
	if snapshot.DailyPnLPct <= t.DailyLossLimitPct {
		return dto.Reject(signal, entity.ReasonDailyLossLimit,
			fmt.Sprintf("daily pnl %.2f%% at or below limit %.2f%%", snapshot.DailyPnLPct, t.DailyLossLimitPct))
	}

	// 1. confidence
	if signal.Confidence < t.MinConfidence {
		return dto.Reject(signal, entity.ReasonConfidenceBelowThreshold,
			fmt.Sprintf("confidence %d below minimum %d", signal.Confidence, t.MinConfidence))
	}

	// 2. position count
	if snapshot.OpenPositionCount >= t.MaxConcurrentPositions {
		return dto.Reject(signal, entity.ReasonMaxPositionsReached,
			fmt.Sprintf("%d open positions, max %d", snapshot.OpenPositionCount, t.MaxConcurrentPositions))
	}

	// 3. exposure
	if snapshot.TotalValue <= 0 {
		return dto.Reject(signal, entity.ReasonExposureLimitExceeded, "portfolio value is not positive")
	}
	var mods []string
	newExposure := signal.PositionSizeUSD / snapshot.TotalValue * 100
	if snapshot.TotalExposurePct+newExposure > t.MaxTotalExposurePct+exposureTolerance {
		headroom := t.MaxTotalExposurePct - snapshot.TotalExposurePct
		details := fmt.Sprintf("exposure %.2f%% + %.2f%% exceeds max %.2f%%", snapshot.TotalExposurePct, newExposure, t.MaxTotalExposurePct)
		if t.ExposurePolicy != config.ExposurePolicyModify {
			return dto.Reject(signal, entity.ReasonExposureLimitExceeded, details)
		}
		sizePct := math.Floor(headroom*100) / 100
		if sizePct < t.MinPositionSizePct || sizePct <= 0 {
			return dto.Reject(signal, entity.ReasonExposureLimitExceeded,
				fmt.Sprintf("%s, headroom %.2f%% below minimum size %.2f%%", details, headroom, t.MinPositionSizePct))
		}
		signal = resize(signal, snapshot.TotalValue, sizePct)
		mods = append(mods, fmt.Sprintf("position_size_pct %.2f -> %.2f to fit exposure limit %.2f%%", newExposure, sizePct, t.MaxTotalExposurePct))
	}

	// 4. daily loss, including the worst case of this trade stopping out
	riskPct := signal.RiskAmount / snapshot.TotalValue * 100
	if snapshot.DailyPnLPct-riskPct <= t.DailyLossLimitPct {
		return dto.Reject(signal, entity.ReasonDailyLossLimit,
			fmt.Sprintf("worst case daily pnl %.2f%% - %.2f%% breaches limit %.2f%%", snapshot.DailyPnLPct, riskPct, t.DailyLossLimitPct))
	}

	// 5. weekly loss
	if snapshot.WeeklyPnLPct <= t.WeeklyLossLimitPct {
		return dto.Reject(signal, entity.ReasonWeeklyLossLimit,
			fmt.Sprintf("weekly pnl %.2f%% at or below limit %.2f%%", snapshot.WeeklyPnLPct, t.WeeklyLossLimitPct))
	}

	// 6. correlation group
	if group := CorrelationGroupOf(signal.Symbol); group != "" {
		if n := snapshot.GroupCounts[group]; n >= t.MaxCorrelatedPositions {
			return dto.Reject(signal, entity.ReasonCorrelationGroupLimit,
				fmt.Sprintf("correlation group %s already has %d open positions, max %d", group, n, t.MaxCorrelatedPositions))
		}
	}

	var warnings []string
	if snapshot.RiskLevel == dto.RiskLevelHigh || snapshot.RiskLevel == dto.RiskLevelCritical {
		warnings = append(warnings, "portfolio risk level "+snapshot.RiskLevel)
	}
	if len(mods) > 0 {
		return dto.Modify(signal, mods, warnings...)
	}
	return dto.Approve(signal, warnings...)
}

// resize scales a signal to sizePct of the portfolio, keeping its stop distance.
func resize(signal entity.Signal, totalValue, sizePct float64) entity.Signal {
	signal.PositionSizePct = sizePct
	signal.PositionSizeUSD = totalValue * sizePct / 100
	signal.RiskAmount = utils.RoundTo(signal.PositionSizeUSD*signal.StopDistancePct()/100, 2)
	return signal
}

func windowName(reason entity.ReasonCode) string {
	if reason == entity.ReasonWeeklyLossLimit {
		return "weekly"
	}
	return "daily"
}
