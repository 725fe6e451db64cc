package service

import (
	"momentum-trader/internal/trader/dto"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "momentum_trader"

// ScanCycles counts scan cycles by result.
var ScanCycles = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "scan",
		Name:      "cycles_total",
		Help:      "Total number of scan cycles by result",
	},
	[]string{"result"},
)

// ScanDuration measures a full scan cycle.
var ScanDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "scan",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a scan cycle in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 240},
	},
)

// MoversDetected counts movers by direction.
var MoversDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "scan",
		Name:      "movers_total",
		Help:      "Total number of movers detected by direction",
	},
	[]string{"direction"},
)

// SymbolFetchFailures counts symbols skipped because market data was unavailable.
var SymbolFetchFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "scan",
		Name:      "symbol_fetch_failures_total",
		Help:      "Total number of symbols skipped for unavailable data",
	},
)

// OracleCalls counts analysis oracle calls by outcome (signal, no_trade, failure).
var OracleCalls = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "oracle",
		Name:      "calls_total",
		Help:      "Total number of oracle calls by outcome",
	},
	[]string{"kind", "outcome"},
)

// RiskDecisions counts risk gate decisions.
var RiskDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "risk",
		Name:      "decisions_total",
		Help:      "Total number of risk gate decisions by kind and reason",
	},
	[]string{"decision", "reason"},
)

// PositionExits counts full and partial exits by reason.
var PositionExits = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "positions",
		Name:      "exits_total",
		Help:      "Total number of position exits by reason",
	},
	[]string{"reason"},
)

// MonitorCycles counts monitor cycles by result.
var MonitorCycles = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "monitor",
		Name:      "cycles_total",
		Help:      "Total number of monitor cycles by result",
	},
	[]string{"result"},
)

// PersistenceFailures counts records the recorder failed or refused to write.
var PersistenceFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "persistence",
		Name:      "failures_total",
		Help:      "Total number of failed or dropped persistence writes",
	},
	[]string{"record"},
)

// PortfolioGauge exposes the latest portfolio snapshot.
var PortfolioGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "portfolio",
		Name:      "snapshot",
		Help:      "Latest portfolio snapshot values",
	},
	[]string{"field"},
)

// BreakerHalted is 1 while a loss window is halted.
var BreakerHalted = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "risk",
		Name:      "breaker_halted",
		Help:      "1 while the loss breaker halts new approvals for the window",
	},
	[]string{"window"},
)

func observePortfolio(snap dto.PortfolioSnapshot) {
	PortfolioGauge.WithLabelValues("total_value").Set(snap.TotalValue)
	PortfolioGauge.WithLabelValues("open_positions").Set(float64(snap.OpenPositionCount))
	PortfolioGauge.WithLabelValues("exposure_pct").Set(snap.TotalExposurePct)
	PortfolioGauge.WithLabelValues("daily_pnl_pct").Set(snap.DailyPnLPct)
	PortfolioGauge.WithLabelValues("weekly_pnl_pct").Set(snap.WeeklyPnLPct)
	PortfolioGauge.WithLabelValues("total_risk_usd").Set(snap.TotalRiskUSD)
}

func observeBreaker(status dto.BreakerStatus) {
	BreakerHalted.WithLabelValues("daily").Set(boolGauge(status.DailyHalted))
	BreakerHalted.WithLabelValues("weekly").Set(boolGauge(status.WeeklyHalted))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
