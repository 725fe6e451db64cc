// Package scoring holds the sub-score rubric shared by the confidence
// aggregator and the rules-based analysis oracle.
package scoring

import "math"

// Published sub-score ceilings. Liquidity and correlation may carry bonuses
// internally up to their bonus caps, but only the published ceiling counts
// towards confidence.
const (
	TechnicalMax        = 40.0
	SentimentMax        = 30.0
	LiquidityMax        = 20.0
	LiquidityBonusCap   = 28.0
	CorrelationMax      = 10.0
	CorrelationBonusCap = 13.0
	ConfidenceMax       = 100.0

	tightSpreadPct        = 0.05
	tightSpreadBonus      = 5.0
	deepBookUSD           = 500_000.0
	deepBookBonus         = 3.0
	relativeStrengthPct   = 3.0
	relativeStrengthBonus = 3.0
)

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// LiquidityScore scores 24h volume against the 7-day average, adding bonuses
// for a tight spread and a deep book at +/-0.5%. The result is capped at
// LiquidityBonusCap.
func LiquidityScore(volumeRatio, spreadPct, depthUSD float64) float64 {
	var score float64
	switch {
	case volumeRatio >= 3:
		score = 20
	case volumeRatio >= 2:
		score = 16
	case volumeRatio >= 1.5:
		score = 12
	case volumeRatio >= 1:
		score = 8
	case volumeRatio > 0:
		score = 4
	}
	if spreadPct >= 0 && spreadPct < tightSpreadPct {
		score += tightSpreadBonus
	}
	if depthUSD > deepBookUSD {
		score += deepBookBonus
	}
	return math.Min(score, LiquidityBonusCap)
}

// CorrelationScore scores alignment with BTC. aligned means the mover trades
// in the same direction as BTC's trend.
func CorrelationScore(btcUptrend, aligned bool, relStrengthPct float64) float64 {
	var score float64
	switch {
	case btcUptrend && aligned:
		score = 10
	case btcUptrend && !aligned:
		score = 5
	case !btcUptrend && aligned:
		score = 7
	default:
		score = 3
	}
	if relStrengthPct > relativeStrengthPct {
		score += relativeStrengthBonus
	}
	return math.Min(score, CorrelationBonusCap)
}
