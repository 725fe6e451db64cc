package scoring

import (
	"math"

	"momentum-trader/internal/entity"
)

// Weights of the technical sub-score components. They add up to TechnicalMax.
const (
	trendWeight    = 12.0
	rsiWeight      = 10.0
	momentumWeight = 8.0
	volumeWeight   = 10.0
	rsiPeriod      = 14
	fastEMAPeriod  = 12
	slowEMAPeriod  = 26
	volumeLookback = 20
	minTechCandles = slowEMAPeriod + 1
)

// TechnicalScore derives a 0-40 score from closes and volumes (oldest first)
// for a trade in direction. Too little history scores zero.
func TechnicalScore(closes, volumes []float64, direction entity.Direction) float64 {
	if len(closes) < minTechCandles {
		return 0
	}
	sign := direction.Sign()

	var score float64

	fast, slow := EMA(closes, fastEMAPeriod), EMA(closes, slowEMAPeriod)
	if (fast-slow)*sign > 0 {
		score += trendWeight
	} else if fast == slow {
		score += trendWeight / 2
	}

	rsi := RSI(closes, rsiPeriod)
	if direction == entity.DirectionShort {
		rsi = 100 - rsi
	}
	switch {
	case rsi >= 50 && rsi <= 70:
		score += rsiWeight
	case rsi >= 40 && rsi <= 80:
		score += rsiWeight * 0.6
	default:
		score += rsiWeight * 0.2
	}

	last := closes[len(closes)-1]
	ref := closes[len(closes)-1-fastEMAPeriod]
	if ref > 0 {
		change := (last - ref) / ref * 100 * sign
		score += momentumWeight * Clamp(change/10, 0, 1)
	}

	if len(volumes) == len(closes) && len(volumes) > volumeLookback {
		var sum float64
		for _, v := range volumes[len(volumes)-1-volumeLookback : len(volumes)-1] {
			sum += v
		}
		avg := sum / volumeLookback
		if avg > 0 {
			ratio := volumes[len(volumes)-1] / avg
			switch {
			case ratio >= 2:
				score += volumeWeight
			case ratio >= 1.5:
				score += volumeWeight * 0.7
			case ratio >= 1:
				score += volumeWeight * 0.4
			default:
				score += volumeWeight * 0.1
			}
		}
	}

	return Clamp(score, 0, TechnicalMax)
}

// EMA returns the exponential moving average of values over period.
func EMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	k := 2 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// RSI returns Wilder's relative strength index of values over period.
func RSI(values []float64, period int) float64 {
	if len(values) <= period {
		return 50
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)
	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		g, l := math.Max(d, 0), math.Max(-d, 0)
		gain = (gain*float64(period-1) + g) / float64(period)
		loss = (loss*float64(period-1) + l) / float64(period)
	}
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}
