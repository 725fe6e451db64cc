package service

import (
	"context"
	"fmt"
	"math"

	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/scoring"
	"momentum-trader/pkg/logger"
)

// ConfidenceAggregator combines the oracle's four sub-scores into a 0-100 confidence.
type ConfidenceAggregator interface {
	Aggregate(ctx context.Context, symbol string, scores dto.SubScores) dto.ConfidenceResult
}

type confidenceAggregator struct {
	log *logger.Logger
}

func NewConfidenceAggregator(log *logger.Logger) ConfidenceAggregator {
	return &confidenceAggregator{log: log}
}

// Aggregate never fails. Missing or invalid sub-scores count as zero and are
// reported as warnings on the result.
func (a *confidenceAggregator) Aggregate(ctx context.Context, symbol string, scores dto.SubScores) dto.ConfidenceResult {
	var warnings []string

	technical := 0.0
	switch v := scores.Technical; {
	case missing(v):
		warnings = append(warnings, "technical score missing, using 0")
	case *v < 0 || *v > scoring.TechnicalMax:
		warnings = append(warnings, fmt.Sprintf("technical score %.2f outside [0,%.0f], using 0", *v, scoring.TechnicalMax))
	default:
		technical = *v
	}

	sentiment := bounded("sentiment", scores.Sentiment, scoring.SentimentMax, &warnings)
	liquidity := bounded("liquidity", scores.Liquidity, scoring.LiquidityBonusCap, &warnings)
	correlation := bounded("correlation", scores.Correlation, scoring.CorrelationBonusCap, &warnings)

	res := dto.ConfidenceResult{
		Technical:   technical,
		Sentiment:   sentiment,
		Liquidity:   math.Min(liquidity, scoring.LiquidityMax),
		Correlation: math.Min(correlation, scoring.CorrelationMax),
		Warnings:    warnings,
	}
	sum := res.Technical + res.Sentiment + res.Liquidity + res.Correlation
	res.Confidence = int(scoring.Clamp(sum, 0, scoring.ConfidenceMax))

	if len(warnings) > 0 {
		a.log.WarnContext(ctx, "Partial sub-scores in confidence aggregation",
			logger.StringField("symbol", symbol),
			logger.IntField("confidence", res.Confidence),
			logger.Field("warnings", warnings))
	}
	return res
}

func missing(v *float64) bool {
	return v == nil || math.IsNaN(*v) || math.IsInf(*v, 0)
}

// bounded clamps a sub-score to [0,ceiling], warning when the value was missing or clamped.
func bounded(name string, v *float64, ceiling float64, warnings *[]string) float64 {
	if missing(v) {
		*warnings = append(*warnings, name+" score missing, using 0")
		return 0
	}
	clamped := scoring.Clamp(*v, 0, ceiling)
	if clamped != *v {
		*warnings = append(*warnings, fmt.Sprintf("%s score %.2f clamped to %.2f", name, *v, clamped))
	}
	return clamped
}
