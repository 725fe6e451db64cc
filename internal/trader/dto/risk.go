package dto

import (
	"time"

	"momentum-trader/internal/entity"
)

// Portfolio risk levels.
const (
	RiskLevelLow      = "LOW"
	RiskLevelModerate = "MODERATE"
	RiskLevelHigh     = "HIGH"
	RiskLevelCritical = "CRITICAL"
)

// PortfolioSnapshot is derived from the open positions on demand.
type PortfolioSnapshot struct {
	TotalValue        float64        `json:"total_value"`
	Cash              float64        `json:"cash"`
	RealizedPnLUSD    float64        `json:"realized_pnl_usd"`
	UnrealizedPnLUSD  float64        `json:"unrealized_pnl_usd"`
	OpenPositionCount int            `json:"open_position_count"`
	TotalExposurePct  float64        `json:"total_exposure_pct"`
	DailyPnLPct       float64        `json:"daily_pnl_pct"`
	WeeklyPnLPct      float64        `json:"weekly_pnl_pct"`
	TotalRiskUSD      float64        `json:"total_risk_usd"`
	RiskLevel         string         `json:"risk_level"`
	GroupCounts       map[string]int `json:"group_counts,omitempty"`
	CapturedAt        time.Time      `json:"captured_at"`
}

// RiskDecision is the tagged result of the risk gate: APPROVE, REJECT with a
// reason, or MODIFY with the adjusted signal and what was changed.
type RiskDecision struct {
	Kind          entity.DecisionKind `json:"kind"`
	Reason        entity.ReasonCode   `json:"reason,omitempty"`
	Details       string              `json:"details,omitempty"`
	Signal        entity.Signal       `json:"signal"`
	Modifications []string            `json:"modifications,omitempty"`
	Warnings      []string            `json:"warnings,omitempty"`
}

// Approve returns an approval for s.
func Approve(s entity.Signal, warnings ...string) RiskDecision {
	return RiskDecision{Kind: entity.DecisionApprove, Signal: s, Warnings: warnings}
}

// Reject returns a rejection of s.
func Reject(s entity.Signal, reason entity.ReasonCode, details string) RiskDecision {
	return RiskDecision{Kind: entity.DecisionReject, Reason: reason, Details: details, Signal: s}
}

// Modify returns an approval of the adjusted signal.
func Modify(s entity.Signal, mods []string, warnings ...string) RiskDecision {
	return RiskDecision{Kind: entity.DecisionModify, Signal: s, Modifications: mods, Warnings: warnings}
}

// Approved reports whether a position may be opened.
func (d RiskDecision) Approved() bool {
	return d.Kind == entity.DecisionApprove || d.Kind == entity.DecisionModify
}

// BreakerStatus is the user-visible halt state.
type BreakerStatus struct {
	Halted       bool              `json:"halted"`
	Reason       entity.ReasonCode `json:"reason,omitempty"`
	TrippedAt    *time.Time        `json:"tripped_at,omitempty"`
	ResumesAt    *time.Time        `json:"resumes_at,omitempty"`
	DailyHalted  bool              `json:"daily_halted"`
	WeeklyHalted bool              `json:"weekly_halted"`
}
