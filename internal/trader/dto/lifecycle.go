package dto

import "momentum-trader/internal/entity"

// LifecycleOutcome is what one evaluation tick did to a position.
type LifecycleOutcome struct {
	PositionID    string                `json:"position_id"`
	Symbol        string                `json:"symbol"`
	Price         float64               `json:"price"`
	PnLPct        float64               `json:"pnl_pct"`
	PreviousStop  float64               `json:"previous_stop"`
	StopLoss      float64               `json:"stop_loss"`
	PreviousPhase entity.LifecyclePhase `json:"previous_phase"`
	Phase         entity.LifecyclePhase `json:"phase"`
	// PartialExit is set when TP1 filled on this tick.
	PartialExit *Fill `json:"partial_exit,omitempty"`
	// Closed is set when the remaining size was exited on this tick.
	Closed   *Fill    `json:"closed,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Fill is a simulated exit.
type Fill struct {
	Price  float64           `json:"price"`
	Size   float64           `json:"size"`
	PnLUSD float64           `json:"pnl_usd"`
	PnLPct float64           `json:"pnl_pct"`
	Reason entity.ExitReason `json:"reason"`
}

// StopMoved reports whether the tick changed the stop.
func (o LifecycleOutcome) StopMoved() bool {
	return o.StopLoss != o.PreviousStop
}

// Changed reports whether anything worth persisting happened.
func (o LifecycleOutcome) Changed() bool {
	return o.StopMoved() || o.Phase != o.PreviousPhase || o.PartialExit != nil || o.Closed != nil
}
