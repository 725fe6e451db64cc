package dto

import (
	"time"

	"momentum-trader/internal/entity"
)

// SymbolFailure records a symbol skipped during a scan.
type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// ScanResult is the output of one momentum scan.
type ScanResult struct {
	Gainers  []entity.Mover  `json:"gainers"`
	Losers   []entity.Mover  `json:"losers"`
	Failures []SymbolFailure `json:"failures"`
	Scanned  int             `json:"scanned"`
}

// Movers returns gainers followed by losers.
func (r *ScanResult) Movers() []entity.Mover {
	out := make([]entity.Mover, 0, len(r.Gainers)+len(r.Losers))
	out = append(out, r.Gainers...)
	return append(out, r.Losers...)
}

// CycleStats summarises the most recent scan cycle for the dashboard.
type CycleStats struct {
	CycleID    string    `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Scanned    int       `json:"scanned"`
	Failed     int       `json:"failed"`
	Movers     int       `json:"movers"`
	Analyzed   int       `json:"analyzed"`
	NoTrade    int       `json:"no_trade"`
	Signals    int       `json:"signals"`
	Approved   int       `json:"approved"`
	Modified   int       `json:"modified"`
	Rejections int       `json:"rejections"`
	Skipped    int       `json:"skipped"`
	LastError  string    `json:"last_error,omitempty"`
}

// QueuedSignal is the message passed from the analysis stage to the risk gate.
type QueuedSignal struct {
	CycleID    string        `json:"cycle_id"`
	Signal     entity.Signal `json:"signal"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}
