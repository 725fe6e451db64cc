package entity

import "time"

// Mover is a symbol whose short-term change crossed the momentum threshold.
// It lives for a single scan cycle and is never persisted.
type Mover struct {
	Symbol       string    `json:"symbol"`
	Change1h     float64   `json:"change_1h"`
	Change4h     float64   `json:"change_4h"`
	MaxChange    float64   `json:"max_change"`
	Direction    Direction `json:"direction"`
	CurrentPrice float64   `json:"current_price"`
	ObservedAt   time.Time `json:"observed_at"`
}
