package entity

import (
	"math"
	"time"
)

// Position is a paper position opened from an approved signal.
// Only the lifecycle manager mutates it once it is open.
type Position struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	SignalID        string         `gorm:"type:uuid" json:"signal_id"`
	Symbol          string         `gorm:"type:varchar(30);not null;index" json:"symbol"`
	Direction       Direction      `gorm:"type:varchar(5);not null" json:"direction"`
	EntryPrice      float64        `gorm:"not null" json:"entry_price"`
	InitialSize     float64        `gorm:"not null" json:"initial_size"`
	Size            float64        `gorm:"not null" json:"size"`
	InitialStopLoss float64        `gorm:"not null" json:"initial_stop_loss"`
	StopLoss        float64        `gorm:"not null" json:"stop_loss"`
	TP1Price        float64        `gorm:"column:tp1_price;not null" json:"tp1_price"`
	TP1Hit          bool           `gorm:"column:tp1_hit;not null" json:"tp1_hit"`
	PeakPrice       float64        `gorm:"not null" json:"peak_price"`
	Confidence      int            `gorm:"not null" json:"confidence"`
	Phase           LifecyclePhase `gorm:"type:varchar(10);not null" json:"lifecycle_phase"`
	Status          PositionStatus `gorm:"type:varchar(6);not null;index" json:"status"`
	ExitPrice       *float64       `json:"exit_price,omitempty"`
	ExitReason      ExitReason     `gorm:"type:varchar(20)" json:"exit_reason,omitempty"`
	PnLPct          float64        `gorm:"column:pnl_pct" json:"pnl_pct"`
	PnLUSD          float64        `gorm:"column:pnl_usd" json:"pnl_usd"`
	OpenedAt        time.Time      `gorm:"not null" json:"opened_at"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// PnLPctAt is the percentage move from entry in the position's favour.
func (p *Position) PnLPctAt(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100 * p.Direction.Sign()
}

// UnrealizedUSD is the open P&L of the remaining size at price.
func (p *Position) UnrealizedUSD(price float64) float64 {
	return (price - p.EntryPrice) * p.Size * p.Direction.Sign()
}

// NotionalUSD is the remaining size valued at entry.
func (p *Position) NotionalUSD() float64 {
	return p.Size * p.EntryPrice
}

// RiskUSD is what the remaining size loses if the current stop fills. A stop
// at or beyond entry carries no risk.
func (p *Position) RiskUSD() float64 {
	return math.Max(0, (p.EntryPrice-p.StopLoss)*p.Direction.Sign()) * p.Size
}

// StopHit reports whether price has crossed the current stop.
func (p *Position) StopHit(price float64) bool {
	if p.Direction == DirectionShort {
		return price >= p.StopLoss
	}
	return price <= p.StopLoss
}

// TP1Reached reports whether price has touched the first target.
func (p *Position) TP1Reached(price float64) bool {
	if p.Direction == DirectionShort {
		return price <= p.TP1Price
	}
	return price >= p.TP1Price
}

// Tighter reports whether candidate reduces risk relative to the current stop.
func (p *Position) Tighter(candidate float64) bool {
	if p.Direction == DirectionShort {
		return candidate < p.StopLoss
	}
	return candidate > p.StopLoss
}
