package entity

import (
	"time"

	"gorm.io/datatypes"
)

type PositionEventType string

const (
	PositionEventOpen        PositionEventType = "OPEN"
	PositionEventUpdate      PositionEventType = "UPDATE"
	PositionEventPartialExit PositionEventType = "PARTIAL_EXIT"
	PositionEventClose       PositionEventType = "CLOSE"
	PositionEventAdvisory    PositionEventType = "ADVISORY"
)

// PositionEvent is an append-only journal entry for a position.
type PositionEvent struct {
	ID         int64             `gorm:"primaryKey" json:"id"`
	PositionID string            `gorm:"type:uuid;not null;index" json:"position_id"`
	Symbol     string            `gorm:"type:varchar(30);not null" json:"symbol"`
	Type       PositionEventType `gorm:"type:varchar(20);not null" json:"type"`
	Phase      LifecyclePhase    `gorm:"type:varchar(10)" json:"lifecycle_phase"`
	Price      float64           `json:"price"`
	StopLoss   float64           `json:"stop_loss"`
	Size       float64           `json:"size"`
	PnLPct     float64           `gorm:"column:pnl_pct" json:"pnl_pct"`
	PnLUSD     float64           `gorm:"column:pnl_usd" json:"pnl_usd"`
	Reason     string            `gorm:"type:varchar(40)" json:"reason,omitempty"`
	Data       datatypes.JSON    `gorm:"type:jsonb" json:"data,omitempty"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (PositionEvent) TableName() string {
	return "position_events"
}
