package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Signal is a scored trade candidate produced from one analyzed mover.
// Every signal is persisted with its risk decision, whatever the outcome.
type Signal struct {
	ID               string         `gorm:"type:uuid;primaryKey" json:"id"`
	CycleID          string         `gorm:"type:varchar(36);index" json:"cycle_id"`
	Symbol           string         `gorm:"type:varchar(30);not null" json:"symbol"`
	Direction        Direction      `gorm:"type:varchar(5);not null" json:"direction"`
	Confidence       int            `gorm:"not null" json:"confidence"`
	TechnicalScore   float64        `json:"technical_score"`
	SentimentScore   float64        `json:"sentiment_score"`
	LiquidityScore   float64        `json:"liquidity_score"`
	CorrelationScore float64        `json:"correlation_score"`
	EntryPrice       float64        `gorm:"not null" json:"entry_price"`
	StopLoss         float64        `gorm:"not null" json:"stop_loss"`
	TakeProfit       float64        `json:"take_profit"`
	PositionSizePct  float64        `json:"position_size_pct"`
	PositionSizeUSD  float64        `json:"position_size_usd"`
	RiskAmount       float64        `json:"risk_amount"`
	Reasoning        string         `gorm:"type:text" json:"reasoning"`
	Decision         DecisionKind   `gorm:"type:varchar(10)" json:"decision"`
	ReasonCode       ReasonCode     `gorm:"type:varchar(40)" json:"reason_code,omitempty"`
	Modifications    pq.StringArray `gorm:"type:text[]" json:"modifications,omitempty"`
	Warnings         pq.StringArray `gorm:"type:text[]" json:"warnings,omitempty"`
	Data             datatypes.JSON `gorm:"type:jsonb" json:"data,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (Signal) TableName() string {
	return "signals"
}

// StopDistancePct is |entry-stop|/entry*100.
func (s Signal) StopDistancePct() float64 {
	if s.EntryPrice == 0 {
		return 0
	}
	d := s.EntryPrice - s.StopLoss
	if d < 0 {
		d = -d
	}
	return d / s.EntryPrice * 100
}
