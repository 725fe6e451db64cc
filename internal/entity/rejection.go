package entity

import "time"

// RejectionRecord is the append-only audit row for a signal the risk gate turned down.
type RejectionRecord struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	SignalID   string     `gorm:"type:uuid;index" json:"signal_id"`
	CycleID    string     `gorm:"type:varchar(36);index" json:"cycle_id"`
	Symbol     string     `gorm:"type:varchar(30);not null" json:"symbol"`
	Direction  Direction  `gorm:"type:varchar(5);not null" json:"direction"`
	Confidence int        `json:"confidence"`
	ReasonCode ReasonCode `gorm:"type:varchar(40);not null" json:"reason_code"`
	Details    string     `gorm:"type:text" json:"details"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (RejectionRecord) TableName() string {
	return "rejection_records"
}
