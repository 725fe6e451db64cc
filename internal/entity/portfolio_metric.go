package entity

import "time"

// PortfolioMetric is a periodic snapshot of derived portfolio state.
type PortfolioMetric struct {
	ID                int64     `gorm:"primaryKey" json:"id"`
	TotalValue        float64   `json:"total_value"`
	OpenPositionCount int       `json:"open_position_count"`
	TotalExposurePct  float64   `json:"total_exposure_pct"`
	DailyPnLPct       float64   `gorm:"column:daily_pnl_pct" json:"daily_pnl_pct"`
	WeeklyPnLPct      float64   `gorm:"column:weekly_pnl_pct" json:"weekly_pnl_pct"`
	TotalRiskUSD      float64   `json:"total_risk_usd"`
	RiskLevel         string    `gorm:"type:varchar(10)" json:"risk_level"`
	CapturedAt        time.Time `gorm:"not null;index" json:"captured_at"`
}

func (PortfolioMetric) TableName() string {
	return "portfolio_metrics"
}
