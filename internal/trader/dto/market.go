package dto

import "time"

// Candle is one OHLCV bar.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Ticker is the current price snapshot for a symbol.
type Ticker struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	Volume24h   float64   `json:"volume_24h"`
	QuoteVolume float64   `json:"quote_volume_24h"`
	Change24h   float64   `json:"change_24h"`
	BidPrice    float64   `json:"bid_price"`
	AskPrice    float64   `json:"ask_price"`
	SpreadPct   float64   `json:"spread_pct"`
	ObservedAt  time.Time `json:"observed_at"`
}

// OrderBookDepth is the notional resting within a band around mid price.
type OrderBookDepth struct {
	Symbol   string  `json:"symbol"`
	BandPct  float64 `json:"band_pct"`
	BidUSD   float64 `json:"bid_usd"`
	AskUSD   float64 `json:"ask_usd"`
	TotalUSD float64 `json:"total_usd"`
}

// NewsItem is a single headline handed to the oracle as context.
type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}
