package scoring

import (
	"strings"

	"momentum-trader/internal/entity"
)

var (
	positiveTerms = []string{"surge", "rally", "partnership", "approval", "approved", "launch", "record high", "bullish", "upgrade", "listing", "adoption", "inflow", "breakout"}
	negativeTerms = []string{"hack", "exploit", "lawsuit", "ban", "crash", "bearish", "delist", "outage", "sell-off", "fraud", "outflow", "investigation", "liquidation"}
)

const (
	neutralSentiment = SentimentMax / 2
	sentimentStep    = 3.0
)

// SentimentScore scores headlines by catalyst keywords and adjusts for
// direction, so bullish news scores high for LONG and low for SHORT.
func SentimentScore(headlines []string, direction entity.Direction) float64 {
	var net float64
	for _, h := range headlines {
		text := strings.ToLower(h)
		for _, t := range positiveTerms {
			if strings.Contains(text, t) {
				net++
			}
		}
		for _, t := range negativeTerms {
			if strings.Contains(text, t) {
				net--
			}
		}
	}
	return Clamp(neutralSentiment+net*sentimentStep*direction.Sign(), 0, SentimentMax)
}
