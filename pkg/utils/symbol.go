package utils

import "strings"

var quoteAssets = []string{"USDT", "USDC", "FDUSD", "BUSD", "USD"}

// BaseAsset strips the quote asset from an exchange symbol, e.g. ETHUSDT -> ETH.
func BaseAsset(symbol string) string {
	s := strings.ToUpper(symbol)
	for _, q := range quoteAssets {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q)
		}
	}
	return s
}
