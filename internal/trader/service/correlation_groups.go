package service

import "momentum-trader/pkg/utils"

// Correlation groups. Symbols in the same group are treated as co-moving.
const (
	GroupBTCCorrelated = "BTC_CORRELATED"
	GroupDeFi          = "DEFI"
	GroupGaming        = "GAMING"
	GroupMeme          = "MEME"
	GroupLayer2        = "LAYER_2"
)

var correlationGroups = map[string][]string{
	GroupBTCCorrelated: {"BTC", "ETH", "SOL", "ADA", "BNB", "XRP", "LTC", "DOT", "AVAX", "ATOM", "TRX", "BCH", "NEAR"},
	GroupDeFi:          {"UNI", "AAVE", "LINK", "MKR", "COMP", "CRV", "SUSHI", "SNX", "LDO", "1INCH"},
	GroupGaming:        {"AXS", "SAND", "MANA", "GALA", "ENJ", "IMX", "ILV", "APE"},
	GroupMeme:          {"DOGE", "SHIB", "PEPE", "FLOKI", "BONK", "WIF"},
	GroupLayer2:        {"MATIC", "POL", "ARB", "OP", "STRK", "METIS", "MNT"},
}

var groupByAsset = func() map[string]string {
	m := make(map[string]string)
	for group, assets := range correlationGroups {
		for _, a := range assets {
			m[a] = group
		}
	}
	return m
}()

// CorrelationGroupOf returns the group a symbol belongs to, or "" if unmapped.
func CorrelationGroupOf(symbol string) string {
	return groupByAsset[utils.BaseAsset(symbol)]
}
