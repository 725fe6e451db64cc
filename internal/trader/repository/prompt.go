package repository

import (
	"fmt"
	"strings"

	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/utils"
)

func writeNews(b *strings.Builder, news []dto.NewsItem) {
	if len(news) == 0 {
		b.WriteString("No recent headlines.\n")
		return
	}
	for i, n := range news {
		published := "N/A"
		if !n.PublishedAt.IsZero() {
			published = n.PublishedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(b, "%d. %q (%s, %s)\n", i+1, n.Title, n.Source, published)
	}
}

func BuildMoverAnalysisPrompt(req dto.AnalysisRequest) string {
	var candles strings.Builder
	for _, c := range req.Candles1h {
		fmt.Fprintf(&candles, "%s O:%.8g H:%.8g L:%.8g C:%.8g V:%.2f\n",
			c.OpenTime.Format("01-02 15:04"), c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	if candles.Len() == 0 {
		candles.WriteString("Not available.\n")
	}

	var market strings.Builder
	if t := req.Ticker; t != nil {
		fmt.Fprintf(&market, "Price: %.8g | 24h change: %.2f%% | 24h quote volume: %.0f USD | spread: %.4f%%\n",
			t.Price, t.Change24h, t.QuoteVolume, t.SpreadPct)
	} else {
		market.WriteString("Ticker not available.\n")
	}

	var news strings.Builder
	writeNews(&news, req.News)

	p := req.Portfolio
	m := req.Mover
	return fmt.Sprintf(`You are a crypto momentum analyst scoring a short-term paper trade.

Mover: %s
Direction candidate: %s
1h change: %.2f%% | 4h change: %.2f%% | observed price: %.8g

Market:
%s
1h candles (oldest first):
%s
Recent headlines:
%s
Portfolio: value %.2f USD | open positions %d | exposure %.2f%% | daily P&L %.2f%% | risk level %s

Scoring rubric:
- technical_score 0-40: trend, RSI, momentum quality, volume confirmation.
- sentiment_score 0-30: news and social tone for the direction.
- liquidity_score 0-20 (bonus up to 28 for tight spread and deep book).
- correlation_score 0-10 (bonus up to 13 for strong relative strength vs BTC).

Rules:
- For LONG the stop_loss must be below entry_price, for SHORT above it.
- Keep the stop 2-5%% away from entry.
- position_size_pct is a percentage of portfolio value between 1 and 10.
- If the move is not tradeable set "no_trade": true and explain why.

Respond with JSON only:
{
  "no_trade": false,
  "direction": "LONG | SHORT",
  "technical_score": <number>,
  "sentiment_score": <number>,
  "liquidity_score": <number>,
  "correlation_score": <number>,
  "entry_price": <number>,
  "stop_loss": <number>,
  "take_profit": <number>,
  "position_size_pct": <number>,
  "reasoning": "<one paragraph>"
}`,
		m.Symbol, m.Direction, m.Change1h, m.Change4h, m.CurrentPrice,
		market.String(), candles.String(), news.String(),
		p.TotalValue, p.OpenPositionCount, p.TotalExposurePct, p.DailyPnLPct, p.RiskLevel,
	)
}

func BuildPositionReviewPrompt(req dto.PositionReviewRequest) string {
	pos := req.Position
	price := pos.EntryPrice
	if req.Ticker != nil {
		price = req.Ticker.Price
	}

	var news strings.Builder
	writeNews(&news, req.News)

	return fmt.Sprintf(`You are reviewing an open crypto paper position.

Symbol: %s | Direction: %s
Entry: %.8g | Current: %.8g | P&L: %.2f%%
Stop: %.8g | TP1: %.8g (hit: %t) | Phase: %s
Opened: %s | Confidence at entry: %d

Recent headlines:
%s
Re-score your confidence (0-100) that the trade thesis still holds.

Respond with JSON only:
{
  "confidence": <number>,
  "action": "HOLD | CLOSE",
  "reasoning": "<one paragraph>"
}`,
		pos.Symbol, pos.Direction,
		pos.EntryPrice, price, pos.PnLPctAt(price),
		pos.StopLoss, pos.TP1Price, pos.TP1Hit, pos.Phase,
		utils.PrettyDate(pos.OpenedAt), pos.Confidence,
		news.String(),
	)
}
