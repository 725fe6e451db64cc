package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/repository"
	"momentum-trader/pkg/common"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/utils"
)

const (
	interval1h     = "1h"
	interval4h     = "4h"
	momentumCandle = 2
)

// MomentumDetector finds symbols whose 1h or 4h change crosses the threshold.
type MomentumDetector interface {
	Scan(ctx context.Context, symbols []string) (*dto.ScanResult, error)
}

type momentumDetector struct {
	trading config.Trading
	log     *logger.Logger
	market  repository.MarketDataRepository
	now     func() time.Time
}

func NewMomentumDetector(trading config.Trading, log *logger.Logger, market repository.MarketDataRepository) MomentumDetector {
	return &momentumDetector{
		trading: trading,
		log:     log,
		market:  market,
		now:     utils.TimeNowUTC,
	}
}

// symbolResult is the outcome for one symbol. Exactly one of mover and err
// is set when the symbol moved or failed; both are nil when it did neither.
type symbolResult struct {
	mover *entity.Mover
	err   error
}

// Scan fetches symbols in batches of FetchBatchSize. A failing symbol is
// recorded and skipped; it never aborts the batch. Results are joined in input
// order before ranking so the output is deterministic.
func (d *momentumDetector) Scan(ctx context.Context, symbols []string) (*dto.ScanResult, error) {
	results := make([]symbolResult, len(symbols))
	batch := d.trading.FetchBatchSize

	for start := 0; start < len(symbols); start += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batch, len(symbols))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			utils.GoSafe(func() {
				defer wg.Done()
				results[i] = d.detect(ctx, symbols[i])
			})
		}
		wg.Wait()
	}

	out := &dto.ScanResult{Scanned: len(symbols)}
	for i, r := range results {
		switch {
		case r.err != nil:
			out.Failures = append(out.Failures, dto.SymbolFailure{Symbol: symbols[i], Error: r.err.Error()})
			d.log.WarnContext(ctx, "Skipping symbol in momentum scan", logger.StringField("symbol", symbols[i]), logger.ErrorField(r.err))
		case r.mover == nil:
		case r.mover.Direction == entity.DirectionLong:
			out.Gainers = append(out.Gainers, *r.mover)
		default:
			out.Losers = append(out.Losers, *r.mover)
		}
	}
	rankMovers(out.Gainers)
	rankMovers(out.Losers)

	d.log.InfoContext(ctx, "Momentum scan finished",
		logger.IntField("scanned", out.Scanned),
		logger.IntField("gainers", len(out.Gainers)),
		logger.IntField("losers", len(out.Losers)),
		logger.IntField("failures", len(out.Failures)))
	return out, nil
}

func (d *momentumDetector) detect(ctx context.Context, symbol string) symbolResult {
	candles1h, err := d.market.GetCandles(ctx, symbol, interval1h, momentumCandle)
	if err != nil {
		return symbolResult{err: err}
	}
	change1h, err := lastChange(candles1h)
	if err != nil {
		return symbolResult{err: fmt.Errorf("%s %s: %w", symbol, interval1h, err)}
	}

	candles4h, err := d.market.GetCandles(ctx, symbol, interval4h, momentumCandle)
	if err != nil {
		return symbolResult{err: err}
	}
	change4h, err := lastChange(candles4h)
	if err != nil {
		return symbolResult{err: fmt.Errorf("%s %s: %w", symbol, interval4h, err)}
	}

	maxChange := math.Max(math.Abs(change1h), math.Abs(change4h))
	if maxChange < d.trading.MomentumThresholdPct {
		return symbolResult{}
	}

	direction := entity.DirectionShort
	if change1h > 0 {
		direction = entity.DirectionLong
	}
	return symbolResult{mover: &entity.Mover{
		Symbol:       symbol,
		Change1h:     change1h,
		Change4h:     change4h,
		MaxChange:    maxChange,
		Direction:    direction,
		CurrentPrice: candles1h[len(candles1h)-1].Close,
		ObservedAt:   d.now(),
	}}
}

// lastChange is the percent change between the last two closes.
func lastChange(candles []dto.Candle) (float64, error) {
	if len(candles) < momentumCandle {
		return 0, fmt.Errorf("%w: need %d candles, got %d", common.ErrDataUnavailable, momentumCandle, len(candles))
	}
	prev, last := candles[len(candles)-2].Close, candles[len(candles)-1].Close
	if prev == 0 {
		return 0, fmt.Errorf("%w: previous close is zero", common.ErrDataUnavailable)
	}
	return utils.PercentChange(prev, last), nil
}

// rankMovers sorts by max change descending, ties broken by symbol.
func rankMovers(movers []entity.Mover) {
	sort.SliceStable(movers, func(i, j int) bool {
		if movers[i].MaxChange != movers[j].MaxChange {
			return movers[i].MaxChange > movers[j].MaxChange
		}
		return movers[i].Symbol < movers[j].Symbol
	})
}
