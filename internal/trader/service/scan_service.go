package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/queue"
	"momentum-trader/internal/trader/repository"
	"momentum-trader/internal/trader/scoring"
	"momentum-trader/pkg/common"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/utils"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/datatypes"
)

// analysisCandles is the 1h history handed to the oracle.
const analysisCandles = 48

// ScanService runs the signal-generation cycle: detect movers, ask the oracle,
// aggregate confidence and hand completed signals to the risk queue.
type ScanService interface {
	RunCycle(ctx context.Context) (*dto.CycleStats, error)
}

type scanService struct {
	trading    config.Trading
	schedule   config.Schedule
	log        *logger.Logger
	detector   MomentumDetector
	aggregator ConfidenceAggregator
	lifecycle  PositionLifecycle
	ledger     PortfolioLedger
	market     repository.MarketDataRepository
	aiRepo     repository.AIRepository
	newsRepo   repository.NewsRepository
	signals    queue.SignalQueue
	stats      *CycleStatsStore
	cooldown   *cache.Cache
	now        func() time.Time
	maxNews    int
	quoteAsset string
}

func NewScanService(cfg *config.Config, log *logger.Logger,
	detector MomentumDetector,
	aggregator ConfidenceAggregator,
	lifecycle PositionLifecycle,
	ledger PortfolioLedger,
	market repository.MarketDataRepository,
	aiRepo repository.AIRepository,
	newsRepo repository.NewsRepository,
	signals queue.SignalQueue,
	stats *CycleStatsStore) ScanService {
	return &scanService{
		trading:    cfg.Trading,
		schedule:   cfg.Schedule,
		log:        log,
		detector:   detector,
		aggregator: aggregator,
		lifecycle:  lifecycle,
		ledger:     ledger,
		market:     market,
		aiRepo:     aiRepo,
		newsRepo:   newsRepo,
		signals:    signals,
		stats:      stats,
		cooldown:   cache.New(cfg.Trading.AnalysisCooldown, 2*cfg.Trading.AnalysisCooldown),
		now:        utils.TimeNowUTC,
		maxNews:    cfg.News.MaxHeadlines,
		quoteAsset: cfg.Market.QuoteAsset,
	}
}

func (s *scanService) RunCycle(ctx context.Context) (*dto.CycleStats, error) {
	stats := dto.CycleStats{CycleID: uuid.NewString(), StartedAt: s.now()}
	ctx = logger.ContextWithCycleID(ctx, stats.CycleID)
	defer func() {
		stats.FinishedAt = s.now()
		ScanDuration.Observe(stats.FinishedAt.Sub(stats.StartedAt).Seconds())
	}()

	symbols, err := s.symbols(ctx)
	if err != nil {
		ScanCycles.WithLabelValues(common.FAILED).Inc()
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	scan, err := s.detector.Scan(ctx, symbols)
	if err != nil {
		ScanCycles.WithLabelValues(common.FAILED).Inc()
		return nil, fmt.Errorf("momentum scan failed: %w", err)
	}
	stats.Scanned, stats.Failed = scan.Scanned, len(scan.Failures)
	SymbolFetchFailures.Add(float64(len(scan.Failures)))

	movers := scan.Movers()
	stats.Movers = len(movers)
	s.stats.Publish(stats)
	snapshot := s.ledger.Snapshot()

	for _, mover := range movers {
		if ctx.Err() != nil {
			break
		}
		MoversDetected.WithLabelValues(string(mover.Direction)).Inc()

		if s.ledger.HasOpen(mover.Symbol) {
			stats.Skipped++
			s.log.DebugContext(ctx, "Skipping mover with open position", logger.StringField("symbol", mover.Symbol))
			continue
		}
		if _, found := s.cooldown.Get(mover.Symbol); found {
			stats.Skipped++
			s.log.DebugContext(ctx, "Skipping mover in analysis cooldown", logger.StringField("symbol", mover.Symbol))
			continue
		}

		stats.Analyzed++
		signal, err := s.analyze(ctx, stats.CycleID, mover, snapshot)
		if err != nil {
			stats.NoTrade++
			if errors.Is(err, common.ErrNoTrade) {
				OracleCalls.WithLabelValues("analyze", "no_trade").Inc()
				s.log.InfoContext(ctx, "Oracle declined mover", logger.StringField("symbol", mover.Symbol))
			} else {
				OracleCalls.WithLabelValues("analyze", "failure").Inc()
				s.log.WarnContext(ctx, "Oracle failure, treating mover as no trade", logger.StringField("symbol", mover.Symbol), logger.ErrorField(err))
			}
			continue
		}
		OracleCalls.WithLabelValues("analyze", "signal").Inc()

		if err := s.signals.Publish(ctx, dto.QueuedSignal{CycleID: stats.CycleID, Signal: *signal, EnqueuedAt: s.now()}); err != nil {
			stats.LastError = err.Error()
			s.log.ErrorContext(ctx, "Failed to enqueue signal", logger.StringField("symbol", mover.Symbol), logger.ErrorField(err))
			continue
		}
		s.cooldown.SetDefault(mover.Symbol, stats.CycleID)
		stats.Signals++
	}

	stats.FinishedAt = s.now()
	s.stats.Publish(stats)
	ScanCycles.WithLabelValues(common.SUCCESS).Inc()
	s.log.InfoContext(ctx, "Scan cycle finished",
		logger.IntField("scanned", stats.Scanned),
		logger.IntField("failed", stats.Failed),
		logger.IntField("movers", stats.Movers),
		logger.IntField("signals", stats.Signals),
		logger.IntField("no_trade", stats.NoTrade),
		logger.IntField("skipped", stats.Skipped))
	return &stats, nil
}

func (s *scanService) symbols(ctx context.Context) ([]string, error) {
	if len(s.trading.Symbols) > 0 {
		return s.trading.Symbols, nil
	}
	return s.market.ListSymbols(ctx, s.quoteAsset, s.trading.MaxSymbols)
}

// analyze asks the oracle about one mover and turns the answer into a signal.
// Context fetch failures only thin the request; the oracle still gets called.
func (s *scanService) analyze(ctx context.Context, cycleID string, mover entity.Mover, snapshot dto.PortfolioSnapshot) (*entity.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.schedule.OracleTimeout)
	defer cancel()

	req := dto.AnalysisRequest{Mover: mover, Portfolio: snapshot}
	if ticker, err := s.market.GetTicker(ctx, mover.Symbol); err != nil {
		s.log.WarnContext(ctx, "Ticker unavailable for analysis", logger.StringField("symbol", mover.Symbol), logger.ErrorField(err))
	} else {
		req.Ticker = ticker
	}
	if candles, err := s.market.GetCandles(ctx, mover.Symbol, interval1h, analysisCandles); err != nil {
		s.log.WarnContext(ctx, "Candles unavailable for analysis", logger.StringField("symbol", mover.Symbol), logger.ErrorField(err))
	} else {
		req.Candles1h = candles
	}
	if s.newsRepo != nil {
		if news, err := s.newsRepo.GetHeadlines(ctx, utils.BaseAsset(mover.Symbol), s.maxNews); err != nil {
			s.log.WarnContext(ctx, "Headlines unavailable for analysis", logger.StringField("symbol", mover.Symbol), logger.ErrorField(err))
		} else {
			req.News = news
		}
	}

	resp, err := s.aiRepo.AnalyzeMover(ctx, req)
	if err != nil {
		if errors.Is(err, common.ErrOracleFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrOracleFailure, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", common.ErrOracleFailure)
	}
	if resp.NoTrade {
		return nil, common.ErrNoTrade
	}
	return s.buildSignal(ctx, cycleID, mover, resp, snapshot)
}

func (s *scanService) buildSignal(ctx context.Context, cycleID string, mover entity.Mover, resp *dto.AnalysisResponse, snapshot dto.PortfolioSnapshot) (*entity.Signal, error) {
	if resp.EntryPrice == nil || *resp.EntryPrice <= 0 || resp.StopLoss == nil || *resp.StopLoss <= 0 {
		return nil, fmt.Errorf("%w: entry_price and stop_loss are required", common.ErrOracleFailure)
	}
	entry := *resp.EntryPrice

	conf := s.aggregator.Aggregate(ctx, mover.Symbol, resp.SubScores())
	warnings := append([]string{}, conf.Warnings...)

	if resp.Direction != "" && entity.Direction(resp.Direction) != mover.Direction {
		warnings = append(warnings, fmt.Sprintf("oracle direction %s ignored, mover is %s", resp.Direction, mover.Direction))
	}

	stop, stopWarnings := s.lifecycle.NormalizeStop(mover.Direction, entry, *resp.StopLoss)
	warnings = append(warnings, stopWarnings...)

	sizePct := s.trading.DefaultPositionSizePct
	if resp.PositionSizePct != nil && *resp.PositionSizePct > 0 {
		sizePct = scoring.Clamp(*resp.PositionSizePct, s.trading.MinPositionSizePct, s.trading.MaxPositionSizePct)
		if sizePct != *resp.PositionSizePct {
			warnings = append(warnings, fmt.Sprintf("position_size_pct %.2f clamped to %.2f", *resp.PositionSizePct, sizePct))
		}
	}
	sizeUSD := snapshot.TotalValue * sizePct / 100

	data := resp.Raw
	if len(data) == 0 {
		data, _ = json.Marshal(resp)
	}

	return &entity.Signal{
		ID:               uuid.NewString(),
		CycleID:          cycleID,
		Symbol:           mover.Symbol,
		Direction:        mover.Direction,
		Confidence:       conf.Confidence,
		TechnicalScore:   conf.Technical,
		SentimentScore:   conf.Sentiment,
		LiquidityScore:   conf.Liquidity,
		CorrelationScore: conf.Correlation,
		EntryPrice:       entry,
		StopLoss:         stop,
		TakeProfit:       s.lifecycle.TP1Price(mover.Direction, entry, stop),
		PositionSizePct:  sizePct,
		PositionSizeUSD:  sizeUSD,
		RiskAmount:       utils.RoundTo(sizeUSD*math.Abs(entry-stop)/entry, 2),
		Reasoning:        resp.Reasoning,
		Warnings:         warnings,
		Data:             datatypes.JSON(data),
		CreatedAt:        s.now(),
	}, nil
}
