package service

import (
	"context"
	"fmt"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/repository"
	"momentum-trader/internal/trader/scoring"
	"momentum-trader/pkg/common"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/telegram"
	"momentum-trader/pkg/utils"

	"go.uber.org/zap"
)

// MonitorService re-evaluates open positions against live prices.
type MonitorService interface {
	// RunCycle fetches prices, runs one lifecycle tick per position and
	// observes the loss breaker. Prices are fetched outside the ledger lock.
	RunCycle(ctx context.Context) error
	// ReviewPositions asks the oracle to re-score each open position. A
	// failed review leaves the position untouched.
	ReviewPositions(ctx context.Context)
	ClosePosition(ctx context.Context, id string, reason entity.ExitReason) (*entity.Position, error)
	RecordPortfolioMetric(ctx context.Context)
	ResetWindows(ctx context.Context)
}

type monitorService struct {
	trading   config.Trading
	schedule  config.Schedule
	log       *logger.Logger
	lifecycle PositionLifecycle
	ledger    PortfolioLedger
	breaker   CircuitBreaker
	market    repository.MarketDataRepository
	aiRepo    repository.AIRepository
	newsRepo  repository.NewsRepository
	recorder  Recorder
	notifier  telegram.Notifier
	now       func() time.Time
	maxNews   int
}

func NewMonitorService(cfg *config.Config, log *logger.Logger,
	lifecycle PositionLifecycle,
	ledger PortfolioLedger,
	breaker CircuitBreaker,
	market repository.MarketDataRepository,
	aiRepo repository.AIRepository,
	newsRepo repository.NewsRepository,
	recorder Recorder,
	notifier telegram.Notifier) MonitorService {
	return &monitorService{
		trading:   cfg.Trading,
		schedule:  cfg.Schedule,
		log:       log,
		lifecycle: lifecycle,
		ledger:    ledger,
		breaker:   breaker,
		market:    market,
		aiRepo:    aiRepo,
		newsRepo:  newsRepo,
		recorder:  recorder,
		notifier:  notifier,
		now:       utils.TimeNowUTC,
		maxNews:   cfg.News.MaxHeadlines,
	}
}

type tickResult struct {
	position entity.Position
	outcome  dto.LifecycleOutcome
}

func (s *monitorService) RunCycle(ctx context.Context) error {
	positions := s.ledger.OpenPositions()
	if len(positions) == 0 {
		s.observeBreaker(ctx, s.ledger.Snapshot())
		MonitorCycles.WithLabelValues(common.SKIPPED).Inc()
		return nil
	}

	prices := make(map[string]float64)
	var failed int
	for _, p := range positions {
		if _, ok := prices[p.Symbol]; ok {
			continue
		}
		ticker, err := s.market.GetTicker(ctx, p.Symbol)
		if err != nil {
			failed++
			s.log.WarnContext(ctx, "Price unavailable, position not evaluated this tick", logger.StringField("symbol", p.Symbol), logger.ErrorField(err))
			continue
		}
		prices[p.Symbol] = ticker.Price
	}
	if len(prices) == 0 {
		MonitorCycles.WithLabelValues(common.FAILED).Inc()
		return fmt.Errorf("%w: no prices for %d open symbols", common.ErrDataUnavailable, failed)
	}

	now := s.now()
	var (
		results  []tickResult
		snapshot dto.PortfolioSnapshot
	)
	err := s.ledger.Write(func(tx LedgerTx) error {
		for symbol, price := range prices {
			tx.UpdateMark(symbol, price)
		}
		for _, p := range tx.OpenPositions() {
			price, ok := prices[p.Symbol]
			if !ok {
				continue
			}
			out := s.lifecycle.Evaluate(ctx, p, price, now)
			if out.PartialExit != nil {
				tx.RecordRealized(out.PartialExit.PnLUSD, now)
			}
			if out.Closed != nil {
				tx.RecordRealized(out.Closed.PnLUSD, now)
				tx.RemovePosition(p.ID)
			}
			if out.Changed() {
				results = append(results, tickResult{position: *p, outcome: out})
			}
		}
		snapshot = tx.Snapshot()
		return nil
	})
	if err != nil {
		MonitorCycles.WithLabelValues(common.FAILED).Inc()
		s.log.ErrorContext(ctx, "Failed to apply monitor tick to ledger", logger.ErrorField(err))
		return fmt.Errorf("apply monitor tick: %w", err)
	}

	for _, r := range results {
		s.publishOutcome(ctx, r.position, r.outcome)
	}
	observePortfolio(snapshot)
	s.observeBreaker(ctx, snapshot)

	MonitorCycles.WithLabelValues(common.SUCCESS).Inc()
	s.log.InfoContext(ctx, "Monitor cycle finished",
		logger.IntField("positions", len(positions)),
		logger.IntField("changed", len(results)),
		logger.IntField("price_failures", failed),
		logger.FloatField("daily_pnl_pct", snapshot.DailyPnLPct),
		logger.StringField("risk_level", snapshot.RiskLevel))
	return nil
}

// publishOutcome persists and announces what a tick did, after the lock is released.
func (s *monitorService) publishOutcome(ctx context.Context, p entity.Position, out dto.LifecycleOutcome) {
	fields := []zap.Field{
		logger.StringField("position_id", p.ID),
		logger.StringField("symbol", p.Symbol),
		logger.FloatField("price", out.Price),
		logger.FloatField("stop_loss", out.StopLoss),
		logger.StringField("phase", string(out.Phase)),
	}

	if out.PartialExit != nil {
		PositionExits.WithLabelValues(string(out.PartialExit.Reason)).Inc()
		s.recorder.RecordPosition(p, fillEvent(p, entity.PositionEventPartialExit, *out.PartialExit, out))
		s.notify(ctx, telegram.FormatPartialExitMessage(&p, *out.PartialExit))
	}
	if out.Closed != nil {
		PositionExits.WithLabelValues(string(out.Closed.Reason)).Inc()
		s.recorder.RecordPosition(p, fillEvent(p, entity.PositionEventClose, *out.Closed, out))
		s.notify(ctx, telegram.FormatPositionClosedMessage(&p, *out.Closed))
		s.log.InfoContext(ctx, "Position exited on tick", append(fields, logger.StringField("reason", string(out.Closed.Reason)))...)
		return
	}
	if out.StopMoved() || out.Phase != out.PreviousPhase {
		s.recorder.RecordPosition(p, entity.PositionEvent{
			PositionID: p.ID,
			Symbol:     p.Symbol,
			Type:       entity.PositionEventUpdate,
			Phase:      out.Phase,
			Price:      out.Price,
			StopLoss:   out.StopLoss,
			Size:       p.Size,
			PnLPct:     out.PnLPct,
			Reason:     fmt.Sprintf("%s -> %s", out.PreviousPhase, out.Phase),
		})
		s.log.InfoContext(ctx, "Position stop updated", append(fields, logger.FloatField("previous_stop", out.PreviousStop))...)
	}
}

func fillEvent(p entity.Position, typ entity.PositionEventType, fill dto.Fill, out dto.LifecycleOutcome) entity.PositionEvent {
	return entity.PositionEvent{
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Type:       typ,
		Phase:      out.Phase,
		Price:      fill.Price,
		StopLoss:   out.StopLoss,
		Size:       fill.Size,
		PnLPct:     fill.PnLPct,
		PnLUSD:     fill.PnLUSD,
		Reason:     string(fill.Reason),
	}
}

func (s *monitorService) observeBreaker(ctx context.Context, snapshot dto.PortfolioSnapshot) {
	if tripped := s.breaker.Observe(ctx, snapshot); len(tripped) > 0 {
		s.notify(ctx, telegram.FormatBreakerTrippedMessage(s.breaker.Status(ctx), snapshot))
	}
	observeBreaker(s.breaker.Status(ctx))
}

func (s *monitorService) ReviewPositions(ctx context.Context) {
	for _, p := range s.ledger.OpenPositions() {
		if ctx.Err() != nil {
			return
		}
		s.review(ctx, p)
	}
}

func (s *monitorService) review(ctx context.Context, p entity.Position) {
	ctx, cancel := context.WithTimeout(ctx, s.schedule.OracleTimeout)
	defer cancel()

	req := dto.PositionReviewRequest{Position: p}
	if ticker, err := s.market.GetTicker(ctx, p.Symbol); err == nil {
		req.Ticker = ticker
	}
	if s.newsRepo != nil {
		if news, err := s.newsRepo.GetHeadlines(ctx, utils.BaseAsset(p.Symbol), s.maxNews); err == nil {
			req.News = news
		}
	}

	resp, err := s.aiRepo.ReviewPosition(ctx, req)
	if err == nil && (resp == nil || resp.Confidence == nil) {
		err = fmt.Errorf("%w: confidence missing from review", common.ErrOracleFailure)
	}
	if err != nil {
		OracleCalls.WithLabelValues("review", "failure").Inc()
		s.log.WarnContext(ctx, "Position review failed, position left unchanged", logger.StringField("position_id", p.ID), logger.StringField("symbol", p.Symbol), logger.ErrorField(err))
		return
	}
	OracleCalls.WithLabelValues("review", "signal").Inc()

	raw := *resp.Confidence
	clamped := scoring.Clamp(raw, 0, scoring.ConfidenceMax)
	if clamped != raw {
		s.log.WarnContext(ctx, "Review confidence out of range, clamped",
			logger.StringField("symbol", p.Symbol),
			logger.FloatField("confidence", raw),
			logger.FloatField("clamped", clamped))
	}
	confidence := int(clamped)
	if confidence >= s.trading.ReviewExitConfidence {
		s.log.DebugContext(ctx, "Position review passed", logger.StringField("symbol", p.Symbol), logger.IntField("confidence", confidence))
		return
	}

	s.log.WarnContext(ctx, "Position confidence dropped below exit threshold",
		logger.StringField("position_id", p.ID),
		logger.StringField("symbol", p.Symbol),
		logger.IntField("confidence", confidence),
		logger.BoolField("auto_close", s.trading.AutoCloseOnConfidenceDrop))

	if !s.trading.AutoCloseOnConfidenceDrop {
		s.recorder.RecordPosition(p, entity.PositionEvent{
			PositionID: p.ID,
			Symbol:     p.Symbol,
			Type:       entity.PositionEventAdvisory,
			Phase:      p.Phase,
			StopLoss:   p.StopLoss,
			Size:       p.Size,
			Reason:     fmt.Sprintf("confidence %d below %d", confidence, s.trading.ReviewExitConfidence),
		})
		s.notify(ctx, telegram.FormatConfidenceDropMessage(&p, confidence, resp.Reasoning, false))
		return
	}

	closed, err := s.ClosePosition(ctx, p.ID, entity.ExitReasonConfidenceDrop)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to close position on confidence drop", logger.StringField("position_id", p.ID), logger.ErrorField(err))
		return
	}
	s.notify(ctx, telegram.FormatConfidenceDropMessage(closed, confidence, resp.Reasoning, true))
}

// ClosePosition exits the remaining size at the current price, falling back
// to the last mark when the price cannot be fetched.
func (s *monitorService) ClosePosition(ctx context.Context, id string, reason entity.ExitReason) (*entity.Position, error) {
	current, ok := s.ledger.Position(id)
	if !ok {
		return nil, common.ErrPositionNotFound
	}

	var price float64
	if ticker, err := s.market.GetTicker(ctx, current.Symbol); err != nil {
		s.log.WarnContext(ctx, "Price unavailable for close, using last mark", logger.StringField("symbol", current.Symbol), logger.ErrorField(err))
	} else {
		price = ticker.Price
	}

	now := s.now()
	var (
		closed   entity.Position
		fill     dto.Fill
		snapshot dto.PortfolioSnapshot
	)
	err := s.ledger.Write(func(tx LedgerTx) error {
		p, ok := tx.Position(id)
		if !ok {
			return common.ErrPositionNotFound
		}
		if price <= 0 {
			if mark, ok := tx.Mark(p.Symbol); ok && mark > 0 {
				price = mark
			} else {
				price = p.EntryPrice
			}
		} else {
			tx.UpdateMark(p.Symbol, price)
		}
		fill = s.lifecycle.Close(ctx, p, price, reason, now)
		tx.RecordRealized(fill.PnLUSD, now)
		tx.RemovePosition(p.ID)
		closed = *p
		snapshot = tx.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	PositionExits.WithLabelValues(string(reason)).Inc()
	s.recorder.RecordPosition(closed, fillEvent(closed, entity.PositionEventClose, fill, dto.LifecycleOutcome{Phase: closed.Phase, StopLoss: closed.StopLoss}))
	s.notify(ctx, telegram.FormatPositionClosedMessage(&closed, fill))
	observePortfolio(snapshot)
	s.observeBreaker(ctx, snapshot)
	return &closed, nil
}

func (s *monitorService) RecordPortfolioMetric(ctx context.Context) {
	snap := s.ledger.Snapshot()
	observePortfolio(snap)
	s.recorder.RecordMetric(entity.PortfolioMetric{
		TotalValue:        snap.TotalValue,
		OpenPositionCount: snap.OpenPositionCount,
		TotalExposurePct:  snap.TotalExposurePct,
		DailyPnLPct:       snap.DailyPnLPct,
		WeeklyPnLPct:      snap.WeeklyPnLPct,
		TotalRiskUSD:      snap.TotalRiskUSD,
		RiskLevel:         snap.RiskLevel,
		CapturedAt:        snap.CapturedAt,
	})
	s.log.DebugContext(ctx, "Portfolio metric captured", logger.FloatField("total_value", snap.TotalValue), logger.StringField("risk_level", snap.RiskLevel))
}

// ResetWindows clears loss halts whose window has ended.
func (s *monitorService) ResetWindows(ctx context.Context) {
	for _, reason := range s.breaker.ExpireWindows(ctx) {
		s.notify(ctx, telegram.FormatBreakerResetMessage(reason, s.now()))
	}
	observeBreaker(s.breaker.Status(ctx))
}

func (s *monitorService) notify(ctx context.Context, text string) {
	if err := s.notifier.SendMessage(text); err != nil {
		s.log.WarnContext(ctx, "Failed to send telegram notification", logger.ErrorField(err))
	}
}
