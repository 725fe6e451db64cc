package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/queue"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/telegram"
	"momentum-trader/pkg/utils"
)

// TradeService consumes analyzed signals, runs them through the risk gate and
// opens approved positions. It is the only place positions are opened.
type TradeService interface {
	ProcessTask(ctx context.Context)
	ProcessRetries(ctx context.Context)
	Execute(ctx context.Context, queued dto.QueuedSignal) (dto.RiskDecision, *entity.Position)
}

type tradeService struct {
	log       *logger.Logger
	signals   queue.SignalQueue
	gate      RiskGate
	breaker   CircuitBreaker
	lifecycle PositionLifecycle
	ledger    PortfolioLedger
	recorder  Recorder
	stats     *CycleStatsStore
	notifier  telegram.Notifier
	now       func() time.Time
}

func NewTradeService(log *logger.Logger,
	signals queue.SignalQueue,
	gate RiskGate,
	breaker CircuitBreaker,
	lifecycle PositionLifecycle,
	ledger PortfolioLedger,
	recorder Recorder,
	stats *CycleStatsStore,
	notifier telegram.Notifier) TradeService {
	return &tradeService{
		log:       log,
		signals:   signals,
		gate:      gate,
		breaker:   breaker,
		lifecycle: lifecycle,
		ledger:    ledger,
		recorder:  recorder,
		stats:     stats,
		notifier:  notifier,
		now:       utils.TimeNowUTC,
	}
}

func (s *tradeService) ProcessTask(ctx context.Context) {
	msg, err := s.signals.Next(ctx)
	s.handle(ctx, msg, err, "queue")
}

// ProcessRetries picks up a signal that was delivered but never acknowledged.
func (s *tradeService) ProcessRetries(ctx context.Context) {
	msg, err := s.signals.Reclaim(ctx)
	s.handle(ctx, msg, err, "retry")
}

func (s *tradeService) handle(ctx context.Context, msg *queue.Message, err error, source string) {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		s.log.Error("Failed to read signal queue", logger.ErrorField(err), logger.StringField("source", source))
		if msg != nil && msg.ID != "" {
			// Undecodable message, drop it so it is not redelivered forever.
			if err := s.signals.Ack(ctx, msg); err != nil {
				s.log.Error("Failed to drop malformed signal", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
			}
		}
		return
	}
	if msg == nil {
		return
	}

	s.Execute(ctx, msg.Signal)

	if err := s.signals.Ack(ctx, msg); err != nil {
		s.log.Error("Failed to acknowledge signal", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
	}
}

// Execute gates one signal and opens the position if approved. The duplicate
// check, gate and open happen under a single ledger write so concurrent opens
// cannot overshoot the limits.
func (s *tradeService) Execute(ctx context.Context, queued dto.QueuedSignal) (dto.RiskDecision, *entity.Position) {
	ctx = logger.ContextWithCycleID(ctx, queued.CycleID)
	signal := queued.Signal
	status := s.breaker.Status(ctx)
	now := s.now()

	var (
		decision dto.RiskDecision
		opened   *entity.Position
	)
	err := s.ledger.Write(func(tx LedgerTx) error {
		if tx.HasOpen(signal.Symbol) {
			decision = dto.Reject(signal, entity.ReasonPositionAlreadyOpen, fmt.Sprintf("%s already has an open position", signal.Symbol))
			return nil
		}
		decision = s.gate.Evaluate(ctx, signal, tx.Snapshot(), status)
		if !decision.Approved() {
			return nil
		}
		p := s.lifecycle.Open(ctx, decision.Signal, now)
		tx.AddPosition(p)
		cp := *p
		opened = &cp
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to apply signal to ledger", logger.StringField("symbol", signal.Symbol), logger.ErrorField(err))
		if decision.Kind == "" {
			return decision, nil
		}
	}

	s.record(ctx, queued.CycleID, decision, opened)
	return decision, opened
}

func (s *tradeService) record(ctx context.Context, cycleID string, decision dto.RiskDecision, opened *entity.Position) {
	signal := decision.Signal
	signal.Decision = decision.Kind
	signal.ReasonCode = decision.Reason
	signal.Modifications = decision.Modifications
	signal.Warnings = append(append([]string{}, signal.Warnings...), decision.Warnings...)
	s.recorder.RecordSignal(signal)

	RiskDecisions.WithLabelValues(string(decision.Kind), string(decision.Reason)).Inc()
	s.stats.ObserveDecision(cycleID, decision.Kind)

	if decision.Kind == entity.DecisionReject {
		s.recorder.RecordRejection(entity.RejectionRecord{
			SignalID:   signal.ID,
			CycleID:    cycleID,
			Symbol:     signal.Symbol,
			Direction:  signal.Direction,
			Confidence: signal.Confidence,
			ReasonCode: decision.Reason,
			Details:    decision.Details,
		})
		return
	}
	if opened == nil {
		return
	}

	s.recorder.RecordPosition(*opened, entity.PositionEvent{
		PositionID: opened.ID,
		Symbol:     opened.Symbol,
		Type:       entity.PositionEventOpen,
		Phase:      opened.Phase,
		Price:      opened.EntryPrice,
		StopLoss:   opened.StopLoss,
		Size:       opened.Size,
		Reason:     string(decision.Kind),
	})
	s.log.InfoContext(ctx, "Position opened",
		logger.StringField("position_id", opened.ID),
		logger.StringField("symbol", opened.Symbol),
		logger.StringField("direction", string(opened.Direction)),
		logger.FloatField("entry", opened.EntryPrice),
		logger.FloatField("stop_loss", opened.StopLoss),
		logger.FloatField("tp1", opened.TP1Price))

	if err := s.notifier.SendMessage(telegram.FormatPositionOpenedMessage(opened, decision)); err != nil {
		s.log.WarnContext(ctx, "Failed to send position opened notification", logger.ErrorField(err))
	}
}
