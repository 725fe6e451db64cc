package service

import (
	"context"
	"sync"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/repository"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/utils"
)

// CircuitBreaker halts new approvals when the daily or weekly loss floor is
// breached. A halt lasts until its window ends; open positions keep being
// monitored regardless.
type CircuitBreaker interface {
	Status(ctx context.Context) dto.BreakerStatus
	// Observe trips the breaker if the snapshot is at a loss floor. It returns
	// the reasons newly tripped by this call.
	Observe(ctx context.Context, snapshot dto.PortfolioSnapshot) []entity.ReasonCode
	// ExpireWindows clears halts whose window has ended.
	ExpireWindows(ctx context.Context) []entity.ReasonCode
	Restore(ctx context.Context) error
}

type halt struct {
	trippedAt time.Time
	until     time.Time
}

type circuitBreaker struct {
	trading config.Trading
	log     *logger.Logger
	store   repository.BreakerStateRepository
	now     func() time.Time

	mu    sync.Mutex
	halts map[entity.ReasonCode]halt
}

// NewCircuitBreaker creates a breaker. store may be nil, in which case halts
// are kept in memory only.
func NewCircuitBreaker(trading config.Trading, log *logger.Logger, store repository.BreakerStateRepository) CircuitBreaker {
	return &circuitBreaker{
		trading: trading,
		log:     log,
		store:   store,
		now:     utils.TimeNowUTC,
		halts:   make(map[entity.ReasonCode]halt),
	}
}

func (b *circuitBreaker) Status(ctx context.Context) dto.BreakerStatus {
	b.ExpireWindows(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	var status dto.BreakerStatus
	daily, dailyOK := b.halts[entity.ReasonDailyLossLimit]
	weekly, weeklyOK := b.halts[entity.ReasonWeeklyLossLimit]
	status.DailyHalted, status.WeeklyHalted = dailyOK, weeklyOK

	// The weekly halt outlasts the daily one, so it is the one reported.
	switch {
	case weeklyOK:
		status.Halted, status.Reason = true, entity.ReasonWeeklyLossLimit
		status.TrippedAt, status.ResumesAt = utils.ToPointer(weekly.trippedAt), utils.ToPointer(weekly.until)
	case dailyOK:
		status.Halted, status.Reason = true, entity.ReasonDailyLossLimit
		status.TrippedAt, status.ResumesAt = utils.ToPointer(daily.trippedAt), utils.ToPointer(daily.until)
	}
	return status
}

func (b *circuitBreaker) Observe(ctx context.Context, snapshot dto.PortfolioSnapshot) []entity.ReasonCode {
	if !b.trading.HaltOnLossLimit {
		return nil
	}
	now := b.now()

	var tripped []entity.ReasonCode
	if snapshot.DailyPnLPct <= b.trading.DailyLossLimitPct {
		if b.trip(ctx, entity.ReasonDailyLossLimit, now, utils.StartOfDayUTC(now).AddDate(0, 0, 1), snapshot.DailyPnLPct) {
			tripped = append(tripped, entity.ReasonDailyLossLimit)
		}
	}
	if snapshot.WeeklyPnLPct <= b.trading.WeeklyLossLimitPct {
		if b.trip(ctx, entity.ReasonWeeklyLossLimit, now, utils.StartOfWeekUTC(now).AddDate(0, 0, 7), snapshot.WeeklyPnLPct) {
			tripped = append(tripped, entity.ReasonWeeklyLossLimit)
		}
	}
	return tripped
}

func (b *circuitBreaker) trip(ctx context.Context, reason entity.ReasonCode, now, until time.Time, pnlPct float64) bool {
	b.mu.Lock()
	if _, ok := b.halts[reason]; ok {
		b.mu.Unlock()
		return false
	}
	b.halts[reason] = halt{trippedAt: now, until: until}
	b.mu.Unlock()

	b.log.WarnContext(ctx, "Loss breaker tripped, new approvals halted",
		logger.StringField("reason", string(reason)),
		logger.FloatField("pnl_pct", pnlPct),
		logger.Field("resumes_at", until))

	if b.store != nil {
		if err := b.store.SaveHalt(ctx, reason, now, until); err != nil {
			b.log.ErrorContext(ctx, "Failed to persist breaker halt", logger.ErrorField(err), logger.StringField("reason", string(reason)))
		}
	}
	return true
}

func (b *circuitBreaker) ExpireWindows(ctx context.Context) []entity.ReasonCode {
	now := b.now()

	b.mu.Lock()
	var expired []entity.ReasonCode
	for reason, h := range b.halts {
		if !now.Before(h.until) {
			delete(b.halts, reason)
			expired = append(expired, reason)
		}
	}
	b.mu.Unlock()

	for _, reason := range expired {
		b.log.InfoContext(ctx, "Loss breaker window reset, approvals resumed", logger.StringField("reason", string(reason)))
		if b.store != nil {
			if err := b.store.ClearHalt(ctx, reason); err != nil {
				b.log.ErrorContext(ctx, "Failed to clear breaker halt", logger.ErrorField(err), logger.StringField("reason", string(reason)))
			}
		}
	}
	return expired
}

// Restore reloads persisted halts that are still in force.
func (b *circuitBreaker) Restore(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	halts, err := b.store.LoadHalts(ctx)
	if err != nil {
		return err
	}
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range halts {
		if now.Before(h.Until) {
			b.halts[h.Reason] = halt{trippedAt: h.TrippedAt, until: h.Until}
		}
	}
	return nil
}
