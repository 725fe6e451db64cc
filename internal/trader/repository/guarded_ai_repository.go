package repository

import (
	"context"
	"errors"
	"fmt"

	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/common"
	"momentum-trader/pkg/logger"

	"github.com/sony/gobreaker"
)

// guardedAIRepository stops calling a failing oracle for a while after a run
// of consecutive errors. While open every call fails fast with ErrOracleFailure.
type guardedAIRepository struct {
	next AIRepository
	cb   *gobreaker.CircuitBreaker
}

// NewGuardedAIRepository wraps next with a circuit breaker.
func NewGuardedAIRepository(cfg config.AI, next AIRepository, log *logger.Logger) AIRepository {
	threshold := cfg.MaxConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        "analysis-oracle",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A declined trade is a healthy answer; only transport and parse errors count.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Oracle circuit breaker state changed",
				logger.StringField("breaker", name),
				logger.StringField("from", from.String()),
				logger.StringField("to", to.String()))
		},
	}
	return &guardedAIRepository{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (r *guardedAIRepository) AnalyzeMover(ctx context.Context, req dto.AnalysisRequest) (*dto.AnalysisResponse, error) {
	out, err := r.cb.Execute(func() (interface{}, error) {
		return r.next.AnalyzeMover(ctx, req)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return out.(*dto.AnalysisResponse), nil
}

func (r *guardedAIRepository) ReviewPosition(ctx context.Context, req dto.PositionReviewRequest) (*dto.PositionReviewResponse, error) {
	out, err := r.cb.Execute(func() (interface{}, error) {
		return r.next.ReviewPosition(ctx, req)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return out.(*dto.PositionReviewResponse), nil
}

func wrapBreakerErr(err error) error {
	if errors.Is(err, common.ErrOracleFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrOracleFailure, err)
}
