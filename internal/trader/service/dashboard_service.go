package service

import (
	"context"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/repository"
)

// DashboardService exposes read-only views for the HTTP API. Reads are not
// serialized with trading and may lag a tick behind.
type DashboardService interface {
	Portfolio(ctx context.Context) dto.PortfolioSnapshot
	OpenPositions(ctx context.Context) []entity.Position
	LatestScan(ctx context.Context) *dto.CycleStats
	Breaker(ctx context.Context) dto.BreakerStatus
	RecentSignals(ctx context.Context, limit int) ([]entity.Signal, error)
	PositionHistory(ctx context.Context, positionID string) ([]entity.PositionEvent, error)
}

type dashboardService struct {
	ledger     PortfolioLedger
	breaker    CircuitBreaker
	stats      *CycleStatsStore
	signalRepo repository.SignalRepository
	eventRepo  repository.PositionEventRepository
}

func NewDashboardService(ledger PortfolioLedger,
	breaker CircuitBreaker,
	stats *CycleStatsStore,
	signalRepo repository.SignalRepository,
	eventRepo repository.PositionEventRepository) DashboardService {
	return &dashboardService{
		ledger:     ledger,
		breaker:    breaker,
		stats:      stats,
		signalRepo: signalRepo,
		eventRepo:  eventRepo,
	}
}

func (s *dashboardService) Portfolio(context.Context) dto.PortfolioSnapshot {
	return s.ledger.Snapshot()
}

func (s *dashboardService) OpenPositions(context.Context) []entity.Position {
	return s.ledger.OpenPositions()
}

func (s *dashboardService) LatestScan(context.Context) *dto.CycleStats {
	return s.stats.Latest()
}

func (s *dashboardService) Breaker(ctx context.Context) dto.BreakerStatus {
	return s.breaker.Status(ctx)
}

func (s *dashboardService) RecentSignals(ctx context.Context, limit int) ([]entity.Signal, error) {
	return s.signalRepo.FindLatest(ctx, limit)
}

func (s *dashboardService) PositionHistory(ctx context.Context, positionID string) ([]entity.PositionEvent, error) {
	return s.eventRepo.FindByPosition(ctx, positionID)
}
