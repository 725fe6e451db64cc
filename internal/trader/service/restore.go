package service

import (
	"context"
	"fmt"

	"momentum-trader/internal/trader/repository"
	"momentum-trader/pkg/utils"
)

// RestoreLedger loads persisted open positions and this week's realized P&L
// into the ledger so a restart resumes monitoring where it left off.
func RestoreLedger(ctx context.Context, ledger PortfolioLedger, positionRepo repository.PositionRepository, eventRepo repository.PositionEventRepository) error {
	open, err := positionRepo.FindOpen(ctx)
	if err != nil {
		return fmt.Errorf("failed to load open positions: %w", err)
	}
	realizedTotal, err := positionRepo.SumRealizedPnL(ctx)
	if err != nil {
		return fmt.Errorf("failed to sum realized pnl: %w", err)
	}
	events, err := eventRepo.FindRealizedSince(ctx, utils.StartOfWeekUTC(utils.TimeNowUTC()))
	if err != nil {
		return fmt.Errorf("failed to load realized events: %w", err)
	}
	ledger.Restore(open, realizedTotal, events)
	return nil
}
