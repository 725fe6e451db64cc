package repository

import (
	"context"

	"momentum-trader/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PositionRepository interface {
	Upsert(ctx context.Context, position *entity.Position) error
	FindOpen(ctx context.Context) ([]entity.Position, error)
	FindByID(ctx context.Context, id string) (*entity.Position, error)
	SumRealizedPnL(ctx context.Context) (float64, error)
}

type positionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{db: db}
}

// Upsert inserts the position or overwrites its mutable lifecycle columns.
func (r *positionRepository) Upsert(ctx context.Context, position *entity.Position) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"size", "stop_loss", "tp1_hit", "peak_price", "phase", "status",
			"exit_price", "exit_reason", "pnl_pct", "pnl_usd", "closed_at", "updated_at",
		}),
	}).Create(position).Error
}

func (r *positionRepository) FindOpen(ctx context.Context) ([]entity.Position, error) {
	var positions []entity.Position
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.PositionStatusOpen).
		Order("opened_at ASC").
		Find(&positions).Error
	return positions, err
}

func (r *positionRepository) FindByID(ctx context.Context, id string) (*entity.Position, error) {
	var position entity.Position
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&position).Error; err != nil {
		return nil, err
	}
	return &position, nil
}

// SumRealizedPnL is the realized P&L over every position, including partial
// exits of positions that are still open.
func (r *positionRepository) SumRealizedPnL(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&entity.Position{}).
		Select("COALESCE(SUM(pnl_usd), 0)").
		Scan(&total).Error
	return total, err
}
