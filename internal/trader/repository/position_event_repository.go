package repository

import (
	"context"
	"time"

	"momentum-trader/internal/entity"

	"gorm.io/gorm"
)

type PositionEventRepository interface {
	Create(ctx context.Context, event *entity.PositionEvent) error
	FindRealizedSince(ctx context.Context, since time.Time) ([]entity.PositionEvent, error)
	FindByPosition(ctx context.Context, positionID string) ([]entity.PositionEvent, error)
}

type positionEventRepository struct {
	db *gorm.DB
}

func NewPositionEventRepository(db *gorm.DB) PositionEventRepository {
	return &positionEventRepository{db: db}
}

func (r *positionEventRepository) Create(ctx context.Context, event *entity.PositionEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// FindRealizedSince returns the partial and full exits recorded since the given time.
func (r *positionEventRepository) FindRealizedSince(ctx context.Context, since time.Time) ([]entity.PositionEvent, error) {
	var events []entity.PositionEvent
	err := r.db.WithContext(ctx).
		Where("type IN ? AND created_at >= ?", []entity.PositionEventType{entity.PositionEventPartialExit, entity.PositionEventClose}, since).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

func (r *positionEventRepository) FindByPosition(ctx context.Context, positionID string) ([]entity.PositionEvent, error) {
	var events []entity.PositionEvent
	err := r.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Order("id ASC").
		Find(&events).Error
	return events, err
}
