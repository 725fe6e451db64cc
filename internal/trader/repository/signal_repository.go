package repository

import (
	"context"

	"momentum-trader/internal/entity"

	"gorm.io/gorm"
)

type SignalRepository interface {
	Create(ctx context.Context, signal *entity.Signal) error
	FindLatest(ctx context.Context, limit int) ([]entity.Signal, error)
}

type signalRepository struct {
	db *gorm.DB
}

func NewSignalRepository(db *gorm.DB) SignalRepository {
	return &signalRepository{db: db}
}

func (r *signalRepository) Create(ctx context.Context, signal *entity.Signal) error {
	return r.db.WithContext(ctx).Create(signal).Error
}

func (r *signalRepository) FindLatest(ctx context.Context, limit int) ([]entity.Signal, error) {
	var signals []entity.Signal
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&signals).Error
	return signals, err
}
