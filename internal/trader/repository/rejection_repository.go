package repository

import (
	"context"

	"momentum-trader/internal/entity"

	"gorm.io/gorm"
)

type RejectionRepository interface {
	Create(ctx context.Context, rejection *entity.RejectionRecord) error
	FindByCycle(ctx context.Context, cycleID string) ([]entity.RejectionRecord, error)
}

type rejectionRepository struct {
	db *gorm.DB
}

func NewRejectionRepository(db *gorm.DB) RejectionRepository {
	return &rejectionRepository{db: db}
}

func (r *rejectionRepository) Create(ctx context.Context, rejection *entity.RejectionRecord) error {
	return r.db.WithContext(ctx).Create(rejection).Error
}

func (r *rejectionRepository) FindByCycle(ctx context.Context, cycleID string) ([]entity.RejectionRecord, error) {
	var rejections []entity.RejectionRecord
	err := r.db.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("id ASC").
		Find(&rejections).Error
	return rejections, err
}
