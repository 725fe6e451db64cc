package repository

import (
	"context"

	"momentum-trader/internal/entity"

	"gorm.io/gorm"
)

type PortfolioMetricRepository interface {
	Create(ctx context.Context, metric *entity.PortfolioMetric) error
	FindLatest(ctx context.Context) (*entity.PortfolioMetric, error)
}

type portfolioMetricRepository struct {
	db *gorm.DB
}

func NewPortfolioMetricRepository(db *gorm.DB) PortfolioMetricRepository {
	return &portfolioMetricRepository{db: db}
}

func (r *portfolioMetricRepository) Create(ctx context.Context, metric *entity.PortfolioMetric) error {
	return r.db.WithContext(ctx).Create(metric).Error
}

func (r *portfolioMetricRepository) FindLatest(ctx context.Context) (*entity.PortfolioMetric, error) {
	var metric entity.PortfolioMetric
	if err := r.db.WithContext(ctx).Order("captured_at DESC").First(&metric).Error; err != nil {
		return nil, err
	}
	return &metric, nil
}
