package repository

import (
	"context"

	"github.com/timmy/altseo/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriceRepository stores model prices.
type PriceRepository struct {
	db *gorm.DB
}

// NewPriceRepository creates a new PriceRepository.
func NewPriceRepository(db *gorm.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// ListPrices returns every stored price.
func (r *PriceRepository) ListPrices(ctx context.Context) ([]domain.ModelPrice, error) {
	var prices []domain.ModelPrice
	if err := r.db.WithContext(ctx).Order("model").Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}

// UpsertPrices inserts or replaces prices keyed by model.
func (r *PriceRepository) UpsertPrices(ctx context.Context, prices []domain.ModelPrice) error {
	if len(prices) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model"}},
		UpdateAll: true,
	}).Create(&prices).Error
}
