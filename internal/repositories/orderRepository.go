package repositories

import (
	"context"
	"errors"

	"CryptoSignalBot/internal/models"

	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create adds a new Order record to the database
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByPosition retrieves every order recorded for a position
func (r *OrderRepository) FindByPosition(ctx context.Context, positionID uint) ([]models.Order, error) {
	if positionID == 0 {
		return nil, errors.New("invalid position id")
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}
