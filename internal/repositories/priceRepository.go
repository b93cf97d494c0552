package repositories

import (
	"context"
	"errors"
	"time"

	"CryptoSignalBot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PriceRepository struct {
	db *gorm.DB
}

// NewPriceRepository creates a new instance of PriceRepository
func NewPriceRepository(db *gorm.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Upsert stores bars, replacing any bar with the same symbol, timeframe and open time.
func (r *PriceRepository) Upsert(ctx context.Context, prices []models.Price) error {
	if len(prices) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "time_frame"}, {Name: "open_time"}},
		DoUpdates: clause.AssignmentColumns([]string{"close_time", "open", "high", "low", "close", "volume", "trade_count"}),
	}).CreateInBatches(prices, 500).Error
}

// GetPricesByTimeFrame gets bars for a symbol and timeframe, oldest first
func (r *PriceRepository) GetPricesByTimeFrame(ctx context.Context, symbol, timeFrame string, start, end time.Time) ([]models.Price, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}

	var prices []models.Price
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND time_frame = ? AND open_time BETWEEN ? AND ?", symbol, timeFrame, start, end).
		Order("open_time ASC").
		Find(&prices).Error
	return prices, err
}

// GetLatestPriceByTimeFrame gets the most recent bar for a symbol and timeframe
func (r *PriceRepository) GetLatestPriceByTimeFrame(ctx context.Context, symbol, timeFrame string) (*models.Price, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}

	var price models.Price
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND time_frame = ?", symbol, timeFrame).
		Order("open_time DESC").
		First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &price, err
}
