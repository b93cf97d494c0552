package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CryptoSignalBot/internal/models"

	"gorm.io/gorm"
)

type SignalRepository struct {
	db *gorm.DB
}

func NewSignalRepository(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Create adds a new Signal record to the database
func (r *SignalRepository) Create(ctx context.Context, signal *models.Signal) error {
	if signal == nil {
		return errors.New("signal cannot be nil")
	}
	return r.db.WithContext(ctx).Create(signal).Error
}

// FindBetween returns signals created within a time range
func (r *SignalRepository) FindBetween(ctx context.Context, start, end time.Time) ([]models.Signal, error) {
	var signals []models.Signal
	err := r.db.WithContext(ctx).
		Where("created_at BETWEEN ? AND ?", start, end).
		Order("created_at ASC").
		Find(&signals).Error
	return signals, err
}

// UpdateOutcome stores the risk verdict and the position opened from the signal
func (r *SignalRepository) UpdateOutcome(ctx context.Context, id uint, accepted bool, reason string, positionID *uint) error {
	if id == 0 {
		return errors.New("invalid id")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"accepted":      accepted,
			"reject_reason": reason,
			"position_id":   positionID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("signal %d not found", id)
	}
	return nil
}
