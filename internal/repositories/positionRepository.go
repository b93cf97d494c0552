package repositories

import (
	"context"
	"errors"
	"time"

	"CryptoSignalBot/internal/models"

	"gorm.io/gorm"
)

type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new instance of PositionRepository
func NewPositionRepository(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create adds a new Position record to the database
func (r *PositionRepository) Create(ctx context.Context, position *models.Position) error {
	if position == nil {
		return errors.New("position cannot be nil")
	}
	return r.db.WithContext(ctx).Create(position).Error
}

// FindOpenPositions retrieves all open Position records
func (r *PositionRepository) FindOpenPositions(ctx context.Context) ([]models.Position, error) {
	var positions []models.Position
	err := r.db.WithContext(ctx).
		Where("status = ?", models.PositionStatusOpen).
		Order("opened_at ASC").
		Find(&positions).Error
	return positions, err
}

// FindOpenPositionsBySymbol retrieves all open Position records for a specific symbol
func (r *PositionRepository) FindOpenPositionsBySymbol(ctx context.Context, symbol string) ([]models.Position, error) {
	if symbol == "" {
		return nil, errors.New("invalid symbol")
	}
	var positions []models.Position
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND status = ?", symbol, models.PositionStatusOpen).
		Find(&positions).Error
	return positions, err
}

// FindClosedBetween retrieves positions closed inside [start, end]
func (r *PositionRepository) FindClosedBetween(ctx context.Context, start, end time.Time) ([]models.Position, error) {
	var positions []models.Position
	err := r.db.WithContext(ctx).
		Where("status = ? AND closed_at BETWEEN ? AND ?", models.PositionStatusClosed, start, end).
		Order("closed_at ASC").
		Find(&positions).Error
	return positions, err
}

// CloseIfOpen writes the exit fields of position in one update guarded by
// status OPEN. It reports false when the row was no longer open.
func (r *PositionRepository) CloseIfOpen(ctx context.Context, position *models.Position) (bool, error) {
	if position == nil || position.ID == 0 {
		return false, errors.New("invalid position")
	}
	result := r.db.WithContext(ctx).Model(&models.Position{}).
		Where("id = ? AND status = ?", position.ID, models.PositionStatusOpen).
		Updates(map[string]any{
			"status":               position.Status,
			"exit_price":           position.ExitPrice,
			"realized_pnl":         position.RealizedPnl,
			"realized_pnl_percent": position.RealizedPnlPercent,
			"exit_reason":          position.ExitReason,
			"closed_at":            position.ClosedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateAdvisoryNote is the only write allowed on a terminal position.
func (r *PositionRepository) UpdateAdvisoryNote(ctx context.Context, id uint, note string) error {
	if id == 0 {
		return errors.New("invalid id")
	}
	return r.db.WithContext(ctx).Model(&models.Position{}).
		Where("id = ?", id).
		Update("advisory_note", note).Error
}

// GetTotalPnL sums realized P&L of positions closed within a time range
func (r *PositionRepository) GetTotalPnL(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.Position{}).
		Where("closed_at BETWEEN ? AND ? AND status = ?", start, end, models.PositionStatusClosed).
		Select("COALESCE(SUM(realized_pnl), 0)").
		Scan(&total).Error
	return total, err
}
