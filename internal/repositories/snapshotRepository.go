package repositories

import (
	"context"
	"errors"

	"CryptoSignalBot/internal/models"

	"gorm.io/gorm"
)

type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new instance of SnapshotRepository
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create appends an AccountSnapshot
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *models.AccountSnapshot) error {
	if snapshot == nil {
		return errors.New("snapshot cannot be nil")
	}
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// Latest returns the newest snapshot or nil when none exist
func (r *SnapshotRepository) Latest(ctx context.Context) (*models.AccountSnapshot, error) {
	var snapshot models.AccountSnapshot
	err := r.db.WithContext(ctx).Order("timestamp DESC").First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &snapshot, err
}
