package repositories

import (
	"CryptoSignalBot/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table the bot writes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Price{},
		&models.Signal{},
		&models.Position{},
		&models.AccountSnapshot{},
		&models.Order{},
	)
}
