package models

import (
	"time"
)

// AccountSnapshot is appended once per cycle.
type AccountSnapshot struct {
	ID               uint      `gorm:"primaryKey"`
	TotalEquity      float64   `gorm:"type:decimal(20,8);not null"`
	AvailableBalance float64   `gorm:"type:decimal(20,8);not null"`
	Unrealized       float64   `gorm:"type:decimal(20,8)"`
	Mode             string    `gorm:"not null"`
	Timestamp        time.Time `gorm:"index;not null"`
}
