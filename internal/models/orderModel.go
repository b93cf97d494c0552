package models

import (
	"time"
)

// Order stores an execution confirmation for reconciliation.
type Order struct {
	ID         uint   `gorm:"primaryKey"`
	PositionID uint   `gorm:"index"`
	Symbol     string `gorm:"index;not null"`
	Type       string `gorm:"not null"`
	Side       string `gorm:"not null"`
	OrderID    string `gorm:"index"`
	Status     string
	Quantity   float64 `gorm:"type:decimal(20,8);not null"`
	Price      float64 `gorm:"type:decimal(20,8)"`
	// Reason is the exit reason for exit orders.
	Reason string

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

const (
	OrderTypeEntry      = "entry"
	OrderTypeStopLoss   = "stop_loss"
	OrderTypeTakeProfit = "take_profit"
	OrderTypeExit       = "exit"
)
