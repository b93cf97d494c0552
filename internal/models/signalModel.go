package models

import "time"

// Signal is the audit record of one strategy evaluation and its risk outcome.
type Signal struct {
	ID        uint   `gorm:"primaryKey"`
	Symbol    string `gorm:"index;not null"`
	Direction string `gorm:"index;not null"`

	EntryMin       float64 `gorm:"type:decimal(20,8)"`
	EntryMax       float64 `gorm:"type:decimal(20,8)"`
	StopLoss       float64 `gorm:"type:decimal(20,8)"`
	TakeProfit     float64 `gorm:"type:decimal(20,8)"`
	MaxRiskPercent float64 `gorm:"type:decimal(10,4)"`

	Rationale []string `gorm:"serializer:json"`

	AdvisoryConfidence *float64 `gorm:"type:decimal(10,4)"`
	AdvisoryComment    string

	Accepted     bool
	RejectReason string
	PositionID   *uint

	CreatedAt time.Time `gorm:"index;autoCreateTime"`
}

const (
	DirectionLong    = "LONG"
	DirectionShort   = "SHORT"
	DirectionNoTrade = "NO_TRADE"
)
