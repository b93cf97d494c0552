package models

import (
	"errors"
	"time"
)

// Position is a trade opened from an accepted signal. Exit fields are only
// written by Close, together with the OPEN -> CLOSED transition.
type Position struct {
	ID         uint    `gorm:"primaryKey"`
	Symbol     string  `gorm:"index;not null"`
	Side       string  `gorm:"not null"`
	EntryPrice float64 `gorm:"type:decimal(20,8);not null"`
	Quantity   float64 `gorm:"type:decimal(20,8);not null"`

	StopLoss   float64 `gorm:"type:decimal(20,8);not null"`
	TakeProfit float64 `gorm:"type:decimal(20,8);not null"`

	Status string `gorm:"index;not null"`

	ExitPrice          float64 `gorm:"type:decimal(20,8)"`
	RealizedPnl        float64 `gorm:"type:decimal(20,8)"`
	RealizedPnlPercent float64 `gorm:"type:decimal(20,8)"`
	ExitReason         string

	OpenedAt time.Time  `gorm:"index;not null"`
	ClosedAt *time.Time `gorm:"index"`

	SignalID     uint   `gorm:"index"`
	Mode         string `gorm:"not null"`
	EntryOrderID string
	AdvisoryNote string

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

const (
	PositionStatusOpen      = "OPEN"
	PositionStatusClosed    = "CLOSED"
	PositionStatusCancelled = "CANCELLED"

	PositionSideBuy  = "BUY"
	PositionSideSell = "SELL"

	ModePaper = "paper"
	ModeLive  = "live"

	ExitReasonStopLoss      = "stop_loss"
	ExitReasonTakeProfit    = "take_profit"
	ExitReasonTrendReversal = "trend_reversal"
	ExitReasonReconciled    = "reconciled"
)

var ErrPositionNotOpen = errors.New("position is not open")

// TableName keeps positions in the trades table
func (Position) TableName() string {
	return "trades"
}

// Direction returns +1 for BUY and -1 for SELL.
func (p *Position) Direction() float64 {
	if p.Side == PositionSideSell {
		return -1
	}
	return 1
}

// Notional returns quantity * entry price.
func (p *Position) Notional() float64 {
	return p.Quantity * p.EntryPrice
}

// IsOpen reports whether the position can still transition.
func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// UnrealizedPnl marks the position against price.
func (p *Position) UnrealizedPnl(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity * p.Direction()
}

// Close moves an open position to CLOSED and fills every exit field.
func (p *Position) Close(exitPrice float64, reason string, at time.Time) error {
	if !p.IsOpen() {
		return ErrPositionNotOpen
	}

	pnl := (exitPrice - p.EntryPrice) * p.Quantity * p.Direction()
	pnlPercent := 0.0
	if notional := p.Notional(); notional != 0 {
		pnlPercent = pnl / notional * 100
	}

	closedAt := at
	p.ExitPrice = exitPrice
	p.RealizedPnl = pnl
	p.RealizedPnlPercent = pnlPercent
	p.ExitReason = reason
	p.ClosedAt = &closedAt
	p.Status = PositionStatusClosed
	return nil
}

// Cancel moves an open position to CANCELLED.
func (p *Position) Cancel(reason string, at time.Time) error {
	if !p.IsOpen() {
		return ErrPositionNotOpen
	}
	closedAt := at
	p.ExitReason = reason
	p.ClosedAt = &closedAt
	p.Status = PositionStatusCancelled
	return nil
}
