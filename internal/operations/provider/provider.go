// Package provider defines the external collaborators the trading core talks to
// and the failure kinds they report.
package provider

import (
	"context"
	"time"

	"CryptoSignalBot/internal/models"
)

// MarketData returns chronologically ordered bars and last prices.
type MarketData interface {
	GetPriceHistory(ctx context.Context, symbol, interval string, limit int) ([]models.Price, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Equity is the account value split into settled and open parts.
type Equity struct {
	Available  float64
	Unrealized float64
}

// Total returns available plus unrealized.
func (e Equity) Total() float64 {
	return e.Available + e.Unrealized
}

type AccountProvider interface {
	GetAccountEquity(ctx context.Context) (Equity, error)
}

// ProtectiveKind selects the trigger order type
type ProtectiveKind string

const (
	ProtectiveStopLoss   ProtectiveKind = "stop_loss"
	ProtectiveTakeProfit ProtectiveKind = "take_profit"
)

// Confirmation is what an executor returns for an accepted order.
type Confirmation struct {
	OrderID   string
	Symbol    string
	Side      string
	Quantity  float64
	Price     float64
	Status    string
	Simulated bool
	Timestamp time.Time
}

// OrderExecutor places orders. Implementations must not retry on their own.
type OrderExecutor interface {
	PlaceOrder(ctx context.Context, symbol, side string, quantity float64, price *float64) (Confirmation, error)
	// PlaceCloseOrder sends a reduce-only market order. It can shrink an
	// existing position but never open or flip one.
	PlaceCloseOrder(ctx context.Context, symbol, side string, quantity float64) (Confirmation, error)
	PlaceProtectiveOrder(ctx context.Context, symbol, side string, quantity, triggerPrice float64, kind ProtectiveKind) (Confirmation, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

// Score is an advisory opinion on a signal.
type Score struct {
	Confidence float64 // 0-100
	Comment    string
}

// AdvisoryScorer is optional; callers must work when it is nil.
type AdvisoryScorer interface {
	ScoreSignal(ctx context.Context, symbol string, rationale []string, recent []models.Price) (Score, error)
}
