// Package paper simulates order execution and account equity without touching
// the exchange.
package paper

import (
	"context"
	"fmt"
	"time"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"

	"github.com/google/uuid"
)

// PriceSource marks simulated fills.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Executor fills every order immediately at the requested or current price.
type Executor struct {
	prices PriceSource
	now    func() time.Time
}

func NewExecutor(prices PriceSource) *Executor {
	return &Executor{prices: prices, now: time.Now}
}

func (e *Executor) PlaceOrder(ctx context.Context, symbol, side string, quantity float64, price *float64) (provider.Confirmation, error) {
	if quantity <= 0 {
		return provider.Confirmation{}, provider.Wrap(provider.KindExecution, "paper order", fmt.Errorf("invalid quantity %v", quantity))
	}

	fill := 0.0
	if price != nil {
		fill = *price
	} else {
		p, err := e.prices.GetCurrentPrice(ctx, symbol)
		if err != nil {
			return provider.Confirmation{}, provider.Wrap(provider.KindExecution, "paper order", err)
		}
		fill = p
	}

	return e.confirm(symbol, side, quantity, fill, "FILLED"), nil
}

// PlaceCloseOrder fills at the current price like any market order.
func (e *Executor) PlaceCloseOrder(ctx context.Context, symbol, side string, quantity float64) (provider.Confirmation, error) {
	return e.PlaceOrder(ctx, symbol, side, quantity, nil)
}

// CancelOrder is a no-op; paper trigger orders never rest anywhere.
func (e *Executor) CancelOrder(ctx context.Context, symbol, orderID string) error {
	return nil
}

// PlaceProtectiveOrder acknowledges the trigger order. Paper positions are
// closed by the lifecycle manager, not by these orders.
func (e *Executor) PlaceProtectiveOrder(ctx context.Context, symbol, side string, quantity, triggerPrice float64, kind provider.ProtectiveKind) (provider.Confirmation, error) {
	return e.confirm(symbol, side, quantity, triggerPrice, "NEW"), nil
}

func (e *Executor) confirm(symbol, side string, quantity, price float64, status string) provider.Confirmation {
	return provider.Confirmation{
		OrderID:   "paper-" + uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Status:    status,
		Simulated: true,
		Timestamp: e.now(),
	}
}

// PositionSource is what the paper account derives equity from.
type PositionSource interface {
	FindOpenPositions(ctx context.Context) ([]models.Position, error)
	GetTotalPnL(ctx context.Context, start, end time.Time) (float64, error)
}

// Account computes equity as initial capital plus every realized P&L, with
// open positions marked at the current price.
type Account struct {
	initial   float64
	positions PositionSource
	prices    PriceSource
	now       func() time.Time
}

func NewAccount(initial float64, positions PositionSource, prices PriceSource) *Account {
	return &Account{initial: initial, positions: positions, prices: prices, now: time.Now}
}

func (a *Account) GetAccountEquity(ctx context.Context) (provider.Equity, error) {
	realized, err := a.positions.GetTotalPnL(ctx, time.Unix(0, 0), a.now())
	if err != nil {
		return provider.Equity{}, provider.Wrap(provider.KindPersistence, "paper realized pnl", err)
	}

	open, err := a.positions.FindOpenPositions(ctx)
	if err != nil {
		return provider.Equity{}, provider.Wrap(provider.KindPersistence, "paper open positions", err)
	}

	unrealized := 0.0
	for i := range open {
		price, err := a.prices.GetCurrentPrice(ctx, open[i].Symbol)
		if err != nil {
			return provider.Equity{}, err
		}
		unrealized += open[i].UnrealizedPnl(price)
	}

	return provider.Equity{Available: a.initial + realized, Unrealized: unrealized}, nil
}
