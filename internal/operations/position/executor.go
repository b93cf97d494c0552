package position

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CryptoSignalBot/internal/metrics"
	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"
	"CryptoSignalBot/internal/services/risk"
	"CryptoSignalBot/internal/services/strategy"

	"github.com/rs/zerolog"
)

type PositionStore interface {
	Create(ctx context.Context, position *models.Position) error
	FindOpenPositionsBySymbol(ctx context.Context, symbol string) ([]models.Position, error)
}

type OrderLog interface {
	Create(ctx context.Context, order *models.Order) error
}

// PositionExecutor turns an accepted signal into an order and a persisted position.
type PositionExecutor struct {
	executor   provider.OrderExecutor
	positions  PositionStore
	orders     OrderLog
	mode       string
	protective bool
	logger     zerolog.Logger
	now        func() time.Time
}

func NewPositionExecutor(
	executor provider.OrderExecutor,
	positions PositionStore,
	orders OrderLog,
	mode string,
	logger zerolog.Logger,
) *PositionExecutor {
	return &PositionExecutor{
		executor:   executor,
		positions:  positions,
		orders:     orders,
		mode:       mode,
		protective: true,
		logger:     logger.With().Str("component", "executor").Logger(),
		now:        time.Now,
	}
}

// WithProtectiveOrders toggles stop/target order placement after entry.
func (e *PositionExecutor) WithProtectiveOrders(enabled bool) *PositionExecutor {
	e.protective = enabled
	return e
}

func sides(direction strategy.Direction) (entry, exit string) {
	if direction == strategy.Short {
		return models.PositionSideSell, models.PositionSideBuy
	}
	return models.PositionSideBuy, models.PositionSideSell
}

// OpenPosition places the entry order once and records the position. When a
// live order succeeds but the position cannot be saved the error wraps
// provider.ErrReconciliation.
func (e *PositionExecutor) OpenPosition(ctx context.Context, signal strategy.Signal, decision risk.Decision, signalID uint) (*models.Position, error) {
	if !signal.IsTrade() || !decision.Valid {
		return nil, fmt.Errorf("signal for %s was not accepted", signal.Symbol)
	}

	// at most one open position per symbol
	open, err := e.positions.FindOpenPositionsBySymbol(ctx, signal.Symbol)
	if err != nil {
		return nil, provider.Wrap(provider.KindPersistence, "find open positions", err)
	}
	if len(open) > 0 {
		return nil, provider.Wrap(provider.KindPermanent, "entry order",
			fmt.Errorf("%s already has open position %d", signal.Symbol, open[0].ID))
	}

	entrySide, exitSide := sides(signal.Direction)

	confirmation, err := e.executor.PlaceOrder(ctx, signal.Symbol, entrySide, decision.PositionSize, nil)
	if err != nil {
		return nil, provider.Wrap(provider.KindExecution, "entry order", err)
	}

	entryPrice := confirmation.Price
	if entryPrice <= 0 {
		entryPrice = signal.EntryReference()
	}
	quantity := confirmation.Quantity
	if quantity <= 0 {
		quantity = decision.PositionSize
	}

	position := &models.Position{
		Symbol:       signal.Symbol,
		Side:         entrySide,
		EntryPrice:   entryPrice,
		Quantity:     quantity,
		StopLoss:     signal.StopLoss,
		TakeProfit:   signal.TakeProfit,
		Status:       models.PositionStatusOpen,
		OpenedAt:     e.now(),
		SignalID:     signalID,
		Mode:         e.mode,
		EntryOrderID: confirmation.OrderID,
		AdvisoryNote: signal.AdvisoryComment,
	}

	if err := e.positions.Create(ctx, position); err != nil {
		if !confirmation.Simulated {
			metrics.ReconciliationFailuresTotal.Inc()
			e.logger.Error().Err(err).
				Str("symbol", signal.Symbol).
				Str("order_id", confirmation.OrderID).
				Str("side", entrySide).
				Float64("quantity", quantity).
				Float64("price", entryPrice).
				Msg(provider.ErrReconciliation.Error())
			return nil, provider.Wrap(provider.KindPersistence, "save position", errors.Join(provider.ErrReconciliation, err))
		}
		return nil, provider.Wrap(provider.KindPersistence, "save position", err)
	}

	e.record(ctx, position, models.OrderTypeEntry, confirmation)
	metrics.PositionsOpenedTotal.WithLabelValues(position.Symbol, position.Side).Inc()

	if e.protective {
		e.placeProtective(ctx, position, exitSide)
	}

	e.logger.Info().
		Uint("position_id", position.ID).
		Str("symbol", position.Symbol).
		Str("side", position.Side).
		Float64("entry", position.EntryPrice).
		Float64("quantity", position.Quantity).
		Float64("stop", position.StopLoss).
		Float64("target", position.TakeProfit).
		Str("mode", position.Mode).
		Msg("position opened")
	return position, nil
}

// placeProtective is best effort; the lifecycle manager enforces the levels regardless.
func (e *PositionExecutor) placeProtective(ctx context.Context, position *models.Position, side string) {
	legs := []struct {
		kind      provider.ProtectiveKind
		orderType string
		trigger   float64
	}{
		{provider.ProtectiveStopLoss, models.OrderTypeStopLoss, position.StopLoss},
		{provider.ProtectiveTakeProfit, models.OrderTypeTakeProfit, position.TakeProfit},
	}
	for _, leg := range legs {
		c, err := e.executor.PlaceProtectiveOrder(ctx, position.Symbol, side, position.Quantity, leg.trigger, leg.kind)
		if err != nil {
			e.logger.Warn().Err(err).
				Uint("position_id", position.ID).
				Str("kind", string(leg.kind)).
				Msg("failed to place protective order")
			continue
		}
		e.record(ctx, position, leg.orderType, c)
	}
}

func (e *PositionExecutor) record(ctx context.Context, position *models.Position, orderType string, c provider.Confirmation) {
	if e.orders == nil {
		return
	}
	order := &models.Order{
		PositionID: position.ID,
		Symbol:     position.Symbol,
		Type:       orderType,
		Side:       c.Side,
		OrderID:    c.OrderID,
		Status:     c.Status,
		Quantity:   c.Quantity,
		Price:      c.Price,
	}
	if err := e.orders.Create(ctx, order); err != nil {
		e.logger.Warn().Err(err).Str("order_id", c.OrderID).Str("type", orderType).Msg("failed to record order")
	}
}
