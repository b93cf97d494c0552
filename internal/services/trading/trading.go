package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CryptoSignalBot/internal/metrics"
	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"
	"CryptoSignalBot/internal/services/risk"

	"github.com/rs/zerolog"
)

// PositionStore is the persistence the lifecycle needs.
type PositionStore interface {
	FindOpenPositions(ctx context.Context) ([]models.Position, error)
	CloseIfOpen(ctx context.Context, position *models.Position) (bool, error)
}

// OrderLog records execution confirmations and is the idempotency record
// for close orders.
type OrderLog interface {
	Create(ctx context.Context, order *models.Order) error
	FindByPosition(ctx context.Context, positionID uint) ([]models.Order, error)
}

// CloseHook is notified after a position is durably closed.
type CloseHook func(ctx context.Context, position models.Position)

// PositionManager watches open positions and closes them at market when an
// exit condition fires.
type PositionManager struct {
	market    provider.MarketData
	executor  provider.OrderExecutor
	positions PositionStore
	orders    OrderLog
	params    ExitParams
	retry     provider.RetryPolicy
	logger    zerolog.Logger
	now       func() time.Time
	hooks     []CloseHook
}

func NewPositionManager(
	market provider.MarketData,
	executor provider.OrderExecutor,
	positions PositionStore,
	orders OrderLog,
	params ExitParams,
	logger zerolog.Logger,
) *PositionManager {
	return &PositionManager{
		market:    market,
		executor:  executor,
		positions: positions,
		orders:    orders,
		params:    params,
		retry:     provider.DefaultRetryPolicy,
		logger:    logger.With().Str("component", "positions").Logger(),
		now:       time.Now,
	}
}

// WithRetryPolicy overrides the read-path retry policy.
func (m *PositionManager) WithRetryPolicy(policy provider.RetryPolicy) *PositionManager {
	m.retry = policy
	return m
}

// WithClock overrides the clock used for close timestamps.
func (m *PositionManager) WithClock(now func() time.Time) *PositionManager {
	m.now = now
	return m
}

// OnClose registers a hook called for every closed position.
func (m *PositionManager) OnClose(hook CloseHook) {
	m.hooks = append(m.hooks, hook)
}

// ManageOpenPositions evaluates every open position once. A failure on one
// position is logged and the rest are still processed. It returns the
// positions closed during this call.
func (m *PositionManager) ManageOpenPositions(ctx context.Context, cycle *risk.CycleContext) ([]models.Position, error) {
	open, err := m.positions.FindOpenPositions(ctx)
	if err != nil {
		return nil, provider.Wrap(provider.KindPersistence, "find open positions", err)
	}

	var closed []models.Position
	for i := range open {
		if err := ctx.Err(); err != nil {
			return closed, err
		}

		position := open[i]
		done, err := m.checkPosition(ctx, &position)
		if err != nil {
			m.logger.Error().Err(err).
				Uint("position_id", position.ID).
				Str("symbol", position.Symbol).
				Str("kind", provider.KindOf(err).String()).
				Msg("error checking position")
			continue
		}
		if !done {
			continue
		}

		closed = append(closed, position)
		if cycle != nil {
			cycle.RecordClosed(position)
		}
	}
	return closed, nil
}

func (m *PositionManager) checkPosition(ctx context.Context, position *models.Position) (bool, error) {
	orders, err := m.positionOrders(ctx, position.ID)
	if err != nil {
		// without the order log a close could be sent twice
		return false, provider.Wrap(provider.KindPersistence, "load position orders", err)
	}
	if exitOrder, ok := findOrder(orders, models.OrderTypeExit); ok {
		return true, m.reconcile(ctx, position, exitOrder, orders)
	}

	price, err := provider.Retry(ctx, m.retry, func(ctx context.Context) (float64, error) {
		return m.market.GetCurrentPrice(ctx, position.Symbol)
	})
	if err != nil {
		return false, fmt.Errorf("failed to get price: %w", err)
	}

	bars, err := provider.Retry(ctx, m.retry, func(ctx context.Context) ([]models.Price, error) {
		return m.market.GetPriceHistory(ctx, position.Symbol, m.params.Interval, m.params.HistoryLimit)
	})
	if err != nil {
		// stop and target are still enforced without history
		m.logger.Warn().Err(err).Str("symbol", position.Symbol).Msg("history unavailable, skipping reversal check")
		bars = nil
	}

	exit := EvaluateExit(*position, price, bars, m.params)
	if !exit.Close {
		return false, nil
	}
	return true, m.closePosition(ctx, position, price, exit, orders)
}

func (m *PositionManager) positionOrders(ctx context.Context, positionID uint) ([]models.Order, error) {
	if m.orders == nil {
		return nil, nil
	}
	return m.orders.FindByPosition(ctx, positionID)
}

func findOrder(orders []models.Order, orderType string) (models.Order, bool) {
	for _, o := range orders {
		if o.Type == orderType {
			return o, true
		}
	}
	return models.Order{}, false
}

// reconcile finishes a close whose exit order executed in an earlier cycle
// but whose position update was never stored. No new order is sent.
func (m *PositionManager) reconcile(ctx context.Context, position *models.Position, exitOrder models.Order, orders []models.Order) error {
	price := exitOrder.Price
	if price <= 0 {
		p, err := provider.Retry(ctx, m.retry, func(ctx context.Context) (float64, error) {
			return m.market.GetCurrentPrice(ctx, position.Symbol)
		})
		if err != nil {
			return fmt.Errorf("failed to price reconciled exit: %w", err)
		}
		price = p
	}
	reason := exitOrder.Reason
	if reason == "" {
		reason = models.ExitReasonReconciled
	}

	m.logger.Warn().
		Uint("position_id", position.ID).
		Str("order_id", exitOrder.OrderID).
		Msg("exit order already executed, completing close")
	return m.finalize(ctx, position, price, Exit{Close: true, Reason: reason, Note: "reconciled"}, exitOrder.OrderID, orders)
}

func (m *PositionManager) closePosition(ctx context.Context, position *models.Position, price float64, exit Exit, orders []models.Order) error {
	side := models.PositionSideSell
	if position.Side == models.PositionSideSell {
		side = models.PositionSideBuy
	}

	// close-side orders are placed once
	confirmation, err := m.executor.PlaceCloseOrder(ctx, position.Symbol, side, position.Quantity)
	if err != nil {
		return provider.Wrap(provider.KindExecution, "close order", err)
	}

	// the exit order is logged before the position update so a failed update
	// is reconciled next cycle instead of re-sent
	if err := m.recordOrder(ctx, position, confirmation, exit.Reason); err != nil {
		metrics.ReconciliationFailuresTotal.Inc()
		m.logger.Error().Err(errors.Join(provider.ErrReconciliation, err)).
			Uint("position_id", position.ID).
			Str("order_id", confirmation.OrderID).
			Msg("exit order executed but was not recorded")
	}

	if confirmation.Price > 0 {
		price = confirmation.Price
	}
	return m.finalize(ctx, position, price, exit, confirmation.OrderID, orders)
}

func (m *PositionManager) finalize(ctx context.Context, position *models.Position, price float64, exit Exit, orderID string, orders []models.Order) error {
	if err := position.Close(price, exit.Reason, m.now()); err != nil {
		return err
	}

	ok, err := m.positions.CloseIfOpen(ctx, position)
	if err != nil {
		metrics.ReconciliationFailuresTotal.Inc()
		m.logger.Error().Err(errors.Join(provider.ErrReconciliation, err)).
			Uint("position_id", position.ID).
			Str("order_id", orderID).
			Msg("exit order executed but position close was not recorded")
		return provider.Wrap(provider.KindPersistence, "close position", err)
	}
	if !ok {
		return fmt.Errorf("position %d was no longer open", position.ID)
	}

	m.cancelProtective(ctx, position, orders)

	metrics.PositionsClosedTotal.WithLabelValues(position.Symbol, exit.Reason).Inc()
	m.logger.Info().
		Uint("position_id", position.ID).
		Str("symbol", position.Symbol).
		Str("side", position.Side).
		Str("reason", exit.Reason).
		Str("note", exit.Note).
		Float64("entry", position.EntryPrice).
		Float64("exit", position.ExitPrice).
		Float64("pnl", position.RealizedPnl).
		Float64("pnl_percent", position.RealizedPnlPercent).
		Msg("position closed")

	for _, hook := range m.hooks {
		hook(ctx, *position)
	}
	return nil
}

// cancelProtective removes the stop and target orders placed at entry.
func (m *PositionManager) cancelProtective(ctx context.Context, position *models.Position, orders []models.Order) {
	for _, o := range orders {
		if o.Type != models.OrderTypeStopLoss && o.Type != models.OrderTypeTakeProfit {
			continue
		}
		if o.OrderID == "" {
			continue
		}
		if err := m.executor.CancelOrder(ctx, position.Symbol, o.OrderID); err != nil {
			m.logger.Warn().Err(err).
				Uint("position_id", position.ID).
				Str("order_id", o.OrderID).
				Str("type", o.Type).
				Msg("failed to cancel protective order")
		}
	}
}

func (m *PositionManager) recordOrder(ctx context.Context, position *models.Position, c provider.Confirmation, reason string) error {
	if m.orders == nil {
		return nil
	}
	order := &models.Order{
		PositionID: position.ID,
		Symbol:     position.Symbol,
		Type:       models.OrderTypeExit,
		Side:       c.Side,
		OrderID:    c.OrderID,
		Status:     c.Status,
		Quantity:   c.Quantity,
		Price:      c.Price,
		Reason:     reason,
	}
	return m.orders.Create(ctx, order)
}
