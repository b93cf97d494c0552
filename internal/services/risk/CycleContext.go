package risk

import (
	"context"
	"fmt"
	"time"

	"CryptoSignalBot/internal/models"
)

// CycleContext is the per-account state carried from one cycle to the next.
// It is only safe under the single-active-cycle rule enforced by the scheduler.
type CycleContext struct {
	InitialCapital float64
	LastEquity     float64

	day         time.Time
	closedToday []models.Position
	openSymbols map[string]bool
}

// PositionSource loads the positions a cycle needs to reason about.
type PositionSource interface {
	FindOpenPositions(ctx context.Context) ([]models.Position, error)
	FindClosedBetween(ctx context.Context, start, end time.Time) ([]models.Position, error)
}

func NewCycleContext(initialCapital float64) *CycleContext {
	return &CycleContext{
		InitialCapital: initialCapital,
		LastEquity:     initialCapital,
		openSymbols:    make(map[string]bool),
	}
}

// StartOfDay returns local midnight for t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Refresh reloads open positions every cycle and the closed-today cache when
// the calendar day has changed since the last refresh.
func (c *CycleContext) Refresh(ctx context.Context, src PositionSource, now time.Time) error {
	open, err := src.FindOpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load open positions: %w", err)
	}

	today := StartOfDay(now)
	if !today.Equal(c.day) {
		closed, err := src.FindClosedBetween(ctx, today, now)
		if err != nil {
			return fmt.Errorf("failed to load positions closed today: %w", err)
		}
		c.day = today
		c.closedToday = closed
	}

	c.openSymbols = make(map[string]bool, len(open))
	for _, p := range open {
		c.openSymbols[p.Symbol] = true
	}
	return nil
}

// HasOpenPosition reports whether symbol already has an open position.
func (c *CycleContext) HasOpenPosition(symbol string) bool {
	return c.openSymbols[symbol]
}

// OpenCount returns the number of open positions across all symbols.
func (c *CycleContext) OpenCount() int {
	return len(c.openSymbols)
}

// RecordOpened marks symbol as holding a position for the rest of the cycle.
func (c *CycleContext) RecordOpened(p models.Position) {
	if c.openSymbols == nil {
		c.openSymbols = make(map[string]bool)
	}
	c.openSymbols[p.Symbol] = true
}

// RecordClosed adds a closed position to today's realized P&L.
func (c *CycleContext) RecordClosed(p models.Position) {
	delete(c.openSymbols, p.Symbol)
	if p.ClosedAt == nil || !StartOfDay(*p.ClosedAt).Equal(c.day) {
		return
	}
	c.closedToday = append(c.closedToday, p)
}

// DailyRealizedPnl sums realized P&L over positions closed today.
func (c *CycleContext) DailyRealizedPnl() float64 {
	total := 0.0
	for _, p := range c.closedToday {
		total += p.RealizedPnl
	}
	return total
}

