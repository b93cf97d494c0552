package risk

import (
	"fmt"
	"math"

	"CryptoSignalBot/internal/services/strategy"
)

const ReasonDailyLossLimit = "daily loss limit exceeded"

// Limits configures the gate.
type Limits struct {
	RiskPerTrade          float64 // fraction of equity lost if the stop is hit
	MaxRiskPercent        float64 // ceiling for signal.MaxRiskPercent
	MaxDailyLossFraction  float64 // of initial capital
	MinNotional           float64 // quote currency
	MaxNotionalFraction   float64 // of current equity
	MaxOpenPositions      int     // 0 disables the portfolio cap
	MinAdvisoryConfidence float64 // 0 disables the advisory gate
}

// DefaultLimits returns the production limits.
func DefaultLimits() Limits {
	return Limits{
		RiskPerTrade:         0.02,
		MaxRiskPercent:       5,
		MaxDailyLossFraction: 0.10,
		MinNotional:          10,
		MaxNotionalFraction:  0.5,
	}
}

// Decision is the gate's verdict for one signal.
type Decision struct {
	Valid        bool
	Reason       string
	PositionSize float64
	Notional     float64
}

func reject(reason string) Decision {
	return Decision{Valid: false, Reason: reason}
}

type Gate struct {
	limits Limits
}

func NewGate(limits Limits) *Gate {
	return &Gate{limits: limits}
}

// Limits returns the gate configuration.
func (g *Gate) Limits() Limits {
	return g.limits
}

// TrippedBreaker reports whether today's realized loss exceeds the budget.
func (g *Gate) TrippedBreaker(cycle *CycleContext) bool {
	budget := cycle.InitialCapital * g.limits.MaxDailyLossFraction
	return cycle.DailyRealizedPnl() < -budget
}

// PositionSize applies fixed-fractional sizing.
func (g *Gate) PositionSize(equity, entry, stop float64) float64 {
	distance := math.Abs(entry - stop)
	if distance == 0 {
		return 0
	}
	return (equity * g.limits.RiskPerTrade) / distance
}

// ValidateTrade runs the checks in priority order and sizes the position.
func (g *Gate) ValidateTrade(signal strategy.Signal, equity float64, cycle *CycleContext) Decision {
	if !signal.IsTrade() {
		return reject("no trade signal")
	}

	entry := signal.EntryReference()
	if signal.StopLoss <= 0 || entry <= 0 {
		return reject("missing stop loss or entry price")
	}

	if signal.MaxRiskPercent > g.limits.MaxRiskPercent {
		return reject(fmt.Sprintf("signal risk %.2f%% exceeds ceiling %.2f%%", signal.MaxRiskPercent, g.limits.MaxRiskPercent))
	}

	if g.TrippedBreaker(cycle) {
		return reject(fmt.Sprintf("%s: realized %.2f today, limit %.2f",
			ReasonDailyLossLimit, cycle.DailyRealizedPnl(), -cycle.InitialCapital*g.limits.MaxDailyLossFraction))
	}

	if cycle.HasOpenPosition(signal.Symbol) {
		return reject(fmt.Sprintf("already have an open position for %s", signal.Symbol))
	}

	if g.limits.MaxOpenPositions > 0 && cycle.OpenCount() >= g.limits.MaxOpenPositions {
		return reject(fmt.Sprintf("max open positions reached (%d)", g.limits.MaxOpenPositions))
	}

	if g.limits.MinAdvisoryConfidence > 0 && signal.AdvisoryConfidence != nil &&
		*signal.AdvisoryConfidence < g.limits.MinAdvisoryConfidence {
		return reject(fmt.Sprintf("advisory confidence %.0f below %.0f", *signal.AdvisoryConfidence, g.limits.MinAdvisoryConfidence))
	}

	size := g.PositionSize(equity, entry, signal.StopLoss)
	notional := size * entry

	if notional < g.limits.MinNotional {
		return reject(fmt.Sprintf("notional %.2f below minimum %.2f", notional, g.limits.MinNotional))
	}

	if maxNotional := equity * g.limits.MaxNotionalFraction; notional > maxNotional {
		return reject(fmt.Sprintf("notional %.2f exceeds %.0f%% of equity (%.2f)", notional, g.limits.MaxNotionalFraction*100, maxNotional))
	}

	return Decision{Valid: true, PositionSize: size, Notional: notional}
}
