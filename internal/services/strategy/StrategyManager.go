package strategy

import (
	"fmt"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/services/indicators"
)

// Snapshot holds the indicator readings a strategy decides on. All values
// refer to the latest bar unless prefixed Prev.
type Snapshot struct {
	Price float64
	RSI   float64

	EMACross indicators.CrossSignal

	UpperBand  float64
	MiddleBand float64
	LowerBand  float64
	BandWidth  float64

	PrevHistogram float64
	Histogram     float64
}

// Strategy evaluates a snapshot. It returns NoTrade when its rule did not fire,
// along with notes explaining why.
type Strategy interface {
	Name() string
	Evaluate(s Snapshot) (Direction, []string)
}

// Engine runs the strategies in priority order; the first one to fire wins.
type Engine struct {
	params     Params
	strategies []Strategy
}

func NewEngine(params Params) *Engine {
	return &Engine{
		params: params,
		strategies: []Strategy{
			NewTrendStrategy(params),
			NewMeanReversionStrategy(params),
			NewMomentumStrategy(params),
		},
	}
}

// Params returns the engine configuration.
func (e *Engine) Params() Params {
	return e.params
}

// GenerateSignal evaluates bars (chronological) and returns at most one
// directional signal. Missing or undefined data yields NoTrade.
func (e *Engine) GenerateSignal(symbol string, bars []models.Price) Signal {
	if len(bars) < e.params.MinBars {
		return e.noTrade(symbol, fmt.Sprintf("insufficient data: %d bars, need at least %d", len(bars), e.params.MinBars))
	}

	snap, ok := e.buildSnapshot(bars)
	if !ok {
		return e.noTrade(symbol, "insufficient data: indicator warm-up incomplete")
	}

	return e.decide(symbol, snap)
}

func (e *Engine) decide(symbol string, snap Snapshot) Signal {
	var notes []string
	for _, s := range e.strategies {
		direction, rationale := s.Evaluate(snap)
		if direction == Long || direction == Short {
			return e.newSignal(symbol, direction, snap.Price, rationale)
		}
		notes = append(notes, rationale...)
	}

	spread := snap.UpperBand - snap.LowerBand
	rationale := []string{
		"No strategy fired",
		fmt.Sprintf("RSI %.2f", snap.RSI),
		fmt.Sprintf("Bollinger spread %.4f (%.2f%% of middle %.4f)", spread, snap.BandWidth*100, snap.MiddleBand),
	}
	return Signal{
		Symbol:         symbol,
		Direction:      NoTrade,
		MaxRiskPercent: e.params.MaxRiskPercent,
		Rationale:      append(rationale, notes...),
	}
}

func (e *Engine) buildSnapshot(bars []models.Price) (Snapshot, bool) {
	closes := indicators.Closes(bars)

	fast := indicators.EMA(closes, e.params.FastEMA)
	slow := indicators.EMA(closes, e.params.SlowEMA)
	rsi := indicators.RSI(closes, e.params.RSIPeriod)
	bands := indicators.BollingerBands(closes, e.params.BBPeriod, e.params.BBMultiplier)
	macd := indicators.MACDByTime(bars, e.params.MACDFast, e.params.MACDSlow, e.params.MACDSignal)
	if fast == nil || slow == nil || rsi == nil || bands == nil || macd == nil {
		return Snapshot{}, false
	}

	last := len(bars) - 1
	snap := Snapshot{
		Price:      closes[last],
		RSI:        rsi[last],
		EMACross:   indicators.Crossover(fast, slow),
		UpperBand:  bands.Upper[last],
		MiddleBand: bands.Middle[last],
		LowerBand:  bands.Lower[last],
		BandWidth:  bands.Width[last],
	}

	curr, okCurr := macd[bars[last].OpenTime]
	prev, okPrev := macd[bars[last-1].OpenTime]
	if !okCurr || !okPrev {
		return Snapshot{}, false
	}
	snap.Histogram = curr.Histogram
	snap.PrevHistogram = prev.Histogram

	for _, v := range []float64{snap.Price, snap.RSI, snap.EMACross.CurrFast, snap.EMACross.CurrSlow, snap.UpperBand, snap.LowerBand} {
		if !indicators.Defined(v) {
			return Snapshot{}, false
		}
	}
	return snap, true
}

func (e *Engine) newSignal(symbol string, direction Direction, price float64, rationale []string) Signal {
	risk := price * e.params.StopLossPct
	band := price * e.params.EntryBandPct

	sig := Signal{
		Symbol:         symbol,
		Direction:      direction,
		EntryMin:       price - band,
		EntryMax:       price + band,
		MaxRiskPercent: e.params.MaxRiskPercent,
	}
	if direction == Long {
		sig.StopLoss = price - risk
		sig.TakeProfit = price + risk*e.params.RewardRisk
	} else {
		sig.StopLoss = price + risk
		sig.TakeProfit = price - risk*e.params.RewardRisk
	}

	sig.Rationale = append(rationale,
		fmt.Sprintf("Entry %.4f-%.4f, stop %.4f, target %.4f (%.0f:1 reward:risk)",
			sig.EntryMin, sig.EntryMax, sig.StopLoss, sig.TakeProfit, e.params.RewardRisk))
	return sig
}

func (e *Engine) noTrade(symbol, reason string) Signal {
	return Signal{
		Symbol:         symbol,
		Direction:      NoTrade,
		MaxRiskPercent: e.params.MaxRiskPercent,
		Rationale:      []string{reason},
	}
}
