package trading

import (
	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/services/indicators"
)

// ExitParams configures the trend-reversal check.
type ExitParams struct {
	FastEMA      int
	SlowEMA      int
	Interval     string
	HistoryLimit int
}

func DefaultExitParams() ExitParams {
	return ExitParams{
		FastEMA:      20,
		SlowEMA:      50,
		Interval:     models.PriceTimeFrame1h,
		HistoryLimit: 100,
	}
}

// Exit is the outcome of EvaluateExit. Reason is empty when the position stays open.
type Exit struct {
	Close  bool
	Reason string
	Note   string
}

func hold() Exit {
	return Exit{}
}

// EvaluateExit checks stop, target and trend reversal in that order. A price
// that satisfies both stop and target resolves to the stop.
func EvaluateExit(p models.Position, price float64, bars []models.Price, params ExitParams) Exit {
	if !p.IsOpen() || price <= 0 {
		return hold()
	}

	long := p.Side == models.PositionSideBuy

	if (long && price <= p.StopLoss) || (!long && price >= p.StopLoss) {
		return Exit{Close: true, Reason: models.ExitReasonStopLoss}
	}

	if (long && price >= p.TakeProfit) || (!long && price <= p.TakeProfit) {
		return Exit{Close: true, Reason: models.ExitReasonTakeProfit}
	}

	if len(bars) < params.SlowEMA+1 {
		return hold()
	}

	closes := indicators.Closes(bars)
	cross := indicators.Crossover(
		indicators.EMA(closes, params.FastEMA),
		indicators.EMA(closes, params.SlowEMA),
	)
	if !cross.Crossed {
		return hold()
	}
	if long && cross.Direction < 0 {
		return Exit{Close: true, Reason: models.ExitReasonTrendReversal, Note: "bearish EMA crossover against long"}
	}
	if !long && cross.Direction > 0 {
		return Exit{Close: true, Reason: models.ExitReasonTrendReversal, Note: "bullish EMA crossover against short"}
	}
	return hold()
}
