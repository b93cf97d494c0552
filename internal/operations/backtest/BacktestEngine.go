package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/price"
	"CryptoSignalBot/internal/services/risk"
	"CryptoSignalBot/internal/services/strategy"
	"CryptoSignalBot/internal/services/trading"

	"github.com/rs/zerolog"
)

// BarSource loads stored bars in a time range, oldest first.
type BarSource interface {
	GetPricesByTimeFrame(ctx context.Context, symbol, timeFrame string, start, end time.Time) ([]models.Price, error)
}

type signalGenerator interface {
	GenerateSignal(symbol string, bars []models.Price) strategy.Signal
}

type Engine struct {
	bars    BarSource
	signals signalGenerator
	gate    *risk.Gate
	exit    trading.ExitParams
	logger  zerolog.Logger
}

func NewEngine(bars BarSource, signals *strategy.Engine, gate *risk.Gate, exit trading.ExitParams, logger zerolog.Logger) *Engine {
	return newEngine(bars, signals, gate, exit, logger)
}

func newEngine(bars BarSource, signals signalGenerator, gate *risk.Gate, exit trading.ExitParams, logger zerolog.Logger) *Engine {
	return &Engine{
		bars:    bars,
		signals: signals,
		gate:    gate,
		exit:    exit,
		logger:  logger.With().Str("component", "backtest").Logger(),
	}
}

// series is one symbol's bars plus an index by open time.
type series struct {
	bars  []models.Price
	index map[int64]int
}

// RunBacktest replays every symbol in config over [StartTime, EndTime]. All
// symbols share one balance and one daily-loss budget, and positions still
// open at the end are closed at their last price.
func (e *Engine) RunBacktest(ctx context.Context, config Config) (*Results, error) {
	if !config.EndTime.After(config.StartTime) {
		return nil, fmt.Errorf("end time must be after start time")
	}
	if config.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive")
	}
	interval, ok := price.IntervalDuration(config.TimeFrame)
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", config.TimeFrame)
	}
	if config.Window <= 0 {
		config.Window = NewConfig().Window
	}

	e.logger.Info().
		Time("from", config.StartTime).
		Time("to", config.EndTime).
		Strs("symbols", config.Symbols).
		Msg("running backtest")

	// Load warm-up bars before the start so the first step has a full window
	extendedStart := config.StartTime.Add(-time.Duration(config.Window) * interval)
	data := make(map[string]series, len(config.Symbols))
	timeline := make(map[int64]time.Time)

	for _, symbol := range config.Symbols {
		bars, err := e.bars.GetPricesByTimeFrame(ctx, symbol, config.TimeFrame, extendedStart, config.EndTime)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s bars: %w", symbol, err)
		}
		sort.Slice(bars, func(i, j int) bool {
			return bars[i].OpenTime.Before(bars[j].OpenTime)
		})
		s := series{bars: bars, index: make(map[int64]int, len(bars))}
		for i, b := range bars {
			key := b.OpenTime.UnixMilli()
			s.index[key] = i
			if !b.OpenTime.Before(config.StartTime) {
				timeline[key] = b.OpenTime
			}
		}
		data[symbol] = s
		e.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("loaded bars")
	}

	steps := make([]time.Time, 0, len(timeline))
	for _, t := range timeline {
		steps = append(steps, t)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Before(steps[j]) })

	sim := newSimulator(e.signals, e.gate, e.exit, config.InitialBalance)
	sim.equityCurve = append(sim.equityCurve, EquityPoint{Timestamp: config.StartTime, Balance: config.InitialBalance})

	for _, at := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := sim.beginStep(ctx, at); err != nil {
			return nil, err
		}

		windows := make(map[string][]models.Price, len(config.Symbols))
		for _, symbol := range config.Symbols {
			s := data[symbol]
			i, ok := s.index[at.UnixMilli()]
			if !ok {
				continue
			}
			start := i + 1 - config.Window
			if start < 0 {
				start = 0
			}
			windows[symbol] = s.bars[start : i+1]
		}

		// Exits run before entries, as in a live cycle
		for _, symbol := range config.Symbols {
			if w, ok := windows[symbol]; ok {
				sim.manage(symbol, w)
			}
		}
		for _, symbol := range config.Symbols {
			if w, ok := windows[symbol]; ok {
				sim.consider(symbol, w)
			}
		}
	}

	end := config.EndTime
	if len(steps) > 0 {
		end = steps[len(steps)-1]
	}
	sim.closeAll(end)

	results := calculateResults(sim, config.InitialBalance)
	e.logger.Info().
		Int("trades", results.TotalTrades).
		Float64("win_rate", results.WinRate).
		Float64("final_balance", results.FinalBalance).
		Float64("max_drawdown", results.MaxDrawdown).
		Msg("backtest finished")
	return results, nil
}

func calculateResults(sim *Simulator, initial float64) *Results {
	results := &Results{
		FinalBalance: sim.balance,
		Signals:      sim.signalCount,
		Rejections:   sim.rejections,
		Trades:       sim.trades,
		EquityCurve:  sim.equityCurve,
	}
	if len(sim.trades) == 0 {
		return results
	}

	totalPnL := 0.0
	for _, trade := range sim.trades {
		if trade.PnL > 0 {
			results.WinningTrades++
		} else {
			results.LosingTrades++
		}
		totalPnL += trade.PnL
	}

	results.TotalTrades = len(sim.trades)
	results.WinRate = float64(results.WinningTrades) / float64(results.TotalTrades)
	results.AveragePnL = totalPnL / float64(results.TotalTrades)
	results.MaxDrawdown = maxDrawdown(sim.equityCurve, initial)
	results.SharpeRatio = sharpeRatio(sim.equityCurve)
	return results
}

// maxDrawdown returns the largest peak-to-trough fall as a fraction of the peak.
func maxDrawdown(curve []EquityPoint, initial float64) float64 {
	worst := 0.0
	peak := initial
	for _, point := range curve {
		if point.Balance > peak {
			peak = point.Balance
		}
		if peak <= 0 {
			continue
		}
		if drawdown := (peak - point.Balance) / peak; drawdown > worst {
			worst = drawdown
		}
	}
	return worst
}

// sharpeRatio is mean over sample standard deviation of the per-trade returns
// along the equity curve.
func sharpeRatio(curve []EquityPoint) float64 {
	if len(curve) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Balance
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Balance-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	avgReturn := 0.0
	for _, r := range returns {
		avgReturn += r
	}
	avgReturn /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avgReturn, 2)
	}
	variance /= float64(len(returns) - 1)
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}
	return avgReturn / stdDev
}
