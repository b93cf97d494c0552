package backtest

import (
	"context"
	"strings"
	"testing"
	"time"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/services/risk"
	"CryptoSignalBot/internal/services/strategy"
	"CryptoSignalBot/internal/services/trading"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

type fakeBars map[string][]models.Price

func (f fakeBars) GetPricesByTimeFrame(ctx context.Context, symbol, timeFrame string, start, end time.Time) ([]models.Price, error) {
	var out []models.Price
	for _, b := range f[symbol] {
		if !b.OpenTime.Before(start) && !b.OpenTime.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

// hourly bars starting at first, one per close
func hourly(symbol string, first time.Time, closes ...float64) []models.Price {
	bars := make([]models.Price, len(closes))
	for i, c := range closes {
		open := first.Add(time.Duration(i) * time.Hour)
		bars[i] = models.Price{
			Symbol: symbol, TimeFrame: models.PriceTimeFrame1h,
			OpenTime: open, CloseTime: open.Add(time.Hour - time.Millisecond),
			Open: c, High: c, Low: c, Close: c,
		}
	}
	return bars
}

type scripted map[int64]strategy.Signal

func (s scripted) GenerateSignal(symbol string, bars []models.Price) strategy.Signal {
	last := bars[len(bars)-1].OpenTime.UnixMilli()
	if sig, ok := s[last]; ok && sig.Symbol == symbol {
		return sig
	}
	return strategy.Signal{Symbol: symbol, Direction: strategy.NoTrade}
}

func signalAt(s scripted, at time.Time, symbol string, dir strategy.Direction, stop, target float64) {
	s[at.UnixMilli()] = strategy.Signal{
		Symbol: symbol, Direction: dir,
		EntryMin: 100, EntryMax: 100, StopLoss: stop, TakeProfit: target, MaxRiskPercent: 5,
	}
}

func testConfig(symbols ...string) Config {
	cfg := NewConfig()
	cfg.Symbols = symbols
	cfg.StartTime = t0
	cfg.EndTime = t0.Add(20 * time.Hour)
	cfg.Window = 10
	return cfg
}

func run(t *testing.T, bars fakeBars, signals scripted, limits risk.Limits, cfg Config) *Results {
	t.Helper()
	engine := newEngine(bars, signals, risk.NewGate(limits), trading.DefaultExitParams(), zerolog.Nop())
	results, err := engine.RunBacktest(context.Background(), cfg)
	require.NoError(t, err)
	return results
}

func TestRunBacktest_TakeProfit(t *testing.T) {
	bars := fakeBars{
		"BTCUSDT": append(
			hourly("BTCUSDT", t0.Add(-5*time.Hour), 100, 100, 100, 100, 100),
			hourly("BTCUSDT", t0, 100, 100, 105, 111, 108)...,
		),
	}
	signals := scripted{}
	// warm-up bars are never traded
	signalAt(signals, t0.Add(-2*time.Hour), "BTCUSDT", strategy.Long, 95, 110)
	signalAt(signals, t0.Add(time.Hour), "BTCUSDT", strategy.Long, 95, 110)

	results := run(t, bars, signals, risk.DefaultLimits(), testConfig("BTCUSDT"))

	assert.Equal(t, 1, results.Signals)
	require.Len(t, results.Trades, 1)
	trade := results.Trades[0]
	assert.Equal(t, models.ExitReasonTakeProfit, trade.Reason)
	assert.Equal(t, models.PositionSideBuy, trade.Side)
	assert.InDelta(t, 4.0, trade.Quantity, 1e-9)
	assert.InDelta(t, 111.0, trade.ExitPrice, 1e-9)
	assert.InDelta(t, 44.0, trade.PnL, 1e-9)
	assert.Equal(t, t0.Add(3*time.Hour), trade.ExitTime)

	assert.Equal(t, 1, results.TotalTrades)
	assert.Equal(t, 1.0, results.WinRate)
	assert.InDelta(t, 1044.0, results.FinalBalance, 1e-9)
	assert.Zero(t, results.MaxDrawdown)
	require.Len(t, results.EquityCurve, 2)
}

func TestRunBacktest_StopTripsDailyBreaker(t *testing.T) {
	bars := fakeBars{
		"BTCUSDT": hourly("BTCUSDT", t0, 100, 100, 94, 100, 100, 100, 100),
	}
	signals := scripted{}
	signalAt(signals, t0.Add(time.Hour), "BTCUSDT", strategy.Long, 95, 110)
	signalAt(signals, t0.Add(4*time.Hour), "BTCUSDT", strategy.Long, 95, 110)

	limits := risk.DefaultLimits()
	limits.MaxDailyLossFraction = 0.02
	results := run(t, bars, signals, limits, testConfig("BTCUSDT"))

	require.Len(t, results.Trades, 1)
	assert.Equal(t, models.ExitReasonStopLoss, results.Trades[0].Reason)
	assert.InDelta(t, -24.0, results.Trades[0].PnL, 1e-9)
	assert.Equal(t, 1, results.LosingTrades)
	assert.Zero(t, results.WinRate)
	assert.InDelta(t, 0.024, results.MaxDrawdown, 1e-9)

	assert.Equal(t, 2, results.Signals)
	require.Len(t, results.Rejections, 1)
	for reason, n := range results.Rejections {
		assert.True(t, strings.HasPrefix(reason, risk.ReasonDailyLossLimit), reason)
		assert.Equal(t, 1, n)
	}
}

func TestRunBacktest_ClosesAtEndOfData(t *testing.T) {
	bars := fakeBars{
		"BTCUSDT": hourly("BTCUSDT", t0, 100, 100, 99, 98),
		"ETHUSDT": hourly("ETHUSDT", t0, 100, 100, 100),
	}
	signals := scripted{}
	signalAt(signals, t0.Add(time.Hour), "BTCUSDT", strategy.Short, 105, 90)

	results := run(t, bars, signals, risk.DefaultLimits(), testConfig("BTCUSDT", "ETHUSDT"))

	require.Len(t, results.Trades, 1)
	trade := results.Trades[0]
	assert.Equal(t, ExitReasonEndOfData, trade.Reason)
	assert.Equal(t, models.PositionSideSell, trade.Side)
	assert.InDelta(t, 8.0, trade.PnL, 1e-9)
	assert.Equal(t, t0.Add(3*time.Hour), trade.ExitTime)
}

func TestRunBacktest_Validation(t *testing.T) {
	engine := newEngine(fakeBars{}, scripted{}, risk.NewGate(risk.DefaultLimits()), trading.DefaultExitParams(), zerolog.Nop())

	cfg := testConfig("BTCUSDT")
	cfg.EndTime = cfg.StartTime
	_, err := engine.RunBacktest(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig("BTCUSDT")
	cfg.TimeFrame = "7m"
	_, err = engine.RunBacktest(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRunBacktest_Cancelled(t *testing.T) {
	engine := newEngine(fakeBars{"BTCUSDT": hourly("BTCUSDT", t0, 100, 100)}, scripted{},
		risk.NewGate(risk.DefaultLimits()), trading.DefaultExitParams(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.RunBacktest(ctx, testConfig("BTCUSDT"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDrawdownAndSharpe(t *testing.T) {
	curve := []EquityPoint{{Balance: 100}, {Balance: 110}, {Balance: 99}, {Balance: 120}}
	assert.InDelta(t, 0.1, maxDrawdown(curve, 100), 1e-9)
	assert.Greater(t, sharpeRatio(curve), 0.0)
	assert.Zero(t, sharpeRatio(curve[:2]))
}
