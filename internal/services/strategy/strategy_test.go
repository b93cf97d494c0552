package strategy

import (
	"strings"
	"testing"

	"CryptoSignalBot/internal/services/indicators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func neutralSnapshot() Snapshot {
	return Snapshot{
		Price:         100,
		RSI:           50,
		EMACross:      indicators.CrossSignal{CurrFast: 100, CurrSlow: 99, PrevFast: 100, PrevSlow: 99},
		UpperBand:     105,
		MiddleBand:    100,
		LowerBand:     95,
		BandWidth:     0.1,
		PrevHistogram: 0.2,
		Histogram:     0.3,
	}
}

func bullishCross() indicators.CrossSignal {
	return indicators.CrossSignal{Crossed: true, Direction: 1, PrevFast: 99, PrevSlow: 99.5, CurrFast: 100, CurrSlow: 99.6}
}

func bearishCross() indicators.CrossSignal {
	return indicators.CrossSignal{Crossed: true, Direction: -1, PrevFast: 100, PrevSlow: 99.5, CurrFast: 99, CurrSlow: 99.4}
}

func joined(lines []string) string {
	return strings.ToLower(strings.Join(lines, " | "))
}

func TestTrendStrategy(t *testing.T) {
	s := NewTrendStrategy(DefaultParams())

	tests := []struct {
		name  string
		cross indicators.CrossSignal
		rsi   float64
		want  Direction
	}{
		{"bullish inside gate", bullishCross(), 55, Long},
		{"bullish rsi too hot", bullishCross(), 70, NoTrade},
		{"bullish rsi too cold", bullishCross(), 45, NoTrade},
		{"bearish inside gate", bearishCross(), 40, Short},
		{"bearish rsi too cold", bearishCross(), 30, NoTrade},
		{"bearish rsi too hot", bearishCross(), 55, NoTrade},
		{"no cross", indicators.CrossSignal{}, 55, NoTrade},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := neutralSnapshot()
			snap.EMACross = tt.cross
			snap.RSI = tt.rsi
			got, rationale := s.Evaluate(snap)
			assert.Equal(t, tt.want, got)
			if got != NoTrade {
				assert.Contains(t, joined(rationale), "crossover")
			}
		})
	}
}

func TestMeanReversionStrategy(t *testing.T) {
	s := NewMeanReversionStrategy(DefaultParams())

	snap := neutralSnapshot()
	snap.Price, snap.RSI = 95, 30
	got, rationale := s.Evaluate(snap)
	assert.Equal(t, Long, got)
	assert.Contains(t, joined(rationale), "lower bollinger band")

	snap.RSI = 35
	got, _ = s.Evaluate(snap)
	assert.Equal(t, NoTrade, got)

	snap = neutralSnapshot()
	snap.Price, snap.RSI = 106, 70
	got, rationale = s.Evaluate(snap)
	assert.Equal(t, Short, got)
	assert.Contains(t, joined(rationale), "upper bollinger band")

	snap.Price = 104.9
	got, _ = s.Evaluate(snap)
	assert.Equal(t, NoTrade, got)
}

func TestMomentumStrategy(t *testing.T) {
	s := NewMomentumStrategy(DefaultParams())

	snap := neutralSnapshot()
	snap.PrevHistogram, snap.Histogram, snap.RSI = -0.1, 0.2, 55
	got, _ := s.Evaluate(snap)
	assert.Equal(t, Long, got)

	snap.RSI = 45
	got, rationale := s.Evaluate(snap)
	assert.Equal(t, NoTrade, got)
	assert.NotEmpty(t, rationale)

	snap.PrevHistogram, snap.Histogram, snap.RSI = 0.1, -0.2, 45
	got, _ = s.Evaluate(snap)
	assert.Equal(t, Short, got)

	snap.PrevHistogram, snap.Histogram = 0.1, 0.2
	got, _ = s.Evaluate(snap)
	assert.Equal(t, NoTrade, got)
}

func TestEngine_PriorityOrder(t *testing.T) {
	e := NewEngine(DefaultParams())

	// Every strategy would fire; trend wins.
	snap := neutralSnapshot()
	snap.EMACross = bullishCross()
	snap.RSI = 55
	snap.Price = 106
	snap.PrevHistogram, snap.Histogram = -0.1, 0.1
	sig := e.decide("BTCUSDT", snap)
	assert.Equal(t, Long, sig.Direction)
	assert.Contains(t, joined(sig.Rationale), "crossover")

	// Trend gated out, band touch fires as a short.
	snap.EMACross = bullishCross()
	snap.RSI = 72
	sig = e.decide("BTCUSDT", snap)
	assert.Equal(t, Short, sig.Direction)
	assert.Contains(t, joined(sig.Rationale), "overbought")

	// Only momentum remains.
	snap = neutralSnapshot()
	snap.PrevHistogram, snap.Histogram, snap.RSI = -0.1, 0.1, 60
	sig = e.decide("BTCUSDT", snap)
	assert.Equal(t, Long, sig.Direction)
	assert.Contains(t, joined(sig.Rationale), "macd")
}

func TestEngine_NoTradeDiagnostics(t *testing.T) {
	e := NewEngine(DefaultParams())
	sig := e.decide("ETHUSDT", neutralSnapshot())

	assert.Equal(t, NoTrade, sig.Direction)
	assert.False(t, sig.IsTrade())
	text := joined(sig.Rationale)
	assert.Contains(t, text, "rsi 50.00")
	assert.Contains(t, text, "bollinger spread 10.0000")
	assert.Zero(t, sig.StopLoss)
}

func TestEngine_LevelsLong(t *testing.T) {
	e := NewEngine(DefaultParams())
	sig := e.newSignal("BTCUSDT", Long, 100, []string{"test"})

	assert.InDelta(t, 95.0, sig.StopLoss, 1e-9)
	assert.InDelta(t, 110.0, sig.TakeProfit, 1e-9)
	assert.InDelta(t, 99.8, sig.EntryMin, 1e-9)
	assert.InDelta(t, 100.2, sig.EntryMax, 1e-9)
	assert.InDelta(t, 100.0, sig.EntryReference(), 1e-9)
	assert.Equal(t, 5.0, sig.MaxRiskPercent)
}

func TestEngine_LevelsShort(t *testing.T) {
	e := NewEngine(DefaultParams())
	sig := e.newSignal("BTCUSDT", Short, 200, []string{"test"})

	assert.InDelta(t, 210.0, sig.StopLoss, 1e-9)
	assert.InDelta(t, 180.0, sig.TakeProfit, 1e-9)
	assert.InDelta(t, 199.6, sig.EntryMin, 1e-9)
	assert.InDelta(t, 200.4, sig.EntryMax, 1e-9)
}

func TestGenerateSignal_InsufficientData(t *testing.T) {
	e := NewEngine(DefaultParams())
	sig := e.GenerateSignal("BTCUSDT", barsFromCloses(trendThenDrop(49, 0, 100, 0.5, 0)))

	assert.Equal(t, NoTrade, sig.Direction)
	require.Len(t, sig.Rationale, 1)
	assert.Contains(t, sig.Rationale[0], "insufficient data")
}

func TestGenerateSignal_GoldenCross(t *testing.T) {
	p := DefaultParams()
	e := NewEngine(p)

	found := 0
	for _, w := range windows(noisyWave(1500, 11), 100, p) {
		if !w.cross.Crossed || w.cross.Direction != 1 {
			continue
		}
		if w.rsi <= p.TrendLongRSIMin || w.rsi >= p.TrendLongRSIMax {
			continue
		}
		found++

		sig := e.GenerateSignal("BTCUSDT", barsFromCloses(w.closes))
		price := w.closes[len(w.closes)-1]
		require.Equal(t, Long, sig.Direction)
		assert.Less(t, sig.StopLoss, price)
		assert.Greater(t, sig.TakeProfit, price)
		assert.Contains(t, joined(sig.Rationale), "crossover")
	}
	require.NotZero(t, found, "series produced no gated golden cross")
}

func TestGenerateSignal_OversoldBounce(t *testing.T) {
	e := NewEngine(DefaultParams())
	closes := trendThenDrop(100, 4, 100, 0.5, -4)
	sig := e.GenerateSignal("BTCUSDT", barsFromCloses(closes))

	require.Equal(t, Long, sig.Direction, sig.Rationale)
	assert.Contains(t, joined(sig.Rationale), "oversold")
	assert.InDelta(t, closes[99]*0.95, sig.StopLoss, 1e-9)
}

func TestGenerateSignal_OverboughtRejection(t *testing.T) {
	e := NewEngine(DefaultParams())
	closes := trendThenDrop(100, 4, 200, -0.5, 4)
	sig := e.GenerateSignal("BTCUSDT", barsFromCloses(closes))

	require.Equal(t, Short, sig.Direction, sig.Rationale)
	assert.Contains(t, joined(sig.Rationale), "overbought")
	assert.Greater(t, sig.StopLoss, closes[99])
	assert.Less(t, sig.TakeProfit, closes[99])
}

func TestSignal_WithAdvisoryCopies(t *testing.T) {
	sig := Signal{Symbol: "BTCUSDT", Direction: Long, Rationale: []string{"a"}}
	annotated := sig.WithAdvisory(80, "looks fine")

	require.NotNil(t, annotated.AdvisoryConfidence)
	assert.Equal(t, 80.0, *annotated.AdvisoryConfidence)
	assert.Nil(t, sig.AdvisoryConfidence)

	annotated.Rationale[0] = "changed"
	assert.Equal(t, "a", sig.Rationale[0])

	rec := annotated.Record()
	assert.Equal(t, "LONG", rec.Direction)
	assert.Equal(t, []string{"changed"}, rec.Rationale)
}
