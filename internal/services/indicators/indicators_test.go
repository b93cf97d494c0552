package indicators

import (
	"math"
	"testing"
	"time"

	"CryptoSignalBot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func zigzag(n int) []float64 {
	out := make([]float64, n)
	price := 100.0
	for i := range out {
		switch i % 4 {
		case 0:
			price += 3
		case 1:
			price -= 1.5
		case 2:
			price += 0.5
		default:
			price -= 2.25
		}
		out[i] = price
	}
	return out
}

func TestSMA(t *testing.T) {
	sma := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, sma, 5)
	assert.False(t, Defined(sma[0]))
	assert.False(t, Defined(sma[1]))
	assert.InDelta(t, 2.0, sma[2], 1e-12)
	assert.InDelta(t, 3.0, sma[3], 1e-12)
	assert.InDelta(t, 4.0, sma[4], 1e-12)

	assert.Nil(t, SMA([]float64{1, 2}, 3))
	assert.Nil(t, SMA([]float64{1, 2}, 0))
}

func TestEMA_SeedEqualsSMA(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14}
	ema := EMA(prices, len(prices))
	require.Len(t, ema, len(prices))

	defined := 0
	for _, v := range ema {
		if Defined(v) {
			defined++
		}
	}
	assert.Equal(t, 1, defined)
	assert.InDelta(t, SMA(prices, len(prices))[4], ema[4], 1e-12)
}

func TestEMA_Smoothing(t *testing.T) {
	prices := []float64{2, 4, 6, 8}
	ema := EMA(prices, 3)
	k := 2.0 / 4.0

	assert.InDelta(t, 4.0, ema[2], 1e-12)
	assert.InDelta(t, 8*k+4*(1-k), ema[3], 1e-12)
	assert.Nil(t, EMA(prices, 5))
}

func TestStdDev_Population(t *testing.T) {
	dev := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	assert.InDelta(t, 2.0, dev[7], 1e-12)
}

func TestBollingerBands_Ordering(t *testing.T) {
	prices := zigzag(80)
	bands := BollingerBands(prices, DefaultBBandsPeriod, DefaultBBandsMultiplier)
	require.NotNil(t, bands)

	for i := DefaultBBandsPeriod - 1; i < len(prices); i++ {
		assert.Greater(t, bands.Upper[i], bands.Middle[i], "index %d", i)
		assert.Greater(t, bands.Middle[i], bands.Lower[i], "index %d", i)
	}
}

func TestBollingerBands_ConstantWindowCollapses(t *testing.T) {
	prices := make([]float64, 25)
	for i := range prices {
		prices[i] = 42
	}
	bands := BollingerBands(prices, 20, 2)
	last := len(prices) - 1
	assert.Equal(t, bands.Middle[last], bands.Upper[last])
	assert.Equal(t, bands.Middle[last], bands.Lower[last])
	assert.Nil(t, BollingerBands(prices[:10], 20, 2))
}

func TestRSI_StrictlyIncreasingSaturates(t *testing.T) {
	rsi := RSI(ramp(60, 100, 1), DefaultRSIPeriod)
	require.Len(t, rsi, 60)

	for i, v := range rsi {
		if i < DefaultRSIPeriod {
			assert.False(t, Defined(v))
			continue
		}
		assert.Equal(t, 100.0, v)
	}
}

func TestRSI_Bounded(t *testing.T) {
	for _, prices := range [][]float64{zigzag(120), ramp(50, 200, -1.5)} {
		for _, v := range RSI(prices, 14) {
			if !Defined(v) {
				continue
			}
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}
	assert.Nil(t, RSI(ramp(14, 1, 1), 14))
}

func TestRSI_WilderSmoothing(t *testing.T) {
	prices := []float64{10, 11, 10, 12, 11}
	rsi := RSI(prices, 2)

	// seed: gains (1, 0), losses (0, 1) -> avg 0.5 / 0.5
	assert.InDelta(t, 50.0, rsi[2], 1e-9)
	// +2: avgGain (0.5+2)/2 = 1.25, avgLoss 0.25
	assert.InDelta(t, 100-100/(1+1.25/0.25), rsi[3], 1e-9)
	// -1: avgGain 0.625, avgLoss 0.625
	assert.InDelta(t, 50.0, rsi[4], 1e-9)
}

func TestMACD_Alignment(t *testing.T) {
	prices := zigzag(60)
	result := MACD(prices, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	require.NotNil(t, result)

	firstMACD := DefaultMACDSlow - 1
	firstSignal := firstMACD + DefaultMACDSignal - 1
	for i := range prices {
		assert.Equal(t, i >= firstMACD, Defined(result.MACD[i]), "macd index %d", i)
		assert.Equal(t, i >= firstSignal, Defined(result.Signal[i]), "signal index %d", i)
		if Defined(result.Histogram[i]) {
			assert.InDelta(t, result.MACD[i]-result.Signal[i], result.Histogram[i], 1e-12)
		}
	}

	fast := EMA(prices, DefaultMACDFast)
	slow := EMA(prices, DefaultMACDSlow)
	assert.InDelta(t, fast[59]-slow[59], result.MACD[59], 1e-12)

	assert.Nil(t, MACD(prices[:30], 12, 26, 9))
}

func TestMACDByTime_KeysByOpenTime(t *testing.T) {
	prices := zigzag(60)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Price, len(prices))
	for i, p := range prices {
		bars[i] = models.Price{OpenTime: start.Add(time.Duration(i) * time.Hour), Close: p}
	}

	byTime := MACDByTime(bars, 12, 26, 9)
	positional := MACD(prices, 12, 26, 9)

	assert.Len(t, byTime, 60-(26+9-2))
	point, ok := byTime[bars[59].OpenTime]
	require.True(t, ok)
	assert.Equal(t, positional.Histogram[59], point.Histogram)
	_, ok = byTime[bars[10].OpenTime]
	assert.False(t, ok)
}

func TestCrossover(t *testing.T) {
	nan := math.NaN()

	bull := Crossover([]float64{1, 3}, []float64{2, 2})
	assert.True(t, bull.Crossed)
	assert.Equal(t, 1, bull.Direction)

	bear := Crossover([]float64{3, 1}, []float64{2, 2})
	assert.True(t, bear.Crossed)
	assert.Equal(t, -1, bear.Direction)

	assert.False(t, Crossover([]float64{3, 4}, []float64{2, 2}).Crossed)
	assert.False(t, Crossover([]float64{1, 3}, []float64{nan, 2}).Crossed)
	assert.False(t, Crossover([]float64{1}, []float64{2}).Crossed)
}

func TestIndicators_Idempotent(t *testing.T) {
	prices := zigzag(100)
	snapshot := append([]float64(nil), prices...)

	sameBits := func(a, b []float64) {
		require.Equal(t, len(a), len(b))
		for i := range a {
			assert.Equal(t, math.Float64bits(a[i]), math.Float64bits(b[i]), "index %d", i)
		}
	}

	sameBits(EMA(prices, 20), EMA(prices, 20))
	sameBits(RSI(prices, 14), RSI(prices, 14))
	sameBits(SMA(prices, 20), SMA(prices, 20))
	sameBits(StdDev(prices, 20), StdDev(prices, 20))
	sameBits(BollingerBands(prices, 20, 2).Upper, BollingerBands(prices, 20, 2).Upper)
	sameBits(MACD(prices, 12, 26, 9).Histogram, MACD(prices, 12, 26, 9).Histogram)
	sameBits(snapshot, prices)
}
