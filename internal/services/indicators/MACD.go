package indicators

import (
	"time"

	"CryptoSignalBot/internal/models"
)

const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACDPoint is one bar's MACD reading.
type MACDPoint struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD returns the MACD line, signal line and histogram, all aligned by index
// with prices. The signal line is an EMA over the defined MACD values only and
// is written back at the indices those values came from.
func MACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) *MACDResult {
	if !validatePeriods(prices, fastPeriod, slowPeriod, signalPeriod) {
		return nil
	}

	fastEMA := EMA(prices, fastPeriod)
	slowEMA := EMA(prices, slowPeriod)

	macdLine := undefinedSeries(len(prices))
	definedAt := make([]int, 0, len(prices))
	compact := make([]float64, 0, len(prices))
	for i := range prices {
		if Defined(fastEMA[i]) && Defined(slowEMA[i]) {
			macdLine[i] = fastEMA[i] - slowEMA[i]
			definedAt = append(definedAt, i)
			compact = append(compact, macdLine[i])
		}
	}

	signalLine := undefinedSeries(len(prices))
	histogram := undefinedSeries(len(prices))
	compactSignal := EMA(compact, signalPeriod)
	for j, v := range compactSignal {
		if !Defined(v) {
			continue
		}
		i := definedAt[j]
		signalLine[i] = v
		histogram[i] = macdLine[i] - v
	}

	return &MACDResult{
		MACD:      macdLine,
		Signal:    signalLine,
		Histogram: histogram,
	}
}

// MACDByTime computes MACD over bar closes and keys every defined reading by the
// bar's open time, so callers look values up by timestamp rather than offset.
func MACDByTime(bars []models.Price, fastPeriod, slowPeriod, signalPeriod int) map[time.Time]MACDPoint {
	result := MACD(Closes(bars), fastPeriod, slowPeriod, signalPeriod)
	if result == nil {
		return nil
	}

	points := make(map[time.Time]MACDPoint, len(bars))
	for i, bar := range bars {
		if !Defined(result.Histogram[i]) {
			continue
		}
		points[bar.OpenTime] = MACDPoint{
			MACD:      result.MACD[i],
			Signal:    result.Signal[i],
			Histogram: result.Histogram[i],
		}
	}
	return points
}

func validatePeriods(prices []float64, fastPeriod, slowPeriod, signalPeriod int) bool {
	minLength := slowPeriod + signalPeriod - 1
	return len(prices) >= minLength &&
		fastPeriod > 0 &&
		slowPeriod > fastPeriod &&
		signalPeriod > 0
}

// Closes extracts close prices from bars.
func Closes(bars []models.Price) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}
