package indicators

import "math"

// CrossSignal represents EMA crossover status
type CrossSignal struct {
	Crossed   bool    // Whether cross occurred
	Direction int     // 1 (bullish), -1 (bearish)
	Strength  float64 // Relative distance between the lines after the cross
	PrevFast  float64
	PrevSlow  float64
	CurrFast  float64
	CurrSlow  float64
}

// EMA computes the exponential moving average for the entire price series.
// The value at period-1 is seeded with the SMA of the first period prices;
// later values use k = 2/(period+1). Returns nil when len(prices) < period.
func EMA(prices []float64, period int) []float64 {
	if !validateInputs(prices, period) {
		return nil
	}

	ema := undefinedSeries(len(prices))
	multiplier := getMultiplier(period)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < len(prices); i++ {
		ema[i] = calculatePoint(prices[i], ema[i-1], multiplier)
	}

	return ema
}

// Crossover detects a crossover between the last two points of two aligned
// series. Undefined values never produce a cross.
func Crossover(fast, slow []float64) CrossSignal {
	if len(fast) < 2 || len(slow) < 2 {
		return CrossSignal{}
	}

	sig := CrossSignal{
		CurrFast: fast[len(fast)-1],
		PrevFast: fast[len(fast)-2],
		CurrSlow: slow[len(slow)-1],
		PrevSlow: slow[len(slow)-2],
	}
	for _, v := range []float64{sig.CurrFast, sig.PrevFast, sig.CurrSlow, sig.PrevSlow} {
		if !Defined(v) {
			return sig
		}
	}

	bullishCross := sig.PrevFast <= sig.PrevSlow && sig.CurrFast > sig.CurrSlow
	bearishCross := sig.PrevFast >= sig.PrevSlow && sig.CurrFast < sig.CurrSlow

	switch {
	case bullishCross:
		sig.Direction = 1
	case bearishCross:
		sig.Direction = -1
	default:
		return sig
	}

	sig.Crossed = true
	if sig.CurrSlow != 0 {
		sig.Strength = math.Abs((sig.CurrFast - sig.CurrSlow) / sig.CurrSlow)
	}
	return sig
}

func getMultiplier(period int) float64 {
	return 2.0 / float64(period+1)
}

func calculatePoint(price, prevEMA, multiplier float64) float64 {
	return price*multiplier + prevEMA*(1-multiplier)
}
