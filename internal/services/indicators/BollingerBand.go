package indicators

const (
	DefaultBBandsPeriod     = 20
	DefaultBBandsMultiplier = 2.0
)

type BBandsResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
	Width  []float64 // (upper - lower) / middle
}

// BollingerBands returns middle = SMA(period) and upper/lower at
// multiplier standard deviations around it.
func BollingerBands(prices []float64, period int, multiplier float64) *BBandsResult {
	middle := SMA(prices, period)
	if middle == nil {
		return nil
	}
	dev := StdDev(prices, period)

	upper := undefinedSeries(len(prices))
	lower := undefinedSeries(len(prices))
	width := undefinedSeries(len(prices))

	for i := period - 1; i < len(prices); i++ {
		upper[i] = middle[i] + multiplier*dev[i]
		lower[i] = middle[i] - multiplier*dev[i]
		if middle[i] != 0 {
			width[i] = (upper[i] - lower[i]) / middle[i]
		}
	}

	return &BBandsResult{
		Upper:  upper,
		Middle: middle,
		Lower:  lower,
		Width:  width,
	}
}
