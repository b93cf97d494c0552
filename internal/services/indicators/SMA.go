package indicators

import "math"

// Defined reports whether a series value is past its warm-up period.
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Last returns the final value of a series, or NaN for an empty one.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// undefinedSeries allocates a series of n NaN values.
func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func validateInputs(prices []float64, period int) bool {
	return period > 0 && len(prices) >= period
}

// SMA returns the arithmetic mean of the trailing period values ending at each
// index >= period-1.
func SMA(prices []float64, period int) []float64 {
	if !validateInputs(prices, period) {
		return nil
	}

	sma := undefinedSeries(len(prices))
	sum := 0.0
	for i, price := range prices {
		sum += price
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			sma[i] = sum / float64(period)
		}
	}
	return sma
}

// StdDev returns the population standard deviation of each trailing window.
func StdDev(prices []float64, period int) []float64 {
	if !validateInputs(prices, period) {
		return nil
	}

	dev := undefinedSeries(len(prices))
	for i := period - 1; i < len(prices); i++ {
		window := prices[i-period+1 : i+1]

		mean := 0.0
		for _, price := range window {
			mean += price
		}
		mean /= float64(period)

		squareSum := 0.0
		for _, price := range window {
			diff := price - mean
			squareSum += diff * diff
		}
		dev[i] = math.Sqrt(squareSum / float64(period))
	}
	return dev
}
