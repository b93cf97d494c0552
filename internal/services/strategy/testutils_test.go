package strategy

import (
	"math"
	"math/rand"
	"time"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/services/indicators"
)

var barStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func barsFromCloses(closes []float64) []models.Price {
	bars := make([]models.Price, len(closes))
	for i, c := range closes {
		open := barStart.Add(time.Duration(i) * time.Hour)
		bars[i] = models.Price{
			Symbol:    "BTCUSDT",
			TimeFrame: models.PriceTimeFrame1h,
			OpenTime:  open,
			CloseTime: open.Add(time.Hour - time.Millisecond),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
		}
	}
	return bars
}

// trendThenDrop trends by step for n-drops bars and then moves shock per bar.
func trendThenDrop(n, drops int, start, step, shock float64) []float64 {
	closes := make([]float64, 0, n)
	price := start
	for i := 0; i < n-drops; i++ {
		closes = append(closes, price)
		price += step
	}
	price -= step
	for i := 0; i < drops; i++ {
		price += shock
		closes = append(closes, price)
	}
	return closes
}

// noisyWave is a deterministic sinusoid with seeded noise.
func noisyWave(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 1000 + 6*math.Sin(float64(i)*2*math.Pi/90) + rng.Float64()*6 - 3
	}
	return closes
}

type window struct {
	closes []float64
	rsi    float64
	cross  indicators.CrossSignal
}

// windows slides a fixed-size window over closes and reports the readings at
// the last bar of each window.
func windows(closes []float64, size int, p Params) []window {
	var out []window
	for end := size; end <= len(closes); end++ {
		w := closes[end-size : end]
		rsi := indicators.RSI(w, p.RSIPeriod)
		out = append(out, window{
			closes: w,
			rsi:    indicators.Last(rsi),
			cross:  indicators.Crossover(indicators.EMA(w, p.FastEMA), indicators.EMA(w, p.SlowEMA)),
		})
	}
	return out
}
