package price

import (
	"context"
	"fmt"
	"time"

	"CryptoSignalBot/internal/models"

	"github.com/rs/zerolog"
)

// maxKlines is Binance's per-request bar limit
const maxKlines = 500

// KlineSource returns bars in a millisecond time range.
type KlineSource interface {
	GetKlines(ctx context.Context, symbol, interval string, startTime, endTime int64, limit int) ([]models.Price, error)
}

type PriceFetcher struct {
	source  KlineSource
	symbols []string
	pause   time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

func NewPriceFetcher(source KlineSource, symbols []string, logger zerolog.Logger) *PriceFetcher {
	return &PriceFetcher{
		source:  source,
		symbols: symbols,
		pause:   100 * time.Millisecond,
		logger:  logger.With().Str("component", "fetcher").Logger(),
		now:     time.Now,
	}
}

// FetchPrices walks the last days of history in windows of maxKlines bars.
// A symbol whose request fails is logged and skipped for that window.
func (f *PriceFetcher) FetchPrices(ctx context.Context, timeframe string, days int) ([]models.Price, error) {
	interval, ok := IntervalDuration(timeframe)
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	endTime := f.now()
	startTime := endTime.AddDate(0, 0, -days)
	chunk := interval * maxKlines

	seen := make(map[string]map[int64]bool, len(f.symbols))
	var allPrices []models.Price

	for currentStart := startTime; currentStart.Before(endTime); currentStart = currentStart.Add(chunk) {
		currentEnd := currentStart.Add(chunk)
		if currentEnd.After(endTime) {
			currentEnd = endTime
		}

		for _, symbol := range f.symbols {
			bars, err := f.source.GetKlines(ctx, symbol, timeframe, currentStart.UnixMilli(), currentEnd.UnixMilli(), maxKlines)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				f.logger.Warn().Err(err).Str("symbol", symbol).Str("timeframe", timeframe).Msg("error fetching prices")
				continue
			}

			if seen[symbol] == nil {
				seen[symbol] = make(map[int64]bool)
			}
			for _, bar := range bars {
				key := bar.OpenTime.UnixMilli()
				if seen[symbol][key] {
					continue
				}
				seen[symbol][key] = true
				allPrices = append(allPrices, bar)
			}

			f.logger.Debug().
				Str("symbol", symbol).
				Str("timeframe", timeframe).
				Int("bars", len(bars)).
				Time("from", currentStart).
				Time("to", currentEnd).
				Msg("fetched candles")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.pause):
		}
	}

	return allPrices, nil
}

// IntervalDuration maps a Binance interval string to its length.
func IntervalDuration(timeframe string) (time.Duration, bool) {
	intervals := map[string]time.Duration{
		"1m":                     time.Minute,
		models.PriceTimeFrame5m:  5 * time.Minute,
		models.PriceTimeFrame15m: 15 * time.Minute,
		"30m":                    30 * time.Minute,
		models.PriceTimeFrame1h:  time.Hour,
		models.PriceTimeFrame4h:  4 * time.Hour,
		"1d":                     24 * time.Hour,
	}
	d, ok := intervals[timeframe]
	return d, ok
}
