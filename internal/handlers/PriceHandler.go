package handlers

import (
	"context"
	"fmt"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/price"

	"github.com/rs/zerolog"
)

type BarFetcher interface {
	FetchPrices(ctx context.Context, timeframe string, days int) ([]models.Price, error)
}

// PriceHandler backfills stored bars for replay.
type PriceHandler struct {
	fetcher BarFetcher
	store   price.BarStore
	logger  zerolog.Logger
}

func NewPriceHandler(fetcher BarFetcher, store price.BarStore, logger zerolog.Logger) *PriceHandler {
	return &PriceHandler{
		fetcher: fetcher,
		store:   store,
		logger:  logger.With().Str("component", "backfill").Logger(),
	}
}

// Backfill fetches the last days of every timeframe and upserts them. It
// returns the number of bars written.
func (h *PriceHandler) Backfill(ctx context.Context, timeframes []string, days int) (int, error) {
	total := 0
	for _, timeframe := range timeframes {
		h.logger.Info().Str("timeframe", timeframe).Int("days", days).Msg("fetching historical data")

		prices, err := h.fetcher.FetchPrices(ctx, timeframe, days)
		if err != nil {
			return total, fmt.Errorf("failed to fetch %s history: %w", timeframe, err)
		}
		if err := h.store.Upsert(ctx, prices); err != nil {
			return total, fmt.Errorf("failed to save %s history: %w", timeframe, err)
		}
		total += len(prices)
		h.logger.Info().Str("timeframe", timeframe).Int("bars", len(prices)).Msg("historical data saved")
	}
	return total, nil
}
