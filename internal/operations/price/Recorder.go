package price

import (
	"context"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"

	"github.com/rs/zerolog"
)

// BarStore persists bars idempotently.
type BarStore interface {
	Upsert(ctx context.Context, prices []models.Price) error
}

// PriceRecorder wraps a MarketData and stores every history it returns, so
// the bars a cycle saw are available for replay.
type PriceRecorder struct {
	market provider.MarketData
	store  BarStore
	logger zerolog.Logger
}

func NewPriceRecorder(market provider.MarketData, store BarStore, logger zerolog.Logger) *PriceRecorder {
	return &PriceRecorder{
		market: market,
		store:  store,
		logger: logger.With().Str("component", "recorder").Logger(),
	}
}

func (r *PriceRecorder) GetPriceHistory(ctx context.Context, symbol, interval string, limit int) ([]models.Price, error) {
	bars, err := r.market.GetPriceHistory(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	// recording never fails the read
	if err := r.store.Upsert(ctx, bars); err != nil {
		r.logger.Warn().Err(err).Str("symbol", symbol).Str("timeframe", interval).Msg("error saving prices")
	}
	return bars, nil
}

func (r *PriceRecorder) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return r.market.GetCurrentPrice(ctx, symbol)
}
