package binance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"
)

// Binance error codes worth retrying
const (
	codeUnknown         = -1000
	codeDisconnected    = -1001
	codeTooManyRequests = -1003
	codeTimeout         = -1007
	codeServerBusy      = -1008
)

type BinanceClient struct {
	client      *futures.Client
	rateLimiter *rate.Limiter
	httpClient  *http.Client
	retry       provider.RetryPolicy
}

// Options tunes the client. Zero values use the defaults.
type Options struct {
	Testnet      bool
	BaseURL      string
	RequestRate  float64
	RequestBurst int
	Retry        *provider.RetryPolicy
}

func NewBinanceClient(apiKey, secretKey string, opts Options) *BinanceClient {
	// Create custom HTTP client with timeouts
	httpClient := &http.Client{
		Timeout: time.Second * 10,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	futures.UseTestnet = opts.Testnet
	futuresClient := futures.NewClient(apiKey, secretKey)
	futuresClient.HTTPClient = httpClient
	if opts.BaseURL != "" {
		futuresClient.BaseURL = opts.BaseURL
	}

	if opts.RequestRate <= 0 {
		opts.RequestRate = 10
	}
	if opts.RequestBurst <= 0 {
		opts.RequestBurst = 20
	}
	policy := provider.DefaultRetryPolicy
	if opts.Retry != nil {
		policy = *opts.Retry
	}

	return &BinanceClient{
		client:      futuresClient,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RequestRate), opts.RequestBurst),
		httpClient:  httpClient,
		retry:       policy,
	}
}

// classify tags a go-binance error with its provider kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return provider.Wrap(provider.KindPermanent, op, err)
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		// 0 is an HTTP error whose body was not JSON
		case 0, codeUnknown, codeDisconnected, codeTooManyRequests, codeTimeout, codeServerBusy:
			return provider.Wrap(provider.KindTransient, op, err)
		default:
			return provider.Wrap(provider.KindPermanent, op, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return provider.Wrap(provider.KindTransient, op, err)
	}
	return provider.Wrap(provider.KindPermanent, op, err)
}

// read runs a rate-limited, retried read call.
func read[T any](ctx context.Context, c *BinanceClient, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	return provider.Retry(ctx, c.retry, func(ctx context.Context) (T, error) {
		var zero T
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return zero, provider.Wrap(provider.KindPermanent, op, err)
		}
		v, err := fn(ctx)
		if err != nil {
			return zero, classify(op, err)
		}
		return v, nil
	})
}

// GetKlines fetches bars in [startTime, endTime] (milliseconds).
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, startTime, endTime int64, limit int) ([]models.Price, error) {
	klines, err := read(ctx, c, "klines", func(ctx context.Context) ([]*futures.Kline, error) {
		svc := c.client.NewKlinesService().Symbol(symbol).Interval(interval)
		if startTime > 0 {
			svc = svc.StartTime(startTime)
		}
		if endTime > 0 {
			svc = svc.EndTime(endTime)
		}
		if limit > 0 {
			svc = svc.Limit(limit)
		}
		return svc.Do(ctx)
	})
	if err != nil {
		return nil, err
	}
	return convertKlines(symbol, interval, klines)
}

// GetPriceHistory returns the most recent limit bars, oldest first.
func (c *BinanceClient) GetPriceHistory(ctx context.Context, symbol, interval string, limit int) ([]models.Price, error) {
	return c.GetKlines(ctx, symbol, interval, 0, 0, limit)
}

// GetCurrentPrice returns the last traded price.
func (c *BinanceClient) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := read(ctx, c, "ticker price", func(ctx context.Context) ([]*futures.SymbolPrice, error) {
		return c.client.NewListPricesService().Symbol(symbol).Do(ctx)
	})
	if err != nil {
		return 0, err
	}
	for _, p := range prices {
		if p.Symbol == symbol {
			return parseFloat("price", p.Price)
		}
	}
	return 0, provider.Wrap(provider.KindPermanent, "ticker price", fmt.Errorf("no price for %s", symbol))
}

// GetAccountEquity reads available balance and unrealized P&L.
func (c *BinanceClient) GetAccountEquity(ctx context.Context) (provider.Equity, error) {
	account, err := read(ctx, c, "account", func(ctx context.Context) (*futures.Account, error) {
		return c.client.NewGetAccountService().Do(ctx)
	})
	if err != nil {
		return provider.Equity{}, err
	}
	available, err := parseFloat("available balance", account.AvailableBalance)
	if err != nil {
		return provider.Equity{}, err
	}
	unrealized, err := parseFloat("unrealized profit", account.TotalUnrealizedProfit)
	if err != nil {
		return provider.Equity{}, err
	}
	return provider.Equity{Available: available, Unrealized: unrealized}, nil
}

func convertKlines(symbol, interval string, klines []*futures.Kline) ([]models.Price, error) {
	prices := make([]models.Price, 0, len(klines))
	for _, k := range klines {
		price := models.Price{
			Symbol:     symbol,
			TimeFrame:  interval,
			OpenTime:   time.UnixMilli(k.OpenTime),
			CloseTime:  time.UnixMilli(k.CloseTime),
			TradeCount: k.TradeNum,
		}
		fields := []struct {
			name string
			raw  string
			dst  *float64
		}{
			{"open", k.Open, &price.Open},
			{"high", k.High, &price.High},
			{"low", k.Low, &price.Low},
			{"close", k.Close, &price.Close},
			{"volume", k.Volume, &price.Volume},
		}
		for _, f := range fields {
			v, err := parseFloat(f.name, f.raw)
			if err != nil {
				return nil, err
			}
			*f.dst = v
		}
		prices = append(prices, price)
	}
	return prices, nil
}

func parseFloat(field, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, provider.Wrap(provider.KindPermanent, "parse "+field, err)
	}
	return f, nil
}
