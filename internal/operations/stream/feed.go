package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"CryptoSignalBot/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const DefaultFuturesStreamURL = "wss://fstream.binance.com/stream"

type envelope struct {
	Stream string          `json:"stream"`
	Data   markPriceUpdate `json:"data"`
}

type markPriceUpdate struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	MarkPrice string `json:"p"`
}

// Feed consumes the combined markPrice stream and reconnects with backoff.
type Feed struct {
	baseURL string
	symbols []string
	board   *PriceBoard
	log     zerolog.Logger

	readTimeout  time.Duration
	pingInterval time.Duration
	minBackoff   time.Duration
	maxBackoff   time.Duration
}

func NewFeed(baseURL string, symbols []string, board *PriceBoard, logger zerolog.Logger) *Feed {
	if baseURL == "" {
		baseURL = DefaultFuturesStreamURL
	}
	return &Feed{
		baseURL:      baseURL,
		symbols:      symbols,
		board:        board,
		log:          logger.With().Str("component", "stream").Logger(),
		readTimeout:  30 * time.Second,
		pingInterval: 15 * time.Second,
		minBackoff:   time.Second,
		maxBackoff:   30 * time.Second,
	}
}

// URL returns the combined stream URL for the configured symbols.
func (f *Feed) URL() string {
	streams := make([]string, len(f.symbols))
	for i, sym := range f.symbols {
		streams[i] = strings.ToLower(sym) + "@markPrice@1s"
	}
	return fmt.Sprintf("%s?streams=%s", f.baseURL, strings.Join(streams, "/"))
}

// Run blocks until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		return fmt.Errorf("mark price feed requires at least one symbol")
	}

	url := f.URL()
	backoff := f.minBackoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := f.consume(ctx, url)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.log.Warn().Err(err).Dur("backoff", backoff).Msg("mark price feed disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(f.maxBackoff), float64(backoff)*1.8))
	}
}

func (f *Feed) consume(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Strs("symbols", f.symbols).Msg("connected mark price feed")

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	})

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(f.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("mark price ping failed")
					return
				}
			case <-connCtx.Done():
				// unblocks ReadMessage
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(f.readTimeout))

		quote, err := parseMarkPrice(message)
		if err != nil {
			f.log.Warn().Err(err).Msg("failed to decode mark price message")
			continue
		}
		f.board.Update(quote)
		metrics.MarkPrice.WithLabelValues(quote.Symbol).Set(quote.Price)
	}
}

func parseMarkPrice(message []byte) (Quote, error) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return Quote{}, err
	}
	symbol := env.Data.Symbol
	if symbol == "" {
		symbol = strings.ToUpper(strings.SplitN(env.Stream, "@", 2)[0])
	}
	if symbol == "" {
		return Quote{}, fmt.Errorf("message without symbol")
	}
	price, err := strconv.ParseFloat(env.Data.MarkPrice, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("invalid mark price: %w", err)
	}
	return Quote{Symbol: symbol, Price: price, EventTime: time.UnixMilli(env.Data.EventTime)}, nil
}
