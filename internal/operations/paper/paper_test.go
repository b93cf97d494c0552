package paper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPrices map[string]float64

func (s staticPrices) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	p, ok := s[symbol]
	if !ok {
		return 0, errors.New("no price")
	}
	return p, nil
}

type fakePositions struct {
	open     []models.Position
	realized float64
}

func (f fakePositions) FindOpenPositions(ctx context.Context) ([]models.Position, error) {
	return f.open, nil
}

func (f fakePositions) GetTotalPnL(ctx context.Context, start, end time.Time) (float64, error) {
	return f.realized, nil
}

func TestExecutor_MarketFill(t *testing.T) {
	exec := NewExecutor(staticPrices{"BTCUSDT": 50000})

	a, err := exec.PlaceOrder(context.Background(), "BTCUSDT", "BUY", 0.001, nil)
	require.NoError(t, err)
	assert.True(t, a.Simulated)
	assert.True(t, strings.HasPrefix(a.OrderID, "paper-"))
	assert.InDelta(t, 50000.0, a.Price, 1e-9)
	assert.Equal(t, "FILLED", a.Status)

	b, err := exec.PlaceOrder(context.Background(), "BTCUSDT", "BUY", 0.001, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.OrderID, b.OrderID)

	limit := 49000.0
	c, err := exec.PlaceOrder(context.Background(), "BTCUSDT", "SELL", 0.001, &limit)
	require.NoError(t, err)
	assert.InDelta(t, 49000.0, c.Price, 1e-9)

	closing, err := exec.PlaceCloseOrder(context.Background(), "BTCUSDT", "SELL", 0.001)
	require.NoError(t, err)
	assert.InDelta(t, 50000.0, closing.Price, 1e-9)
	assert.Equal(t, "SELL", closing.Side)
}

func TestExecutor_Errors(t *testing.T) {
	exec := NewExecutor(staticPrices{})

	_, err := exec.PlaceOrder(context.Background(), "BTCUSDT", "BUY", 0, nil)
	assert.Equal(t, provider.KindExecution, provider.KindOf(err))

	_, err = exec.PlaceOrder(context.Background(), "BTCUSDT", "BUY", 1, nil)
	assert.Equal(t, provider.KindExecution, provider.KindOf(err))

	conf, err := exec.PlaceProtectiveOrder(context.Background(), "BTCUSDT", "SELL", 1, 47500, provider.ProtectiveStopLoss)
	require.NoError(t, err)
	assert.Equal(t, "NEW", conf.Status)
	assert.InDelta(t, 47500.0, conf.Price, 1e-9)

	assert.NoError(t, exec.CancelOrder(context.Background(), "BTCUSDT", conf.OrderID))
}

func TestAccount_Equity(t *testing.T) {
	positions := fakePositions{
		realized: -5,
		open: []models.Position{
			{Symbol: "BTCUSDT", Side: models.PositionSideBuy, EntryPrice: 100, Quantity: 2, Status: models.PositionStatusOpen},
			{Symbol: "ETHUSDT", Side: models.PositionSideSell, EntryPrice: 50, Quantity: 1, Status: models.PositionStatusOpen},
		},
	}
	account := NewAccount(100, positions, staticPrices{"BTCUSDT": 103, "ETHUSDT": 52})

	equity, err := account.GetAccountEquity(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 95.0, equity.Available, 1e-9)
	assert.InDelta(t, 4.0, equity.Unrealized, 1e-9)
	assert.InDelta(t, 99.0, equity.Total(), 1e-9)
}
