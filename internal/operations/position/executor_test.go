package position

import (
	"context"
	"errors"
	"io"
	"testing"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"
	"CryptoSignalBot/internal/services/risk"
	"CryptoSignalBot/internal/services/strategy"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	simulated     bool
	entryErr      error
	protectiveErr error
	entries       int
	protective    []provider.ProtectiveKind
}

func (f *fakeExecutor) PlaceOrder(ctx context.Context, symbol, side string, quantity float64, price *float64) (provider.Confirmation, error) {
	f.entries++
	if f.entryErr != nil {
		return provider.Confirmation{}, f.entryErr
	}
	return provider.Confirmation{OrderID: "e-1", Symbol: symbol, Side: side, Quantity: quantity, Price: 50010, Status: "FILLED", Simulated: f.simulated}, nil
}

func (f *fakeExecutor) PlaceCloseOrder(ctx context.Context, symbol, side string, quantity float64) (provider.Confirmation, error) {
	return provider.Confirmation{}, errors.New("closes are not placed on entry")
}

func (f *fakeExecutor) CancelOrder(ctx context.Context, symbol, orderID string) error {
	return nil
}

func (f *fakeExecutor) PlaceProtectiveOrder(ctx context.Context, symbol, side string, quantity, trigger float64, kind provider.ProtectiveKind) (provider.Confirmation, error) {
	f.protective = append(f.protective, kind)
	if f.protectiveErr != nil {
		return provider.Confirmation{}, f.protectiveErr
	}
	return provider.Confirmation{OrderID: "p-" + string(kind), Side: side, Quantity: quantity, Price: trigger, Status: "NEW"}, nil
}

type fakeStore struct {
	err       error
	findErr   error
	positions []models.Position
}

func (f *fakeStore) FindOpenPositionsBySymbol(ctx context.Context, symbol string) ([]models.Position, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []models.Position
	for _, p := range f.positions {
		if p.Symbol == symbol && p.IsOpen() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, p *models.Position) error {
	if f.err != nil {
		return f.err
	}
	p.ID = uint(len(f.positions) + 1)
	f.positions = append(f.positions, *p)
	return nil
}

type fakeOrders struct{ orders []models.Order }

func (f *fakeOrders) Create(ctx context.Context, o *models.Order) error {
	f.orders = append(f.orders, *o)
	return nil
}

func shortSignal() strategy.Signal {
	return strategy.Signal{
		Symbol: "BTCUSDT", Direction: strategy.Short,
		EntryMin: 49900, EntryMax: 50100, StopLoss: 52500, TakeProfit: 45000, MaxRiskPercent: 5,
		AdvisoryComment: "ok",
	}
}

var accepted = risk.Decision{Valid: true, PositionSize: 0.0008, Notional: 40}

func TestOpenPosition_Short(t *testing.T) {
	exec := &fakeExecutor{simulated: true}
	store := &fakeStore{}
	orders := &fakeOrders{}

	p, err := NewPositionExecutor(exec, store, orders, models.ModePaper, zerolog.New(io.Discard)).
		OpenPosition(context.Background(), shortSignal(), accepted, 42)
	require.NoError(t, err)

	assert.Equal(t, models.PositionSideSell, p.Side)
	assert.Equal(t, models.PositionStatusOpen, p.Status)
	assert.InDelta(t, 50010.0, p.EntryPrice, 1e-9)
	assert.InDelta(t, 0.0008, p.Quantity, 1e-12)
	assert.Equal(t, uint(42), p.SignalID)
	assert.Equal(t, "e-1", p.EntryOrderID)
	assert.Equal(t, models.ModePaper, p.Mode)
	assert.Equal(t, "ok", p.AdvisoryNote)

	assert.Equal(t, []provider.ProtectiveKind{provider.ProtectiveStopLoss, provider.ProtectiveTakeProfit}, exec.protective)
	require.Len(t, orders.orders, 3)
	assert.Equal(t, models.OrderTypeEntry, orders.orders[0].Type)
	assert.Equal(t, models.PositionSideBuy, orders.orders[1].Side)
	assert.Equal(t, p.ID, orders.orders[2].PositionID)
}

func TestOpenPosition_ExecutionFailure(t *testing.T) {
	exec := &fakeExecutor{entryErr: errors.New("insufficient margin")}
	store := &fakeStore{}

	_, err := NewPositionExecutor(exec, store, nil, models.ModeLive, zerolog.New(io.Discard)).
		OpenPosition(context.Background(), shortSignal(), accepted, 1)
	require.Error(t, err)
	assert.Equal(t, provider.KindExecution, provider.KindOf(err))
	assert.Empty(t, store.positions)
	assert.Equal(t, 1, exec.entries)
	assert.Empty(t, exec.protective)
}

func TestOpenPosition_ReconciliationOnLiveSaveFailure(t *testing.T) {
	exec := &fakeExecutor{}
	store := &fakeStore{err: errors.New("db down")}

	_, err := NewPositionExecutor(exec, store, nil, models.ModeLive, zerolog.New(io.Discard)).
		OpenPosition(context.Background(), shortSignal(), accepted, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrReconciliation)
	assert.Equal(t, provider.KindPersistence, provider.KindOf(err))
}

func TestOpenPosition_ProtectiveFailureIsTolerated(t *testing.T) {
	exec := &fakeExecutor{simulated: true, protectiveErr: errors.New("rejected")}
	orders := &fakeOrders{}

	p, err := NewPositionExecutor(exec, &fakeStore{}, orders, models.ModePaper, zerolog.New(io.Discard)).
		OpenPosition(context.Background(), shortSignal(), accepted, 1)
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Len(t, orders.orders, 1)
}

func TestOpenPosition_RejectsUnacceptedSignal(t *testing.T) {
	exec := &fakeExecutor{}
	_, err := NewPositionExecutor(exec, &fakeStore{}, nil, models.ModePaper, zerolog.New(io.Discard)).
		OpenPosition(context.Background(), shortSignal(), risk.Decision{Valid: false}, 1)
	assert.Error(t, err)
	assert.Zero(t, exec.entries)
}

func TestOpenPosition_RefusesSecondOpenPosition(t *testing.T) {
	exec := &fakeExecutor{simulated: true}
	store := &fakeStore{}
	executor := NewPositionExecutor(exec, store, nil, models.ModePaper, zerolog.New(io.Discard)).
		WithProtectiveOrders(false)

	_, err := executor.OpenPosition(context.Background(), shortSignal(), accepted, 1)
	require.NoError(t, err)

	_, err = executor.OpenPosition(context.Background(), shortSignal(), accepted, 2)
	require.Error(t, err)
	assert.Equal(t, provider.KindPermanent, provider.KindOf(err))
	assert.Equal(t, 1, exec.entries)
	assert.Len(t, store.positions, 1)
}

func TestOpenPosition_LookupFailurePlacesNothing(t *testing.T) {
	exec := &fakeExecutor{}
	_, err := NewPositionExecutor(exec, &fakeStore{findErr: errors.New("db down")}, nil, models.ModeLive, zerolog.New(io.Discard)).
		OpenPosition(context.Background(), shortSignal(), accepted, 1)
	assert.Equal(t, provider.KindPersistence, provider.KindOf(err))
	assert.Zero(t, exec.entries)
}
