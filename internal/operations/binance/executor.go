package binance

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"CryptoSignalBot/internal/operations/provider"

	"github.com/adshao/go-binance/v2/futures"
)

type precision struct {
	price    int
	quantity int
}

// LiveExecutor places real futures orders. Orders are sent once; a failed
// placement is reported as an execution error and never retried here.
type LiveExecutor struct {
	client *BinanceClient

	mu         sync.Mutex
	precisions map[string]precision
}

func NewLiveExecutor(client *BinanceClient) *LiveExecutor {
	return &LiveExecutor{
		client:     client,
		precisions: make(map[string]precision),
	}
}

// PlaceOrder sends a MARKET order, or a GTC LIMIT order when price is set.
func (e *LiveExecutor) PlaceOrder(ctx context.Context, symbol, side string, quantity float64, price *float64) (provider.Confirmation, error) {
	prec, err := e.precision(ctx, symbol)
	if err != nil {
		return provider.Confirmation{}, err
	}
	qty := formatDown(quantity, prec.quantity)
	if qty == "" {
		return provider.Confirmation{}, provider.Wrap(provider.KindExecution, "place order",
			fmt.Errorf("quantity %v rounds to zero for %s", quantity, symbol))
	}

	svc := e.client.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Quantity(qty)
	if price == nil {
		svc = svc.Type(futures.OrderTypeMarket)
	} else {
		svc = svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(strconv.FormatFloat(*price, 'f', prec.price, 64))
	}

	return e.submit(ctx, "place order", svc)
}

// PlaceCloseOrder sends a reduce-only MARKET order.
func (e *LiveExecutor) PlaceCloseOrder(ctx context.Context, symbol, side string, quantity float64) (provider.Confirmation, error) {
	prec, err := e.precision(ctx, symbol)
	if err != nil {
		return provider.Confirmation{}, err
	}
	qty := formatDown(quantity, prec.quantity)
	if qty == "" {
		return provider.Confirmation{}, provider.Wrap(provider.KindExecution, "close order",
			fmt.Errorf("quantity %v rounds to zero for %s", quantity, symbol))
	}

	svc := e.client.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(qty).
		ReduceOnly(true)

	return e.submit(ctx, "close order", svc)
}

// CancelOrder cancels an open order by its exchange id.
func (e *LiveExecutor) CancelOrder(ctx context.Context, symbol, orderID string) error {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return provider.Wrap(provider.KindPermanent, "cancel order", fmt.Errorf("invalid order id %q: %w", orderID, err))
	}
	if err := e.client.rateLimiter.Wait(ctx); err != nil {
		return provider.Wrap(provider.KindExecution, "cancel order", err)
	}
	if _, err := e.client.client.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx); err != nil {
		return provider.Wrap(provider.KindExecution, "cancel order", err)
	}
	return nil
}

// PlaceProtectiveOrder sends a reduce-only STOP_MARKET or TAKE_PROFIT_MARKET order.
func (e *LiveExecutor) PlaceProtectiveOrder(ctx context.Context, symbol, side string, quantity, triggerPrice float64, kind provider.ProtectiveKind) (provider.Confirmation, error) {
	prec, err := e.precision(ctx, symbol)
	if err != nil {
		return provider.Confirmation{}, err
	}

	orderType := futures.OrderTypeStopMarket
	if kind == provider.ProtectiveTakeProfit {
		orderType = futures.OrderTypeTakeProfitMarket
	}

	svc := e.client.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(orderType).
		Quantity(formatDown(quantity, prec.quantity)).
		StopPrice(strconv.FormatFloat(triggerPrice, 'f', prec.price, 64)).
		ReduceOnly(true)

	return e.submit(ctx, "place "+string(kind), svc)
}

func (e *LiveExecutor) submit(ctx context.Context, op string, svc *futures.CreateOrderService) (provider.Confirmation, error) {
	if err := e.client.rateLimiter.Wait(ctx); err != nil {
		return provider.Confirmation{}, provider.Wrap(provider.KindExecution, op, err)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return provider.Confirmation{}, provider.Wrap(provider.KindExecution, op, err)
	}
	return confirmationFrom(resp), nil
}

func confirmationFrom(resp *futures.CreateOrderResponse) provider.Confirmation {
	qty, _ := strconv.ParseFloat(resp.OrigQuantity, 64)
	price, _ := strconv.ParseFloat(resp.AvgPrice, 64)
	if price == 0 {
		price, _ = strconv.ParseFloat(resp.Price, 64)
	}
	ts := time.Now()
	if resp.UpdateTime > 0 {
		ts = time.UnixMilli(resp.UpdateTime)
	}
	return provider.Confirmation{
		OrderID:   strconv.FormatInt(resp.OrderID, 10),
		Symbol:    resp.Symbol,
		Side:      string(resp.Side),
		Quantity:  qty,
		Price:     price,
		Status:    string(resp.Status),
		Timestamp: ts,
	}
}

func (e *LiveExecutor) precision(ctx context.Context, symbol string) (precision, error) {
	e.mu.Lock()
	p, ok := e.precisions[symbol]
	e.mu.Unlock()
	if ok {
		return p, nil
	}

	info, err := read(ctx, e.client, "exchange info", func(ctx context.Context) (*futures.ExchangeInfo, error) {
		return e.client.client.NewExchangeInfoService().Do(ctx)
	})
	if err != nil {
		return precision{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range info.Symbols {
		e.precisions[s.Symbol] = precision{price: s.PricePrecision, quantity: s.QuantityPrecision}
	}
	p, ok = e.precisions[symbol]
	if !ok {
		return precision{}, provider.Wrap(provider.KindPermanent, "exchange info", fmt.Errorf("unknown symbol %s", symbol))
	}
	return p, nil
}

// formatDown truncates v to digits decimals. It returns "" when the result is zero.
func formatDown(v float64, digits int) string {
	scale := math.Pow(10, float64(digits))
	truncated := math.Floor(v*scale+1e-9) / scale
	if truncated <= 0 {
		return ""
	}
	return strconv.FormatFloat(truncated, 'f', digits, 64)
}
