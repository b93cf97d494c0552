package backtest

import (
	"time"

	"CryptoSignalBot/internal/models"
)

// ExitReasonEndOfData closes positions still open when the bars run out.
const ExitReasonEndOfData = "end_of_data"

// Trade is one closed simulated position.
type Trade struct {
	Symbol     string
	Side       string
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	StopLoss   float64
	TakeProfit float64
	PnL        float64
	PnLPercent float64
	Reason     string
}

func tradeFrom(p models.Position) Trade {
	t := Trade{
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryTime:  p.OpenedAt,
		EntryPrice: p.EntryPrice,
		ExitPrice:  p.ExitPrice,
		Quantity:   p.Quantity,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		PnL:        p.RealizedPnl,
		PnLPercent: p.RealizedPnlPercent,
		Reason:     p.ExitReason,
	}
	if p.ClosedAt != nil {
		t.ExitTime = *p.ClosedAt
	}
	return t
}

// For tracking equity changes
type EquityPoint struct {
	Timestamp time.Time
	Balance   float64
}

// Results summarises a replay.
type Results struct {
	// Trade metrics
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	AveragePnL    float64

	// Performance metrics
	MaxDrawdown  float64
	FinalBalance float64
	SharpeRatio  float64

	// Signal funnel
	Signals    int
	Rejections map[string]int

	// Detailed records
	Trades      []Trade
	EquityCurve []EquityPoint
}

// Config selects what to replay.
type Config struct {
	InitialBalance float64
	Symbols        []string
	TimeFrame      string
	StartTime      time.Time
	EndTime        time.Time

	// Window is how many bars the strategy sees at each step.
	Window int
}

// NewConfig creates default config
func NewConfig() Config {
	return Config{
		InitialBalance: 1000,
		TimeFrame:      models.PriceTimeFrame1h,
		Window:         100,
	}
}
