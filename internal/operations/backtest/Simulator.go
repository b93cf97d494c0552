package backtest

import (
	"context"
	"sort"
	"time"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/services/risk"
	"CryptoSignalBot/internal/services/strategy"
	"CryptoSignalBot/internal/services/trading"
)

// book is the in-memory position store the simulator trades against. It
// satisfies risk.PositionSource so the replay rolls days like a live cycle.
type book struct {
	open   map[string]*models.Position
	closed []models.Position
	nextID uint
}

func newBook() *book {
	return &book{open: make(map[string]*models.Position)}
}

func (b *book) FindOpenPositions(ctx context.Context) ([]models.Position, error) {
	out := make([]models.Position, 0, len(b.open))
	for _, p := range b.open {
		out = append(out, *p)
	}
	return out, nil
}

func (b *book) FindClosedBetween(ctx context.Context, start, end time.Time) ([]models.Position, error) {
	var out []models.Position
	for _, p := range b.closed {
		if p.ClosedAt != nil && !p.ClosedAt.Before(start) && !p.ClosedAt.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Simulator applies the live decision path to one bar at a time.
type Simulator struct {
	signals signalGenerator
	gate    *risk.Gate
	exit    trading.ExitParams

	book    *book
	cycle   *risk.CycleContext
	balance float64
	marks   map[string]float64

	trades      []Trade
	equityCurve []EquityPoint
	signalCount int
	rejections  map[string]int
}

func newSimulator(signals signalGenerator, gate *risk.Gate, exit trading.ExitParams, initial float64) *Simulator {
	return &Simulator{
		signals:    signals,
		gate:       gate,
		exit:       exit,
		book:       newBook(),
		cycle:      risk.NewCycleContext(initial),
		balance:    initial,
		marks:      make(map[string]float64),
		rejections: make(map[string]int),
	}
}

// equity is the realized balance plus open positions marked at the last close.
func (s *Simulator) equity() float64 {
	total := s.balance
	for symbol, p := range s.book.open {
		if mark, ok := s.marks[symbol]; ok {
			total += p.UnrealizedPnl(mark)
		}
	}
	return total
}

// beginStep rolls the cycle context to the bar time.
func (s *Simulator) beginStep(ctx context.Context, at time.Time) error {
	if err := s.cycle.Refresh(ctx, s.book, at); err != nil {
		return err
	}
	s.cycle.LastEquity = s.equity()
	return nil
}

// manage evaluates the exit rules for symbol's open position, if any.
func (s *Simulator) manage(symbol string, window []models.Price) {
	candle := window[len(window)-1]
	s.marks[symbol] = candle.Close

	p, ok := s.book.open[symbol]
	if !ok {
		return
	}
	exit := trading.EvaluateExit(*p, candle.Close, window, s.exit)
	if !exit.Close {
		return
	}
	s.closePosition(p, candle.Close, exit.Reason, candle.OpenTime)
}

// consider generates a signal for symbol and opens a position when the gate
// accepts it.
func (s *Simulator) consider(symbol string, window []models.Price) {
	if _, ok := s.book.open[symbol]; ok {
		return
	}
	signal := s.signals.GenerateSignal(symbol, window)
	if !signal.IsTrade() {
		return
	}
	s.signalCount++

	decision := s.gate.ValidateTrade(signal, s.equity(), s.cycle)
	if !decision.Valid {
		s.rejections[decision.Reason]++
		return
	}
	s.openPosition(signal, decision, window[len(window)-1])
}

func (s *Simulator) openPosition(signal strategy.Signal, decision risk.Decision, candle models.Price) {
	side := models.PositionSideBuy
	if signal.Direction == strategy.Short {
		side = models.PositionSideSell
	}
	s.book.nextID++
	p := &models.Position{
		ID:         s.book.nextID,
		Symbol:     signal.Symbol,
		Side:       side,
		EntryPrice: candle.Close,
		Quantity:   decision.PositionSize,
		StopLoss:   signal.StopLoss,
		TakeProfit: signal.TakeProfit,
		Status:     models.PositionStatusOpen,
		OpenedAt:   candle.OpenTime,
		Mode:       models.ModePaper,
	}
	s.book.open[p.Symbol] = p
	s.cycle.RecordOpened(*p)
}

func (s *Simulator) closePosition(p *models.Position, price float64, reason string, at time.Time) {
	if err := p.Close(price, reason, at); err != nil {
		return
	}
	delete(s.book.open, p.Symbol)
	s.book.closed = append(s.book.closed, *p)
	s.cycle.RecordClosed(*p)

	s.balance += p.RealizedPnl
	s.trades = append(s.trades, tradeFrom(*p))
	s.equityCurve = append(s.equityCurve, EquityPoint{Timestamp: at, Balance: s.balance})
}

// closeAll settles whatever is still open at the last seen prices.
func (s *Simulator) closeAll(at time.Time) {
	symbols := make([]string, 0, len(s.book.open))
	for symbol := range s.book.open {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		s.closePosition(s.book.open[symbol], s.marks[symbol], ExitReasonEndOfData, at)
	}
}
