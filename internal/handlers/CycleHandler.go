package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CryptoSignalBot/internal/metrics"
	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"
	"CryptoSignalBot/internal/services/risk"
	"CryptoSignalBot/internal/services/strategy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrCycleInProgress is returned by RunCycle while another cycle holds the account.
var ErrCycleInProgress = errors.New("a cycle is already running")

// ReasonNoTrade is stored on NO_TRADE evaluations, which never reach the gate.
const ReasonNoTrade = "no trade"

type TradeValidator interface {
	ValidateTrade(signal strategy.Signal, equity float64, cycle *risk.CycleContext) risk.Decision
}

type SignalGenerator interface {
	GenerateSignal(symbol string, bars []models.Price) strategy.Signal
}

type OpenPositionsManager interface {
	ManageOpenPositions(ctx context.Context, cycle *risk.CycleContext) ([]models.Position, error)
}

type PositionOpener interface {
	Open(ctx context.Context, signal strategy.Signal, decision risk.Decision, signalID uint) (*models.Position, error)
}

type SignalStore interface {
	Create(ctx context.Context, signal *models.Signal) error
	UpdateOutcome(ctx context.Context, id uint, accepted bool, reason string, positionID *uint) error
}

type SnapshotStore interface {
	Create(ctx context.Context, snapshot *models.AccountSnapshot) error
}

type SnapshotExporter interface {
	WriteSnapshot(ctx context.Context, snapshot models.AccountSnapshot) error
}

// CycleConfig selects the universe and pacing.
type CycleConfig struct {
	Symbols       []string
	Interval      string
	HistoryLimit  int
	CycleInterval time.Duration
	Mode          string
}

// CycleDependencies wires a CycleHandler. Advisory and Exporter are optional.
type CycleDependencies struct {
	Market    provider.MarketData
	Account   provider.AccountProvider
	Signals   SignalGenerator
	Gate      TradeValidator
	Positions OpenPositionsManager
	Opener    PositionOpener
	Source    risk.PositionSource
	Store     SignalStore
	Snapshots SnapshotStore

	Advisory provider.AdvisoryScorer
	Exporter SnapshotExporter
}

// CycleHandler runs scan cycles for one account. Only one cycle is active at a
// time; symbols are processed sequentially inside it.
type CycleHandler struct {
	deps   CycleDependencies
	config CycleConfig
	cycle  *risk.CycleContext
	retry  provider.RetryPolicy
	logger zerolog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewCycleHandler(deps CycleDependencies, config CycleConfig, cycle *risk.CycleContext, logger zerolog.Logger) *CycleHandler {
	return &CycleHandler{
		deps:   deps,
		config: config,
		cycle:  cycle,
		retry:  provider.DefaultRetryPolicy,
		logger: logger.With().Str("component", "cycle").Logger(),
		now:    time.Now,
	}
}

// WithRetryPolicy overrides the read-path retry policy.
func (h *CycleHandler) WithRetryPolicy(policy provider.RetryPolicy) *CycleHandler {
	h.retry = policy
	return h
}

// Cycle returns the state carried between cycles.
func (h *CycleHandler) Cycle() *risk.CycleContext {
	return h.cycle
}

// Run executes a cycle immediately and then on every tick until ctx is done.
// A slow cycle delays the next one rather than overlapping it.
func (h *CycleHandler) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.config.CycleInterval)
	defer ticker.Stop()

	for {
		if err := h.RunCycle(ctx); err != nil && ctx.Err() == nil {
			h.logger.Error().Err(err).Msg("cycle failed")
		}

		select {
		case <-ctx.Done():
			h.logger.Info().Msg("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle performs one full scan: refresh state, manage open positions, then
// evaluate every symbol. A failing symbol is skipped without aborting the rest.
func (h *CycleHandler) RunCycle(ctx context.Context) error {
	if !h.mu.TryLock() {
		return ErrCycleInProgress
	}
	defer h.mu.Unlock()

	started := time.Now()
	outcome := "ok"
	defer func() { metrics.ObserveCycle(started, outcome) }()

	logger := h.logger.With().Str("cycle_id", uuid.NewString()).Logger()
	now := h.now()

	if err := h.cycle.Refresh(ctx, h.deps.Source, now); err != nil {
		outcome = "error"
		return provider.Wrap(provider.KindPersistence, "refresh cycle context", err)
	}

	equity, err := provider.Retry(ctx, h.retry, h.deps.Account.GetAccountEquity)
	if err != nil {
		outcome = "error"
		return fmt.Errorf("failed to refresh equity: %w", err)
	}
	h.recordSnapshot(ctx, logger, equity, now)

	closed, err := h.deps.Positions.ManageOpenPositions(ctx, h.cycle)
	if err != nil {
		if ctx.Err() != nil {
			outcome = "cancelled"
			return ctx.Err()
		}
		logger.Error().Err(err).Msg("failed to manage open positions")
	}
	metrics.DailyRealizedPnl.Set(h.cycle.DailyRealizedPnl())

	failed := 0
	for _, symbol := range h.config.Symbols {
		if err := ctx.Err(); err != nil {
			outcome = "cancelled"
			return err
		}
		if err := h.processSymbol(ctx, logger, symbol, equity.Total()); err != nil {
			failed++
			kind := provider.KindOf(err)
			metrics.SymbolErrorsTotal.WithLabelValues(symbol, kind.String()).Inc()
			logger.Warn().Err(err).
				Str("symbol", symbol).
				Str("kind", kind.String()).
				Msg("skipping symbol this cycle")
		}
	}
	if failed > 0 {
		outcome = "degraded"
	}

	logger.Info().
		Float64("equity", equity.Total()).
		Int("closed", len(closed)).
		Int("open", h.cycle.OpenCount()).
		Int("failed_symbols", failed).
		Dur("took", time.Since(started)).
		Msg("cycle complete")
	return nil
}

func (h *CycleHandler) recordSnapshot(ctx context.Context, logger zerolog.Logger, equity provider.Equity, now time.Time) {
	h.cycle.LastEquity = equity.Total()
	metrics.Equity.Set(equity.Total())

	snapshot := models.AccountSnapshot{
		TotalEquity:      equity.Total(),
		AvailableBalance: equity.Available,
		Unrealized:       equity.Unrealized,
		Mode:             h.config.Mode,
		Timestamp:        now,
	}
	if err := h.deps.Snapshots.Create(ctx, &snapshot); err != nil {
		logger.Error().Err(err).Msg("failed to save account snapshot")
	}
	if h.deps.Exporter != nil {
		if err := h.deps.Exporter.WriteSnapshot(ctx, snapshot); err != nil {
			logger.Warn().Err(err).Msg("failed to export account snapshot")
		}
	}
}

func (h *CycleHandler) processSymbol(ctx context.Context, logger zerolog.Logger, symbol string, equity float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v", symbol, r)
		}
	}()

	bars, err := provider.Retry(ctx, h.retry, func(ctx context.Context) ([]models.Price, error) {
		return h.deps.Market.GetPriceHistory(ctx, symbol, h.config.Interval, h.config.HistoryLimit)
	})
	if err != nil {
		return err
	}

	signal := h.deps.Signals.GenerateSignal(symbol, bars)
	metrics.SignalsTotal.WithLabelValues(symbol, string(signal.Direction)).Inc()

	if !signal.IsTrade() {
		record := signal.Record()
		record.Accepted = false
		record.RejectReason = ReasonNoTrade
		if err := h.deps.Store.Create(ctx, record); err != nil {
			return provider.Wrap(provider.KindPersistence, "save signal", err)
		}
		return nil
	}

	if h.deps.Advisory != nil {
		score, err := h.deps.Advisory.ScoreSignal(ctx, symbol, signal.Rationale, bars)
		if err != nil {
			logger.Warn().Err(err).Str("symbol", symbol).Msg("advisory score unavailable")
		} else {
			signal = signal.WithAdvisory(score.Confidence, score.Comment)
		}
	}

	decision := h.deps.Gate.ValidateTrade(signal, equity, h.cycle)

	record := signal.Record()
	record.Accepted = decision.Valid
	record.RejectReason = decision.Reason
	if err := h.deps.Store.Create(ctx, record); err != nil {
		return provider.Wrap(provider.KindPersistence, "save signal", err)
	}

	if !decision.Valid {
		metrics.RiskRejectionsTotal.WithLabelValues(symbol).Inc()
		logger.Info().
			Str("symbol", symbol).
			Str("direction", string(signal.Direction)).
			Str("reason", decision.Reason).
			Msg("signal rejected")
		return nil
	}

	position, err := h.deps.Opener.Open(ctx, signal, decision, record.ID)
	if err != nil {
		if uerr := h.deps.Store.UpdateOutcome(ctx, record.ID, false, "execution failed: "+err.Error(), nil); uerr != nil {
			logger.Error().Err(uerr).Uint("signal_id", record.ID).Msg("failed to update signal outcome")
		}
		return err
	}

	h.cycle.RecordOpened(*position)
	if err := h.deps.Store.UpdateOutcome(ctx, record.ID, true, "", &position.ID); err != nil {
		logger.Error().Err(err).Uint("signal_id", record.ID).Uint("position_id", position.ID).Msg("failed to link signal to position")
	}
	return nil
}
