package main

import (
	"context"
	"fmt"
	"os"

	"CryptoSignalBot/config"
	"CryptoSignalBot/internal/handlers"
	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/advisory"
	"CryptoSignalBot/internal/operations/binance"
	"CryptoSignalBot/internal/operations/paper"
	"CryptoSignalBot/internal/operations/position"
	"CryptoSignalBot/internal/operations/price"
	"CryptoSignalBot/internal/operations/provider"
	"CryptoSignalBot/internal/operations/timeseries"
	"CryptoSignalBot/internal/repositories"
	"CryptoSignalBot/internal/services/risk"
	"CryptoSignalBot/internal/services/strategy"
	"CryptoSignalBot/internal/services/trading"
	"CryptoSignalBot/internal/util"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupDatabase(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dbConfig.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto migrate database schemas
	if err := repositories.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

type repos struct {
	prices    *repositories.PriceRepository
	positions *repositories.PositionRepository
	signals   *repositories.SignalRepository
	snapshots *repositories.SnapshotRepository
	orders    *repositories.OrderRepository
}

func newRepos(db *gorm.DB) repos {
	return repos{
		prices:    repositories.NewPriceRepository(db),
		positions: repositories.NewPositionRepository(db),
		signals:   repositories.NewSignalRepository(db),
		snapshots: repositories.NewSnapshotRepository(db),
		orders:    repositories.NewOrderRepository(db),
	}
}

// app holds everything the run and once commands share.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	cycle    *handlers.CycleHandler
	exporter *timeseries.Exporter
}

func (a *app) Close() {
	if a.exporter != nil {
		a.exporter.Close()
	}
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, util.NewLogger(cfg.App.LogLevel), nil
}

func newBinanceClient(cfg *config.Config) *binance.BinanceClient {
	return binance.NewBinanceClient(cfg.Exchange.APIKey, cfg.Exchange.SecretKey, binance.Options{
		Testnet:      cfg.Exchange.Testnet,
		BaseURL:      cfg.Exchange.BaseURL,
		RequestRate:  cfg.Exchange.RequestRate,
		RequestBurst: cfg.Exchange.RequestBurst,
	})
}

func strategyParams(cfg *config.Config) strategy.Params {
	params := strategy.DefaultParams()
	params.StopLossPct = cfg.Strategy.StopLossPct
	params.RewardRisk = cfg.Strategy.RewardRisk
	params.EntryBandPct = cfg.Strategy.EntryBandPct
	return params
}

func riskLimits(cfg *config.Config) risk.Limits {
	r := cfg.Risk
	return risk.Limits{
		RiskPerTrade:          r.RiskPerTrade,
		MaxRiskPercent:        r.MaxRiskPercent,
		MaxDailyLossFraction:  r.MaxDailyLossFraction,
		MinNotional:           r.MinNotional,
		MaxNotionalFraction:   r.MaxNotionalFraction,
		MaxOpenPositions:      r.MaxOpenPositions,
		MinAdvisoryConfidence: r.MinAdvisoryConfidence,
	}
}

func exitParams(cfg *config.Config) trading.ExitParams {
	params := trading.DefaultExitParams()
	params.Interval = cfg.Trading.Interval
	return params
}

func buildApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	db, err := setupDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	r := newRepos(db)
	client := newBinanceClient(cfg)

	var market provider.MarketData = client
	if cfg.Trading.RecordBars {
		market = price.NewPriceRecorder(client, r.prices, log)
	}

	var (
		executor provider.OrderExecutor
		account  provider.AccountProvider
	)
	switch cfg.Trading.Mode {
	case config.ModeLive:
		executor = binance.NewLiveExecutor(client)
		account = client
	default:
		executor = paper.NewExecutor(market)
		account = paper.NewAccount(cfg.Trading.InitialCapital, r.positions, market)
	}

	opener := position.NewPositionExecutor(executor, r.positions, r.orders, cfg.Trading.Mode, log).
		WithProtectiveOrders(cfg.Trading.ProtectiveOrders)
	manager := trading.NewPositionManager(market, executor, r.positions, r.orders, exitParams(cfg), log)

	a := &app{cfg: cfg, logger: log}
	deps := handlers.CycleDependencies{
		Market:    market,
		Account:   account,
		Signals:   strategy.NewEngine(strategyParams(cfg)),
		Gate:      risk.NewGate(riskLimits(cfg)),
		Positions: manager,
		Opener:    handlers.NewPositionHandler(opener),
		Source:    r.positions,
		Store:     r.signals,
		Snapshots: r.snapshots,
	}

	if cfg.Advisory.Enabled() {
		scorer, err := advisory.NewOpenAIScorer(cfg.Advisory.APIKey, advisory.Options{
			Model:   cfg.Advisory.Model,
			BaseURL: cfg.Advisory.BaseURL,
			Timeout: cfg.Advisory.Timeout,
		})
		if err != nil {
			return nil, err
		}
		deps.Advisory = scorer
		manager.OnClose(trading.CloseReview(scorer, r.positions, log))
	}

	if cfg.Influx.Enabled() {
		exporter, err := timeseries.NewExporter(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
		if err != nil {
			return nil, err
		}
		a.exporter = exporter
		deps.Exporter = exporter
		manager.OnClose(func(ctx context.Context, p models.Position) {
			if err := exporter.WriteClosedTrade(ctx, p); err != nil {
				log.Warn().Err(err).Uint("position_id", p.ID).Msg("failed to export closed trade")
			}
		})
	}

	a.cycle = handlers.NewCycleHandler(deps, handlers.CycleConfig{
		Symbols:       cfg.Trading.Symbols,
		Interval:      cfg.Trading.Interval,
		HistoryLimit:  cfg.Trading.HistoryLimit,
		CycleInterval: cfg.Trading.CycleInterval,
		Mode:          cfg.Trading.Mode,
	}, risk.NewCycleContext(cfg.Trading.InitialCapital), log)

	log.Info().
		Str("mode", cfg.Trading.Mode).
		Strs("symbols", cfg.Trading.Symbols).
		Bool("advisory", cfg.Advisory.Enabled()).
		Bool("influx", cfg.Influx.Enabled()).
		Msg("bot initialised")
	return a, nil
}
