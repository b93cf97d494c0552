package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CryptoSignalBot/internal/handlers"
	"CryptoSignalBot/internal/metrics"
	"CryptoSignalBot/internal/operations/backtest"
	"CryptoSignalBot/internal/operations/price"
	"CryptoSignalBot/internal/operations/stream"
	"CryptoSignalBot/internal/repositories"
	"CryptoSignalBot/internal/services/risk"
	"CryptoSignalBot/internal/services/strategy"

	"github.com/spf13/cobra"
)

var (
	backfillDays       int
	backfillTimeframes []string

	backtestFrom      string
	backtestTo        string
	backtestTimeframe string
	backtestBalance   float64

	rootCmd = &cobra.Command{
		Use:   "tradebot",
		Short: "Scans crypto futures markets and trades rule-based signals",
		Long: `tradebot evaluates technical strategies on a fixed symbol universe,
filters every signal through a risk gate and manages the resulting positions
in paper or live mode.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the scan cycle on a schedule until interrupted",
		RunE:  runScheduler,
	}

	onceCmd = &cobra.Command{
		Use:   "once",
		Short: "Run a single scan cycle and exit",
		RunE:  runOnce,
	}

	backfillCmd = &cobra.Command{
		Use:   "backfill",
		Short: "Download historical bars into the prices table",
		RunE:  runBackfill,
	}

	backtestCmd = &cobra.Command{
		Use:   "backtest",
		Short: "Replay stored bars through the strategy and risk rules",
		RunE:  runBacktest,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the latest equity snapshot, open positions and today's signals",
		RunE:  runStatus,
	}
)

func init() {
	backfillCmd.Flags().IntVar(&backfillDays, "days", 0, "days of history to fetch (default from config)")
	backfillCmd.Flags().StringSliceVar(&backfillTimeframes, "timeframes", nil, "timeframes to fetch (default from config)")

	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date, YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date, YYYY-MM-DD (default now)")
	backtestCmd.Flags().StringVar(&backtestTimeframe, "timeframe", "", "bar timeframe (default trading interval)")
	backtestCmd.Flags().Float64Var(&backtestBalance, "balance", 0, "starting balance (default initial capital)")
	_ = backtestCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(runCmd, onceCmd, backfillCmd, backtestCmd, statusCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	routes := map[string]http.Handler{}
	if cfg.Stream.Enabled {
		board := stream.NewPriceBoard()
		routes["/prices"] = board
		feed := stream.NewFeed(cfg.Stream.URL, cfg.Trading.Symbols, board, log)
		go func() {
			if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("price stream stopped")
			}
		}()
	}

	srv := metrics.Serve(cfg.App.MetricsAddr, routes)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics listening")

	err = a.cycle.Run(ctx)

	log.Info().Msg("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn().Err(serr).Msg("metrics server shutdown")
	}
	return err
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()
	return a.cycle.RunCycle(ctx)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := setupDatabase(cfg.Database)
	if err != nil {
		return err
	}

	days := backfillDays
	if days <= 0 {
		days = cfg.Backfill.Days
	}
	timeframes := backfillTimeframes
	if len(timeframes) == 0 {
		timeframes = cfg.Backfill.Timeframes
	}

	ctx, cancel := signalContext()
	defer cancel()

	fetcher := price.NewPriceFetcher(newBinanceClient(cfg), cfg.Trading.Symbols, log)
	handler := handlers.NewPriceHandler(fetcher, repositories.NewPriceRepository(db), log)
	n, err := handler.Backfill(ctx, timeframes, days)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d bars for %d symbols\n", n, len(cfg.Trading.Symbols))
	return nil
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	from, err := parseDate(backtestFrom, time.Time{})
	if err != nil {
		return err
	}
	to, err := parseDate(backtestTo, time.Now().UTC())
	if err != nil {
		return err
	}

	db, err := setupDatabase(cfg.Database)
	if err != nil {
		return err
	}

	btConfig := backtest.NewConfig()
	btConfig.Symbols = cfg.Trading.Symbols
	btConfig.StartTime = from
	btConfig.EndTime = to
	btConfig.TimeFrame = cfg.Trading.Interval
	if backtestTimeframe != "" {
		btConfig.TimeFrame = backtestTimeframe
	}
	btConfig.InitialBalance = cfg.Trading.InitialCapital
	if backtestBalance > 0 {
		btConfig.InitialBalance = backtestBalance
	}
	btConfig.Window = cfg.Trading.HistoryLimit

	exit := exitParams(cfg)
	exit.Interval = btConfig.TimeFrame
	engine := backtest.NewEngine(
		repositories.NewPriceRepository(db),
		strategy.NewEngine(strategyParams(cfg)),
		risk.NewGate(riskLimits(cfg)),
		exit,
		log,
	)

	ctx, cancel := signalContext()
	defer cancel()

	results, err := engine.RunBacktest(ctx, btConfig)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}
	printResults(results)
	return nil
}

func printResults(results *backtest.Results) {
	fmt.Println("\n=== Backtest Results ===")
	fmt.Printf("Signals: %d\n", results.Signals)
	fmt.Printf("Total Trades: %d\n", results.TotalTrades)
	fmt.Printf("Winning Trades: %d (%.2f%%)\n", results.WinningTrades, results.WinRate*100)
	fmt.Printf("Average PnL: $%.2f\n", results.AveragePnL)
	fmt.Printf("Max Drawdown: %.2f%%\n", results.MaxDrawdown*100)
	fmt.Printf("Final Balance: $%.2f\n", results.FinalBalance)
	fmt.Printf("Sharpe Ratio: %.2f\n", results.SharpeRatio)
	for reason, n := range results.Rejections {
		fmt.Printf("Rejected (%s): %d\n", reason, n)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := setupDatabase(cfg.Database)
	if err != nil {
		return err
	}
	r := newRepos(db)
	ctx := cmd.Context()
	now := time.Now()

	snapshot, err := r.snapshots.Latest(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snapshot == nil {
		fmt.Println("No account snapshot yet")
	} else {
		fmt.Printf("Equity: $%.2f (available $%.2f, unrealized $%.2f) at %s [%s]\n",
			snapshot.TotalEquity, snapshot.AvailableBalance, snapshot.Unrealized,
			snapshot.Timestamp.Format(time.RFC3339), snapshot.Mode)
	}

	open, err := r.positions.FindOpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load open positions: %w", err)
	}
	fmt.Printf("\nOpen positions: %d\n", len(open))
	for _, p := range open {
		fmt.Printf("  #%d %s %s qty %.8g entry %.8g stop %.8g target %.8g\n",
			p.ID, p.Symbol, p.Side, p.Quantity, p.EntryPrice, p.StopLoss, p.TakeProfit)
	}

	signals, err := r.signals.FindBetween(ctx, risk.StartOfDay(now), now)
	if err != nil {
		return fmt.Errorf("failed to load signals: %w", err)
	}
	accepted := 0
	for _, s := range signals {
		if s.Accepted {
			accepted++
		}
	}
	fmt.Printf("\nSignals today: %d (%d accepted)\n", len(signals), accepted)

	fmt.Println("\nLatest stored bars:")
	for _, symbol := range cfg.Trading.Symbols {
		bar, err := r.prices.GetLatestPriceByTimeFrame(ctx, symbol, cfg.Trading.Interval)
		if err != nil {
			return fmt.Errorf("failed to load bars for %s: %w", symbol, err)
		}
		if bar == nil {
			fmt.Printf("  %s: none\n", symbol)
			continue
		}
		fmt.Printf("  %s: %s close %.8g\n", symbol, bar.OpenTime.Format(time.RFC3339), bar.Close)
	}
	return nil
}
