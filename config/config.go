package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the optional YAML file.
const EnvConfigPath = "TRADEBOT_CONFIG"

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		App: AppConfig{
			LogLevel:    "info",
			MetricsAddr: ":9090",
		},
		Exchange: ExchangeConfig{
			RequestRate:  10,
			RequestBurst: 20,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "tradebot",
			SSLMode: "disable",
		},
		Trading: TradingConfig{
			Symbols:          []string{"BTCUSDT", "ETHUSDT"},
			Interval:         "1h",
			HistoryLimit:     100,
			CycleInterval:    5 * time.Minute,
			Mode:             ModePaper,
			InitialCapital:   1000,
			ProtectiveOrders: true,
			RecordBars:       true,
		},
		Risk: RiskConfig{
			RiskPerTrade:         0.02,
			MaxRiskPercent:       5,
			MaxDailyLossFraction: 0.10,
			MinNotional:          10,
			MaxNotionalFraction:  0.5,
		},
		Strategy: StrategyConfig{
			StopLossPct:  0.05,
			RewardRisk:   2,
			EntryBandPct: 0.002,
		},
		Advisory: AdvisoryConfig{
			Model:   "gpt-4o-mini",
			Timeout: 15 * time.Second,
		},
		Stream: StreamConfig{
			URL: "wss://fstream.binance.com/stream",
		},
		Backfill: BackfillConfig{
			Timeframes: []string{"1h", "4h"},
			Days:       30,
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// TRADEBOT_CONFIG, a .env file and finally the process environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// envReader collects parse failures so every bad variable is reported at once.
type envReader struct {
	errs []error
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (r *envReader) int(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = i
	}
}

func (r *envReader) float(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func (r *envReader) bool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}

func (r *envReader) list(key string, dst *[]string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = splitList(v)
	}
}

func applyEnv(cfg *Config) error {
	r := &envReader{}

	r.str("LOG_LEVEL", &cfg.App.LogLevel)
	r.str("METRICS_ADDR", &cfg.App.MetricsAddr)

	r.str("BINANCE_API_KEY", &cfg.Exchange.APIKey)
	r.str("BINANCE_SECRET_KEY", &cfg.Exchange.SecretKey)
	r.bool("BINANCE_TESTNET", &cfg.Exchange.Testnet)
	r.str("BINANCE_BASE_URL", &cfg.Exchange.BaseURL)

	r.str("DB_HOST", &cfg.Database.Host)
	r.int("DB_PORT", &cfg.Database.Port)
	r.str("DB_USER", &cfg.Database.User)
	r.str("DB_PASSWORD", &cfg.Database.Password)
	r.str("DB_NAME", &cfg.Database.DBName)
	r.str("DB_SSLMODE", &cfg.Database.SSLMode)

	r.list("TRADING_SYMBOLS", &cfg.Trading.Symbols)
	r.str("TRADING_INTERVAL", &cfg.Trading.Interval)
	r.int("HISTORY_LIMIT", &cfg.Trading.HistoryLimit)
	r.duration("CYCLE_INTERVAL", &cfg.Trading.CycleInterval)
	r.str("TRADING_MODE", &cfg.Trading.Mode)
	r.float("INITIAL_CAPITAL", &cfg.Trading.InitialCapital)
	r.bool("PROTECTIVE_ORDERS", &cfg.Trading.ProtectiveOrders)

	r.float("RISK_PER_TRADE", &cfg.Risk.RiskPerTrade)
	r.float("MAX_RISK_PERCENT", &cfg.Risk.MaxRiskPercent)
	r.float("MAX_DAILY_LOSS_FRACTION", &cfg.Risk.MaxDailyLossFraction)
	r.float("MIN_NOTIONAL", &cfg.Risk.MinNotional)
	r.float("MAX_NOTIONAL_FRACTION", &cfg.Risk.MaxNotionalFraction)
	r.int("MAX_OPEN_POSITIONS", &cfg.Risk.MaxOpenPositions)
	r.float("MIN_ADVISORY_CONFIDENCE", &cfg.Risk.MinAdvisoryConfidence)

	r.str("OPENAI_API_KEY", &cfg.Advisory.APIKey)
	r.str("OPENAI_MODEL", &cfg.Advisory.Model)
	r.str("OPENAI_BASE_URL", &cfg.Advisory.BaseURL)

	r.str("INFLUX_URL", &cfg.Influx.URL)
	r.str("INFLUX_TOKEN", &cfg.Influx.Token)
	r.str("INFLUX_ORG", &cfg.Influx.Org)
	r.str("INFLUX_BUCKET", &cfg.Influx.Bucket)

	r.bool("STREAM_ENABLED", &cfg.Stream.Enabled)
	r.str("STREAM_URL", &cfg.Stream.URL)

	return errors.Join(r.errs...)
}

// helper to split a comma separated list
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	t := c.Trading
	check(t.Mode == ModePaper || t.Mode == ModeLive, "trading.mode must be %q or %q, got %q", ModePaper, ModeLive, t.Mode)
	check(len(t.Symbols) > 0, "trading.symbols must not be empty")
	check(t.Interval != "", "trading.interval must be set")
	check(t.HistoryLimit > 0, "trading.history_limit must be positive")
	check(t.CycleInterval > 0, "trading.cycle_interval must be positive")
	check(t.InitialCapital > 0, "trading.initial_capital must be positive")
	if t.Mode == ModeLive {
		check(c.Exchange.APIKey != "" && c.Exchange.SecretKey != "", "live mode needs BINANCE_API_KEY and BINANCE_SECRET_KEY")
	}

	r := c.Risk
	check(r.RiskPerTrade > 0 && r.RiskPerTrade < 1, "risk.risk_per_trade must be in (0, 1)")
	check(r.MaxRiskPercent > 0, "risk.max_risk_percent must be positive")
	check(r.MaxDailyLossFraction > 0 && r.MaxDailyLossFraction <= 1, "risk.max_daily_loss_fraction must be in (0, 1]")
	check(r.MinNotional >= 0, "risk.min_notional must not be negative")
	check(r.MaxNotionalFraction > 0 && r.MaxNotionalFraction <= 1, "risk.max_notional_fraction must be in (0, 1]")
	check(r.MaxOpenPositions >= 0, "risk.max_open_positions must not be negative")
	check(r.MinAdvisoryConfidence >= 0 && r.MinAdvisoryConfidence <= 100, "risk.min_advisory_confidence must be in [0, 100]")

	s := c.Strategy
	check(s.StopLossPct > 0 && s.StopLossPct < 1, "strategy.stop_loss_pct must be in (0, 1)")
	check(s.RewardRisk > 0, "strategy.reward_risk must be positive")
	check(s.EntryBandPct >= 0, "strategy.entry_band_pct must not be negative")

	check(c.Database.Host != "" && c.Database.DBName != "", "database host and name must be set")

	if c.Influx.Enabled() {
		check(c.Influx.Org != "" && c.Influx.Bucket != "", "influx org and bucket must be set with a url")
	}
	if c.Stream.Enabled {
		check(c.Stream.URL != "", "stream.url must be set when the stream is enabled")
	}

	return errors.Join(errs...)
}
