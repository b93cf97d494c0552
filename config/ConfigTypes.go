package config

import (
	"fmt"
	"time"
)

const (
	ModePaper = "paper"
	ModeLive  = "live"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Database DatabaseConfig `yaml:"database"`
	Trading  TradingConfig  `yaml:"trading"`
	Risk     RiskConfig     `yaml:"risk"`
	Strategy StrategyConfig `yaml:"strategy"`
	Advisory AdvisoryConfig `yaml:"advisory"`
	Influx   InfluxConfig   `yaml:"influx"`
	Stream   StreamConfig   `yaml:"stream"`
	Backfill BackfillConfig `yaml:"backfill"`
}

type AppConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type ExchangeConfig struct {
	APIKey       string  `yaml:"api_key"`
	SecretKey    string  `yaml:"secret_key"`
	Testnet      bool    `yaml:"testnet"`
	BaseURL      string  `yaml:"base_url"`
	RequestRate  float64 `yaml:"request_rate"`
	RequestBurst int     `yaml:"request_burst"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type TradingConfig struct {
	Symbols          []string      `yaml:"symbols"`
	Interval         string        `yaml:"interval"`
	HistoryLimit     int           `yaml:"history_limit"`
	CycleInterval    time.Duration `yaml:"cycle_interval"`
	Mode             string        `yaml:"mode"`
	InitialCapital   float64       `yaml:"initial_capital"`
	ProtectiveOrders bool          `yaml:"protective_orders"`
	RecordBars       bool          `yaml:"record_bars"`
}

type RiskConfig struct {
	RiskPerTrade          float64 `yaml:"risk_per_trade"`
	MaxRiskPercent        float64 `yaml:"max_risk_percent"`
	MaxDailyLossFraction  float64 `yaml:"max_daily_loss_fraction"`
	MinNotional           float64 `yaml:"min_notional"`
	MaxNotionalFraction   float64 `yaml:"max_notional_fraction"`
	MaxOpenPositions      int     `yaml:"max_open_positions"`
	MinAdvisoryConfidence float64 `yaml:"min_advisory_confidence"`
}

type StrategyConfig struct {
	StopLossPct  float64 `yaml:"stop_loss_pct"`
	RewardRisk   float64 `yaml:"reward_risk"`
	EntryBandPct float64 `yaml:"entry_band_pct"`
}

type AdvisoryConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether an advisory scorer should be wired.
func (a AdvisoryConfig) Enabled() bool {
	return a.APIKey != ""
}

type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

func (i InfluxConfig) Enabled() bool {
	return i.URL != ""
}

type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type BackfillConfig struct {
	Timeframes []string `yaml:"timeframes"`
	Days       int      `yaml:"days"`
}
