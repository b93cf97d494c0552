package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_cycles_total", Help: "Completed scan cycles by outcome"},
		[]string{"outcome"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "tradebot_cycle_duration_seconds", Help: "Wall time of one scan cycle", Buckets: prometheus.DefBuckets},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_signals_total", Help: "Signals generated"},
		[]string{"symbol", "direction"},
	)
	RiskRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_risk_rejections_total", Help: "Signals rejected by the risk gate"},
		[]string{"symbol"},
	)
	PositionsOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_positions_opened_total", Help: "Positions opened"},
		[]string{"symbol", "side"},
	)
	PositionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_positions_closed_total", Help: "Positions closed by exit reason"},
		[]string{"symbol", "reason"},
	)
	SymbolErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_symbol_errors_total", Help: "Per-symbol failures by error kind"},
		[]string{"symbol", "kind"},
	)
	ReconciliationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tradebot_reconciliation_failures_total", Help: "Executed orders whose position could not be recorded"},
	)
	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tradebot_equity", Help: "Total account equity at the last cycle"},
	)
	DailyRealizedPnl = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tradebot_daily_realized_pnl", Help: "Realized P&L of positions closed today"},
	)
	MarkPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "tradebot_mark_price", Help: "Last streamed mark price"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		CycleDuration,
		SignalsTotal,
		RiskRejectionsTotal,
		PositionsOpenedTotal,
		PositionsClosedTotal,
		SymbolErrorsTotal,
		ReconciliationFailuresTotal,
		Equity,
		DailyRealizedPnl,
		MarkPrice,
	)
}

// ObserveCycle records one finished cycle.
func ObserveCycle(started time.Time, outcome string) {
	CyclesTotal.WithLabelValues(outcome).Inc()
	CycleDuration.Observe(time.Since(started).Seconds())
}

func Serve(addr string, routes map[string]http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	for pattern, h := range routes {
		mux.Handle(pattern, h)
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
