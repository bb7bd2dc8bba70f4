// Package metrics exposes trading loop counters and account gauges in
// Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"autotrader/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. All recording methods are safe to call on
// a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	Cycles        *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	Decisions     *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	Trades        *prometheus.CounterVec
	Balance       prometheus.Gauge
	Equity        prometheus.Gauge
	Drawdown      prometheus.Gauge
	OpenPositions prometheus.Gauge
	HTTPRequests  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}
	m.Cycles = m.counterVec("autotrader_cycles_total", "Trading cycles by outcome", "outcome")
	m.CycleDuration = m.histogram("autotrader_cycle_duration_seconds", "Trading cycle latency in seconds")
	m.Decisions = m.counterVec("autotrader_decisions_total", "Strategy decisions", "strategy", "action")
	m.Rejections = m.counterVec("autotrader_rejections_total", "Orders refused by risk checks or the gateway", "code")
	m.Trades = m.counterVec("autotrader_trades_total", "Trades applied to the ledger", "side", "reason")
	m.Balance = m.gauge("autotrader_balance", "Cash balance")
	m.Equity = m.gauge("autotrader_equity", "Balance plus open position value")
	m.Drawdown = m.gauge("autotrader_drawdown_pct", "Drawdown from initial balance in percent")
	m.OpenPositions = m.gauge("autotrader_open_positions", "Number of open positions")
	m.HTTPRequests = m.counterVec("autotrader_http_requests_total", "HTTP requests", "method", "path", "status")
	return m
}

func (m *Metrics) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	m.registry.MustRegister(cv)
	return cv
}

func (m *Metrics) gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	m.registry.MustRegister(g)
	return g
}

func (m *Metrics) histogram(name, help string) prometheus.Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: name, Help: help, Buckets: prometheus.DefBuckets})
	m.registry.MustRegister(h)
	return h
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCycle(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveDecision(d domain.Decision) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(string(d.Strategy), string(d.Action)).Inc()
}

func (m *Metrics) ObserveRejection(code string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveTrade(t domain.TradeRecord) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(string(t.Side), t.Reason).Inc()
}

func (m *Metrics) ObserveAccount(acct domain.AccountSnapshot) {
	if m == nil {
		return
	}
	m.Balance.Set(acct.Balance.InexactFloat64())
	m.Equity.Set(acct.Equity.InexactFloat64())
	m.Drawdown.Set(acct.DrawdownPct)
	m.OpenPositions.Set(float64(len(acct.Positions)))
}

func (m *Metrics) ObserveRequest(method, path, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
}
