package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_bot_trades_total",
			Help: "Total number of trades executed",
		},
		[]string{"symbol", "side"},
	)

	tradeQuantity = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "futures_bot_trade_quantity",
			Help:    "Distribution of executed order quantities",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_bot_signals_total",
			Help: "Total number of strategy signals by action",
		},
		[]string{"strategy", "action"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "futures_bot_current_price",
			Help: "Current price of trading symbol",
		},
		[]string{"symbol"},
	)

	// Risk metrics
	accountBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "futures_bot_account_balance",
			Help: "Last observed account balance in the quote currency",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "futures_bot_open_positions",
			Help: "Number of open positions across the account",
		},
	)

	compoundEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "futures_bot_compound_events_total",
			Help: "Number of times realized profit was folded into the balance baseline",
		},
	)

	trailingAdjustmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_bot_trailing_adjustments_total",
			Help: "Number of trailing stop loss / take profit updates",
		},
		[]string{"symbol", "kind"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_bot_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeQuantity)
	prometheus.MustRegister(signalsTotal)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(accountBalance)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(compoundEventsTotal)
	prometheus.MustRegister(trailingAdjustmentsTotal)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTrade records a trade metric
func RecordTrade(symbol, side string, quantity float64) {
	tradesTotal.WithLabelValues(symbol, side).Inc()
	tradeQuantity.WithLabelValues(symbol).Observe(quantity)
}

// RecordSignal records a strategy decision
func RecordSignal(strategy, action string) {
	signalsTotal.WithLabelValues(strategy, action).Inc()
}

// UpdatePrice updates the current price metric
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// UpdateBalance updates the account balance gauge
func UpdateBalance(balance float64) {
	accountBalance.Set(balance)
}

// UpdateOpenPositions updates the open position count
func UpdateOpenPositions(count int) {
	openPositions.Set(float64(count))
}

// RecordCompoundEvent counts a compounding baseline advance
func RecordCompoundEvent() {
	compoundEventsTotal.Inc()
}

// RecordTrailingAdjustment counts a trailing order replacement.
// kind is "stop_loss" or "take_profit".
func RecordTrailingAdjustment(symbol, kind string) {
	trailingAdjustmentsTotal.WithLabelValues(symbol, kind).Inc()
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
