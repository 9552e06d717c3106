package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spot_bot_orders_total",
			Help: "Total number of market orders submitted",
		},
		[]string{"symbol", "side"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spot_bot_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"type"},
	)

	cyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spot_bot_cycles_total",
			Help: "Total number of completed trading cycles",
		},
	)

	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spot_bot_current_price",
			Help: "Last observed ticker/close price of the trading pair",
		},
		[]string{"symbol"},
	)

	positionOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spot_bot_position_open",
			Help: "1 while a long position is open, 0 while flat",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(errorsTotal)
	prometheus.MustRegister(cyclesTotal)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(positionOpen)
}

// RecordOrder records one submitted order.
func RecordOrder(symbol, side string) {
	ordersTotal.WithLabelValues(symbol, side).Inc()
}

// RecordError records one error by category.
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}

// RecordCycle records one completed trading cycle.
func RecordCycle() {
	cyclesTotal.Inc()
}

// UpdatePrice updates the current price gauge.
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// UpdatePosition updates the position gauge.
func UpdatePosition(symbol string, long bool) {
	v := 0.0
	if long {
		v = 1.0
	}
	positionOpen.WithLabelValues(symbol).Set(v)
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
