package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coffee_eshop"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

const (
	OutcomeCommitted         = "committed"
	OutcomeReplayed          = "replayed"
	OutcomeEmptyBasket       = "empty_basket"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeCommitFailed      = "commit_failed"
)

type CheckoutMetrics struct {
	Outcomes             *prometheus.CounterVec
	DurationMS           *prometheus.HistogramVec
	NotificationFailures prometheus.Counter
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "attempts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "duration_ms",
		Help:      "Checkout latency in milliseconds, commit included, notification excluded.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"outcome"})
	notifyFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "notification_failures_total",
		Help:      "Order confirmations that could not be delivered.",
	})

	reg.MustRegister(outcomes, duration, notifyFailures)
	return &CheckoutMetrics{Outcomes: outcomes, DurationMS: duration, NotificationFailures: notifyFailures}
}

// NewNopCheckoutMetrics registers on a throwaway registry.
func NewNopCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetrics(prometheus.NewRegistry())
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
