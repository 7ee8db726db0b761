package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	QuotesRequestedTotal *prometheus.CounterVec
	QuotesReturned       prometheus.Histogram

	OrdersCreatedTotal     *prometheus.CounterVec
	OrderTransitionsTotal  *prometheus.CounterVec
	MakerRegistrationTotal *prometheus.CounterVec

	ChainRPCLatency *prometheus.HistogramVec
}

func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novaramp_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novaramp_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),

		QuotesRequestedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novaramp_quotes_requested_total",
				Help: "Quote requests by currency and provider filter",
			},
			[]string{"currency", "provider"},
		),
		QuotesReturned: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "novaramp_quotes_returned",
			Help:    "Number of quotes returned per request",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		}),

		OrdersCreatedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novaramp_orders_created_total",
				Help: "Orders created by type and provider",
			},
			[]string{"order_type", "provider"},
		),
		OrderTransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novaramp_order_transitions_total",
				Help: "Order status changes",
			},
			[]string{"from", "to"},
		),
		MakerRegistrationTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novaramp_maker_registrations_total",
				Help: "Maker deposit registrations by provider and result",
			},
			[]string{"provider", "result"},
		),

		ChainRPCLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novaramp_chain_rpc_latency_seconds",
				Help:    "Latency of chain RPC health probes",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
			},
			[]string{"chain"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) RecordQuotes(currency, provider string, returned int) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "any"
	}
	m.QuotesRequestedTotal.WithLabelValues(currency, provider).Inc()
	m.QuotesReturned.Observe(float64(returned))
}

func (m *Metrics) RecordOrderCreated(orderType, provider string) {
	if m == nil {
		return
	}
	m.OrdersCreatedTotal.WithLabelValues(orderType, provider).Inc()
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.OrderTransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) RecordMakerRegistration(provider, result string) {
	if m == nil {
		return
	}
	m.MakerRegistrationTotal.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) ObserveChainRPC(chain string, d time.Duration) {
	if m == nil {
		return
	}
	m.ChainRPCLatency.WithLabelValues(chain).Observe(d.Seconds())
}
