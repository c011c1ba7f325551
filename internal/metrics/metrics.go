// Package metrics exposes business and HTTP counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics holds every collector on its own registry
type Metrics struct {
	registry *prometheus.Registry

	TicketsSold   prometheus.Counter
	LinesSold     prometheus.Counter
	SalesAmount   prometheus.Counter
	SalesRejected *prometheus.CounterVec
	TicketsVoided prometheus.Counter
	TicketsPaid   prometheus.Counter
	PrizesPaid    prometheus.Counter
	ResultsPosted prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates a registry with the Go and process collectors plus the
// application metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TicketsSold: f.NewCounter(prometheus.CounterOpts{
			Name: "zoolo_tickets_sold_total",
			Help: "Tickets sold",
		}),
		LinesSold: f.NewCounter(prometheus.CounterOpts{
			Name: "zoolo_ticket_lines_sold_total",
			Help: "Wager and tripleta lines sold",
		}),
		SalesAmount: f.NewCounter(prometheus.CounterOpts{
			Name: "zoolo_sales_amount_total",
			Help: "Sum of ticket totals sold",
		}),
		SalesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zoolo_sales_rejected_total",
			Help: "Sales refused, by error kind",
		}, []string{"reason"}),
		TicketsVoided: f.NewCounter(prometheus.CounterOpts{
			Name: "zoolo_tickets_voided_total",
			Help: "Tickets voided",
		}),
		TicketsPaid: f.NewCounter(prometheus.CounterOpts{
			Name: "zoolo_tickets_paid_total",
			Help: "Tickets marked paid",
		}),
		PrizesPaid: f.NewCounter(prometheus.CounterOpts{
			Name: "zoolo_prizes_paid_amount_total",
			Help: "Sum of prizes paid out",
		}),
		ResultsPosted: f.NewCounter(prometheus.CounterOpts{
			Name: "zoolo_results_posted_total",
			Help: "Draw results posted or corrected",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zoolo_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zoolo_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TicketSold(lines int, total decimal.Decimal) {
	m.TicketsSold.Inc()
	m.LinesSold.Add(float64(lines))
	m.SalesAmount.Add(total.InexactFloat64())
}

func (m *Metrics) TicketVoided() {
	m.TicketsVoided.Inc()
}

func (m *Metrics) TicketPaid(prize decimal.Decimal) {
	m.TicketsPaid.Inc()
	m.PrizesPaid.Add(prize.InexactFloat64())
}

func (m *Metrics) ResultPosted() {
	m.ResultsPosted.Inc()
}

func (m *Metrics) SaleRejected(reason string) {
	m.SalesRejected.WithLabelValues(reason).Inc()
}

// Middleware counts requests by chi route pattern so path parameters do
// not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
