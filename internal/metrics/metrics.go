// Package metrics exposes Prometheus collectors for HTTP traffic and storefront events.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	orders       *prometheus.CounterVec
	wishlistAdds prometheus.Counter
	signIns      *prometheus.CounterVec
	cartUpdates  prometheus.Counter
}

// New registers every collector on a private registry. Each call is independent, so tests
// can build as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "orders_total",
			Help:      "Orders by status transition.",
		}, []string{"status"}),
		wishlistAdds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "wishlist_adds_total",
			Help:      "Products newly added to a wishlist.",
		}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by result.",
		}, []string{"result"}),
		cartUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_updates_total",
			Help:      "Cart mutations.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.orders, m.wishlistAdds, m.signIns, m.cartUpdates,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware records one sample per request, labelled with the matched route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		m.requests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// The recorders below are nil-safe so services can run without metrics.

func (m *Metrics) OrderStatus(status string) {
	if m != nil {
		m.orders.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) WishlistAdded() {
	if m != nil {
		m.wishlistAdds.Inc()
	}
}

func (m *Metrics) SignIn(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.signIns.WithLabelValues(result).Inc()
}

func (m *Metrics) CartUpdated() {
	if m != nil {
		m.cartUpdates.Inc()
	}
}
