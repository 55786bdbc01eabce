// Package monitoring exposes Prometheus collectors for HTTP traffic and
// coin settlements.
package monitoring

import (
	"strconv"
	"time"

	"betting-assessment-service/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its collectors so tests can use a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Settlements     *prometheus.CounterVec
	CoinsWagered    prometheus.Histogram
	CoinsReturned   prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		Settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assessment_settlements_total",
				Help: "Settled submissions by outcome",
			},
			[]string{"outcome"},
		),
		CoinsWagered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assessment_coins_wagered",
			Help:    "Coins staked per settled bet",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}),
		CoinsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assessment_coins_returned",
			Help:    "Coins paid back per settled bet",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}),
	}
	m.registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.Settlements,
		m.CoinsWagered,
		m.CoinsReturned,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSettlement records one committed submit.
func (m *Metrics) ObserveSettlement(result domain.SubmitResult) {
	if result.TimeUp || result.Response == nil {
		m.Settlements.WithLabelValues("time_up").Inc()
		return
	}
	m.Settlements.WithLabelValues(string(result.Outcome)).Inc()
	if !result.IsBet() {
		return
	}
	wagered := 0
	for _, amount := range result.Bets {
		wagered += amount
	}
	m.CoinsWagered.Observe(float64(wagered))
	m.CoinsReturned.Observe(float64(result.CoinsReturned))
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
