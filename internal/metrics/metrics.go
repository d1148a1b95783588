package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics счётчики кассы на собственном реестре
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	OrdersCreated       *prometheus.CounterVec
	OrdersTotalAmount   *prometheus.CounterVec
	RegisterCloses      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		OrdersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caja_orders_created_total",
				Help: "Orders created at checkout",
			},
			[]string{"payment_method", "numbered"},
		),
		OrdersTotalAmount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caja_orders_amount_total",
				Help: "Sum of final totals of created orders",
			},
			[]string{"payment_method"},
		),
		RegisterCloses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caja_register_closes_total",
				Help: "Register close attempts",
			},
			[]string{"trigger", "result"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OrdersCreated,
		m.OrdersTotalAmount,
		m.RegisterCloses,
	)
	return m
}

func (m *Metrics) ObserveOrder(paymentMethod string, numbered bool, total float64) {
	m.OrdersCreated.WithLabelValues(paymentMethod, strconv.FormatBool(numbered)).Inc()
	m.OrdersTotalAmount.WithLabelValues(paymentMethod).Add(total)
}

// TrackOpenCarts публикует число корзин в памяти; count вызывается при каждом сборе
func (m *Metrics) TrackOpenCarts(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "caja_open_carts",
			Help: "Carts held in memory",
		},
		func() float64 { return float64(count()) },
	))
}

// ObserveClose trigger: manual | scheduled
func (m *Metrics) ObserveClose(trigger string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RegisterCloses.WithLabelValues(trigger, result).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "undefined"
		}

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
