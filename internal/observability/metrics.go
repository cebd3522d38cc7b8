package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics owns the Prometheus registry and the service's collectors.
type Metrics struct {
	registry              *prometheus.Registry
	requestCount          *prometheus.CounterVec
	requestDuration       *prometheus.HistogramVec
	errorCount            *prometheus.CounterVec
	notificationAttempts  *prometheus.CounterVec
	notificationDelivered *prometheus.CounterVec
	dailyRunCustomers     *prometheus.CounterVec
	vouchersAllocated     prometheus.Counter
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyalty_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loyalty_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyalty_http_errors_total",
			Help: "HTTP errors by path, method and error code.",
		}, []string{"path", "method", "code"}),
		notificationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyalty_notification_attempts_total",
			Help: "Notification delivery attempts by channel and result.",
		}, []string{"channel", "result"}),
		notificationDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyalty_notification_deliveries_total",
			Help: "Notification outcomes after retries by channel and result.",
		}, []string{"channel", "result"}),
		dailyRunCustomers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyalty_daily_run_customers_total",
			Help: "Customers seen by the daily run by outcome.",
		}, []string{"outcome"}),
		vouchersAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loyalty_vouchers_allocated_total",
			Help: "Voucher codes allocated.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.notificationAttempts,
		m.notificationDelivered,
		m.dailyRunCustomers,
		m.vouchersAllocated,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordNotificationAttempt counts one channel call.
func (m *Metrics) RecordNotificationAttempt(channel string, success bool) {
	if m == nil {
		return
	}
	m.notificationAttempts.WithLabelValues(channel, result(success)).Inc()
}

// RecordNotificationDelivery counts the final outcome of a send.
func (m *Metrics) RecordNotificationDelivery(channel string, success bool) {
	if m == nil {
		return
	}
	m.notificationDelivered.WithLabelValues(channel, result(success)).Inc()
}

// RecordDailyRunCustomer counts a customer outcome of the daily run.
func (m *Metrics) RecordDailyRunCustomer(outcome string) {
	if m == nil {
		return
	}
	m.dailyRunCustomers.WithLabelValues(outcome).Inc()
}

// RecordVoucherAllocated counts an issued voucher code.
func (m *Metrics) RecordVoucherAllocated() {
	if m == nil {
		return
	}
	m.vouchersAllocated.Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
