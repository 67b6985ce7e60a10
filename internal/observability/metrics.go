package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	scanOutcomesTotal     *prometheus.CounterVec
	qrTokensIssuedTotal   *prometheus.CounterVec
	sweepDeletedRowsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prezenta_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prezenta_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prezenta_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		scanOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prezenta_scan_outcomes_total",
			Help: "Attendance scans by outcome.",
		}, []string{"outcome"})

		qrTokensIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prezenta_qr_tokens_issued_total",
			Help: "QR tokens issued per classroom.",
		}, []string{"classroom"})

		sweepDeletedRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prezenta_sweep_deleted_rows_total",
			Help: "Rows removed by the expiry sweep.",
		}, []string{"table"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			scanOutcomesTotal,
			qrTokensIssuedTotal,
			sweepDeletedRowsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// RecordScan counts one scan outcome. Successful scans use "recorded".
func RecordScan(outcome string) {
	RegisterMetrics()
	scanOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenIssued counts one issued QR token.
func RecordTokenIssued(classroom string) {
	RegisterMetrics()
	qrTokensIssuedTotal.WithLabelValues(classroom).Inc()
}

// RecordSweep adds the rows a sweep removed from table.
func RecordSweep(table string, rows int64) {
	if rows <= 0 {
		return
	}
	RegisterMetrics()
	sweepDeletedRowsTotal.WithLabelValues(table).Add(float64(rows))
}
