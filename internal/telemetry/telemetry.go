// Package telemetry defines the Prometheus metrics exposed by the service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	webhookRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkaudit_webhook_requests_total",
			Help: "Webhook deliveries handled, labeled by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)

	remoteRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkaudit_remote_request_duration_seconds",
			Help:    "Latency of remote audit API calls, labeled by method and status code.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "code"},
	)

	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkaudit_fetch_attempts_total",
			Help: "Report fetch attempts, labeled by whether rows were returned.",
		},
		[]string{"populated"},
	)

	reportRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "linkaudit_report_rows",
			Help: "Row count of the most recently persisted report tables.",
		},
		[]string{"table"},
	)
)

// ObserveWebhook records one handled webhook delivery.
func ObserveWebhook(stage, outcome string) {
	webhookRequestsTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveRemoteRequest records one remote API call.
func ObserveRemoteRequest(method string, status int, dur time.Duration) {
	remoteRequestDurationSeconds.WithLabelValues(method, strconv.Itoa(status)).Observe(dur.Seconds())
}

// ObserveFetchAttempt records one retry-fetch attempt.
func ObserveFetchAttempt(populated bool) {
	fetchAttemptsTotal.WithLabelValues(strconv.FormatBool(populated)).Inc()
}

// SetReportRows records the size of a persisted report table.
func SetReportRows(table string, rows int) {
	reportRows.WithLabelValues(table).Set(float64(rows))
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
