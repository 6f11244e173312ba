// Package metrics exposes Prometheus counters for the dashboard and ingest path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "haak"

var (
	reloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "presenter_reloads_total",
		Help:      "Series fetches performed by presentation sessions, by result.",
	}, []string{"result"})

	windowChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "presenter_window_changes_total",
		Help:      "Window change requests, by request kind and result.",
	}, []string{"kind", "result"})

	telemetryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "telemetry_ingested_total",
		Help:      "Telemetry messages received over MQTT, by result.",
	}, []string{"result"})

	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Presentation sessions currently held by the server.",
	})
)

func init() {
	prometheus.MustRegister(reloadsTotal, windowChangesTotal, telemetryTotal, sessionsActive)
}

func ObserveReload(result string) {
	reloadsTotal.WithLabelValues(result).Inc()
}

func ObserveWindowChange(kind, result string) {
	windowChangesTotal.WithLabelValues(kind, result).Inc()
}

func ObserveTelemetry(result string) {
	telemetryTotal.WithLabelValues(result).Inc()
}

func SetSessionsActive(n int) {
	sessionsActive.Set(float64(n))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
