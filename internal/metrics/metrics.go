package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Session metrics
	SessionsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabled_sessions_opened_total",
			Help: "Total sessions opened",
		},
	)

	SessionsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabled_sessions_closed_total",
			Help: "Total sessions closed",
		},
	)

	OpenSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tabled_open_sessions",
			Help: "Sessions currently running",
		},
	)

	FeesCharged = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabled_fee_charged_dollars",
			Help:    "Fee charged per closed session, in whole dollars",
			Buckets: []float64{1, 5, 10, 20, 40, 80, 160},
		},
	)

	// Clock metrics
	ClockResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabled_clock_resets_total",
			Help: "Operator clock resets",
		},
	)

	ClockTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tabled_clock_timestamp_seconds",
			Help: "Club clock reading (realtime plus operator offset) as a Unix timestamp",
		},
	)

	// Storage metrics
	StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabled_storage_errors_total",
			Help: "Storage operations that failed",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsOpened,
		SessionsClosed,
		OpenSessions,
		FeesCharged,
		ClockResets,
		ClockTimestamp,
		StorageErrors,
	)
}

// Serve starts the metrics HTTP listener in a background goroutine.
func Serve(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logger.Info().Str("addr", addr).Msg("Metrics server started")
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
}
