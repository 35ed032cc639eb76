// Package observability exposes Prometheus metrics for sync and statistics runs.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	activitiesSynced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "strava_stats",
		Subsystem: "sync",
		Name:      "activities_synced_total",
		Help:      "Number of activity summaries stored from Strava.",
	})
	streamsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strava_stats",
		Subsystem: "sync",
		Name:      "streams_cached_total",
		Help:      "Number of activity streams written to the stream cache, by source.",
	}, []string{"source"})
	syncErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strava_stats",
		Subsystem: "sync",
		Name:      "errors_total",
		Help:      "Number of failed sync operations, by phase.",
	}, []string{"phase"})
	lastSync = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "strava_stats",
		Subsystem: "sync",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful sync.",
	})
	sectionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "strava_stats",
		Subsystem: "statistics",
		Name:      "section_duration_seconds",
		Help:      "Time spent computing one statistics section.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"section"})
)

func init() {
	prometheus.MustRegister(activitiesSynced, streamsFetched, syncErrors, lastSync, sectionDuration)
}

// RecordActivitiesSynced adds n stored activity summaries
func RecordActivitiesSynced(n int) {
	activitiesSynced.Add(float64(n))
}

// RecordStreamCached counts one stream stored from source ("strava" or "fit")
func RecordStreamCached(source string) {
	streamsFetched.WithLabelValues(source).Inc()
}

// RecordSyncError counts one failure in phase ("activities" or "streams")
func RecordSyncError(phase string) {
	syncErrors.WithLabelValues(phase).Inc()
}

// RecordSyncCompleted updates the last successful sync watermark
func RecordSyncCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSync.Set(float64(ts.Unix()))
}

// ObserveSection records how long a statistics section took to compute
func ObserveSection(section string, d time.Duration) {
	sectionDuration.WithLabelValues(section).Observe(d.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
