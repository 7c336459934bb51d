// Package metrics counts ranking runs in a private Prometheus registry that
// can be written out for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "goi"

// Recorder holds the run metrics. A nil *Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	slatesRanked  prometheus.Counter
	gamesRanked   prometheus.Counter
	gamesExcluded *prometheus.CounterVec
	undefinedZ    *prometheus.CounterVec
	rankDuration  prometheus.Histogram
}

// NewRecorder registers every metric on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		slatesRanked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slates_ranked_total",
			Help:      "Slates ranked.",
		}),
		gamesRanked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ranked_total",
			Help:      "Games that received a matchup priority.",
		}),
		gamesExcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_excluded_total",
			Help:      "Games left out of a ranking, by side lacking data.",
		}, []string{"side"}),
		undefinedZ: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undefined_zscores_total",
			Help:      "Per-team stat z-scores that were undefined.",
		}, []string{"window"}),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_duration_seconds",
			Help:      "Wall time of one slate ranking.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	r.registry.MustRegister(r.slatesRanked, r.gamesRanked, r.gamesExcluded, r.undefinedZ, r.rankDuration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordRank records one finished slate ranking.
func (r *Recorder) RecordRank(ranked int, duration time.Duration) {
	if r == nil {
		return
	}
	r.slatesRanked.Inc()
	r.gamesRanked.Add(float64(ranked))
	r.rankDuration.Observe(duration.Seconds())
}

// RecordExcluded counts one excluded game. side is "home", "away" or "input".
func (r *Recorder) RecordExcluded(side string) {
	if r == nil {
		return
	}
	r.gamesExcluded.WithLabelValues(side).Inc()
}

// RecordUndefinedZ adds n undefined z-scores observed for a window kind.
func (r *Recorder) RecordUndefinedZ(window string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.undefinedZ.WithLabelValues(window).Add(float64(n))
}

// WriteTextfile writes the current values in the Prometheus text format.
// The write is atomic, so a collector never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
