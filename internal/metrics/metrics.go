// Package metrics records the outcome of a planning run, to be picked up as a Prometheus textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/macdeacon99/jamf-rings/internal/feed"
	"github.com/macdeacon99/jamf-rings/internal/rollout"
	"github.com/macdeacon99/jamf-rings/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jamf_rings"

// Recorder holds the metrics of a single run.
type Recorder struct {
	registry *prometheus.Registry

	feedFetches    *prometheus.CounterVec
	activeRings    prometheus.Gauge
	elapsedDays    prometheus.Gauge
	deadline       prometheus.Gauge
	catchingUp     prometheus.Gauge
	majorUpdate    prometheus.Gauge
	downstreamErrs *prometheus.CounterVec
	lastRun        prometheus.Gauge
}

// New returns a Recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		feedFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Feed fetches, by outcome.",
		}, []string{"outcome"}),
		activeRings: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rings",
			Help:      "Number of rings receiving the target release.",
		}),
		elapsedDays: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_elapsed_days",
			Help:      "Whole days elapsed since the target release.",
		}),
		deadline: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "install_deadline_timestamp_seconds",
			Help:      "Forced install date of the target release.",
		}),
		catchingUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catching_up",
			Help:      "1 when the previous release is still being rolled out.",
		}),
		majorUpdate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "major_update",
			Help:      "1 when the rollout is a major update.",
		}),
		downstreamErrs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jamf_call_errors_total",
			Help:      "Failed Jamf Pro calls, by call.",
		}, []string{"call"}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Time of the last completed run.",
		}),
	}
}

// RecordFetch counts a feed fetch.
func (r *Recorder) RecordFetch(o feed.Outcome) {
	r.feedFetches.WithLabelValues(o.String()).Inc()
}

// RecordPlan exposes the computed plan.
func (r *Recorder) RecordPlan(p rollout.Plan) {
	r.activeRings.Set(float64(len(p.ActiveRings)))
	r.elapsedDays.Set(float64(p.ElapsedDays))
	r.deadline.Set(float64(p.InstallDeadline.Unix()))
	r.catchingUp.Set(boolToFloat(p.CatchingUp))
	r.majorUpdate.Set(boolToFloat(p.Class == version.Major))
}

// RecordCall counts call as failed when err is not nil.
func (r *Recorder) RecordCall(call string, err error) {
	c := r.downstreamErrs.WithLabelValues(call)
	if err != nil {
		c.Inc()
	}
}

// Registry returns the registry holding the metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile marks the run as completed and writes every metric to path, in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	r.lastRun.SetToCurrentTime()

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create metrics directory: %v", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %v", err)
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
