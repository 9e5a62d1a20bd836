// Package metrics provides Prometheus metrics for compression runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	runProgress = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "compresspro",
		Subsystem: "pipeline",
		Name:      "progress_percent",
		Help:      "Current run progress percentage",
	}, []string{"run_id"})

	runFrames = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "compresspro",
		Subsystem: "pipeline",
		Name:      "frames_processed",
		Help:      "Video frames processed in the current run",
	}, []string{"run_id"})

	runsFinished = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compresspro",
		Subsystem: "pipeline",
		Name:      "runs_finished_total",
		Help:      "Completed runs by terminal outcome",
	}, []string{"outcome"})

	encoderFallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compresspro",
		Subsystem: "pipeline",
		Name:      "encoder_fallbacks_total",
		Help:      "Video encoder candidates rejected during negotiation",
	}, []string{"encoder"})

	activeRuns = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "compresspro",
		Subsystem: "pipeline",
		Name:      "active_runs",
		Help:      "Runs currently executing",
	})

	// Local cache for status API access.
	runCache   = make(map[string]*RunMetrics)
	runCacheMu sync.RWMutex
)

// RunMetrics holds current metric values for a run.
type RunMetrics struct {
	Progress float64
	Frames   float64
}

// Handler serves the run metrics registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// SetRunProgress sets the progress percentage for a run.
func SetRunProgress(runID string, percent float64) {
	runProgress.WithLabelValues(runID).Set(percent)
	updateCache(runID, func(m *RunMetrics) { m.Progress = percent })
}

// SetRunFrames sets the processed frame count for a run.
func SetRunFrames(runID string, frames float64) {
	runFrames.WithLabelValues(runID).Set(frames)
	updateCache(runID, func(m *RunMetrics) { m.Frames = frames })
}

// CountRunFinished records a terminal outcome.
func CountRunFinished(outcome string) {
	runsFinished.WithLabelValues(outcome).Inc()
}

// CountEncoderFallback records a rejected encoder candidate.
func CountEncoderFallback(encoder string) {
	encoderFallbacks.WithLabelValues(encoder).Inc()
}

// RunStarted increments the active run gauge.
func RunStarted() {
	activeRuns.Inc()
}

// RunStopped decrements the active run gauge.
func RunStopped() {
	activeRuns.Dec()
}

// DeleteRunMetrics removes all metrics for a run.
func DeleteRunMetrics(runID string) {
	runProgress.DeleteLabelValues(runID)
	runFrames.DeleteLabelValues(runID)

	runCacheMu.Lock()
	delete(runCache, runID)
	runCacheMu.Unlock()
}

// GetRunMetrics returns current metric values for a run.
func GetRunMetrics(runID string) *RunMetrics {
	runCacheMu.RLock()
	defer runCacheMu.RUnlock()
	if m, ok := runCache[runID]; ok {
		dup := *m
		return &dup
	}
	return nil
}

func updateCache(runID string, update func(*RunMetrics)) {
	runCacheMu.Lock()
	defer runCacheMu.Unlock()
	m, ok := runCache[runID]
	if !ok {
		m = &RunMetrics{}
		runCache[runID] = m
	}
	update(m)
}
