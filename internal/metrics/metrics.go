// Package metrics is the backend-agnostic metrics facade used by the cleaning
// pipeline and the runner.
//
// Core code only calls the package-level helpers. A concrete backend
// (Datadog, Pushgateway) is installed once at startup with SetBackend; until
// then every call goes to a no-op backend.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions (e.g. {"stage": "impute", "status": "ok"}).
type Labels map[string]string

// Backend receives metric events.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names emitted by this module.
const (
	StageTotal           = "clean_stage_total"
	StageDurationSeconds = "clean_stage_duration_seconds"
	RowsTotal            = "clean_rows_total"
	RunsTotal            = "clean_runs_total"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. A nil b restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush asks the backend to submit buffered data.
func Flush() error {
	return current().Flush()
}

// RecordStage counts one stage execution and its duration.
// status is "ok" or "error".
func RecordStage(stage, status string, d time.Duration) {
	l := Labels{"stage": stage, "status": status}
	IncCounter(StageTotal, 1, l)
	ObserveHistogram(StageDurationSeconds, d.Seconds(), l)
}

// RecordRows counts rows by kind ("loaded", "duplicates", "filtered",
// "merged", "saved", "stored").
func RecordRows(kind string, n int) {
	if n <= 0 {
		return
	}
	IncCounter(RowsTotal, float64(n), Labels{"kind": kind})
}
