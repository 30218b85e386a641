// Package prompush implements a Prometheus Pushgateway backend for the
// internal/metrics package.
//
// Batch jobs are not scraped, so collectors live in a private registry and
// Flush pushes the whole registry to the gateway under the job name.
package prompush

import (
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"dataclean/internal/metrics"
)

// Backend implements metrics.Backend on top of a prometheus.Registry.
type Backend struct {
	pusher *push.Pusher

	mu         sync.Mutex
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// labelNames fixes the label set per metric name. Prometheus requires a
// stable label set for each collector.
var labelNames = map[string][]string{
	metrics.StageTotal:           {"stage", "status"},
	metrics.StageDurationSeconds: {"stage", "status"},
	metrics.RowsTotal:            {"kind"},
	metrics.RunsTotal:            {"status"},
}

// NewBackend returns a backend pushing to gatewayURL under job.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	job = strings.TrimSpace(job)
	gatewayURL = strings.TrimSpace(gatewayURL)
	if job == "" {
		return nil, fmt.Errorf("prompush: empty job name")
	}
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: empty gateway url")
	}

	reg := prometheus.NewRegistry()
	return &Backend{
		pusher:     push.New(gatewayURL, job).Gatherer(reg),
		registry:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}, nil
}

// IncCounter implements metrics.Backend. Unknown metric names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	names, ok := labelNames[name]
	if !ok || delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	vec, ok := b.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help(name)}, names)
		b.registry.MustRegister(vec)
		b.counters[name] = vec
	}
	vec.With(labelValues(names, labels)).Add(delta)
}

// ObserveHistogram implements metrics.Backend. Unknown metric names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	names, ok := labelNames[name]
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	vec, ok := b.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    help(name),
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, names)
		b.registry.MustRegister(vec)
		b.histograms[name] = vec
	}
	vec.With(labelValues(names, labels)).Observe(value)
}

// Flush pushes the registry, replacing the job's previous group.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}

func labelValues(names []string, labels metrics.Labels) prometheus.Labels {
	out := make(prometheus.Labels, len(names))
	for _, n := range names {
		v := labels[n]
		if v == "" {
			v = "unknown"
		}
		out[n] = v
	}
	return out
}

func help(name string) string {
	switch name {
	case metrics.StageTotal:
		return "Cleaning stage executions by stage and status."
	case metrics.StageDurationSeconds:
		return "Cleaning stage duration in seconds."
	case metrics.RowsTotal:
		return "Rows processed by kind."
	case metrics.RunsTotal:
		return "Job runs by status."
	}
	return name
}

var _ metrics.Backend = (*Backend)(nil)
