// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// All Prometheus dependencies live here; the rest of leapetl depends only on
// metrics.Backend.
package prompush

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapetl/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job name used when none is configured.
const DefaultJob = "leapetl"

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	grouping   map[string]string
	reg        *prometheus.Registry

	taskCounter  *prometheus.CounterVec
	taskDuration *prometheus.SummaryVec
	retryCounter *prometheus.CounterVec
	runCounter   *prometheus.CounterVec
	runDuration  prometheus.Gauge
	tableRows    *prometheus.GaugeVec
}

// NewBackend constructs a Pushgateway backend. grouping adds Pushgateway
// grouping labels such as pipeline or environment.
func NewBackend(jobName, gatewayURL string, grouping map[string]string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = DefaultJob
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		grouping:   grouping,
		reg:        prometheus.NewRegistry(),
		taskCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.TaskTotal,
			Help: "Finished task executions, partitioned by task and status.",
		}, []string{"task", "status"}),
		taskDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.TaskDurationSeconds,
			Help:       "Task duration in seconds, including retries.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"task", "status"}),
		retryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.TaskRetriesTotal,
			Help: "Retried task attempts.",
		}, []string{"task"}),
		runCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RunTotal,
			Help: "Finished pipeline runs by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metrics.RunDurationSeconds,
			Help: "Duration of the last pipeline run in seconds.",
		}),
		tableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metrics.TableRows,
			Help: "Row count observed by the last quality gate.",
		}, []string{"table"}),
	}

	for _, c := range []prometheus.Collector{b.taskCounter, b.taskDuration, b.retryCounter, b.runCounter, b.runDuration, b.tableRows} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}
	return b, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.TaskTotal:
		if b.taskCounter != nil {
			b.taskCounter.WithLabelValues(labels["task"], labels["status"]).Add(delta)
		}
	case metrics.TaskRetriesTotal:
		if b.retryCounter != nil {
			b.retryCounter.WithLabelValues(labels["task"]).Add(delta)
		}
	case metrics.RunTotal:
		if b.runCounter != nil {
			b.runCounter.WithLabelValues(labels["status"]).Add(delta)
		}
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.TaskDurationSeconds || b.taskDuration == nil {
		return
	}
	b.taskDuration.WithLabelValues(labels["task"], labels["status"]).Observe(value)
}

// SetGauge implements metrics.Backend.
func (b *Backend) SetGauge(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.RunDurationSeconds:
		if b.runDuration != nil {
			b.runDuration.Set(value)
		}
	case metrics.TableRows:
		if b.tableRows != nil {
			b.tableRows.WithLabelValues(labels["table"]).Set(value)
		}
	}
}

// Flush pushes the registry to the Pushgateway, replacing the job's group.
func (b *Backend) Flush(ctx context.Context) error {
	p := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg)
	for k, v := range b.grouping {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}

// Ensure Backend implements metrics.Backend
var _ metrics.Backend = (*Backend)(nil)
