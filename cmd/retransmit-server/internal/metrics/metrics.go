// Package metrics exposes retransmission events as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coregx/retransmit"
	"github.com/coregx/retransmit/model"
)

const namespace = "retransmit"

// Observer implements retransmit.Observer by recording Prometheus metrics.
type Observer struct {
	reg *prometheus.Registry

	resolved     *prometheus.CounterVec
	resolveTime  *prometheus.HistogramVec
	partitions   *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	failures     *prometheus.CounterVec
	convergences *prometheus.CounterVec
}

var _ retransmit.Observer = (*Observer)(nil)

// NewObserver creates an Observer with its own registry.
func NewObserver() *Observer {
	o := &Observer{
		reg: prometheus.NewRegistry(),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Retransmission targets whose partitions were all resolved.",
		}, []string{"cluster"}),
		resolveTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving every partition of a target.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cluster"}),
		partitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partitions_resolved_total",
			Help:      "Partition offsets resolved.",
		}, []string{"cluster"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retransmissions_total",
			Help:      "Retransmissions that reached a final state (declared or previewed).",
		}, []string{"cluster", "state"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed retransmissions by error code.",
		}, []string{"cluster", "code"}),
		convergences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "convergence_checks_total",
			Help:      "Convergence checks by outcome.",
		}, []string{"cluster", "state"}),
	}

	o.reg.MustRegister(o.resolved, o.resolveTime, o.partitions, o.transitions, o.failures, o.convergences)
	return o
}

// Registry returns the registry the metrics are registered with.
func (o *Observer) Registry() *prometheus.Registry {
	return o.reg
}

// Handler returns an http.Handler serving the registry in the exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.reg, promhttp.HandlerOpts{})
}

// RetransmissionResolved implements retransmit.Observer.
func (o *Observer) RetransmissionResolved(_ context.Context, target model.RetransmissionTarget, offsets model.PartitionOffsets, took time.Duration) error {
	o.resolved.WithLabelValues(target.Cluster).Inc()
	o.resolveTime.WithLabelValues(target.Cluster).Observe(took.Seconds())
	o.partitions.WithLabelValues(target.Cluster).Add(float64(len(offsets)))
	return nil
}

// RetransmissionDeclared implements retransmit.Observer.
func (o *Observer) RetransmissionDeclared(_ context.Context, target model.RetransmissionTarget, state model.State, _ model.PartitionOffsets) error {
	o.transitions.WithLabelValues(target.Cluster, string(state)).Inc()
	return nil
}

// RetransmissionFailed implements retransmit.Observer.
func (o *Observer) RetransmissionFailed(_ context.Context, target model.RetransmissionTarget, err error) error {
	code := retransmit.CodeOf(err)
	if code == "" {
		code = "UNKNOWN"
	}
	o.failures.WithLabelValues(target.Cluster, code).Inc()
	return nil
}

// ConvergenceChecked implements retransmit.Observer.
func (o *Observer) ConvergenceChecked(_ context.Context, scope model.Scope, converged bool) error {
	o.convergences.WithLabelValues(scope.Cluster, string(model.ConvergenceState(converged))).Inc()
	return nil
}
