package retransmit

import (
	"context"
	"time"

	"github.com/coregx/retransmit/model"
)

// Observer defines an optional interface for reporting retransmission events
// (resolutions, declarations, failures, convergence checks).
//
// Implementations might record metrics, send alerts, or log to monitoring systems.
// Errors returned by an Observer are logged and never fail the operation.
type Observer interface {
	// RetransmissionResolved is called once every partition of a target has been resolved.
	RetransmissionResolved(ctx context.Context, target model.RetransmissionTarget, offsets model.PartitionOffsets, took time.Duration) error

	// RetransmissionDeclared is called when a target moved to Declared or Previewed.
	RetransmissionDeclared(ctx context.Context, target model.RetransmissionTarget, state model.State, offsets model.PartitionOffsets) error

	// RetransmissionFailed is called when resolution or declaration of a target failed.
	RetransmissionFailed(ctx context.Context, target model.RetransmissionTarget, err error) error

	// ConvergenceChecked is called after every convergence poll.
	ConvergenceChecked(ctx context.Context, scope model.Scope, converged bool) error
}

// NoOpObserver is a no-op implementation of Observer.
// Use this when events are not needed.
type NoOpObserver struct{}

// RetransmissionResolved does nothing.
func (o *NoOpObserver) RetransmissionResolved(_ context.Context, _ model.RetransmissionTarget, _ model.PartitionOffsets, _ time.Duration) error {
	return nil
}

// RetransmissionDeclared does nothing.
func (o *NoOpObserver) RetransmissionDeclared(_ context.Context, _ model.RetransmissionTarget, _ model.State, _ model.PartitionOffsets) error {
	return nil
}

// RetransmissionFailed does nothing.
func (o *NoOpObserver) RetransmissionFailed(_ context.Context, _ model.RetransmissionTarget, _ error) error {
	return nil
}

// ConvergenceChecked does nothing.
func (o *NoOpObserver) ConvergenceChecked(_ context.Context, _ model.Scope, _ bool) error {
	return nil
}

// LoggingObserver is a simple implementation that logs events.
type LoggingObserver struct {
	logger Logger
}

// NewLoggingObserver creates a new LoggingObserver.
func NewLoggingObserver(logger Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

// RetransmissionResolved logs the resolved partition count.
func (o *LoggingObserver) RetransmissionResolved(_ context.Context, target model.RetransmissionTarget, offsets model.PartitionOffsets, took time.Duration) error {
	o.logger.Infof("Offsets resolved: topic=%s, subscription=%s, cluster=%s, partitions=%d, took=%s",
		target.Topic.Name, target.Subscription, target.Cluster, len(offsets), took)
	return nil
}

// RetransmissionDeclared logs the final state of a retransmission.
func (o *LoggingObserver) RetransmissionDeclared(_ context.Context, target model.RetransmissionTarget, state model.State, offsets model.PartitionOffsets) error {
	o.logger.Infof("Retransmission %s: topic=%s, subscription=%s, cluster=%s, partitions=%d",
		state, target.Topic.Name, target.Subscription, target.Cluster, len(offsets))
	return nil
}

// RetransmissionFailed logs the failure.
func (o *LoggingObserver) RetransmissionFailed(_ context.Context, target model.RetransmissionTarget, err error) error {
	o.logger.Warnf("Retransmission failed: topic=%s, subscription=%s, cluster=%s, error=%v",
		target.Topic.Name, target.Subscription, target.Cluster, err)
	return nil
}

// ConvergenceChecked logs the poll result.
func (o *LoggingObserver) ConvergenceChecked(_ context.Context, scope model.Scope, converged bool) error {
	o.logger.Debugf("Convergence checked: topic=%s, subscription=%s, cluster=%s, state=%s",
		scope.Topic, scope.Subscription, scope.Cluster, model.ConvergenceState(converged))
	return nil
}
