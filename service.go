package retransmit

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/retransmit/model"
)

// Service rewinds subscriptions on the cluster whose broker and offset stores it is
// built with. It resolves offsets for every partition of a topic, declares them as the
// subscription's targets, and reports whether consumers caught up.
//
// A Service is safe for concurrent use.
type Service struct {
	directory   PartitionDirectory
	pool        ClientPool
	targets     TargetRepository
	committed   CommittedOffsetReader
	mapper      model.NamesMapper
	cluster     string
	concurrency int
	timeout     time.Duration
	observer    Observer
	logger      Logger

	fanout    *Fanout
	indicator *OffsetChangeIndicator
}

// NewService creates a new Service with the provided options.
//
// Required options:
//   - WithBroker: partition directory and client pool
//   - WithOffsetStores: target repository and committed offset reader
//   - WithLogger: logger instance
func NewService(opts ...Option) (*Service, error) {
	s := &Service{
		concurrency: 16,
		timeout:     10 * time.Second,
		observer:    &NoOpObserver{},
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply option", err)
		}
	}

	// Validate required dependencies
	if s.directory == nil {
		return nil, NewError(ErrCodeConfiguration, "PartitionDirectory is required (use WithBroker)")
	}
	if s.pool == nil {
		return nil, NewError(ErrCodeConfiguration, "ClientPool is required (use WithBroker)")
	}
	if s.targets == nil {
		return nil, NewError(ErrCodeConfiguration, "TargetRepository is required (use WithOffsetStores)")
	}
	if s.committed == nil {
		return nil, NewError(ErrCodeConfiguration, "CommittedOffsetReader is required (use WithOffsetStores)")
	}
	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithLogger)")
	}

	s.fanout = &Fanout{
		directory:   s.directory,
		pool:        s.pool,
		resolver:    NewOffsetResolver(s.timeout),
		mapper:      s.mapper,
		concurrency: s.concurrency,
		timeout:     s.timeout,
		logger:      s.logger,
	}
	s.indicator = &OffsetChangeIndicator{
		targets:   s.targets,
		committed: s.committed,
		directory: s.directory,
		mapper:    s.mapper,
		timeout:   s.timeout,
		logger:    s.logger,
	}

	return s, nil
}

// Cluster returns the cluster the service is bound to, or "" if unbound.
func (s *Service) Cluster() string {
	return s.cluster
}

// FetchEndOffsets returns the end offset of every partition of every log of topic.
func (s *Service) FetchEndOffsets(ctx context.Context, topic model.LogicalTopic) (model.PartitionOffsets, error) {
	if err := topic.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid topic", err)
	}
	return s.fanout.ResolveAll(ctx, topic, nil)
}

// FetchOffsetsAt returns, for every partition of every log of topic, the offset of the
// first record stamped at or after ts, or the end offset where there is none.
func (s *Service) FetchOffsetsAt(ctx context.Context, topic model.LogicalTopic, ts time.Time) (model.PartitionOffsets, error) {
	if err := topic.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid topic", err)
	}
	return s.fanout.ResolveAll(ctx, topic, &ts)
}

// Resolve validates target and resolves its offsets without declaring anything.
func (s *Service) Resolve(ctx context.Context, target model.RetransmissionTarget) (model.PartitionOffsets, error) {
	if err := s.validate(target); err != nil {
		return nil, err
	}

	s.logState(target, model.StateResolving)
	started := time.Now()
	offsets, err := s.fanout.ResolveAll(ctx, target.Topic, target.Timestamp)
	if err != nil {
		s.notifyFailed(ctx, target, err)
		return nil, err
	}
	if err := s.observer.RetransmissionResolved(ctx, target, offsets, time.Since(started)); err != nil {
		s.logger.Warnf("Observer failed on resolve: %v", err)
	}
	return offsets, nil
}

// Declare persists offsets as the targets of the target's subscription, in order.
// It stops at the first failure; partitions declared before it stay declared.
func (s *Service) Declare(ctx context.Context, target model.RetransmissionTarget, offsets model.PartitionOffsets) error {
	scope := target.Scope()
	for _, offset := range offsets {
		if err := s.indicator.Declare(ctx, scope, offset); err != nil {
			s.notifyFailed(ctx, target, err)
			return err
		}
	}

	s.logState(target, model.StateDeclared)
	if err := s.observer.RetransmissionDeclared(ctx, target, model.StateDeclared, offsets); err != nil {
		s.logger.Warnf("Observer failed on declare: %v", err)
	}
	return nil
}

// Retransmit moves the subscription of target to its timestamp (or the end of the log)
// on every partition of the topic. Every partition is resolved before anything is
// declared, so a resolution failure leaves no partial declaration behind. A dry run
// returns the resolved offsets without declaring them.
func (s *Service) Retransmit(ctx context.Context, target model.RetransmissionTarget) (model.PartitionOffsets, error) {
	s.logState(target, model.StateRequested)

	offsets, err := s.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}

	if target.DryRun {
		s.preview(ctx, target, offsets)
		return offsets, nil
	}

	if err := s.Declare(ctx, target, offsets); err != nil {
		return nil, err
	}
	return offsets, nil
}

// IsConverged reports whether the consumers of subscription committed at or past every
// declared target of topic on cluster. An empty cluster means the service's own.
func (s *Service) IsConverged(ctx context.Context, topic model.LogicalTopic, subscription, cluster string) (bool, error) {
	if cluster == "" {
		cluster = s.cluster
	}
	scope := model.Scope{Topic: topic.Name, Subscription: subscription, Cluster: cluster}
	if err := scope.Validate(); err != nil {
		return false, NewErrorWithCause(ErrCodeValidation, "invalid convergence scope", err)
	}
	if err := s.checkCluster(cluster); err != nil {
		return false, err
	}

	converged, err := s.indicator.HasConverged(ctx, topic, subscription, cluster)
	if err != nil {
		return false, err
	}
	if err := s.observer.ConvergenceChecked(ctx, scope, converged); err != nil {
		s.logger.Warnf("Observer failed on convergence check: %v", err)
	}
	return converged, nil
}

// Withdraw removes every declared target of subscription on topic and cluster, so
// consumers stop being moved. It returns how many partition targets were removed.
// An empty cluster means the service's own.
func (s *Service) Withdraw(ctx context.Context, topic model.LogicalTopic, subscription, cluster string) (int, error) {
	if cluster == "" {
		cluster = s.cluster
	}
	scope := model.Scope{Topic: topic.Name, Subscription: subscription, Cluster: cluster}
	if err := scope.Validate(); err != nil {
		return 0, NewErrorWithCause(ErrCodeValidation, "invalid withdrawal scope", err)
	}
	if err := s.checkCluster(cluster); err != nil {
		return 0, err
	}

	callCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	removed, err := s.targets.DeleteByScope(callCtx, scope)
	if err != nil {
		return 0, NewErrorWithCause(ErrCodeDatabase,
			fmt.Sprintf("cannot withdraw offsets of subscription %s of topic %s on cluster %s",
				subscription, topic.Name, cluster), err)
	}

	s.logger.Infof("Withdrew %d offset changes: topic=%s, subscription=%s, cluster=%s",
		removed, topic.Name, subscription, cluster)
	return removed, nil
}

func (s *Service) validate(target model.RetransmissionTarget) error {
	if err := target.Validate(); err != nil {
		return NewErrorWithCause(ErrCodeValidation, "invalid retransmission target", err)
	}
	return s.checkCluster(target.Cluster)
}

// checkCluster rejects clusters other than the one a bound service talks to.
func (s *Service) checkCluster(cluster string) error {
	if s.cluster != "" && cluster != s.cluster {
		return NewError(ErrCodeValidation,
			fmt.Sprintf("cluster %s does not match service cluster %s", cluster, s.cluster))
	}
	return nil
}

func (s *Service) preview(ctx context.Context, target model.RetransmissionTarget, offsets model.PartitionOffsets) {
	s.logState(target, model.StatePreviewed)
	if err := s.observer.RetransmissionDeclared(ctx, target, model.StatePreviewed, offsets); err != nil {
		s.logger.Warnf("Observer failed on preview: %v", err)
	}
}

func (s *Service) logState(target model.RetransmissionTarget, state model.State) {
	at := "end"
	if target.Timestamp != nil {
		at = target.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	s.logger.Debugf("Retransmission %s: topic=%s, subscription=%s, cluster=%s, at=%s, dryRun=%t",
		state, target.Topic.Name, target.Subscription, target.Cluster, at, target.DryRun)
}

func (s *Service) notifyFailed(ctx context.Context, target model.RetransmissionTarget, err error) {
	s.logger.Errorf("Retransmission failed: topic=%s, subscription=%s, cluster=%s: %v",
		target.Topic.Name, target.Subscription, target.Cluster, err)
	if nerr := s.observer.RetransmissionFailed(ctx, target, err); nerr != nil {
		s.logger.Warnf("Observer failed on failure: %v", nerr)
	}
}
