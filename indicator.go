package retransmit

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/retransmit/model"
)

// OffsetChangeIndicator declares target offsets for a subscription and reports whether
// its consumers have caught up with them.
//
// Declarations are last-writer-wins per partition and are never rolled back. Convergence
// is a point-in-time poll; callers that need to wait must poll.
type OffsetChangeIndicator struct {
	targets   TargetRepository
	committed CommittedOffsetReader
	directory PartitionDirectory
	mapper    model.NamesMapper
	timeout   time.Duration
	logger    Logger
}

// Declare persists the target of one partition for the scope, overwriting any earlier
// target of that partition.
func (i *OffsetChangeIndicator) Declare(ctx context.Context, scope model.Scope, offset model.PartitionOffset) error {
	if offset.Offset < 0 {
		return NewErrorWithCause(ErrCodeValidation, fmt.Sprintf("invalid target %s", offset), model.ErrNegativeOffset)
	}

	callCtx, cancel := withTimeout(ctx, i.timeout)
	defer cancel()

	record := model.NewOffsetChangeRecord(scope, offset)
	if _, err := i.targets.Save(callCtx, record); err != nil {
		return NewErrorWithCause(ErrCodeDeclarationFailed,
			fmt.Sprintf("cannot declare offset %d on %s/%d for subscription %s of topic %s on cluster %s",
				offset.Offset, offset.Topic, offset.Partition, scope.Subscription, scope.Topic, scope.Cluster), err)
	}

	i.logger.Debugf("Declared offset change: topic=%s, subscription=%s, cluster=%s, partition=%s",
		scope.Topic, scope.Subscription, scope.Cluster, offset)
	return nil
}

// HasConverged reports whether every partition of topic with a declared target has a
// committed offset at or past that target.
//
// Partitions are listed fresh, so partitions added after the declaration are included;
// those without a declared target have nothing to reach. Committed offsets are read once
// per call. A partition whose committed offset is missing, or a committed read that
// fails, is not converged. Directory and target store failures are returned as errors.
func (i *OffsetChangeIndicator) HasConverged(ctx context.Context, topic model.LogicalTopic, subscription, cluster string) (bool, error) {
	scope := model.Scope{Topic: topic.Name, Subscription: subscription, Cluster: cluster}

	physical, err := i.mapper.ToPhysical(topic)
	if err != nil {
		return false, NewErrorWithCause(ErrCodeValidation, fmt.Sprintf("topic %s cannot be mapped to logs", topic.Name), err)
	}

	targets, err := i.declaredTargets(ctx, scope)
	if err != nil {
		return false, err
	}

	var pending []model.OffsetChangeRecord
	for _, name := range physical.Names() {
		partitions, err := ListPartitions(ctx, i.directory, name, i.timeout)
		if err != nil {
			return false, err
		}
		for _, partition := range partitions {
			if record, declared := targets[model.PartitionKey{Topic: name, Partition: partition}]; declared {
				pending = append(pending, record)
			}
		}
	}
	if len(pending) == 0 {
		return true, nil
	}

	committed, ok := i.committedOffsets(ctx, scope)
	if !ok {
		return false, nil
	}
	for _, record := range pending {
		if !partitionConverged(scope, record, committed, i.logger) {
			return false, nil
		}
	}
	return true, nil
}

func (i *OffsetChangeIndicator) declaredTargets(ctx context.Context, scope model.Scope) (map[model.PartitionKey]model.OffsetChangeRecord, error) {
	callCtx, cancel := withTimeout(ctx, i.timeout)
	defer cancel()

	records, err := i.targets.FindByScope(callCtx, scope)
	if err != nil && !IsNoData(err) {
		return nil, NewErrorWithCause(ErrCodeDatabase,
			fmt.Sprintf("cannot read declared offsets for subscription %s of topic %s on cluster %s",
				scope.Subscription, scope.Topic, scope.Cluster), err)
	}

	targets := make(map[model.PartitionKey]model.OffsetChangeRecord, len(records))
	for _, record := range records {
		targets[record.PartitionOffset().Key()] = record
	}
	return targets, nil
}

// committedOffsets reads the subscription's committed positions, keyed by partition.
// A failed read is logged and reported as not ok.
func (i *OffsetChangeIndicator) committedOffsets(ctx context.Context, scope model.Scope) (map[model.PartitionKey]int64, bool) {
	callCtx, cancel := withTimeout(ctx, i.timeout)
	defer cancel()

	committed, err := i.committed.CommittedOffsets(callCtx, scope)
	if err != nil {
		i.logger.Warnf("%s: committed offsets of subscription %s of topic %s (cluster %s) unreadable: %v",
			ErrCodeConvergenceIndeterminate, scope.Subscription, scope.Topic, scope.Cluster, err)
		return nil, false
	}
	return committed.Keyed(), true
}

func partitionConverged(scope model.Scope, record model.OffsetChangeRecord, committed map[model.PartitionKey]int64, logger Logger) bool {
	lookup := model.NotFound()
	if offset, ok := committed[record.PartitionOffset().Key()]; ok {
		lookup = model.Found(offset)
	}

	offset, ok := lookup.Get()
	if !ok {
		logger.Debugf("No committed offset yet: subscription=%s, partition=%s/%d, cluster=%s",
			scope.Subscription, record.KafkaTopic, record.Partition, scope.Cluster)
		return false
	}
	if !record.IsReachedBy(offset) {
		logger.Debugf("Offset not reached: subscription=%s, partition=%s/%d, committed=%d, target=%d",
			scope.Subscription, record.KafkaTopic, record.Partition, offset, record.Offset)
		return false
	}
	return true
}
