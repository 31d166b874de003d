package retransmit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coregx/retransmit/model"
)

// Fanout resolves offsets for every partition of every log backing a logical topic.
//
// Partition lists are read fresh on every call. Per-partition resolution runs
// concurrently, bounded by the configured concurrency, and the first failure cancels the
// remaining work: a fan-out either returns every partition or an error.
type Fanout struct {
	directory   PartitionDirectory
	pool        ClientPool
	resolver    *OffsetResolver
	mapper      model.NamesMapper
	concurrency int
	timeout     time.Duration
	logger      Logger
}

// ResolveAll resolves the offset for ts (end of log when nil) on every partition of every
// physical log of topic. The result holds exactly one entry per partition, sorted by log
// name and partition.
func (f *Fanout) ResolveAll(ctx context.Context, topic model.LogicalTopic, ts *time.Time) (model.PartitionOffsets, error) {
	physical, err := f.mapper.ToPhysical(topic)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, fmt.Sprintf("topic %s cannot be mapped to logs", topic.Name), err)
	}

	keys, err := f.partitionKeys(ctx, physical)
	if err != nil {
		return nil, err
	}

	offsets := make(model.PartitionOffsets, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			offset, err := f.resolvePartition(gctx, key, ts)
			if err != nil {
				return err
			}
			offsets[i] = offset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	offsets.Sort()
	f.logger.Debugf("Resolved %d partition offsets for topic %s across %d logs",
		len(offsets), topic.Name, len(physical.Names()))
	return offsets, nil
}

// partitionKeys lists the partitions of every backing log.
func (f *Fanout) partitionKeys(ctx context.Context, physical model.PhysicalTopic) ([]model.PartitionKey, error) {
	var keys []model.PartitionKey
	for _, name := range physical.Names() {
		partitions, err := ListPartitions(ctx, f.directory, name, f.timeout)
		if err != nil {
			return nil, err
		}
		for _, partition := range partitions {
			keys = append(keys, model.PartitionKey{Topic: name, Partition: partition})
		}
	}
	return keys, nil
}

func (f *Fanout) resolvePartition(ctx context.Context, key model.PartitionKey, ts *time.Time) (model.PartitionOffset, error) {
	acquireCtx, cancel := withTimeout(ctx, f.timeout)
	client, err := f.pool.Acquire(acquireCtx, key.Topic, key.Partition)
	cancel()
	if err != nil {
		return model.PartitionOffset{}, NewErrorWithCause(ErrCodeOffsetNotFound,
			fmt.Sprintf("no offset client for partition %s", key), err)
	}
	return f.resolver.Resolve(ctx, client, key.Topic, key.Partition, ts)
}

// ListPartitions reads the partitions of a log from directory, bounded by timeout.
// Failures are reported as ErrCodePartitionDirectoryUnavailable.
func ListPartitions(ctx context.Context, directory PartitionDirectory, topic string, timeout time.Duration) ([]int32, error) {
	callCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	partitions, err := directory.ListPartitions(callCtx, topic)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodePartitionDirectoryUnavailable,
			fmt.Sprintf("cannot list partitions of %s", topic), err)
	}
	return partitions, nil
}
