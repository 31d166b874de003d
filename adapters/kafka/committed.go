package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"

	"github.com/coregx/retransmit/model"
)

// DefaultGroupPattern names the consumer group of a subscription.
const DefaultGroupPattern = "{topic}_{subscription}"

// GroupNamer returns the consumer group that serves a subscription on a cluster.
type GroupNamer func(scope model.Scope) string

// PatternGroupNamer builds a GroupNamer from a pattern with {topic}, {subscription}
// and {cluster} placeholders.
func PatternGroupNamer(pattern string) GroupNamer {
	return func(scope model.Scope) string {
		return strings.NewReplacer(
			"{topic}", scope.Topic,
			"{subscription}", scope.Subscription,
			"{cluster}", scope.Cluster,
		).Replace(pattern)
	}
}

// CommittedReader reads the offsets committed by a subscription's consumer group.
type CommittedReader struct {
	admin *kadm.Client
	namer GroupNamer
}

// NewCommittedReader creates a reader over admin. A nil namer uses DefaultGroupPattern.
func NewCommittedReader(admin *kadm.Client, namer GroupNamer) *CommittedReader {
	if namer == nil {
		namer = PatternGroupNamer(DefaultGroupPattern)
	}
	return &CommittedReader{admin: admin, namer: namer}
}

// Group returns the consumer group of scope.
func (r *CommittedReader) Group(scope model.Scope) string {
	return r.namer(scope)
}

// CommittedOffsets implements retransmit.CommittedOffsetReader with one offset fetch
// for the whole consumer group.
func (r *CommittedReader) CommittedOffsets(ctx context.Context, scope model.Scope) (model.PartitionOffsets, error) {
	group := r.namer(scope)
	fetched, err := r.admin.FetchOffsets(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("fetch offsets of group %s: %w", group, err)
	}

	var (
		offsets model.PartitionOffsets
		failed  error
	)
	fetched.Each(func(resp kadm.OffsetResponse) {
		switch {
		case resp.Err != nil:
			if failed == nil {
				failed = fmt.Errorf("group %s on %s/%d: %w", group, resp.Topic, resp.Partition, resp.Err)
			}
		case resp.At >= 0:
			offsets = append(offsets, model.PartitionOffset{Topic: resp.Topic, Partition: resp.Partition, Offset: resp.At})
		}
	})
	if failed != nil {
		return nil, failed
	}

	offsets.Sort()
	return offsets, nil
}
