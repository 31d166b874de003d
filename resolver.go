package retransmit

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/retransmit/model"
)

// OffsetResolver computes the offset a subscription should move to on one partition.
//
// Without a timestamp that is the end of the log. With a timestamp it is the first record
// stamped at or after it, falling back to the end of the log when no such record exists:
// moving to "after everything currently in the log" is moving to the end.
type OffsetResolver struct {
	timeout time.Duration
}

// NewOffsetResolver creates a resolver bounding every store call by timeout.
// A zero timeout leaves calls bounded only by the caller's context.
func NewOffsetResolver(timeout time.Duration) *OffsetResolver {
	return &OffsetResolver{timeout: timeout}
}

// EndOffset returns the position immediately after the last record of the partition.
// A missing offset is an ErrCodeOffsetNotFound error naming the partition.
func (r *OffsetResolver) EndOffset(ctx context.Context, client OffsetClient, topic string, partition int32) (int64, error) {
	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	lookup, err := client.EndOffset(callCtx)
	if err != nil {
		return 0, NewErrorWithCause(ErrCodeOffsetNotFound,
			fmt.Sprintf("ending offset for partition %s/%d not found", topic, partition), err)
	}
	offset, ok := lookup.Get()
	if !ok {
		return 0, NewError(ErrCodeOffsetNotFound,
			fmt.Sprintf("ending offset for partition %s/%d not found", topic, partition))
	}
	return offset, nil
}

// OffsetAtOrBefore returns the offset to rewind to so that delivery restarts with the
// first record stamped at or after ts. When the store has no such record the end offset
// is returned instead.
func (r *OffsetResolver) OffsetAtOrBefore(ctx context.Context, client OffsetClient, topic string, partition int32, ts time.Time) (int64, error) {
	lookup, err := r.lookupAfter(ctx, client, topic, partition, ts)
	if err != nil {
		return 0, err
	}
	if offset, ok := lookup.Get(); ok {
		return offset, nil
	}
	return r.EndOffset(ctx, client, topic, partition)
}

// Resolve returns the partition offset for ts, or for the end of the log when ts is nil.
func (r *OffsetResolver) Resolve(ctx context.Context, client OffsetClient, topic string, partition int32, ts *time.Time) (model.PartitionOffset, error) {
	var (
		offset int64
		err    error
	)
	if ts == nil {
		offset, err = r.EndOffset(ctx, client, topic, partition)
	} else {
		offset, err = r.OffsetAtOrBefore(ctx, client, topic, partition, *ts)
	}
	if err != nil {
		return model.PartitionOffset{}, err
	}
	return model.NewPartitionOffset(topic, partition, offset)
}

func (r *OffsetResolver) lookupAfter(ctx context.Context, client OffsetClient, topic string, partition int32, ts time.Time) (model.OffsetLookup, error) {
	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	lookup, err := client.OffsetAfter(callCtx, ts.UnixMilli())
	if err != nil {
		return model.NotFound(), NewErrorWithCause(ErrCodeOffsetNotFound,
			fmt.Sprintf("offset for timestamp %s on partition %s/%d could not be read",
				ts.UTC().Format(time.RFC3339Nano), topic, partition), err)
	}
	return lookup, nil
}

// withTimeout bounds ctx by d; d <= 0 leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
