package retransmit

import (
	"context"

	"github.com/coregx/retransmit/model"
)

// PartitionDirectory lists the partitions of a physical log.
//
// Implementations must reflect the current cluster state on every call: partitions can
// be added between two retransmissions, so results must not be cached.
type PartitionDirectory interface {
	// ListPartitions returns the partition numbers of the log.
	// Any error is treated as the directory being unavailable.
	ListPartitions(ctx context.Context, topic string) ([]int32, error)
}

// OffsetClient queries offsets of the one partition it is bound to.
// It is never used to produce or consume application messages.
type OffsetClient interface {
	// EndOffset returns the position immediately after the last record.
	// NotFound means the partition or its metadata is missing.
	EndOffset(ctx context.Context) (model.OffsetLookup, error)

	// OffsetAfter returns the offset of the first record whose timestamp is at or after
	// millis (Unix milliseconds), or NotFound when there is no such record.
	OffsetAfter(ctx context.Context, millis int64) (model.OffsetLookup, error)
}

// ClientPool hands out offset clients bound to a partition.
//
// Acquire must be safe for concurrent use, and concurrent calls for different partitions
// must not block each other. A handle stays valid for at least one resolver call; callers
// never retain it beyond that.
type ClientPool interface {
	Acquire(ctx context.Context, topic string, partition int32) (OffsetClient, error)
}

// CommittedOffsetReader reads the live committed positions of a subscription's consumers.
type CommittedOffsetReader interface {
	// CommittedOffsets returns the committed offset of the subscription on every
	// partition it has committed on, across all physical logs. Partitions without a
	// commit are absent from the result.
	CommittedOffsets(ctx context.Context, scope model.Scope) (model.PartitionOffsets, error)
}

// TargetRepository persists offset change records.
//
// Implementations must be safe for concurrent use. Records are shared with the consumer
// processes that apply them; this module writes targets and withdraws them.
type TargetRepository interface {
	// Save stores the record, overwriting the target of an existing record with the same
	// scope, kafka topic and partition (last writer wins).
	Save(ctx context.Context, record model.OffsetChangeRecord) (model.OffsetChangeRecord, error)

	// Find retrieves the record of one partition.
	// Returns ErrNoData if nothing was declared there.
	Find(ctx context.Context, scope model.Scope, kafkaTopic string, partition int32) (model.OffsetChangeRecord, error)

	// FindByScope retrieves every record of the scope.
	// Returns ErrNoData if nothing was declared for the scope.
	FindByScope(ctx context.Context, scope model.Scope) ([]model.OffsetChangeRecord, error)

	// DeleteByScope removes every record of the scope and returns how many were removed.
	DeleteByScope(ctx context.Context, scope model.Scope) (int, error)
}

// TopicRepository stores logical topic metadata.
type TopicRepository interface {
	// GetByName retrieves a topic by its qualified name.
	// Returns ErrNoData if not found.
	GetByName(ctx context.Context, name string) (model.LogicalTopic, error)

	// Save creates a new topic (if ID=0) or updates an existing one.
	Save(ctx context.Context, topic model.LogicalTopic) (model.LogicalTopic, error)
}
