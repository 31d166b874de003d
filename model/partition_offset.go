package model

import (
	"fmt"
	"sort"
)

// PartitionOffset is a position within one partition of one physical log.
// It is a plain value: copy freely, compare by fields.
type PartitionOffset struct {
	Topic     string `json:"topic"`     // Physical log name
	Partition int32  `json:"partition"` // Partition number
	Offset    int64  `json:"offset"`    // Log position, never negative
}

// NewPartitionOffset creates a partition offset, rejecting negative offsets.
func NewPartitionOffset(topic string, partition int32, offset int64) (PartitionOffset, error) {
	if offset < 0 {
		return PartitionOffset{}, ErrNegativeOffset
	}
	return PartitionOffset{Topic: topic, Partition: partition, Offset: offset}, nil
}

// Key returns the identity of the partition the offset refers to.
func (p PartitionOffset) Key() PartitionKey {
	return PartitionKey{Topic: p.Topic, Partition: p.Partition}
}

func (p PartitionOffset) String() string {
	return fmt.Sprintf("%s/%d@%d", p.Topic, p.Partition, p.Offset)
}

// PartitionKey identifies a partition of a physical log.
type PartitionKey struct {
	Topic     string
	Partition int32
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("%s/%d", k.Topic, k.Partition)
}

// PartitionOffsets is a set of partition offsets, at most one per partition.
type PartitionOffsets []PartitionOffset

// Sort orders the offsets by topic, then partition.
func (ps PartitionOffsets) Sort() {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Topic != ps[j].Topic {
			return ps[i].Topic < ps[j].Topic
		}
		return ps[i].Partition < ps[j].Partition
	})
}

// Keyed indexes the offsets by partition.
func (ps PartitionOffsets) Keyed() map[PartitionKey]int64 {
	keyed := make(map[PartitionKey]int64, len(ps))
	for _, p := range ps {
		keyed[p.Key()] = p.Offset
	}
	return keyed
}

// ByTopic groups the offsets by physical log.
func (ps PartitionOffsets) ByTopic() map[string]PartitionOffsets {
	grouped := make(map[string]PartitionOffsets)
	for _, p := range ps {
		grouped[p.Topic] = append(grouped[p.Topic], p)
	}
	return grouped
}

// Sum adds up all offsets. For end offsets of logs starting at zero this equals the
// number of records.
func (ps PartitionOffsets) Sum() int64 {
	var sum int64
	for _, p := range ps {
		sum += p.Offset
	}
	return sum
}

// SumPerTopic sums offsets separately for every physical log.
func (ps PartitionOffsets) SumPerTopic() map[string]int64 {
	sums := make(map[string]int64)
	for topic, offsets := range ps.ByTopic() {
		sums[topic] = offsets.Sum()
	}
	return sums
}
