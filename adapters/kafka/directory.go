package kafka

import (
	"context"
	"fmt"
	"sort"

	"github.com/twmb/franz-go/pkg/kadm"
)

// Directory lists partitions from cluster metadata. Every call asks the brokers.
type Directory struct {
	admin *kadm.Client
}

// NewDirectory creates a directory reading metadata through admin.
func NewDirectory(admin *kadm.Client) *Directory {
	return &Directory{admin: admin}
}

// ListPartitions implements retransmit.PartitionDirectory.
func (d *Directory) ListPartitions(ctx context.Context, topic string) ([]int32, error) {
	topics, err := d.admin.ListTopics(ctx, topic)
	if err != nil {
		return nil, err
	}

	detail, ok := topics[topic]
	if !ok {
		return nil, fmt.Errorf("topic %s not found", topic)
	}
	if detail.Err != nil {
		return nil, detail.Err
	}

	partitions := make([]int32, 0, len(detail.Partitions))
	for partition := range detail.Partitions {
		partitions = append(partitions, partition)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })
	return partitions, nil
}
