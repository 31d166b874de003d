package model

import "sort"

// OffsetChangeSummary holds the offsets resolved for a retransmission on every cluster.
// It is what a dry run returns for operator review.
type OffsetChangeSummary struct {
	PartitionOffsetListPerBrokerName map[string]PartitionOffsets `json:"partitionOffsetListPerBrokerName"`
}

// NewOffsetChangeSummary creates an empty summary.
func NewOffsetChangeSummary() *OffsetChangeSummary {
	return &OffsetChangeSummary{PartitionOffsetListPerBrokerName: make(map[string]PartitionOffsets)}
}

// Add records the offsets resolved on a cluster, replacing earlier ones.
func (s *OffsetChangeSummary) Add(cluster string, offsets PartitionOffsets) {
	s.PartitionOffsetListPerBrokerName[cluster] = offsets
}

// For returns the offsets resolved on a cluster.
func (s *OffsetChangeSummary) For(cluster string) PartitionOffsets {
	return s.PartitionOffsetListPerBrokerName[cluster]
}

// Clusters returns the cluster names in the summary, sorted.
func (s *OffsetChangeSummary) Clusters() []string {
	names := make([]string, 0, len(s.PartitionOffsetListPerBrokerName))
	for name := range s.PartitionOffsetListPerBrokerName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SumPerTopic sums the offsets of a cluster per physical log, which separates the
// old-encoding total from the new-encoding total during a migration.
func (s *OffsetChangeSummary) SumPerTopic(cluster string) map[string]int64 {
	return s.For(cluster).SumPerTopic()
}
