package model

import "time"

// OffsetChangeRecord is the durable declaration of where the consumers of a
// subscription must move to on one partition of one cluster.
//
// Records are written by the offset change indicator and read by consumer processes,
// which apply the offset to their own committed position. There is at most one record
// per (topic, subscription, cluster, kafka topic, partition); redeclaring overwrites it.
type OffsetChangeRecord struct {
	ID           int64     `json:"id" db:"id"`
	Topic        string    `json:"topic" db:"topic"`               // Logical topic name
	Subscription string    `json:"subscription" db:"subscription"` // Subscription name
	Cluster      string    `json:"cluster" db:"cluster"`           // Broker cluster name
	KafkaTopic   string    `json:"kafkaTopic" db:"kafka_topic"`    // Physical log name
	Partition    int32     `json:"partition" db:"partition_id"`
	Offset       int64     `json:"offset" db:"target_offset"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName returns the database table name for OffsetChangeRecord.
func (r OffsetChangeRecord) TableName() string {
	return tablePrefix + "offset_change"
}

// NewOffsetChangeRecord creates a record declaring offset for the scope.
func NewOffsetChangeRecord(scope Scope, offset PartitionOffset) OffsetChangeRecord {
	now := time.Now()
	return OffsetChangeRecord{
		ID:           0,
		Topic:        scope.Topic,
		Subscription: scope.Subscription,
		Cluster:      scope.Cluster,
		KafkaTopic:   offset.Topic,
		Partition:    offset.Partition,
		Offset:       offset.Offset,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Scope returns the scope the record belongs to.
func (r OffsetChangeRecord) Scope() Scope {
	return Scope{Topic: r.Topic, Subscription: r.Subscription, Cluster: r.Cluster}
}

// PartitionOffset returns the declared target.
func (r OffsetChangeRecord) PartitionOffset() PartitionOffset {
	return PartitionOffset{Topic: r.KafkaTopic, Partition: r.Partition, Offset: r.Offset}
}

// Retarget overwrites the declared offset.
func (r *OffsetChangeRecord) Retarget(offset int64) {
	r.Offset = offset
	r.UpdatedAt = time.Now()
}

// IsReachedBy reports whether a committed offset is at or past the declared target.
func (r OffsetChangeRecord) IsReachedBy(committed int64) bool {
	return committed >= r.Offset
}
