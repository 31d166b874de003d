// Package relica provides Relica query builder implementations for retransmit repositories.
//
//nolint:dupl // Repository pattern requires similar implementations for different types
package relica

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/coregx/relica"

	"github.com/coregx/retransmit"
	"github.com/coregx/retransmit/model"
)

// OffsetChangeRepository implements retransmit.TargetRepository using Relica.
type OffsetChangeRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewOffsetChangeRepository creates a new OffsetChangeRepository with default table prefix.
func NewOffsetChangeRepository(sqlDB *sql.DB, driverName string) *OffsetChangeRepository {
	return NewOffsetChangeRepositoryWithPrefix(sqlDB, driverName, retransmit.DefaultTablePrefix)
}

// NewOffsetChangeRepositoryWithPrefix creates a new OffsetChangeRepository with custom table prefix.
func NewOffsetChangeRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *OffsetChangeRepository {
	return &OffsetChangeRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *OffsetChangeRepository) tableName() string {
	return r.tablePrefix + "offset_change"
}

// Save declares the record's target, overwriting the target of an existing record for
// the same partition.
func (r *OffsetChangeRepository) Save(ctx context.Context, m model.OffsetChangeRecord) (model.OffsetChangeRecord, error) {
	existing, err := r.Find(ctx, m.Scope(), m.KafkaTopic, m.Partition)
	if retransmit.IsNoData(err) {
		inserted, insertErr := r.insert(ctx, m)
		if insertErr == nil {
			return inserted, nil
		}
		// A concurrent declaration may have inserted the row first.
		existing, err = r.Find(ctx, m.Scope(), m.KafkaTopic, m.Partition)
		if err != nil {
			return m, insertErr
		}
	}
	if err != nil {
		return m, err
	}

	existing.Retarget(m.Offset)
	err = r.db.WithContext(ctx).Model(&existing).Table(r.tableName()).Update()
	if err != nil {
		return m, retransmit.NewErrorWithCause(retransmit.ErrCodeDatabase, "failed to update offset change", err)
	}
	return existing, nil
}

func (r *OffsetChangeRepository) insert(ctx context.Context, m model.OffsetChangeRecord) (model.OffsetChangeRecord, error) {
	m.ID = 0
	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert()
	if err != nil {
		return m, retransmit.NewErrorWithCause(retransmit.ErrCodeDatabase, "failed to insert offset change", err)
	}
	return m, nil
}

// Find retrieves the record declared for one partition.
func (r *OffsetChangeRepository) Find(ctx context.Context, scope model.Scope, kafkaTopic string, partition int32) (model.OffsetChangeRecord, error) {
	var record model.OffsetChangeRecord
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("topic = ? AND subscription = ? AND cluster = ? AND kafka_topic = ? AND partition_id = ?",
			scope.Topic, scope.Subscription, scope.Cluster, kafkaTopic, partition).
		WithContext(ctx).
		One(&record)

	if errors.Is(err, sql.ErrNoRows) {
		return record, retransmit.ErrNoData
	}
	if err != nil {
		return record, retransmit.NewErrorWithCause(retransmit.ErrCodeDatabase, "failed to find offset change", err)
	}
	return record, nil
}

// FindByScope retrieves every record declared for a subscription on a cluster,
// ordered by kafka topic and partition.
func (r *OffsetChangeRepository) FindByScope(ctx context.Context, scope model.Scope) ([]model.OffsetChangeRecord, error) {
	var records []model.OffsetChangeRecord
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("topic = ? AND subscription = ? AND cluster = ?", scope.Topic, scope.Subscription, scope.Cluster).
		OrderBy("kafka_topic ASC").
		WithContext(ctx).
		All(&records)
	if err != nil {
		return nil, retransmit.NewErrorWithCause(retransmit.ErrCodeDatabase, "failed to find offset changes by scope", err)
	}
	if len(records) == 0 {
		return nil, retransmit.ErrNoData
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].KafkaTopic != records[j].KafkaTopic {
			return records[i].KafkaTopic < records[j].KafkaTopic
		}
		return records[i].Partition < records[j].Partition
	})
	return records, nil
}

// DeleteByScope removes every record of a subscription on a cluster and returns how
// many were removed. Used by operators to withdraw a retransmission consumers have
// not picked up yet.
func (r *OffsetChangeRepository) DeleteByScope(ctx context.Context, scope model.Scope) (int, error) {
	records, err := r.FindByScope(ctx, scope)
	if retransmit.IsNoData(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	for i := range records {
		// Delete using Model() API - auto WHERE id = ?
		if err := r.db.WithContext(ctx).Model(&records[i]).Table(r.tableName()).Delete(); err != nil {
			return i, retransmit.NewErrorWithCause(retransmit.ErrCodeDatabase, "failed to delete offset change", err)
		}
	}
	return len(records), nil
}
