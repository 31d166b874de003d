package relica

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/retransmit"
	"github.com/coregx/retransmit/model"
)

var (
	_ retransmit.TargetRepository = (*OffsetChangeRepository)(nil)
	_ retransmit.TopicRepository  = (*TopicRepository)(nil)
)

func newTestRepositories(t *testing.T) *Repositories {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, retransmit.ApplyMigrations(context.Background(), db, "sqlite3", retransmit.DefaultTablePrefix))
	return NewRepositories(db, "sqlite3")
}

func TestOffsetChangeRepository_SaveAndFind(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	scope := model.Scope{Topic: "orders", Subscription: "billing", Cluster: "dc1"}

	_, err := repos.OffsetChange.Find(ctx, scope, "orders", 0)
	assert.True(t, retransmit.IsNoData(err))

	saved, err := repos.OffsetChange.Save(ctx, model.NewOffsetChangeRecord(scope, model.PartitionOffset{Topic: "orders", Partition: 0, Offset: 42}))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	found, err := repos.OffsetChange.Find(ctx, scope, "orders", 0)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)
	assert.Equal(t, int64(42), found.Offset)
	assert.Equal(t, "billing", found.Subscription)
	assert.Equal(t, "dc1", found.Cluster)
}

func TestOffsetChangeRepository_SaveOverwritesPartition(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	scope := model.Scope{Topic: "orders", Subscription: "billing", Cluster: "dc1"}

	first, err := repos.OffsetChange.Save(ctx, model.NewOffsetChangeRecord(scope, model.PartitionOffset{Topic: "orders", Partition: 1, Offset: 10}))
	require.NoError(t, err)
	second, err := repos.OffsetChange.Save(ctx, model.NewOffsetChangeRecord(scope, model.PartitionOffset{Topic: "orders", Partition: 1, Offset: 3}))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	records, err := repos.OffsetChange.FindByScope(ctx, scope)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(3), records[0].Offset)
}

func TestOffsetChangeRepository_FindByScope(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	billing := model.Scope{Topic: "payments", Subscription: "billing", Cluster: "dc1"}
	other := []model.Scope{
		{Topic: "payments", Subscription: "audit", Cluster: "dc1"},
		{Topic: "payments", Subscription: "billing", Cluster: "dc2"},
		{Topic: "orders", Subscription: "billing", Cluster: "dc1"},
	}

	for _, po := range []model.PartitionOffset{
		{Topic: "payments_avro", Partition: 1, Offset: 7},
		{Topic: "payments", Partition: 1, Offset: 5},
		{Topic: "payments_avro", Partition: 0, Offset: 6},
		{Topic: "payments", Partition: 0, Offset: 4},
	} {
		_, err := repos.OffsetChange.Save(ctx, model.NewOffsetChangeRecord(billing, po))
		require.NoError(t, err)
	}
	for _, scope := range other {
		_, err := repos.OffsetChange.Save(ctx, model.NewOffsetChangeRecord(scope, model.PartitionOffset{Topic: "payments", Partition: 0, Offset: 99}))
		require.NoError(t, err)
	}

	records, err := repos.OffsetChange.FindByScope(ctx, billing)
	require.NoError(t, err)
	require.Len(t, records, 4)

	var got []string
	for _, record := range records {
		assert.Equal(t, billing, record.Scope())
		got = append(got, record.PartitionOffset().String())
	}
	assert.Equal(t, []string{"payments/0@4", "payments/1@5", "payments_avro/0@6", "payments_avro/1@7"}, got)

	_, err = repos.OffsetChange.FindByScope(ctx, model.Scope{Topic: "payments", Subscription: "nobody", Cluster: "dc1"})
	assert.True(t, retransmit.IsNoData(err))
}

func TestOffsetChangeRepository_DeleteByScope(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	billing := model.Scope{Topic: "orders", Subscription: "billing", Cluster: "dc1"}
	audit := model.Scope{Topic: "orders", Subscription: "audit", Cluster: "dc1"}

	for p := int32(0); p < 3; p++ {
		_, err := repos.OffsetChange.Save(ctx, model.NewOffsetChangeRecord(billing, model.PartitionOffset{Topic: "orders", Partition: p, Offset: 1}))
		require.NoError(t, err)
	}
	_, err := repos.OffsetChange.Save(ctx, model.NewOffsetChangeRecord(audit, model.PartitionOffset{Topic: "orders", Partition: 0, Offset: 1}))
	require.NoError(t, err)

	removed, err := repos.OffsetChange.DeleteByScope(ctx, billing)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, err = repos.OffsetChange.FindByScope(ctx, billing)
	assert.True(t, retransmit.IsNoData(err))

	remaining, err := repos.OffsetChange.FindByScope(ctx, audit)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	removed, err = repos.OffsetChange.DeleteByScope(ctx, billing)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestTopicRepository(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	_, err := repos.Topic.GetByName(ctx, "payments")
	assert.True(t, retransmit.IsNoData(err))

	topic, err := repos.Topic.Save(ctx, model.NewLogicalTopic("payments", model.ContentTypeJSON))
	require.NoError(t, err)
	require.NotZero(t, topic.ID)

	topic.MigrateToAvro()
	_, err = repos.Topic.Save(ctx, topic)
	require.NoError(t, err)

	loaded, err := repos.Topic.GetByName(ctx, "payments")
	require.NoError(t, err)
	assert.Equal(t, topic.ID, loaded.ID)
	assert.Equal(t, model.ContentTypeAvro, loaded.ContentType)
	assert.True(t, loaded.MigratedFromJSON)

	_, err = repos.Topic.Save(ctx, model.LogicalTopic{Name: "", ContentType: model.ContentTypeJSON})
	assert.True(t, retransmit.HasCode(err, retransmit.ErrCodeValidation))
}
