package retransmit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/retransmit/model"
)

var epoch = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestFanout_SingleLogOneEntryPerPartition(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	f.broker.addTopic("orders", 6, 5, epoch)

	offsets, err := f.service.FetchEndOffsets(context.Background(), model.NewLogicalTopic("orders", model.ContentTypeJSON))
	require.NoError(t, err)

	require.Len(t, offsets, 6)
	keyed := offsets.Keyed()
	require.Len(t, keyed, 6)
	for p := int32(0); p < 6; p++ {
		offset, ok := keyed[model.PartitionKey{Topic: "orders", Partition: p}]
		require.True(t, ok, "partition %d missing", p)
		assert.GreaterOrEqual(t, offset, int64(0))
		assert.Equal(t, int64(5), offset)
	}
}

func TestFanout_DualLogsSplitPerLog(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	// 4 partitions per log: 3 records each in the JSON log, 2 each in the Avro log.
	f.broker.addTopic("payments", 4, 3, epoch)
	f.broker.addTopic("payments_avro", 4, 2, epoch)

	topic := model.NewLogicalTopic("payments", model.ContentTypeJSON)
	topic.MigrateToAvro()

	offsets, err := f.service.FetchEndOffsets(context.Background(), topic)
	require.NoError(t, err)
	require.Len(t, offsets, 8)

	sums := offsets.SumPerTopic()
	assert.Equal(t, map[string]int64{"payments": 12, "payments_avro": 8}, sums)

	byTopic := offsets.ByTopic()
	for _, po := range byTopic["payments"] {
		assert.Equal(t, "payments", po.Topic)
	}
	for _, po := range byTopic["payments_avro"] {
		assert.Equal(t, "payments_avro", po.Topic)
	}
	assert.Len(t, byTopic["payments"], 4)
	assert.Len(t, byTopic["payments_avro"], 4)
}

func TestFanout_AvroTopicUsesSuffixedLog(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	f.broker.addTopic("events", 2, 1, epoch)
	f.broker.addTopic("events_avro", 3, 4, epoch)

	offsets, err := f.service.FetchEndOffsets(context.Background(), model.NewLogicalTopic("events", model.ContentTypeAvro))
	require.NoError(t, err)

	require.Len(t, offsets, 3)
	for _, po := range offsets {
		assert.Equal(t, "events_avro", po.Topic)
	}
}

func TestFanout_NamespacedLogs(t *testing.T) {
	f, err := newFixture(WithNamesMapper(model.NewNamesMapper("prod")))
	require.NoError(t, err)
	f.broker.addTopic("prod_orders", 2, 1, epoch)

	offsets, err := f.service.FetchEndOffsets(context.Background(), model.NewLogicalTopic("orders", model.ContentTypeJSON))
	require.NoError(t, err)
	require.Len(t, offsets, 2)
	assert.Equal(t, "prod_orders", offsets[0].Topic)
}

func TestFanout_SortedOutput(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	f.broker.addTopic("payments", 3, 1, epoch)
	f.broker.addTopic("payments_avro", 3, 1, epoch)

	topic := model.NewLogicalTopic("payments", model.ContentTypeJSON)
	topic.MigrateToAvro()

	offsets, err := f.service.FetchEndOffsets(context.Background(), topic)
	require.NoError(t, err)

	var got []string
	for _, po := range offsets {
		got = append(got, po.Key().String())
	}
	assert.Equal(t, []string{
		"payments/0", "payments/1", "payments/2",
		"payments_avro/0", "payments_avro/1", "payments_avro/2",
	}, got)
}

func TestFanout_TimestampFallbackMatchesEnd(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	f.broker.addTopic("orders", 3, 4, epoch)
	topic := model.NewLogicalTopic("orders", model.ContentTypeJSON)
	ctx := context.Background()

	end, err := f.service.FetchEndOffsets(ctx, topic)
	require.NoError(t, err)

	late, err := f.service.FetchOffsetsAt(ctx, topic, epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, end.Keyed(), late.Keyed())

	middle, err := f.service.FetchOffsetsAt(ctx, topic, epoch.Add(2*time.Second))
	require.NoError(t, err)
	for _, po := range middle {
		assert.Equal(t, int64(2), po.Offset)
	}
}

func TestFanout_ListsPartitionsFreshEveryCall(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	f.broker.addTopic("orders", 2, 1, epoch)
	topic := model.NewLogicalTopic("orders", model.ContentTypeJSON)
	ctx := context.Background()

	first, err := f.service.FetchEndOffsets(ctx, topic)
	require.NoError(t, err)
	require.Len(t, first, 2)

	f.broker.logs[model.PartitionKey{Topic: "orders", Partition: 2}] = &fakeLog{}

	second, err := f.service.FetchEndOffsets(ctx, topic)
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, 2, f.broker.listCalls)
}

func TestFanout_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(b *fakeBroker)
		code     string
		contains string
	}{
		{
			name:     "directory unavailable",
			setup:    func(b *fakeBroker) { b.listErr["orders"] = errUnavailable },
			code:     ErrCodePartitionDirectoryUnavailable,
			contains: "orders",
		},
		{
			name:     "no client for partition",
			setup:    func(b *fakeBroker) { b.acquireErr = errUnavailable },
			code:     ErrCodeOffsetNotFound,
			contains: "orders/",
		},
		{
			name:     "one partition without end offset",
			setup:    func(b *fakeBroker) { b.log("orders", 3).noEnd = true },
			code:     ErrCodeOffsetNotFound,
			contains: "orders/3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := newFixture()
			require.NoError(t, err)
			f.broker.addTopic("orders", 5, 2, epoch)
			tt.setup(f.broker)

			offsets, err := f.service.FetchEndOffsets(context.Background(), model.NewLogicalTopic("orders", model.ContentTypeJSON))
			require.Error(t, err)
			assert.Nil(t, offsets)
			assert.True(t, HasCode(err, tt.code), "got %v", err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestFanout_SecondLogUnavailable(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)
	f.broker.addTopic("payments", 2, 1, epoch)
	f.broker.addTopic("payments_avro", 2, 1, epoch)
	f.broker.listErr["payments_avro"] = errUnavailable

	topic := model.NewLogicalTopic("payments", model.ContentTypeJSON)
	topic.MigrateToAvro()

	offsets, err := f.service.FetchEndOffsets(context.Background(), topic)
	require.Error(t, err)
	assert.Nil(t, offsets)
	assert.True(t, HasCode(err, ErrCodePartitionDirectoryUnavailable))
	assert.Contains(t, err.Error(), "payments_avro")
}

func TestFanout_InvalidTopic(t *testing.T) {
	f, err := newFixture()
	require.NoError(t, err)

	_, err = f.service.FetchEndOffsets(context.Background(), model.LogicalTopic{Name: "orders", ContentType: "XML"})
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeValidation))
}
