package retransmit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/coregx/retransmit/model"
)

var errUnavailable = errors.New("broker unavailable")

// fakeLog is a partition holding records stamped with the given times, in offset order.
type fakeLog struct {
	timestamps []time.Time
	endErr     error
	afterErr   error
	noEnd      bool
	blockEnd   bool // EndOffset waits for the context to end
	blockAfter bool // OffsetAfter waits for the context to end
}

type fakeBroker struct {
	mu         sync.Mutex
	logs       map[model.PartitionKey]*fakeLog
	listErr    map[string]error
	acquireErr error
	blockList  bool // ListPartitions waits for the context to end
	listCalls  int
	acquired   int
}

// waitDone blocks until ctx ends and returns its error, the way a stalled remote call
// gives up on its deadline.
func waitDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		logs:    make(map[model.PartitionKey]*fakeLog),
		listErr: make(map[string]error),
	}
}

// addTopic creates partitions of topic, each holding records records stamped from base
// in one second steps.
func (b *fakeBroker) addTopic(topic string, partitions int32, records int, base time.Time) {
	for p := int32(0); p < partitions; p++ {
		log := &fakeLog{}
		for i := 0; i < records; i++ {
			log.timestamps = append(log.timestamps, base.Add(time.Duration(i)*time.Second))
		}
		b.logs[model.PartitionKey{Topic: topic, Partition: p}] = log
	}
}

func (b *fakeBroker) log(topic string, partition int32) *fakeLog {
	return b.logs[model.PartitionKey{Topic: topic, Partition: partition}]
}

func (b *fakeBroker) ListPartitions(ctx context.Context, topic string) ([]int32, error) {
	b.mu.Lock()
	b.listCalls++
	block := b.blockList
	b.mu.Unlock()
	if block {
		return nil, waitDone(ctx)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.listErr[topic]; err != nil {
		return nil, err
	}
	var partitions []int32
	for key := range b.logs {
		if key.Topic == topic {
			partitions = append(partitions, key.Partition)
		}
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })
	return partitions, nil
}

func (b *fakeBroker) Acquire(_ context.Context, topic string, partition int32) (OffsetClient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acquired++
	if b.acquireErr != nil {
		return nil, b.acquireErr
	}
	return &fakeClient{log: b.logs[model.PartitionKey{Topic: topic, Partition: partition}]}, nil
}

type fakeClient struct {
	log *fakeLog
}

func (c *fakeClient) EndOffset(ctx context.Context) (model.OffsetLookup, error) {
	if c.log != nil && c.log.blockEnd {
		return model.NotFound(), waitDone(ctx)
	}
	if c.log == nil || c.log.noEnd {
		return model.NotFound(), nil
	}
	if c.log.endErr != nil {
		return model.NotFound(), c.log.endErr
	}
	return model.Found(int64(len(c.log.timestamps))), nil
}

func (c *fakeClient) OffsetAfter(ctx context.Context, millis int64) (model.OffsetLookup, error) {
	if c.log == nil {
		return model.NotFound(), nil
	}
	if c.log.blockAfter {
		return model.NotFound(), waitDone(ctx)
	}
	if c.log.afterErr != nil {
		return model.NotFound(), c.log.afterErr
	}
	for offset, ts := range c.log.timestamps {
		if ts.UnixMilli() >= millis {
			return model.Found(int64(offset)), nil
		}
	}
	return model.NotFound(), nil
}

type fakeTargets struct {
	mu      sync.Mutex
	records map[string]model.OffsetChangeRecord
	saves   int
	failAt    int // fail the n-th save (1-based), 0 never
	blockSave bool
	findErr   error
	deleteErr error
}

func newFakeTargets() *fakeTargets {
	return &fakeTargets{records: make(map[string]model.OffsetChangeRecord)}
}

func targetKey(scope model.Scope, topic string, partition int32) string {
	return model.PartitionKey{Topic: topic, Partition: partition}.String() + "|" +
		scope.Topic + "|" + scope.Subscription + "|" + scope.Cluster
}

func (t *fakeTargets) Save(ctx context.Context, record model.OffsetChangeRecord) (model.OffsetChangeRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saves++
	if t.blockSave {
		return record, waitDone(ctx)
	}
	if t.failAt != 0 && t.saves == t.failAt {
		return record, errors.New("store unavailable")
	}
	key := targetKey(record.Scope(), record.KafkaTopic, record.Partition)
	if existing, ok := t.records[key]; ok {
		existing.Retarget(record.Offset)
		t.records[key] = existing
		return existing, nil
	}
	record.ID = int64(len(t.records) + 1)
	t.records[key] = record
	return record, nil
}

func (t *fakeTargets) Find(_ context.Context, scope model.Scope, kafkaTopic string, partition int32) (model.OffsetChangeRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	record, ok := t.records[targetKey(scope, kafkaTopic, partition)]
	if !ok {
		return record, ErrNoData
	}
	return record, nil
}

func (t *fakeTargets) FindByScope(_ context.Context, scope model.Scope) ([]model.OffsetChangeRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.findErr != nil {
		return nil, t.findErr
	}
	var records []model.OffsetChangeRecord
	for _, record := range t.records {
		if record.Scope() == scope {
			records = append(records, record)
		}
	}
	return records, nil
}

func (t *fakeTargets) DeleteByScope(_ context.Context, scope model.Scope) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deleteErr != nil {
		return 0, t.deleteErr
	}
	removed := 0
	for key, record := range t.records {
		if record.Scope() == scope {
			delete(t.records, key)
			removed++
		}
	}
	return removed, nil
}

func (t *fakeTargets) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

type fakeCommitted struct {
	mu      sync.Mutex
	offsets map[model.Scope]map[model.PartitionKey]int64
	errs    map[model.Scope]error
	block   bool
	reads   int
}

func newFakeCommitted() *fakeCommitted {
	return &fakeCommitted{
		offsets: make(map[model.Scope]map[model.PartitionKey]int64),
		errs:    make(map[model.Scope]error),
	}
}

func (c *fakeCommitted) commit(scope model.Scope, topic string, partition int32, offset int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offsets[scope] == nil {
		c.offsets[scope] = make(map[model.PartitionKey]int64)
	}
	c.offsets[scope][model.PartitionKey{Topic: topic, Partition: partition}] = offset
}

func (c *fakeCommitted) forget(scope model.Scope, topic string, partition int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.offsets[scope], model.PartitionKey{Topic: topic, Partition: partition})
}

func (c *fakeCommitted) CommittedOffsets(ctx context.Context, scope model.Scope) (model.PartitionOffsets, error) {
	c.mu.Lock()
	c.reads++
	block := c.block
	c.mu.Unlock()
	if block {
		return nil, waitDone(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.errs[scope]; err != nil {
		return nil, err
	}
	var offsets model.PartitionOffsets
	for key, offset := range c.offsets[scope] {
		offsets = append(offsets, model.PartitionOffset{Topic: key.Topic, Partition: key.Partition, Offset: offset})
	}
	offsets.Sort()
	return offsets, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	states   []model.State
	failures int
	checks   []bool
}

func (o *recordingObserver) RetransmissionResolved(_ context.Context, _ model.RetransmissionTarget, _ model.PartitionOffsets, _ time.Duration) error {
	return nil
}

func (o *recordingObserver) RetransmissionDeclared(_ context.Context, _ model.RetransmissionTarget, state model.State, _ model.PartitionOffsets) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
	return nil
}

func (o *recordingObserver) RetransmissionFailed(_ context.Context, _ model.RetransmissionTarget, _ error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures++
	return errors.New("observer down")
}

func (o *recordingObserver) ConvergenceChecked(_ context.Context, _ model.Scope, converged bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checks = append(o.checks, converged)
	return nil
}

type fixture struct {
	broker    *fakeBroker
	targets   *fakeTargets
	committed *fakeCommitted
	observer  *recordingObserver
	service   *Service
}

func newFixture(opts ...Option) (*fixture, error) {
	f := &fixture{
		broker:    newFakeBroker(),
		targets:   newFakeTargets(),
		committed: newFakeCommitted(),
		observer:  &recordingObserver{},
	}
	all := append([]Option{
		WithBroker(f.broker, f.broker),
		WithOffsetStores(f.targets, f.committed),
		WithLogger(&NoopLogger{}),
		WithObserver(f.observer),
		WithConcurrency(4),
		WithCallTimeout(time.Second),
	}, opts...)

	service, err := NewService(all...)
	if err != nil {
		return nil, err
	}
	f.service = service
	return f, nil
}
