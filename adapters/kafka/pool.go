package kafka

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/coregx/retransmit"
	"github.com/coregx/retransmit/model"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("kafka: pool closed")

// Pool is a fixed set of lazily created franz-go clients of one cluster. A partition
// always maps to the same client, and clients are shared by all partitions mapping to
// them; a kgo.Client is safe for concurrent use, so Acquire never blocks on another
// caller's request.
type Pool struct {
	seeds  []string
	opts   []kgo.Opt
	size   int
	logger retransmit.Logger

	slots  []*slot
	mu     sync.RWMutex
	closed bool
}

type slot struct {
	once   sync.Once
	client *kgo.Client
	admin  *kadm.Client
	err    error
}

// PoolOption configures a Pool.
type PoolOption func(*Pool) error

// WithPoolSize sets how many clients the pool holds.
// Optional - default is 4. Must be > 0.
func WithPoolSize(n int) PoolOption {
	return func(p *Pool) error {
		if n <= 0 {
			return fmt.Errorf("pool size must be > 0, got %d", n)
		}
		p.size = n
		return nil
	}
}

// WithClientOpts appends franz-go options (SASL, TLS, timeouts) to every client.
func WithClientOpts(opts ...kgo.Opt) PoolOption {
	return func(p *Pool) error {
		p.opts = append(p.opts, opts...)
		return nil
	}
}

// WithPoolLogger sets the logger used when clients are created and closed.
// Optional - defaults to NoopLogger.
func WithPoolLogger(logger retransmit.Logger) PoolOption {
	return func(p *Pool) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// NewPool creates a pool for the cluster reachable through seeds.
// No connection is made until a client is first used.
func NewPool(seeds []string, opts ...PoolOption) (*Pool, error) {
	if len(seeds) == 0 {
		return nil, retransmit.NewError(retransmit.ErrCodeConfiguration, "at least one seed broker is required")
	}

	p := &Pool{
		seeds:  seeds,
		size:   4,
		logger: &retransmit.NoopLogger{},
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, retransmit.NewErrorWithCause(retransmit.ErrCodeConfiguration, "failed to apply pool option", err)
		}
	}

	p.slots = make([]*slot, p.size)
	for i := range p.slots {
		p.slots[i] = &slot{}
	}
	// The first client backs Admin and is created up front; kgo only dials on first use.
	if _, err := p.slotFor(0); err != nil {
		return nil, retransmit.NewErrorWithCause(retransmit.ErrCodeConfiguration, "failed to create kafka client", err)
	}
	return p, nil
}

// Acquire returns an offset client bound to one partition of topic.
func (p *Pool) Acquire(_ context.Context, topic string, partition int32) (retransmit.OffsetClient, error) {
	s, err := p.slotFor(p.slotIndex(topic, partition))
	if err != nil {
		return nil, err
	}
	return &partitionClient{client: s.client, topic: topic, partition: partition}, nil
}

// Admin returns the admin client of the pool's first slot, for metadata and group
// requests that are not bound to a partition.
func (p *Pool) Admin() *kadm.Client {
	return p.slots[0].admin
}

// Close closes every client created so far. Acquire fails afterwards.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true

	for i, s := range p.slots {
		// Mark unused slots as done so they are never created after Close.
		s.once.Do(func() { s.err = ErrPoolClosed })
		if s.client != nil {
			s.client.Close()
			p.logger.Debugf("Closed kafka client %d", i)
		}
	}
}

func (p *Pool) slotIndex(topic string, partition int32) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	return int((h.Sum32() + uint32(partition)) % uint32(len(p.slots)))
}

func (p *Pool) slotFor(i int) (*slot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	s := p.slots[i]
	s.once.Do(func() {
		opts := append([]kgo.Opt{kgo.SeedBrokers(p.seeds...)}, p.opts...)
		s.client, s.err = kgo.NewClient(opts...)
		if s.err == nil {
			s.admin = kadm.NewClient(s.client)
			p.logger.Debugf("Created kafka client %d for %v", i, p.seeds)
		}
	})
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

// listLatest asks ListOffsets for the end offset.
const listLatest = -1

// partitionClient answers offset queries for one partition. Each query is a ListOffsets
// request for that partition only, routed by kgo to the partition leader.
type partitionClient struct {
	client    *kgo.Client
	topic     string
	partition int32
}

// EndOffset implements retransmit.OffsetClient.
func (c *partitionClient) EndOffset(ctx context.Context) (model.OffsetLookup, error) {
	return c.listOffset(ctx, listLatest)
}

// OffsetAfter implements retransmit.OffsetClient.
func (c *partitionClient) OffsetAfter(ctx context.Context, millis int64) (model.OffsetLookup, error) {
	return c.listOffset(ctx, millis)
}

func (c *partitionClient) listOffset(ctx context.Context, timestamp int64) (model.OffsetLookup, error) {
	req := kmsg.NewPtrListOffsetsRequest()
	req.ReplicaID = -1

	p := kmsg.NewListOffsetsRequestTopicPartition()
	p.Partition = c.partition
	p.CurrentLeaderEpoch = -1
	p.Timestamp = timestamp
	p.MaxNumOffsets = 1

	t := kmsg.NewListOffsetsRequestTopic()
	t.Topic = c.topic
	t.Partitions = append(t.Partitions, p)
	req.Topics = append(req.Topics, t)

	resp, err := req.RequestWith(ctx, c.client)
	if err != nil {
		return model.NotFound(), err
	}
	for _, rt := range resp.Topics {
		if rt.Topic != c.topic {
			continue
		}
		for _, rp := range rt.Partitions {
			if rp.Partition != c.partition {
				continue
			}
			if err := kerr.ErrorForCode(rp.ErrorCode); err != nil {
				return model.NotFound(), err
			}
			// -1 means the broker has no such offset.
			return model.Found(rp.Offset), nil
		}
	}
	return model.NotFound(), nil
}
