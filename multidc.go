package retransmit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coregx/retransmit/model"
)

// MultiDC drives retransmissions across every data center of a deployment.
//
// Each cluster has its own Service. Clusters converge independently: there is no
// cross-cluster atomicity, and clusters declared before a failure stay declared.
type MultiDC struct {
	services map[string]*Service
	logger   Logger
}

// NewMultiDC creates a MultiDC over services keyed by cluster name.
// At least one cluster is required.
func NewMultiDC(services map[string]*Service, logger Logger) (*MultiDC, error) {
	if len(services) == 0 {
		return nil, NewError(ErrCodeConfiguration, "at least one cluster service is required")
	}
	if logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required")
	}
	for name, service := range services {
		if name == "" || service == nil {
			return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("invalid service for cluster %q", name))
		}
	}
	return &MultiDC{services: services, logger: logger}, nil
}

// Clusters returns the cluster names, sorted.
func (m *MultiDC) Clusters() []string {
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Service returns the service of a cluster.
func (m *MultiDC) Service(cluster string) (*Service, bool) {
	s, ok := m.services[cluster]
	return s, ok
}

// Retransmit moves subscription to ts (end of log when nil) on every cluster.
//
// Offsets are resolved on all clusters before any cluster is declared, so a resolution
// failure anywhere declares nothing. Declarations then run cluster by cluster in name
// order and stop at the first failure.
func (m *MultiDC) Retransmit(ctx context.Context, topic model.LogicalTopic, subscription string, ts *time.Time, dryRun bool) (*model.OffsetChangeSummary, error) {
	clusters := m.Clusters()
	targets := make([]model.RetransmissionTarget, len(clusters))
	resolved := make([]model.PartitionOffsets, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	for i, cluster := range clusters {
		targets[i] = model.RetransmissionTarget{
			Topic:        topic,
			Subscription: subscription,
			Cluster:      cluster,
			Timestamp:    ts,
			DryRun:       dryRun,
		}
		g.Go(func() error {
			offsets, err := m.services[cluster].Resolve(gctx, targets[i])
			if err != nil {
				return fmt.Errorf("cluster %s: %w", cluster, err)
			}
			resolved[i] = offsets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := model.NewOffsetChangeSummary()
	for i, cluster := range clusters {
		if dryRun {
			m.services[cluster].preview(ctx, targets[i], resolved[i])
		} else if err := m.services[cluster].Declare(ctx, targets[i], resolved[i]); err != nil {
			return nil, fmt.Errorf("cluster %s: %w", cluster, err)
		}
		summary.Add(cluster, resolved[i])
	}

	m.logger.Infof("Retransmission of %s for subscription %s on %d clusters (dryRun=%t)",
		topic.Name, subscription, len(clusters), dryRun)
	return summary, nil
}

// EndOffsets returns the end offsets of topic on every cluster.
func (m *MultiDC) EndOffsets(ctx context.Context, topic model.LogicalTopic) (*model.OffsetChangeSummary, error) {
	return m.collect(ctx, func(ctx context.Context, s *Service) (model.PartitionOffsets, error) {
		return s.FetchEndOffsets(ctx, topic)
	})
}

// OffsetsAt returns the offsets of topic for ts on every cluster.
func (m *MultiDC) OffsetsAt(ctx context.Context, topic model.LogicalTopic, ts time.Time) (*model.OffsetChangeSummary, error) {
	return m.collect(ctx, func(ctx context.Context, s *Service) (model.PartitionOffsets, error) {
		return s.FetchOffsetsAt(ctx, topic, ts)
	})
}

// AreConverged reports whether subscription converged on every cluster.
// It stops at the first cluster that has not.
func (m *MultiDC) AreConverged(ctx context.Context, topic model.LogicalTopic, subscription string) (bool, error) {
	for _, cluster := range m.Clusters() {
		converged, err := m.services[cluster].IsConverged(ctx, topic, subscription, cluster)
		if err != nil {
			return false, fmt.Errorf("cluster %s: %w", cluster, err)
		}
		if !converged {
			return false, nil
		}
	}
	return true, nil
}

// Withdraw removes the declared targets of subscription on every cluster and returns
// how many partition targets each cluster dropped. Clusters are withdrawn in name order
// and it stops at the first failure.
func (m *MultiDC) Withdraw(ctx context.Context, topic model.LogicalTopic, subscription string) (map[string]int, error) {
	withdrawn := make(map[string]int, len(m.services))
	for _, cluster := range m.Clusters() {
		removed, err := m.services[cluster].Withdraw(ctx, topic, subscription, cluster)
		if err != nil {
			return withdrawn, fmt.Errorf("cluster %s: %w", cluster, err)
		}
		withdrawn[cluster] = removed
	}
	return withdrawn, nil
}

func (m *MultiDC) collect(ctx context.Context, fetch func(context.Context, *Service) (model.PartitionOffsets, error)) (*model.OffsetChangeSummary, error) {
	clusters := m.Clusters()
	resolved := make([]model.PartitionOffsets, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	for i, cluster := range clusters {
		g.Go(func() error {
			offsets, err := fetch(gctx, m.services[cluster])
			if err != nil {
				return fmt.Errorf("cluster %s: %w", cluster, err)
			}
			resolved[i] = offsets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := model.NewOffsetChangeSummary()
	for i, cluster := range clusters {
		summary.Add(cluster, resolved[i])
	}
	return summary, nil
}
