package retransmit

import (
	"fmt"
	"time"

	"github.com/coregx/retransmit/model"
)

// Option is a function that configures a Service.
//
// Example:
//
//	service, err := retransmit.NewService(
//	    retransmit.WithBroker(directory, pool),
//	    retransmit.WithOffsetStores(repos.OffsetChange, committed),
//	    retransmit.WithLogger(logger),
//	    retransmit.WithConcurrency(32), // optional
//	)
type Option func(*Service) error

// WithBroker sets the broker-side dependencies of the service.
// Both are required and must not be nil.
//
// This is a required option for NewService.
//
// Parameters:
//   - directory: Lists the partitions of a physical log
//   - pool: Hands out per-partition offset clients
func WithBroker(directory PartitionDirectory, pool ClientPool) Option {
	return func(s *Service) error {
		if directory == nil {
			return fmt.Errorf("partition directory cannot be nil")
		}
		if pool == nil {
			return fmt.Errorf("client pool cannot be nil")
		}

		s.directory = directory
		s.pool = pool
		return nil
	}
}

// WithOffsetStores sets where targets are declared and where committed offsets are read.
// Both are required and must not be nil.
//
// This is a required option for NewService.
func WithOffsetStores(targets TargetRepository, committed CommittedOffsetReader) Option {
	return func(s *Service) error {
		if targets == nil {
			return fmt.Errorf("target repository cannot be nil")
		}
		if committed == nil {
			return fmt.Errorf("committed offset reader cannot be nil")
		}

		s.targets = targets
		s.committed = committed
		return nil
	}
}

// WithLogger sets the logger instance for the service.
// Logger is required and must not be nil.
//
// Use NoopLogger for silent operation.
func WithLogger(logger Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithNamesMapper sets how logical topics map to physical logs.
// Optional - defaults to a mapper without namespace.
func WithNamesMapper(mapper model.NamesMapper) Option {
	return func(s *Service) error {
		s.mapper = mapper
		return nil
	}
}

// WithCluster binds the service to a named cluster. Targets for any other cluster
// are rejected. Optional - an unbound service accepts any cluster name.
func WithCluster(name string) Option {
	return func(s *Service) error {
		if name == "" {
			return fmt.Errorf("cluster name cannot be empty")
		}
		s.cluster = name
		return nil
	}
}

// WithConcurrency sets how many partitions are resolved at the same time.
// Optional - default is 16. Must be > 0.
func WithConcurrency(n int) Option {
	return func(s *Service) error {
		if n <= 0 {
			return fmt.Errorf("concurrency must be > 0, got %d", n)
		}
		s.concurrency = n
		return nil
	}
}

// WithCallTimeout bounds every broker and store call.
// Optional - default is 10s. Zero disables the bound.
func WithCallTimeout(timeout time.Duration) Option {
	return func(s *Service) error {
		if timeout < 0 {
			return fmt.Errorf("call timeout must be >= 0, got %s", timeout)
		}
		s.timeout = timeout
		return nil
	}
}

// WithObserver sets an optional observer receiving retransmission events.
// Optional - defaults to NoOpObserver.
func WithObserver(observer Observer) Option {
	return func(s *Service) error {
		if observer == nil {
			return fmt.Errorf("observer cannot be nil")
		}
		s.observer = observer
		return nil
	}
}
