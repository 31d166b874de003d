// Package main provides the retransmission server executable with its HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/coregx/retransmit"
	"github.com/coregx/retransmit/adapters/kafka"
	"github.com/coregx/retransmit/adapters/relica"
	"github.com/coregx/retransmit/cmd/retransmit-server/internal/api"
	"github.com/coregx/retransmit/cmd/retransmit-server/internal/config"
	"github.com/coregx/retransmit/cmd/retransmit-server/internal/logging"
	"github.com/coregx/retransmit/cmd/retransmit-server/internal/metrics"
	"github.com/coregx/retransmit/model"
	"github.com/coregx/retransmit/retry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "retransmit-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewStdout(cfg.Log.Level, cfg.Log.Pretty)
	logger.Info("Starting retransmission server")
	logger.Infof("Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Database: %s (%s:%d)", cfg.Database.Driver, cfg.Database.Host, cfg.Database.Port)
	logger.Infof("Clusters: %v", cfg.Kafka.ClusterNames())

	// Connect to database
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Errorf("Failed to close database: %v", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.Migrate {
		if err := retransmit.ApplyMigrations(ctx, db, cfg.Database.Driver, cfg.Database.Prefix); err != nil {
			return err
		}
		logger.Info("Migrations applied")
	}

	repos := relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	observer := metrics.NewObserver()

	multi, pools, err := buildEngine(cfg, repos, observer, logger)
	defer func() {
		for _, pool := range pools {
			pool.Close()
		}
	}()
	if err != nil {
		return err
	}

	poll := retry.Strategy{
		MaxAttempts:     cfg.Retransmit.PollAttempts,
		BaseDelay:       cfg.Retransmit.PollBaseDelay,
		MaxDelay:        cfg.Retransmit.PollMaxDelay,
		ExponentialBase: 2.0,
	}
	logger.Debugf("%s", poll.GetRetrySchedule())

	// Setup HTTP routes
	handler := api.NewHandler(multi, repos.Topic, poll, logger)
	mux := http.NewServeMux()
	handler.Routes(mux)
	mux.Handle("GET /metrics", observer.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     loggingMiddleware(mux, logger),
		ReadTimeout: 15 * time.Second,
		// moved?wait=true blocks for the whole poll schedule
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// buildEngine creates one Service per configured cluster and joins them in a MultiDC.
// The returned pools must be closed by the caller, even on error.
func buildEngine(cfg *config.Config, repos *relica.Repositories, observer retransmit.Observer, logger retransmit.Logger) (*retransmit.MultiDC, []*kafka.Pool, error) {
	var pools []*kafka.Pool
	services := make(map[string]*retransmit.Service, len(cfg.Kafka.Clusters))
	namer := kafka.PatternGroupNamer(cfg.Retransmit.GroupPattern)

	for _, name := range cfg.Kafka.ClusterNames() {
		pool, err := kafka.NewPool(cfg.Kafka.Clusters[name],
			kafka.WithPoolSize(cfg.Kafka.PoolSize),
			kafka.WithPoolLogger(logger),
		)
		if err != nil {
			return nil, pools, fmt.Errorf("cluster %s: %w", name, err)
		}
		pools = append(pools, pool)

		service, err := retransmit.NewService(
			retransmit.WithBroker(kafka.NewDirectory(pool.Admin()), pool),
			retransmit.WithOffsetStores(repos.OffsetChange, kafka.NewCommittedReader(pool.Admin(), namer)),
			retransmit.WithLogger(logger),
			retransmit.WithNamesMapper(model.NewNamesMapper(cfg.Retransmit.Namespace)),
			retransmit.WithCluster(name),
			retransmit.WithConcurrency(cfg.Retransmit.Concurrency),
			retransmit.WithCallTimeout(cfg.Retransmit.CallTimeout),
			retransmit.WithObserver(observer),
		)
		if err != nil {
			return nil, pools, fmt.Errorf("cluster %s: %w", name, err)
		}
		services[name] = service
		logger.Infof("Cluster %s ready (%d brokers)", name, len(cfg.Kafka.Clusters[name]))
	}

	multi, err := retransmit.NewMultiDC(services, logger)
	return multi, pools, err
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger retransmit.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
