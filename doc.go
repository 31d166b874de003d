// Package retransmit rewinds the delivery position of a subscription on a partitioned,
// append-only log to a point in time or to the end of the log, across every partition
// of every physical log backing a topic and across every data center.
//
// Works both as a library embedded in a management service AND as a standalone
// microservice with a REST API (cmd/retransmit-server).
//
// # Features
//
//   - Per-partition offset resolution for a timestamp, falling back to the end of the log
//   - Dual-encoding topics: a topic migrated from JSON to Avro is backed by two logs and
//     resolved, declared and reported per log
//   - Durable offset change declarations, last writer wins per partition
//   - Convergence polling against the consumers' own committed offsets
//   - Dry runs for operator preview, grouped per cluster and per log
//   - Bounded concurrent fan-out with per-call timeouts
//   - Options Pattern for service construction; bring your own Logger and Observer
//   - Kafka adapters built on franz-go (kgo/kadm)
//   - Multi-Database Support: MySQL, PostgreSQL, SQLite via Relica adapters
//   - Embedded Migrations for easy database setup
//
// # Quick Start
//
// Apply the database migrations and create the adapters:
//
//	db, _ := sql.Open("mysql", "user:pass@tcp(localhost:3306)/retransmit?parseTime=true")
//	if err := retransmit.ApplyMigrations(ctx, db, "mysql", retransmit.DefaultTablePrefix); err != nil {
//	    log.Fatal(err)
//	}
//	repos := relica.NewRepositories(db, "mysql")
//
//	pool, _ := kafka.NewPool([]string{"localhost:9092"}, kafka.WithPoolSize(4))
//	defer pool.Close()
//
// Create a service for the cluster:
//
//	service, _ := retransmit.NewService(
//	    retransmit.WithBroker(kafka.NewDirectory(pool.Admin()), pool),
//	    retransmit.WithOffsetStores(repos.OffsetChange, kafka.NewCommittedReader(pool.Admin(), nil)),
//	    retransmit.WithCluster("dc1"),
//	    retransmit.WithLogger(logger),
//	)
//
// Rewind a subscription by one hour, then wait for consumers to catch up:
//
//	at := time.Now().Add(-time.Hour)
//	offsets, err := service.Retransmit(ctx, model.RetransmissionTarget{
//	    Topic:        topic,
//	    Subscription: "billing",
//	    Cluster:      "dc1",
//	    Timestamp:    &at,
//	})
//
//	err = retry.Poll(ctx, retry.DefaultStrategy(), func(ctx context.Context) (bool, error) {
//	    return service.IsConverged(ctx, topic, "billing", "dc1")
//	})
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│    MultiDC / REST API               │
//	└─────────────┬───────────────────────┘
//	              │
//	┌─────────────▼───────────────────────┐
//	│    Service (one per cluster)        │
//	│  Fanout → OffsetResolver            │
//	│  OffsetChangeIndicator              │
//	└─────────────┬───────────────────────┘
//	              │
//	┌─────────────▼───────────────────────┐
//	│  Adapters: kafka (directory, pool,  │
//	│  committed offsets), relica (store) │
//	└─────────────────────────────────────┘
//
// The core never retries: a failed retransmission must be restarted from scratch,
// because partitions may have changed in between.
package retransmit
