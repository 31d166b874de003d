// Package kafka provides the broker-side collaborators of the retransmission engine
// on top of franz-go: a partition directory, a pool of offset clients and a reader of
// consumer group commits.
//
// All three share the kadm admin client of a Pool:
//
//	pool, err := kafka.NewPool([]string{"localhost:9092"}, kafka.WithPoolSize(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	service, err := retransmit.NewService(
//	    retransmit.WithBroker(kafka.NewDirectory(pool.Admin()), pool),
//	    retransmit.WithOffsetStores(repos.OffsetChange, kafka.NewCommittedReader(pool.Admin(), nil)),
//	    retransmit.WithLogger(logger),
//	)
package kafka
