// Package relica provides repository implementations using Relica query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database query builder
// for Go with zero production dependencies.
//
// This package provides production-ready implementations of the retransmit repository
// interfaces:
//   - TargetRepository (OffsetChangeRepository)
//   - TopicRepository
//
// Tables are created by retransmit.ApplyMigrations.
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    "github.com/coregx/retransmit"
//	    "github.com/coregx/retransmit/adapters/relica"
//	    _ "github.com/go-sql-driver/mysql"
//	)
//
//	// Open database connection
//	db, err := sql.Open("mysql", "user:pass@tcp(localhost:3306)/retransmit?parseTime=true")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create repositories (driverName should be "mysql", "postgres", or "sqlite3")
//	repos := relica.NewRepositories(db, "mysql")
//
//	service, err := retransmit.NewService(
//	    retransmit.WithBroker(directory, pool),
//	    retransmit.WithOffsetStores(repos.OffsetChange, committed),
//	    retransmit.WithLogger(logger),
//	)
package relica
