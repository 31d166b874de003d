package relica

import (
	"database/sql"
)

// Repositories holds all repository implementations.
type Repositories struct {
	OffsetChange *OffsetChangeRepository
	Topic        *TopicRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// The table prefix defaults to "retransmit_" but can be customized.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return &Repositories{
		OffsetChange: NewOffsetChangeRepository(db, driverName),
		Topic:        NewTopicRepository(db, driverName),
	}
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		OffsetChange: NewOffsetChangeRepositoryWithPrefix(db, driverName, prefix),
		Topic:        NewTopicRepositoryWithPrefix(db, driverName, prefix),
	}
}
