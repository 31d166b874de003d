package retransmit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// DefaultTablePrefix is the table prefix used by the migrations and the relica adapters
// unless another one is configured.
const DefaultTablePrefix = "retransmit_"

// MigrationFiles contains all SQL migration files embedded in the binary, one directory
// per driver (mysql, postgres, sqlite3). Table names carry a ${prefix} placeholder.
//
// Users can apply them with ApplyMigrations, or read them programmatically and feed
// their preferred migration tool after substituting the prefix.
//
//go:embed migrations/*/*.sql
var MigrationFiles embed.FS

// ApplyMigrations creates the offset change and topic tables for driverName
// ("mysql", "postgres" or "sqlite3"). Migrations are idempotent and run in file order.
//
// Example:
//
//	db, _ := sql.Open("mysql", "user:pass@tcp(localhost:3306)/retransmit?parseTime=true")
//	if err := retransmit.ApplyMigrations(ctx, db, "mysql", retransmit.DefaultTablePrefix); err != nil {
//	    log.Fatal(err)
//	}
func ApplyMigrations(ctx context.Context, db *sql.DB, driverName, prefix string) error {
	dir := path.Join("migrations", driverName)
	entries, err := fs.ReadDir(MigrationFiles, dir)
	if err != nil {
		return NewErrorWithCause(ErrCodeConfiguration, fmt.Sprintf("no migrations for driver %q", driverName), err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := fs.ReadFile(MigrationFiles, path.Join(dir, name))
		if err != nil {
			return NewErrorWithCause(ErrCodeDatabase, fmt.Sprintf("failed to read migration %s", name), err)
		}
		for _, stmt := range migrationStatements(string(content), prefix) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return NewErrorWithCause(ErrCodeDatabase, fmt.Sprintf("failed to apply migration %s", name), err)
			}
		}
	}
	return nil
}

// migrationStatements substitutes the table prefix and splits a migration file into
// statements; drivers are not assumed to accept multi-statement execs.
func migrationStatements(content, prefix string) []string {
	content = strings.ReplaceAll(content, "${prefix}", prefix)

	var stmts []string
	for _, stmt := range strings.Split(content, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
