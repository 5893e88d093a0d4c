// Package database provides the SQLite persistence layer for reeflink.
//
// It wraps database/sql with the mattn/go-sqlite3 driver, configured for
// an embedded single-writer workload: WAL journaling, busy timeout, a
// single open connection, and restrictive file permissions. Schema changes
// are applied through versioned migrations embedded in the binary.
//
// The only domain data stored here is reading history captured from
// refresh cycles and push updates (see the state package's history
// repository). Snapshots themselves are held in memory.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return fmt.Errorf("opening database: %w", err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return fmt.Errorf("migrating database: %w", err)
//	}
package database
