// Package database provides SQLite connection management and schema
// migrations for Campus Core.
//
// # Features
//
//   - WAL mode for concurrent reads during writes
//   - Busy timeout to ride out lock contention
//   - Foreign key enforcement (always on)
//   - Embedded, versioned SQL migrations with per-migration transactions
//   - Restricted file permissions (0600)
//
// # Usage
//
//	db, err := database.Open(database.Config{Path: "./data/campuscore.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// All timestamps are stored as RFC3339 UTC text for portability.
package database
