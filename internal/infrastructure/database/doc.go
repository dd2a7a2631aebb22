// Package database opens and migrates the SQLite file that holds the
// OrcheStream channel mapping table.
//
// The connection runs in WAL mode so the admin API can read mappings
// while the bridge writes, with a busy timeout to absorb brief lock
// contention. The pool is capped at a single writer connection, which
// is what SQLite actually supports.
//
// Migrations ship embedded in the binary (see the migrations package)
// as paired .up.sql/.down.sql files keyed by timestamp version. They
// are additive-only: new columns are nullable or defaulted, and
// nothing is dropped or renamed, so an older binary can still open a
// newer file.
//
// All queries go through parameterised statements. The database file
// is created 0600.
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
