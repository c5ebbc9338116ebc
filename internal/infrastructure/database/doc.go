// Package database owns the SQLite connection and schema migrations.
//
// The database stores event mappings and the processed-event log. It
// opens in WAL mode so reads proceed during writes, with a single write
// connection and a busy timeout to keep SQLITE_BUSY out of normal
// operation. The file is chmodded to owner-only after creation.
//
// Migrations are SQL files embedded in the binary, named
// YYYYMMDD_HHMMSS_description.up.sql with a matching .down.sql. Each
// runs in its own transaction, so a failed migration leaves the earlier
// ones committed and the schema version table accurate.
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5000})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
