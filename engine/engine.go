package engine

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./db.sqlite". For in-memory
// databases, pass ":memory:". Every pooled connection to ":memory:" would see
// its own empty database, so in-memory handles are limited to one connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if IsMemory(dsn) {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// walPragmas make every pooled connection use write-ahead logging, wait for
// locks and take the write lock when a transaction begins.
const walPragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"

// OpenWAL opens a file database in WAL mode on every pooled connection. WAL
// lets one connection write while another holds an open read, which the
// vec_admin virtual table relies on. In-memory DSNs are rejected.
func OpenWAL(path string) (*sql.DB, error) {
	if path == "" || IsMemory(path) || strings.Contains(path, "mode=memory") {
		return nil, fmt.Errorf("engine: WAL requires a file database, got %q", path)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return sql.Open("sqlite", path+sep+walPragmas)
}

// IsMemory reports whether dsn names a private in-memory database.
func IsMemory(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") && !strings.Contains(dsn, "cache=shared")
}
