package vector

import (
	"context"
	"database/sql"
)

const recordsSchema = `
CREATE TABLE IF NOT EXISTS records (
    namespace TEXT NOT NULL,
    set_name  TEXT NOT NULL DEFAULT '',
    user_key  TEXT NOT NULL,
    bin       TEXT NOT NULL,
    digest    BLOB NOT NULL,
    payload   BLOB NOT NULL,
    PRIMARY KEY(namespace, set_name, user_key, bin)
);
CREATE INDEX IF NOT EXISTS records_digest ON records(namespace, digest);
`

// EnsureSchema creates the records table in the provided database if it does
// not already exist. Each row holds one vector blob for one bin of a record.
func EnsureSchema(db *sql.DB) error {
	return EnsureSchemaContext(context.Background(), db)
}

// EnsureSchemaContext is EnsureSchema with a caller-supplied context.
func EnsureSchemaContext(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, recordsSchema)
	return err
}
