package vector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/viant/mlvec/version"
)

// scanPageSize is the number of rows Scan loads per query. Rows are released
// before the callback runs so callbacks may use the same database.
const scanPageSize = 256

// SQLiteStore implements Store on top of a SQLite database. Any
// database/sql handle works; engine.Open provides the modernc.org/sqlite one.
type SQLiteStore struct {
	db      *sql.DB
	closeDB bool
}

// SQLiteOption customizes a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithCloseDB makes Close also close the underlying *sql.DB.
func WithCloseDB() SQLiteOption {
	return func(s *SQLiteStore) { s.closeDB = true }
}

// NewSQLiteStore creates a new SQLite-backed Store. It ensures the records
// schema exists in the provided database.
func NewSQLiteStore(db *sql.DB, opts ...SQLiteOption) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("vector: db is nil")
	}
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB exposes the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

const upsertRecord = `INSERT INTO records(namespace, set_name, user_key, bin, digest, payload)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(namespace, set_name, user_key, bin) DO UPDATE SET
  digest = excluded.digest,
  payload = excluded.payload`

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	return s.PutMany(ctx, []Record{rec})
}

// PutMany stores all records in a single transaction. Either every record is
// stored or none is.
func (s *SQLiteStore) PutMany(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	prepared := make([]Record, len(recs))
	for i, rec := range recs {
		p, err := PrepareRecord(rec)
		if err != nil {
			return err
		}
		prepared[i] = p
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertRecord)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range prepared {
		if _, err := stmt.ExecContext(ctx, r.Key.Namespace, r.Key.Set, r.Key.UserKey, r.Bin, r.Digest[:], r.Blob); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key Key, bin string) (*Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	row := s.db.QueryRowContext(ctx, `SELECT digest, payload FROM records
WHERE namespace = ? AND set_name = ? AND user_key = ? AND bin = ?`, key.Namespace, key.Set, key.UserKey, bin)
	var digest, payload []byte
	if err := row.Scan(&digest, &payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec := &Record{Key: key, Bin: bin, Blob: payload}
	copy(rec.Digest[:], digest)
	return rec, nil
}

// Remove implements Store.
func (s *SQLiteStore) Remove(ctx context.Context, key Key) error {
	if key.Namespace == "" || key.UserKey == "" {
		return invalidArgument("remove requires namespace and user key")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE namespace = ? AND set_name = ? AND user_key = ?`,
		key.Namespace, key.Set, key.UserKey)
	return err
}

// Truncate deletes every record in namespace and set; an empty set clears
// the whole namespace. It returns the number of rows deleted.
func (s *SQLiteStore) Truncate(ctx context.Context, namespace, set string) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	query := `DELETE FROM records WHERE namespace = ?`
	args := []any{namespace}
	if set != "" {
		query += ` AND set_name = ?`
		args = append(args, set)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Scan implements Store. Records are visited in insertion order.
func (s *SQLiteStore) Scan(ctx context.Context, namespace, set string, fn func(Record) bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	query := `SELECT rowid, set_name, user_key, bin, digest, payload FROM records WHERE namespace = ? AND rowid > ?`
	if set != "" {
		query += ` AND set_name = ?`
	}
	query += ` ORDER BY rowid LIMIT ?`

	var last int64
	for {
		args := []any{namespace, last}
		if set != "" {
			args = append(args, set)
		}
		args = append(args, scanPageSize)
		page, lastRowID, err := s.scanPage(ctx, namespace, query, args)
		if err != nil {
			return err
		}
		for _, rec := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !fn(rec) {
				return nil
			}
		}
		if len(page) < scanPageSize {
			return nil
		}
		last = lastRowID
	}
}

func (s *SQLiteStore) scanPage(ctx context.Context, namespace, query string, args []any) ([]Record, int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out  []Record
		last int64
	)
	for rows.Next() {
		var (
			rec     Record
			digest  []byte
			payload []byte
		)
		if err := rows.Scan(&last, &rec.Key.Set, &rec.Key.UserKey, &rec.Bin, &digest, &payload); err != nil {
			return nil, 0, err
		}
		rec.Key.Namespace = namespace
		copy(rec.Digest[:], digest)
		rec.Blob = payload
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, last, nil
}

// ServerVersion reports the SQLite library version.
func (s *SQLiteStore) ServerVersion(ctx context.Context) (version.Version, error) {
	var text string
	if err := s.db.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&text); err != nil {
		return version.Version{}, err
	}
	v, ok := version.Parse(text)
	if !ok {
		return version.Version{}, fmt.Errorf("vector: unrecognized sqlite version %q", text)
	}
	return v, nil
}

// Close implements Store. The database is closed only when the store was
// created WithCloseDB.
func (s *SQLiteStore) Close() error {
	if s.closeDB {
		return s.db.Close()
	}
	return nil
}

// Ensure SQLiteStore satisfies the Store and Versioned interfaces.
var (
	_ Store     = (*SQLiteStore)(nil)
	_ Versioned = (*SQLiteStore)(nil)
	_ Truncater = (*SQLiteStore)(nil)
)
