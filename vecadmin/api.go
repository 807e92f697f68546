package vecadmin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/mlvec/index/bruteforce"
	"github.com/viant/mlvec/vector"
	"modernc.org/sqlite/vtab"
)

const indexSchema = `CREATE TABLE IF NOT EXISTS vector_indexes (
    name   TEXT PRIMARY KEY,
    metric TEXT NOT NULL,
    data   BLOB NOT NULL
)`

// Target names the records a persisted index covers, written as
// "namespace/set/bin" with an optional "/metric" suffix. An empty set covers
// the whole namespace.
type Target struct {
	Namespace string
	Set       string
	Bin       string
	Metric    vector.Metric
}

// ParseTarget parses the textual target form.
func ParseTarget(text string) (Target, error) {
	parts := strings.Split(text, "/")
	if len(parts) < 3 || len(parts) > 4 || parts[0] == "" || parts[2] == "" {
		return Target{}, fmt.Errorf("vec_admin: target %q must be namespace/set/bin[/metric]", text)
	}
	t := Target{Namespace: parts[0], Set: parts[1], Bin: parts[2]}
	if len(parts) == 4 {
		m, err := vector.ParseMetric(parts[3])
		if err != nil {
			return Target{}, err
		}
		t.Metric = m
	}
	return t, nil
}

// Name is the key the index is persisted under.
func (t Target) Name() string { return t.Namespace + "/" + t.Set + "/" + t.Bin }

// Module provides administrative operations via a virtual table. The
// database must be opened with engine.OpenWAL and passed to Register first.
// Usage:
//
//	CREATE VIRTUAL TABLE vec_admin USING vec_admin(op);
//	SELECT op FROM vec_admin WHERE op MATCH 'test/demo/vector_bin'; -- rebuild index
//
// Returns a single row with op='reindexed:<count>' on success.
type Module struct{ db *sql.DB }

type Table struct{ db *sql.DB }

type Cursor struct {
	table *Table
	rows  []string
	pos   int
}

// ErrWALRequired is returned by Register when db is not a WAL file database.
// A MATCH rebuilds the index on a second connection while the query's own
// connection is still reading, which only WAL allows.
var ErrWALRequired = errors.New("vec_admin: database must be a file database in WAL mode (see engine.OpenWAL)")

// Register registers the vec_admin module and creates the vector_indexes
// table. Only connections opened after the module is registered can create
// the virtual table, so call it before using db.
func Register(db *sql.DB) error {
	if err := vtab.RegisterModule(db, "vec_admin", &Module{db: db}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	var mode string
	if err := db.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		return err
	}
	if !strings.EqualFold(mode, "wal") {
		return fmt.Errorf("%w: journal_mode is %s", ErrWALRequired, mode)
	}
	_, err := db.Exec(indexSchema)
	return err
}

func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Connect(ctx, args)
}

func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("vec_admin: need at least 3 args")
	}
	// Single TEXT column `op` reporting results.
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(op)", args[2])); err != nil {
		return nil, err
	}
	return &Table{db: m.db}, nil
}

func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		if c.Column == 0 && c.Op == vtab.OpMATCH {
			c.ArgIndex = 0
			info.IdxNum = 1
			break
		}
	}
	return nil
}

func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }
func (t *Table) Disconnect() error          { return nil }
func (t *Table) Destroy() error             { return nil }

func (c *Cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	c.rows = nil
	c.pos = 0
	if idxNum != 1 || len(vals) == 0 || vals[0] == nil {
		return nil
	}
	text, ok := vals[0].(string)
	if !ok {
		return fmt.Errorf("vec_admin: MATCH expects a target as TEXT")
	}
	target, err := ParseTarget(text)
	if err != nil {
		return err
	}
	n, err := Reindex(context.Background(), c.table.db, target)
	if err != nil {
		return err
	}
	c.rows = []string{fmt.Sprintf("reindexed:%d", n)}
	return nil
}

func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("vec_admin: Column out of range")
	}
	if col == 0 {
		return c.rows[c.pos], nil
	}
	return nil, nil
}

func (c *Cursor) Rowid() (int64, error) { return int64(c.pos + 1), nil }

func (c *Cursor) Close() error {
	c.rows = nil
	c.pos = 0
	return nil
}

// Reindex rebuilds a brute-force index over the target's records and
// persists it in vector_indexes. Blobs that fail to decode abort the rebuild.
func Reindex(ctx context.Context, db *sql.DB, target Target) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, indexSchema); err != nil {
		return 0, err
	}

	// Load ids and vectors
	query := `SELECT user_key, payload FROM records WHERE namespace = ? AND bin = ?`
	args := []any{target.Namespace, target.Bin}
	if target.Set != "" {
		query += ` AND set_name = ?`
		args = append(args, target.Set)
	}
	query += ` ORDER BY rowid`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	var (
		ids  []string
		vecs []vector.Vector
	)
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			rows.Close()
			return 0, err
		}
		v, _, err := vector.Deserialize(blob)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("vec_admin: record %q: %w", id, err)
		}
		ids = append(ids, id)
		vecs = append(vecs, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	idx := bruteforce.New(target.Metric)
	if err := idx.Build(ids, vecs); err != nil {
		return 0, err
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO vector_indexes(name, metric, data) VALUES(?, ?, ?)`,
		target.Name(), target.Metric.String(), data); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// LoadIndex restores the index persisted for target by Reindex. It returns
// nil when no index was stored.
func LoadIndex(ctx context.Context, db *sql.DB, target Target) (*bruteforce.Index, error) {
	var (
		metricName string
		data       []byte
	)
	err := db.QueryRowContext(ctx, `SELECT metric, data FROM vector_indexes WHERE name = ?`, target.Name()).Scan(&metricName, &data)
	if err == sql.ErrNoRows || (err != nil && strings.Contains(err.Error(), "no such table")) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	metric, err := vector.ParseMetric(metricName)
	if err != nil {
		return nil, err
	}
	idx := bruteforce.New(metric)
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return idx, nil
}
