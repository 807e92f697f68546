package vecadmin

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mlvec/engine"
	"github.com/viant/mlvec/vector"
)

func seedRecords(t *testing.T, store *vector.SQLiteStore) {
	t.Helper()
	for i, values := range [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}} {
		blob, err := vector.EncodeEmbedding(values)
		require.NoError(t, err)
		require.NoError(t, store.Put(context.Background(), vector.Record{
			Key:  vector.Key{Namespace: "test", Set: "demo", UserKey: fmt.Sprintf("k%d", i)},
			Bin:  "vector_bin",
			Blob: blob,
		}))
	}
	// A record in another bin stays out of the index.
	blob, err := vector.EncodeEmbedding([]float32{5, 5})
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), vector.Record{
		Key: vector.Key{Namespace: "test", Set: "demo", UserKey: "k0"}, Bin: "other_bin", Blob: blob,
	}))
}

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("test/demo/vector_bin/cosine")
	require.NoError(t, err)
	assert.Equal(t, Target{Namespace: "test", Set: "demo", Bin: "vector_bin", Metric: vector.MetricCosine}, target)
	assert.Equal(t, "test/demo/vector_bin", target.Name())

	target, err = ParseTarget("test//vector_bin")
	require.NoError(t, err)
	assert.Equal(t, "", target.Set)

	for _, bad := range []string{"", "test", "test/demo", "/demo/bin", "test/demo/", "a/b/c/d/e", "test/demo/bin/hamming"} {
		_, err := ParseTarget(bad)
		assert.Error(t, err, bad)
	}
}

func TestReindexAndLoad(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	store, err := vector.NewSQLiteStore(db, vector.WithCloseDB())
	require.NoError(t, err)
	defer store.Close()

	target := Target{Namespace: "test", Set: "demo", Bin: "vector_bin"}
	idx, err := LoadIndex(ctx, db, target)
	require.NoError(t, err)
	assert.Nil(t, idx)

	seedRecords(t, store)
	n, err := Reindex(ctx, db, target)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	idx, err = LoadIndex(ctx, db, target)
	require.NoError(t, err)
	require.NotNil(t, idx)
	assert.Equal(t, vector.MetricL2, idx.Metric)
	q, err := vector.NewFloat32([]float32{1, 0})
	require.NoError(t, err)
	ids, _, err := idx.Query(q, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"k0", "k2"}, ids)

	// Corrupt blobs abort the rebuild and keep the previous index.
	_, err = db.Exec(`UPDATE records SET payload = X'00010203' WHERE user_key = 'k1' AND bin = 'vector_bin'`)
	require.NoError(t, err)
	_, err = Reindex(ctx, db, target)
	require.ErrorIs(t, err, vector.ErrInvalidArgument)
	idx, err = LoadIndex(ctx, db, target)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
}

func TestVecAdminReindex(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "vec_admin.sqlite")
	db, err := engine.OpenWAL(dbPath)
	if err != nil {
		t.Fatalf("engine.OpenWAL failed: %v", err)
	}
	defer db.Close()
	if err := Register(db); err != nil {
		t.Fatalf("vecadmin.Register failed: %v", err)
	}
	store, err := vector.NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	seedRecords(t, store)

	if _, err := db.Exec(`CREATE VIRTUAL TABLE vec_admin USING vec_admin(op)`); err != nil {
		t.Fatalf("CREATE VIRTUAL TABLE vec_admin failed: %v", err)
	}

	var op string
	if err := db.QueryRow(`SELECT op FROM vec_admin WHERE op MATCH 'test/demo/vector_bin/cosine'`).Scan(&op); err != nil {
		t.Fatalf("vec_admin MATCH failed: %v", err)
	}
	if op != "reindexed:3" {
		t.Fatalf("vec_admin op = %q, want reindexed:3", op)
	}

	idx, err := LoadIndex(context.Background(), db, Target{Namespace: "test", Set: "demo", Bin: "vector_bin"})
	if err != nil {
		t.Fatalf("LoadIndex failed: %v", err)
	}
	if idx == nil || idx.Len() != 3 || idx.Metric != vector.MetricCosine {
		t.Fatalf("LoadIndex = %+v, want 3 cosine entries", idx)
	}

	// Each bin gets its own index.
	if err := db.QueryRow(`SELECT op FROM vec_admin WHERE op MATCH 'test/demo/other_bin'`).Scan(&op); err != nil {
		t.Fatalf("vec_admin MATCH other_bin failed: %v", err)
	}
	if op != "reindexed:1" {
		t.Fatalf("vec_admin op = %q, want reindexed:1", op)
	}

	// Bad targets surface as query errors.
	if err := db.QueryRow(`SELECT op FROM vec_admin WHERE op MATCH 'test'`).Scan(&op); err == nil {
		t.Fatalf("vec_admin MATCH 'test' succeeded, want error")
	}
}

func TestRegisterRequiresWAL(t *testing.T) {
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	err = Register(db)
	assert.ErrorIs(t, err, ErrWALRequired)

	_, err = engine.OpenWAL(":memory:")
	assert.Error(t, err)
}
