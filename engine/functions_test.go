package engine

import (
	"database/sql"
	"math"
	"testing"

	"github.com/viant/mlvec/vector"
)

// blobber returns a helper that serializes a freshly built vector.
func blobber(t *testing.T) func(vector.Vector, error) []byte {
	return func(v vector.Vector, err error) []byte {
		t.Helper()
		if err != nil {
			t.Fatalf("building vector failed: %v", err)
		}
		blob, err := vector.Serialize(v, v.Type())
		if err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}
		return blob
	}
}

func openWithFunctions(t *testing.T) *sql.DB {
	t.Helper()
	// Register globally before first connection so functions are available.
	if err := RegisterVectorFunctions(nil); err != nil {
		t.Fatalf("RegisterVectorFunctions failed: %v", err)
	}
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	// A second registration is a no-op.
	if err := RegisterVectorFunctions(db); err != nil {
		t.Fatalf("RegisterVectorFunctions failed: %v", err)
	}
	return db
}

func TestRegisterVectorFunctionsAndUse(t *testing.T) {
	db := openWithFunctions(t)
	mustBlob := blobber(t)

	aBlob := mustBlob(vector.NewFloat32([]float32{1, 0}))
	bBlob := mustBlob(vector.NewFloat32([]float32{0, 1}))
	cBlob := mustBlob(vector.NewFloat64([]float64{1, 0}))

	// vec_cosine orthogonal -> 0
	var sim float64
	if err := db.QueryRow(`SELECT vec_cosine(?, ?)`, aBlob, bBlob).Scan(&sim); err != nil {
		t.Fatalf("vec_cosine(a,b) query failed: %v", err)
	}
	if math.Abs(sim) > 1e-6 {
		t.Fatalf("vec_cosine(a,b) = %v, want 0", sim)
	}

	// vec_cosine identical across element types -> 1
	if err := db.QueryRow(`SELECT vec_cosine(?, ?)`, aBlob, cBlob).Scan(&sim); err != nil {
		t.Fatalf("vec_cosine(a,c) query failed: %v", err)
	}
	if math.Abs(sim-1) > 1e-9 {
		t.Fatalf("vec_cosine(a,c) = %v, want 1", sim)
	}

	// vec_l2 between (0,0) and (3,4) -> 5
	zeroBlob := mustBlob(vector.NewInt32([]int32{0, 0}))
	threeFourBlob := mustBlob(vector.NewInt64([]int64{3, 4}))

	var dist float64
	if err := db.QueryRow(`SELECT vec_l2(?, ?)`, zeroBlob, threeFourBlob).Scan(&dist); err != nil {
		t.Fatalf("vec_l2 query failed: %v", err)
	}
	if math.Abs(dist-5) > 1e-9 {
		t.Fatalf("vec_l2 = %v, want 5", dist)
	}

	// NULL in, NULL out
	var null sql.NullFloat64
	if err := db.QueryRow(`SELECT vec_l2(NULL, ?)`, aBlob).Scan(&null); err != nil {
		t.Fatalf("vec_l2(NULL) query failed: %v", err)
	}
	if null.Valid {
		t.Fatalf("vec_l2(NULL, a) = %v, want NULL", null.Float64)
	}
}

func TestVectorHeaderFunctions(t *testing.T) {
	db := openWithFunctions(t)
	blob := blobber(t)(vector.NewInt64([]int64{1, 2, 3}))

	var (
		count int64
		typ   string
	)
	if err := db.QueryRow(`SELECT vec_count(?), vec_type(?)`, blob, blob).Scan(&count, &typ); err != nil {
		t.Fatalf("vec_count/vec_type query failed: %v", err)
	}
	if count != 3 || typ != "int64" {
		t.Fatalf("vec_count, vec_type = %d, %q; want 3, int64", count, typ)
	}

	// Malformed blobs are reported as SQL errors.
	if err := db.QueryRow(`SELECT vec_count(?)`, []byte("not a vector blob")).Scan(&count); err == nil {
		t.Fatalf("vec_count on malformed blob succeeded, want error")
	}
}

func TestVersionFunctions(t *testing.T) {
	db := openWithFunctions(t)

	cases := []struct {
		a, b string
		want int64
	}{
		{"7.1.0.2", "7.1.0.3", -1},
		{"7.2.0.0", "7.1.9.9", 1},
		{"1.0.0.0", "1.0.0", 0},
		{"7.1.0.2-1-gabcdef", "7.1.0.2", 0},
	}
	for _, c := range cases {
		var got int64
		if err := db.QueryRow(`SELECT version_compare(?, ?)`, c.a, c.b).Scan(&got); err != nil {
			t.Fatalf("version_compare(%q, %q) failed: %v", c.a, c.b, err)
		}
		if got != c.want {
			t.Errorf("version_compare(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}

	var null sql.NullInt64
	if err := db.QueryRow(`SELECT version_compare('7.1', '7.1.0')`).Scan(&null); err != nil {
		t.Fatalf("version_compare on bad input failed: %v", err)
	}
	if null.Valid {
		t.Fatalf("version_compare('7.1', ...) = %d, want NULL", null.Int64)
	}

	var norm string
	if err := db.QueryRow(`SELECT version_normalize(sqlite_version())`).Scan(&norm); err != nil {
		t.Fatalf("version_normalize(sqlite_version()) failed: %v", err)
	}
	if norm == "" || norm[0] != '3' {
		t.Fatalf("version_normalize(sqlite_version()) = %q, want 3.x.y.z", norm)
	}
}
