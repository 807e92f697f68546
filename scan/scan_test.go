package scan_test

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mlvec/engine"
	"github.com/viant/mlvec/scan"
	"github.com/viant/mlvec/vector"
	"github.com/viant/mlvec/vector/drivers"
	"github.com/viant/mlvec/version"
)

const (
	namespace = "test"
	set       = "demo"
	bin       = "vector_bin"
)

func mustVector(t *testing.T, values ...float32) vector.Vector {
	t.Helper()
	v, err := vector.NewFloat32(values)
	require.NoError(t, err)
	return v
}

func put(t *testing.T, store vector.Store, userKey, binName string, blob []byte) vector.Key {
	t.Helper()
	key := vector.Key{Namespace: namespace, Set: set, UserKey: userKey}
	require.NoError(t, store.Put(context.Background(), vector.Record{Key: key, Bin: binName, Blob: blob}))
	return key
}

func encode(t *testing.T, v vector.Vector) []byte {
	t.Helper()
	blob, err := vector.Serialize(v, v.Type())
	require.NoError(t, err)
	return blob
}

// seed stores the demo records: key_i holds [i, i+1, i+2, i+3].
func seed(t *testing.T, store vector.Store, n int) map[vector.Digest]float64 {
	t.Helper()
	want := map[vector.Digest]float64{}
	query := []float64{1, 2, 3, 4}
	for i := 0; i < n; i++ {
		f := float32(i)
		key := put(t, store, fmt.Sprintf("key_%d", i), bin, encode(t, mustVector(t, f, f+1, f+2, f+3)))
		var sum float64
		for j, q := range query {
			d := float64(i+j) - q
			sum += d * d
		}
		want[vector.ComputeDigest(key)] = math.Sqrt(sum)
	}
	return want
}

func stores(t *testing.T) map[string]vector.Store {
	t.Helper()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	sqliteStore, err := vector.NewSQLiteStore(db, vector.WithCloseDB())
	require.NoError(t, err)
	memory := drivers.NewMemoryStore(version.Version{})
	t.Cleanup(func() {
		_ = sqliteStore.Close()
		_ = memory.Close()
	})
	return map[string]vector.Store{"sqlite": sqliteStore, "memory": memory}
}

func TestScanner_Run(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			want := seed(t, store, 10)
			put(t, store, "key_0", "other_bin", encode(t, mustVector(t, 100)))

			got := map[vector.Digest]float64{}
			stats, err := scan.New(store).Run(context.Background(), scan.Request{
				Namespace: namespace,
				Set:       set,
				Bin:       bin,
				Vector:    mustVector(t, 1, 2, 3, 4),
			}, func(ns string, digest scan.Digest, setName string, distance float64) bool {
				assert.Equal(t, namespace, ns)
				assert.Equal(t, set, setName)
				got[digest] = distance
				return true
			})
			require.NoError(t, err)
			assert.Equal(t, scan.Stats{Scanned: 10, Matched: 10}, stats)
			require.Len(t, got, len(want))
			for digest, distance := range want {
				assert.InDelta(t, distance, got[digest], 1e-5, digest.String())
			}
		})
	}
}

func TestScanner_RunStopsEarly(t *testing.T) {
	store := drivers.NewMemoryStore(version.Version{})
	seed(t, store, 5)

	calls := 0
	stats, err := scan.New(store).Run(context.Background(), scan.Request{
		Namespace: namespace, Set: set, Bin: bin, Vector: mustVector(t, 1, 2, 3, 4),
	}, func(string, scan.Digest, string, float64) bool {
		calls++
		return calls < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, stats.Matched)
}

func TestScanner_RunSkipsBadRecords(t *testing.T) {
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	store, err := vector.NewSQLiteStore(db, vector.WithCloseDB())
	require.NoError(t, err)
	defer store.Close()
	seed(t, store, 3)

	// Bypass Put validation to plant a corrupt blob and a short vector.
	corrupt := encode(t, mustVector(t, 1, 2, 3, 4))
	corrupt[0] ^= 0xFF
	_, err = db.Exec(`INSERT INTO records(namespace, set_name, user_key, bin, digest, payload) VALUES(?, ?, ?, ?, ?, ?)`,
		namespace, set, "corrupt", bin, make([]byte, vector.DigestSize), corrupt)
	require.NoError(t, err)
	put(t, store, "short", bin, encode(t, mustVector(t, 1, 2)))

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	stats, err := scan.New(store, scan.WithLogger(logger)).Run(context.Background(), scan.Request{
		Namespace: namespace, Set: set, Bin: bin, Vector: mustVector(t, 1, 2, 3, 4),
	}, func(string, scan.Digest, string, float64) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, scan.Stats{Scanned: 5, Matched: 3, Skipped: 2}, stats)
	assert.Contains(t, logs.String(), "skipping undecodable vector")
}

func TestScanner_RunMaxDistanceAndMetric(t *testing.T) {
	store := drivers.NewMemoryStore(version.Version{})
	seed(t, store, 10)

	maxDistance := 2.5
	var distances []float64
	stats, err := scan.New(store).Run(context.Background(), scan.Request{
		Namespace:   namespace,
		Set:         set,
		Bin:         bin,
		Vector:      mustVector(t, 1, 2, 3, 4),
		MaxDistance: &maxDistance,
	}, func(_ string, _ scan.Digest, _ string, distance float64) bool {
		distances = append(distances, distance)
		return true
	})
	require.NoError(t, err)
	// key_0 is 2 away, key_1 is 0 away, key_2 is 2 away.
	assert.Equal(t, 3, stats.Matched)
	assert.Len(t, distances, 3)

	near := 1e-4
	stats, err = scan.New(store).Run(context.Background(), scan.Request{
		Namespace:   namespace,
		Set:         set,
		Bin:         bin,
		Vector:      mustVector(t, 2, 4, 6, 8),
		Metric:      vector.MetricCosine,
		MaxDistance: &near,
	}, func(string, scan.Digest, string, float64) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)
}

func TestScanner_RunQueryErrors(t *testing.T) {
	store := drivers.NewMemoryStore(version.Version{})
	seed(t, store, 2)
	noop := func(string, scan.Digest, string, float64) bool {
		t.Fatal("callback must not run")
		return false
	}

	_, err := scan.New(store).Run(context.Background(), scan.Request{Namespace: namespace, Bin: bin}, noop)
	assert.ErrorIs(t, err, vector.ErrInvalidArgument)

	_, err = scan.New(store).Run(context.Background(), scan.Request{
		Namespace: namespace, Bin: bin, Vector: mustVector(t, 1, 2, 3, 4), Type: vector.Float64,
	}, noop)
	assert.ErrorIs(t, err, vector.ErrInvalidArgument)

	_, err = scan.New(store).Run(context.Background(), scan.Request{Bin: bin, Vector: mustVector(t, 1)}, noop)
	assert.ErrorIs(t, err, vector.ErrInvalidArgument)

	_, err = scan.New(store).Run(context.Background(), scan.Request{Namespace: namespace, Bin: bin, Vector: mustVector(t, 1)}, nil)
	assert.Error(t, err)
}

func TestScanner_ReinterpretsSameWidthType(t *testing.T) {
	store := drivers.NewMemoryStore(version.Version{})
	i32, err := vector.NewInt32([]int32{1, 2})
	require.NoError(t, err)
	put(t, store, "ints", bin, encode(t, i32))

	matched := 0
	_, err = scan.New(store).Run(context.Background(), scan.Request{
		Namespace: namespace, Set: set, Bin: bin, Vector: mustVector(t, 1, 2), Type: vector.Int32,
	}, func(_ string, _ scan.Digest, _ string, distance float64) bool {
		matched++
		// The float32 bits of 1 and 2 read as int32 are far from [1, 2].
		assert.Greater(t, distance, 1e6)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, matched)
}

func TestScanner_ServerVersionGate(t *testing.T) {
	store := drivers.NewMemoryStore(version.MustParse("6.9.9"))
	seed(t, store, 1)
	req := scan.Request{Namespace: namespace, Set: set, Bin: bin, Vector: mustVector(t, 1, 2, 3, 4)}
	cb := func(string, scan.Digest, string, float64) bool { return true }

	_, err := scan.New(store, scan.WithMinServerVersion(version.MustParse("7.0.0"))).Run(context.Background(), req, cb)
	assert.ErrorIs(t, err, scan.ErrUnsupportedServer)

	stats, err := scan.New(store, scan.WithMinServerVersion(version.MustParse("6.9.9.0"))).Run(context.Background(), req, cb)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)
}

func TestScanner_RunCancelled(t *testing.T) {
	store := drivers.NewMemoryStore(version.Version{})
	seed(t, store, 3)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := scan.New(store).Run(ctx, scan.Request{
		Namespace: namespace, Set: set, Bin: bin, Vector: mustVector(t, 1, 2, 3, 4),
	}, func(string, scan.Digest, string, float64) bool {
		calls++
		cancel()
		return true
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestScanner_Nearest(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			want := seed(t, store, 10)
			matches, err := scan.New(store).Nearest(context.Background(), scan.Request{
				Namespace: namespace, Set: set, Bin: bin, Vector: mustVector(t, 3, 4, 5, 6),
			}, 3)
			require.NoError(t, err)
			require.Len(t, matches, 3)
			wantKey := vector.ComputeDigest(vector.Key{Namespace: namespace, Set: set, UserKey: "key_3"})
			assert.Equal(t, wantKey, matches[0].Digest)
			assert.Equal(t, set, matches[0].Set)
			assert.InDelta(t, 0, matches[0].Distance, 1e-6)
			assert.LessOrEqual(t, matches[1].Distance, matches[2].Distance)
			assert.Contains(t, want, matches[1].Digest)
		})
	}
}

func TestScanner_NearestMaxDistance(t *testing.T) {
	store := drivers.NewMemoryStore(version.Version{})
	near := put(t, store, "near", bin, encode(t, mustVector(t, 1, 0)))
	put(t, store, "far", bin, encode(t, mustVector(t, 100, 0)))

	maxDistance := 1.0
	req := scan.Request{
		Namespace: namespace, Set: set, Bin: bin, Vector: mustVector(t, 1, 0), MaxDistance: &maxDistance,
	}
	stats, err := scan.New(store).Run(context.Background(), req, func(string, scan.Digest, string, float64) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	matches, err := scan.New(store).Nearest(context.Background(), req, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, vector.ComputeDigest(near), matches[0].Digest)
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)
}
