package vector

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/viant/mlvec/version"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // digest format requires RIPEMD-160
)

// Key identifies a record: a user key within a set within a namespace.
type Key struct {
	Namespace string
	Set       string
	UserKey   string
}

func (k Key) String() string { return k.Namespace + ":" + k.Set + ":" + k.UserKey }

// DigestSize is the length of a record digest.
const DigestSize = ripemd160.Size

// Digest is the 20-byte RIPEMD-160 fingerprint of a record's set and user key.
type Digest [DigestSize]byte

// keyTypeString tags string user keys inside the digest input.
const keyTypeString = 3

// ComputeDigest hashes set, key type and user key. The namespace is not part
// of the digest.
func ComputeDigest(k Key) Digest {
	h := ripemd160.New()
	_, _ = h.Write([]byte(k.Set))
	_, _ = h.Write([]byte{keyTypeString})
	_, _ = h.Write([]byte(k.UserKey))
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// String returns the lower-case hex form of the digest.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether the digest has not been computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// Record is one stored vector blob. The blob is opaque to stores beyond
// header validation on write.
type Record struct {
	Key    Key
	Digest Digest
	Bin    string
	Blob   []byte
}

// Store defines the record storage used by vector scans. Implementations keep
// blobs byte-for-byte and must be safe for concurrent use.
type Store interface {
	// Put inserts or replaces the blob stored in rec.Bin for rec.Key.
	Put(ctx context.Context, rec Record) error

	// Get returns the record stored under key and bin, or nil when absent.
	Get(ctx context.Context, key Key, bin string) (*Record, error)

	// Remove deletes every bin stored for key. Removing a missing key is not
	// an error.
	Remove(ctx context.Context, key Key) error

	// Scan calls fn for every record in namespace and set until fn returns
	// false. An empty set scans the whole namespace.
	Scan(ctx context.Context, namespace, set string, fn func(Record) bool) error

	// Close releases resources held by the store.
	Close() error
}

// Versioned is implemented by stores that can report the version of the
// server they talk to.
type Versioned interface {
	ServerVersion(ctx context.Context) (version.Version, error)
}

// Truncater is implemented by stores that can drop a whole set, or a whole
// namespace when set is empty, in one call.
type Truncater interface {
	Truncate(ctx context.Context, namespace, set string) (int64, error)
}

// PrepareRecord validates rec for storage and fills in its digest.
func PrepareRecord(rec Record) (Record, error) {
	if rec.Key.Namespace == "" || rec.Key.UserKey == "" {
		return Record{}, invalidArgument("record key %q requires namespace and user key", rec.Key)
	}
	if rec.Bin == "" {
		return Record{}, invalidArgument("record %q requires a bin name", rec.Key)
	}
	if _, err := PeekHeader(rec.Blob); err != nil {
		return Record{}, fmt.Errorf("vector: record %q: %w", rec.Key, err)
	}
	if rec.Digest.IsZero() {
		rec.Digest = ComputeDigest(rec.Key)
	}
	return rec, nil
}
