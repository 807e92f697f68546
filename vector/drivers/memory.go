package drivers

import (
	"context"
	"sync"

	"github.com/viant/mlvec/vector"
	"github.com/viant/mlvec/version"
)

// DefaultMemoryServerVersion is reported by MemoryStore unless overridden.
var DefaultMemoryServerVersion = version.Version{Major: 7, Minor: 1}

type recordID struct {
	key vector.Key
	bin string
}

// MemoryStore implements vector.Store using an in-memory map. Records are
// scanned in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordID]vector.Record
	order   []recordID
	version version.Version
}

// NewMemoryStore creates a new in-memory record store reporting v as its
// server version; a zero v selects DefaultMemoryServerVersion.
func NewMemoryStore(v version.Version) *MemoryStore {
	if v == (version.Version{}) {
		v = DefaultMemoryServerVersion
	}
	return &MemoryStore{
		records: make(map[recordID]vector.Record),
		version: v,
	}
}

// Put implements vector.Store.
func (s *MemoryStore) Put(ctx context.Context, rec vector.Record) error {
	rec, err := vector.PrepareRecord(rec)
	if err != nil {
		return err
	}
	rec.Blob = append([]byte(nil), rec.Blob...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		return errClosed
	}
	id := recordID{key: rec.Key, bin: rec.Bin}
	if _, exists := s.records[id]; !exists {
		s.order = append(s.order, id)
	}
	s.records[id] = rec
	return nil
}

// Get implements vector.Store.
// Returns nil if the record is not found (not an error).
func (s *MemoryStore) Get(ctx context.Context, key vector.Key, bin string) (*vector.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[recordID{key: key, bin: bin}]
	if !exists {
		return nil, nil
	}
	rec.Blob = append([]byte(nil), rec.Blob...)
	return &rec, nil
}

// Remove implements vector.Store.
func (s *MemoryStore) Remove(ctx context.Context, key vector.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	for _, id := range s.order {
		if id.key == key {
			delete(s.records, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return nil
}

// Scan implements vector.Store. The callback runs without holding the store
// lock, so it may call back into the store, and receives its own copy of
// each blob.
func (s *MemoryStore) Scan(ctx context.Context, namespace, set string, fn func(vector.Record) bool) error {
	s.mu.RLock()
	snapshot := make([]vector.Record, 0, len(s.order))
	for _, id := range s.order {
		if id.key.Namespace != namespace || (set != "" && id.key.Set != set) {
			continue
		}
		rec := s.records[id]
		rec.Blob = append([]byte(nil), rec.Blob...)
		snapshot = append(snapshot, rec)
	}
	s.mu.RUnlock()

	for _, rec := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

// Truncate implements vector.Truncater.
func (s *MemoryStore) Truncate(ctx context.Context, namespace, set string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	kept := s.order[:0]
	for _, id := range s.order {
		if id.key.Namespace == namespace && (set == "" || id.key.Set == set) {
			delete(s.records, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed, nil
}

// ServerVersion implements vector.Versioned.
func (s *MemoryStore) ServerVersion(ctx context.Context) (version.Version, error) {
	return s.version, nil
}

// Close implements vector.Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.order = nil
	return nil
}

var (
	_ vector.Store     = (*MemoryStore)(nil)
	_ vector.Versioned = (*MemoryStore)(nil)
	_ vector.Truncater = (*MemoryStore)(nil)
)
