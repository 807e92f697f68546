package bruteforce

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sort"

	"github.com/viant/mlvec/index"
	"github.com/viant/mlvec/vector"
	"golang.org/x/sync/errgroup"
)

// magic prefixes every serialized index.
const magic = "BFX1"

// Index is a brute-force vector index. The zero value ranks by Euclidean
// distance.
type Index struct {
	Metric vector.Metric

	ids  []string
	vecs []vector.Vector
	dim  int
}

// New returns an empty index ranking by m.
func New(m vector.Metric) *Index { return &Index{Metric: m} }

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Build loads ids and vectors, replacing any previous content.
func (i *Index) Build(ids []string, vectors []vector.Vector) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.dim = nil, nil, 0
		return nil
	}
	dim := vectors[0].Len()
	for j := range vectors {
		if vectors[j].IsEmpty() {
			return fmt.Errorf("bruteforce: vector %q is empty", ids[j])
		}
		if vectors[j].Len() != dim {
			return fmt.Errorf("bruteforce: inconsistent vector dims %d vs %d", vectors[j].Len(), dim)
		}
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = append([]vector.Vector(nil), vectors...)
	i.dim = dim
	return nil
}

// Query returns the k closest vectors. A non-positive k returns every
// vector. Vectors the metric cannot measure, such as zero-magnitude vectors
// under cosine, are left out.
func (i *Index) Query(query vector.Vector, k int) ([]string, []float64, error) {
	if i.dim == 0 || len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if query.Len() != i.dim {
		return nil, nil, fmt.Errorf("bruteforce: query dim %d != index dim %d", query.Len(), i.dim)
	}
	type scored struct {
		idx      int
		distance float64
	}
	scoreds := make([]scored, 0, len(i.vecs))
	for j := range i.vecs {
		d, err := vector.Distance(i.Metric, query, i.vecs[j])
		if err != nil {
			continue
		}
		scoreds = append(scoreds, scored{idx: j, distance: d})
	}
	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].distance < scoreds[b].distance })
	if k <= 0 || k > len(scoreds) {
		k = len(scoreds)
	}
	outIDs := make([]string, k)
	outDistances := make([]float64, k)
	for n := 0; n < k; n++ {
		outIDs[n] = i.ids[scoreds[n].idx]
		outDistances[n] = scoreds[n].distance
	}
	return outIDs, outDistances, nil
}

// MarshalBinary stores: "BFX1", n(uint32), then for each item:
// idLen(uint32), id bytes, blobLen(uint32), vector blob. Integers are
// big-endian.
func (i *Index) MarshalBinary() ([]byte, error) {
	blobs := make([][]byte, len(i.vecs))
	size := len(magic) + 4
	for idx, v := range i.vecs {
		blob, err := vector.Serialize(v, v.Type())
		if err != nil {
			return nil, fmt.Errorf("bruteforce: encode %q: %w", i.ids[idx], err)
		}
		blobs[idx] = blob
		size += 8 + len(i.ids[idx]) + len(blob)
	}
	out := make([]byte, 0, size)
	out = append(out, magic...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(i.ids)))
	for idx, id := range i.ids {
		out = binary.BigEndian.AppendUint32(out, uint32(len(id)))
		out = append(out, id...)
		out = binary.BigEndian.AppendUint32(out, uint32(len(blobs[idx])))
		out = append(out, blobs[idx]...)
	}
	return out, nil
}

// UnmarshalBinary restores the index from bytes. Vector blobs are decoded
// concurrently; the first invalid blob fails the whole restore and leaves
// the index unchanged.
func (i *Index) UnmarshalBinary(data []byte) error {
	if len(data) < len(magic)+4 || string(data[:len(magic)]) != magic {
		return fmt.Errorf("bruteforce: missing %s header: %w", magic, vector.ErrInvalidFormat)
	}
	off := len(magic)
	getU32 := func() (uint32, bool) {
		if off+4 > len(data) {
			return 0, false
		}
		v := binary.BigEndian.Uint32(data[off:])
		off += 4
		return v, true
	}
	n, _ := getU32()
	// Every entry takes at least 8 bytes of framing.
	if uint64(n)*8 > uint64(len(data)-off) {
		return fmt.Errorf("bruteforce: %d entries do not fit in %d bytes: %w", n, len(data), vector.ErrInvalidFormat)
	}
	ids := make([]string, n)
	blobs := make([][]byte, n)
	for idx := range ids {
		idLen, ok := getU32()
		if !ok || uint64(off)+uint64(idLen) > uint64(len(data)) {
			return fmt.Errorf("bruteforce: truncated id at entry %d: %w", idx, vector.ErrInvalidFormat)
		}
		ids[idx] = string(data[off : off+int(idLen)])
		off += int(idLen)
		blobLen, ok := getU32()
		if !ok || uint64(off)+uint64(blobLen) > uint64(len(data)) {
			return fmt.Errorf("bruteforce: truncated blob at entry %d: %w", idx, vector.ErrInvalidFormat)
		}
		blobs[idx] = data[off : off+int(blobLen)]
		off += int(blobLen)
	}
	if off != len(data) {
		return fmt.Errorf("bruteforce: %d trailing bytes: %w", len(data)-off, vector.ErrInvalidFormat)
	}

	vecs := make([]vector.Vector, n)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx := range blobs {
		g.Go(func() error {
			v, _, err := vector.Deserialize(blobs[idx])
			if err != nil {
				return fmt.Errorf("bruteforce: decode %q: %w", ids[idx], err)
			}
			vecs[idx] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return i.Build(ids, vecs)
}

var _ index.Index = (*Index)(nil)
