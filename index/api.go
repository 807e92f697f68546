package index

import "github.com/viant/mlvec/vector"

// Index defines a generic vector index with basic lifecycle methods.
// It enables building from (id, vector) pairs, kNN queries, and
// binary serialization for persistence.
type Index interface {
	// Build constructs the index from the given ids and vectors.
	// ids and vectors must have the same length; vectors must share a length.
	Build(ids []string, vectors []vector.Vector) error

	// Query runs a kNN search against the index with the provided query vector
	// and returns up to k matches as parallel slices of ids and distances,
	// closest first.
	Query(query vector.Vector, k int) (ids []string, distances []float64, err error)

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}
