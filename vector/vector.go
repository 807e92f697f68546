package vector

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Vector is an immutable, homogeneous numeric vector. Elements are held as
// raw bytes in the platform's native byte order, which is exactly the layout
// of a vector blob payload.
//
// The zero Vector is empty and cannot be serialized.
type Vector struct {
	typ      ElementType
	itemSize uint32
	count    uint32
	data     []byte
}

// NewFloat32 builds a float32 vector. The input is copied.
func NewFloat32(data []float32) (Vector, error) {
	if err := checkCount(len(data), "float32"); err != nil {
		return Vector{}, err
	}
	v := alloc(Float32, len(data))
	for i, f := range data {
		binary.NativeEndian.PutUint32(v.data[i*4:], math.Float32bits(f))
	}
	return v, nil
}

// NewFloat64 builds a float64 vector. The input is copied.
func NewFloat64(data []float64) (Vector, error) {
	if err := checkCount(len(data), "float64"); err != nil {
		return Vector{}, err
	}
	v := alloc(Float64, len(data))
	for i, f := range data {
		binary.NativeEndian.PutUint64(v.data[i*8:], math.Float64bits(f))
	}
	return v, nil
}

// NewInt32 builds an int32 vector. The input is copied.
func NewInt32(data []int32) (Vector, error) {
	if err := checkCount(len(data), "int32"); err != nil {
		return Vector{}, err
	}
	v := alloc(Int32, len(data))
	for i, n := range data {
		binary.NativeEndian.PutUint32(v.data[i*4:], uint32(n))
	}
	return v, nil
}

// NewInt64 builds an int64 vector. The input is copied.
func NewInt64(data []int64) (Vector, error) {
	if err := checkCount(len(data), "int64"); err != nil {
		return Vector{}, err
	}
	v := alloc(Int64, len(data))
	for i, n := range data {
		binary.NativeEndian.PutUint64(v.data[i*8:], uint64(n))
	}
	return v, nil
}

// checkCount rejects counts a blob header cannot carry.
func checkCount(count int, name string) error {
	if count == 0 {
		return invalidArgument("%s vector requires at least one element", name)
	}
	if uint64(count) > math.MaxUint32 {
		return invalidArgument("%s vector has %d elements, more than a blob can hold", name, count)
	}
	return nil
}

func alloc(t ElementType, count int) Vector {
	size := ElementSize(t)
	return Vector{
		typ:      t,
		itemSize: size,
		count:    uint32(count),
		data:     make([]byte, count*int(size)),
	}
}

// Type returns the element type the vector was built with.
func (v Vector) Type() ElementType { return v.typ }

// Len returns the number of elements.
func (v Vector) Len() int { return int(v.count) }

// ElementSize returns the width of the stored elements in bytes.
func (v Vector) ElementSize() uint32 { return v.itemSize }

// IsEmpty reports whether the vector holds no elements.
func (v Vector) IsEmpty() bool { return v.count == 0 || len(v.data) == 0 }

// Float32s returns a copy of the elements, or nil if v is not a float32 vector.
func (v Vector) Float32s() []float32 {
	if v.typ != Float32 {
		return nil
	}
	out := make([]float32, v.count)
	for i := range out {
		out[i] = math.Float32frombits(binary.NativeEndian.Uint32(v.data[i*4:]))
	}
	return out
}

// Float64s returns a copy of the elements, or nil if v is not a float64 vector.
func (v Vector) Float64s() []float64 {
	if v.typ != Float64 {
		return nil
	}
	out := make([]float64, v.count)
	for i := range out {
		out[i] = math.Float64frombits(binary.NativeEndian.Uint64(v.data[i*8:]))
	}
	return out
}

// Int32s returns a copy of the elements, or nil if v is not an int32 vector.
func (v Vector) Int32s() []int32 {
	if v.typ != Int32 {
		return nil
	}
	out := make([]int32, v.count)
	for i := range out {
		out[i] = int32(binary.NativeEndian.Uint32(v.data[i*4:]))
	}
	return out
}

// Int64s returns a copy of the elements, or nil if v is not an int64 vector.
func (v Vector) Int64s() []int64 {
	if v.typ != Int64 {
		return nil
	}
	out := make([]int64, v.count)
	for i := range out {
		out[i] = int64(binary.NativeEndian.Uint64(v.data[i*8:]))
	}
	return out
}

// Float64Values widens every element to float64, whatever the element type.
func (v Vector) Float64Values() []float64 {
	out := make([]float64, v.count)
	switch v.typ {
	case Float32:
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.NativeEndian.Uint32(v.data[i*4:])))
		}
	case Float64:
		for i := range out {
			out[i] = math.Float64frombits(binary.NativeEndian.Uint64(v.data[i*8:]))
		}
	case Int32:
		for i := range out {
			out[i] = float64(int32(binary.NativeEndian.Uint32(v.data[i*4:])))
		}
	case Int64:
		for i := range out {
			out[i] = float64(int64(binary.NativeEndian.Uint64(v.data[i*8:])))
		}
	}
	return out
}

// Equal reports whether v and o have the same element type, count and
// element bytes. Float NaNs compare equal when their bit patterns match.
func (v Vector) Equal(o Vector) bool {
	return v.typ == o.typ && v.itemSize == o.itemSize && v.count == o.count && bytes.Equal(v.data, o.data)
}
