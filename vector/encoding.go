package vector

import (
	"encoding/binary"
	"math"
)

const (
	// MagicNumber identifies a vector blob ("VECT").
	MagicNumber uint32 = 0x56454354

	// FormatVersion is the only blob format version this package reads and writes.
	FormatVersion uint32 = 1

	// HeaderSize is the fixed size of the blob header in bytes.
	HeaderSize = 16
)

// Header mirrors the fixed 16-byte prefix of a vector blob.
type Header struct {
	Magic       uint32
	Version     uint32
	Count       uint32
	ElementType ElementType
}

// PayloadSize returns Count times the element width.
func (h Header) PayloadSize() uint64 {
	return uint64(h.Count) * uint64(ElementSize(h.ElementType))
}

// Serialize encodes v as a vector blob of element type t.
//
// Blob layout:
//
//	[0:4]   magic number   (big-endian)
//	[4:8]   format version (big-endian)
//	[8:12]  element count  (big-endian)
//	[12:16] element type   (big-endian)
//	[16:]   elements       (native byte order)
//
// The payload is not byte-swapped: blobs only round-trip between platforms
// that share byte order. The returned slice is owned by the caller.
func Serialize(v Vector, t ElementType) ([]byte, error) {
	if v.IsEmpty() {
		return nil, invalidArgument("cannot serialize empty vector")
	}
	size := ElementSize(t)
	if size == 0 {
		return nil, invalidArgument("invalid element type %d", uint32(t))
	}
	if v.itemSize != size {
		return nil, invalidArgument("element width %d does not match %s width %d", v.itemSize, t, size)
	}
	payload := uint64(v.count) * uint64(size)
	total := HeaderSize + payload
	if total > math.MaxInt || payload != uint64(len(v.data)) {
		return nil, ErrAllocation
	}
	blob, err := allocate(int(total))
	if err != nil {
		return nil, err
	}
	putHeader(blob, Header{Magic: MagicNumber, Version: FormatVersion, Count: v.count, ElementType: t})
	copy(blob[HeaderSize:], v.data)
	return blob, nil
}

// Deserialize decodes a vector blob produced by Serialize. On failure the
// returned Vector is always the zero value.
func Deserialize(blob []byte) (Vector, ElementType, error) {
	h, err := PeekHeader(blob)
	if err != nil {
		return Vector{}, 0, err
	}
	v := alloc(h.ElementType, int(h.Count))
	size := int(v.itemSize)
	payload := blob[HeaderSize:]
	for i := 0; i < int(h.Count); i++ {
		copy(v.data[i*size:(i+1)*size], payload[i*size:])
	}
	return v, h.ElementType, nil
}

// PeekHeader validates the blob header and its size consistency without
// copying the payload.
func PeekHeader(blob []byte) (Header, error) {
	if blob == nil {
		return Header{}, invalidArgument("blob is nil")
	}
	if len(blob) < HeaderSize {
		return Header{}, invalidArgument("blob too short: %d bytes", len(blob))
	}
	h := Header{
		Magic:       binary.BigEndian.Uint32(blob[0:4]),
		Version:     binary.BigEndian.Uint32(blob[4:8]),
		Count:       binary.BigEndian.Uint32(blob[8:12]),
		ElementType: ElementType(binary.BigEndian.Uint32(blob[12:16])),
	}
	if h.Magic != MagicNumber {
		return Header{}, &FormatError{Field: "magic", Got: uint64(h.Magic), Want: uint64(MagicNumber), Err: ErrInvalidFormat}
	}
	if h.Version != FormatVersion {
		return Header{}, &FormatError{Field: "version", Got: uint64(h.Version), Want: uint64(FormatVersion), Err: ErrUnsupportedVersion}
	}
	if !h.ElementType.Valid() {
		return Header{}, &FormatError{Field: "element type", Got: uint64(h.ElementType), Err: ErrInvalidFormat}
	}
	if h.Count == 0 {
		return Header{}, &FormatError{Field: "element count", Got: 0, Err: ErrInvalidFormat}
	}
	if want := HeaderSize + h.PayloadSize(); uint64(len(blob)) != want {
		return Header{}, &FormatError{Field: "size", Got: uint64(len(blob)), Want: want, Err: ErrInvalidFormat}
	}
	return h, nil
}

func putHeader(b []byte, h Header) {
	binary.BigEndian.PutUint32(b[0:4], h.Magic)
	binary.BigEndian.PutUint32(b[4:8], h.Version)
	binary.BigEndian.PutUint32(b[8:12], h.Count)
	binary.BigEndian.PutUint32(b[12:16], uint32(h.ElementType))
}

// allocate converts a failed large allocation into ErrAllocation.
func allocate(n int) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, ErrAllocation
		}
	}()
	return make([]byte, n), nil
}

// EncodeEmbedding encodes a float32 embedding as a vector blob. A nil or
// empty slice encodes to a nil blob, which stores as SQL NULL.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	v, err := NewFloat32(vec)
	if err != nil {
		return nil, err
	}
	return Serialize(v, Float32)
}

// DecodeEmbedding decodes a float32 vector blob produced by EncodeEmbedding.
// A nil or empty blob decodes to a nil slice.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	v, t, err := Deserialize(b)
	if err != nil {
		return nil, err
	}
	if t != Float32 {
		return nil, invalidArgument("embedding blob holds %s elements, want float32", t)
	}
	return v.Float32s(), nil
}
