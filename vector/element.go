package vector

import (
	"fmt"
	"strings"
)

// ElementType enumerates the numeric representations a vector blob can carry.
// The numeric values are the type tags written into the blob header.
type ElementType uint32

const (
	Float32 ElementType = 1
	Float64 ElementType = 2
	Int32   ElementType = 3
	Int64   ElementType = 4
)

// ElementSize returns the width in bytes of a single element of type t, or 0
// when t is not a known element type. Callers must treat 0 as an invalid type.
func ElementSize(t ElementType) uint32 {
	switch t {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether t is one of the supported element types.
func (t ElementType) Valid() bool { return ElementSize(t) != 0 }

func (t ElementType) String() string {
	switch t {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return fmt.Sprintf("ElementType(%d)", uint32(t))
	}
}

// ParseElementType resolves an element type from its name.
func ParseElementType(name string) (ElementType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "float32", "f32", "float":
		return Float32, nil
	case "float64", "f64", "double":
		return Float64, nil
	case "int32", "i32":
		return Int32, nil
	case "int64", "i64":
		return Int64, nil
	}
	return 0, invalidArgument("unknown element type %q", name)
}
