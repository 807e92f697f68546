package engine

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/viant/mlvec/vector"
	"github.com/viant/mlvec/version"
	sqlite "modernc.org/sqlite"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterVectorFunctions registers the vector and version SQL functions with
// the driver so they are available on new connections opened after this
// call. Existing open connections will not see new functions.
//
//	vec_l2(a, b)              Euclidean distance between two vector blobs
//	vec_cosine(a, b)          cosine similarity between two vector blobs
//	vec_count(blob)           element count of a vector blob
//	vec_type(blob)            element type name of a vector blob
//	version_compare(a, b)     -1, 0 or 1; NULL when either side does not parse
//	version_normalize(s)      canonical major.minor.patch.build or NULL
func RegisterVectorFunctions(_ *sql.DB) error {
	registerOnce.Do(func() {
		for _, fn := range []struct {
			name  string
			nArgs int32
			impl  func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error)
		}{
			{"vec_l2", 2, vecL2Impl},
			{"vec_cosine", 2, vecCosineImpl},
			{"vec_count", 1, vecCountImpl},
			{"vec_type", 1, vecTypeImpl},
			{"version_compare", 2, versionCompareImpl},
			{"version_normalize", 1, versionNormalizeImpl},
		} {
			if err := sqlite.RegisterDeterministicScalarFunction(fn.name, fn.nArgs, fn.impl); err != nil {
				registerErr = fmt.Errorf("engine: register %s: %w", fn.name, err)
				return
			}
		}
	})
	return registerErr
}

func asVector(arg driver.Value) (vector.Vector, bool, error) {
	switch v := arg.(type) {
	case nil:
		return vector.Vector{}, false, nil
	case []byte:
		vec, _, err := vector.Deserialize(v)
		if err != nil {
			return vector.Vector{}, false, err
		}
		return vec, true, nil
	default:
		return vector.Vector{}, false, fmt.Errorf("vec: unsupported argument type %T for vector; want BLOB", arg)
	}
}

func vectorPair(name string, args []driver.Value) (a, b vector.Vector, ok bool, err error) {
	if len(args) != 2 {
		return a, b, false, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
	}
	a, okA, err := asVector(args[0])
	if err != nil {
		return a, b, false, err
	}
	b, okB, err := asVector(args[1])
	if err != nil {
		return a, b, false, err
	}
	return a, b, okA && okB, nil
}

func vecL2Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, ok, err := vectorPair("vec_l2", args)
	if err != nil || !ok {
		return nil, err
	}
	return vector.Distance(vector.MetricL2, a, b)
}

func vecCosineImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, ok, err := vectorPair("vec_cosine", args)
	if err != nil || !ok {
		return nil, err
	}
	d, err := vector.Distance(vector.MetricCosine, a, b)
	if err != nil {
		return nil, err
	}
	return 1 - d, nil
}

func vecCountImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	h, ok, err := header(args)
	if err != nil || !ok {
		return nil, err
	}
	return int64(h.Count), nil
}

func vecTypeImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	h, ok, err := header(args)
	if err != nil || !ok {
		return nil, err
	}
	return h.ElementType.String(), nil
}

func header(args []driver.Value) (vector.Header, bool, error) {
	if len(args) != 1 {
		return vector.Header{}, false, fmt.Errorf("vec: expected 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case nil:
		return vector.Header{}, false, nil
	case []byte:
		h, err := vector.PeekHeader(v)
		return h, err == nil, err
	default:
		return vector.Header{}, false, fmt.Errorf("vec: unsupported argument type %T for vector; want BLOB", v)
	}
}

func asText(arg driver.Value) (string, bool) {
	switch v := arg.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

func versionCompareImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("version_compare: expected 2 arguments, got %d", len(args))
	}
	a, okA := asText(args[0])
	b, okB := asText(args[1])
	if !okA || !okB {
		return nil, nil
	}
	cmp, err := version.CompareStrings(a, b)
	if err != nil {
		return nil, nil
	}
	switch {
	case cmp < 0:
		return int64(-1), nil
	case cmp > 0:
		return int64(1), nil
	}
	return int64(0), nil
}

func versionNormalizeImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("version_normalize: expected 1 argument, got %d", len(args))
	}
	text, ok := asText(args[0])
	if !ok {
		return nil, nil
	}
	v, ok := version.Parse(text)
	if !ok {
		return nil, nil
	}
	return v.String(), nil
}
