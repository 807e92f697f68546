package vector

import (
	"fmt"
	"math"
	"strings"

	"github.com/viant/vec/search"
)

// Metric selects how the distance between two vectors is measured. Smaller
// distances always mean more similar vectors.
type Metric int

const (
	// MetricL2 is the Euclidean distance.
	MetricL2 Metric = iota
	// MetricCosine is 1 - cosine similarity.
	MetricCosine
	// MetricDot is the negated dot product.
	MetricDot
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "l2"
	case MetricCosine:
		return "cosine"
	case MetricDot:
		return "dot"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// ParseMetric resolves a metric by name. An empty name selects MetricL2.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "l2", "euclidean":
		return MetricL2, nil
	case "cos", "cosine":
		return MetricCosine, nil
	case "dot", "ip":
		return MetricDot, nil
	}
	return 0, invalidArgument("unknown metric %q", name)
}

// Distance computes the distance between a and b under metric m. The vectors
// must have the same number of elements but may differ in element type.
func Distance(m Metric, a, b Vector) (float64, error) {
	if a.Len() != b.Len() {
		return 0, fmt.Errorf("vector: %s distance dimension mismatch: %d vs %d", m, a.Len(), b.Len())
	}
	if a.IsEmpty() {
		return 0, fmt.Errorf("vector: %s distance on empty vectors", m)
	}
	if a.Type() == Float32 && b.Type() == Float32 {
		return float32Distance(m, a.Float32s(), b.Float32s())
	}
	x, y := a.Float64Values(), b.Float64Values()
	switch m {
	case MetricL2:
		var sum float64
		for i := range x {
			d := x[i] - y[i]
			sum += d * d
		}
		return math.Sqrt(sum), nil
	case MetricCosine:
		var dot, na2, nb2 float64
		for i := range x {
			dot += x[i] * y[i]
			na2 += x[i] * x[i]
			nb2 += y[i] * y[i]
		}
		if na2 == 0 || nb2 == 0 {
			return 0, fmt.Errorf("vector: cosine distance with zero-magnitude vector")
		}
		return 1 - dot/(math.Sqrt(na2)*math.Sqrt(nb2)), nil
	case MetricDot:
		var dot float64
		for i := range x {
			dot += x[i] * y[i]
		}
		return -dot, nil
	}
	return 0, fmt.Errorf("vector: unsupported metric %s", m)
}

func float32Distance(m Metric, a, b []float32) (float64, error) {
	switch m {
	case MetricL2:
		return float64(search.Float32s(a).EuclideanDistance(b)), nil
	case MetricCosine:
		if search.Float32s(a).Magnitude() == 0 || search.Float32s(b).Magnitude() == 0 {
			return 0, fmt.Errorf("vector: cosine distance with zero-magnitude vector")
		}
		return float64(search.Float32s(a).CosineDistance(b)), nil
	case MetricDot:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return -dot, nil
	}
	return 0, fmt.Errorf("vector: unsupported metric %s", m)
}

// CosineSimilarity computes the cosine similarity between two vectors. It
// returns an error if the vectors have different lengths or if either vector
// has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine similarity dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vector: cosine similarity on empty vectors")
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, fmt.Errorf("vector: cosine similarity with zero-magnitude vector")
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}

// L2Distance computes the Euclidean (L2) distance between two vectors. It
// returns an error if the vectors have different lengths.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
