package vector

import (
	"fmt"

	"github.com/viant/vec/search"
)

// L2Distance computes the Euclidean (L2) distance between two vectors. It is
// the same computation the vec_l2 SQL function performs. It returns an error
// if the vectors have different lengths.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}
