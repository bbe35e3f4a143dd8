package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding encodes a vector into the BLOB stored in the embedding
// column: a little-endian sequence of IEEE 754 float32 bit patterns without a
// length prefix. Two vectors encode to equal BLOBs exactly when they are
// bit-identical, which is what the column's UNIQUE constraint compares.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b, nil
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector: invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// encodeDim encodes vec after checking it against the store dimension and
// rejecting NaN and infinite components.
func encodeDim(vec []float32, dim int) ([]byte, error) {
	if len(vec) != dim {
		return nil, &DimensionMismatchError{Expected: dim, Actual: len(vec)}
	}
	for i, v := range vec {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &NonFiniteError{Index: i, Value: v}
		}
	}
	return EncodeEmbedding(vec)
}
