// Package biometric turns face images into fixed-length templates (embeddings)
// and provides the distance used to compare them.
package biometric

import (
	"errors"
	"math"
)

var (
	// ErrNoFaceFound is returned by an Extractor when the image contains no detectable face.
	ErrNoFaceFound = errors.New("no face found")
	// ErrInvalidImage is returned for bytes that cannot be decoded as a supported raster image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrInvalidFormat is returned when a filename does not carry an accepted image extension.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrDimensionMismatch is returned when two embeddings of different length are compared or stored together.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedding is a face descriptor in a metric space where Euclidean distance
// approximates dissimilarity between faces.
type Embedding []float32

// Dim returns the embedding length.
func (e Embedding) Dim() int {
	return len(e)
}

// Clone returns a copy that does not share the backing array.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// EuclideanDistance computes the L2 distance between two embeddings of equal length.
// Returns +Inf when the lengths differ.
func EuclideanDistance(a, b Embedding) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Distance is EuclideanDistance with an explicit error for mismatched dimensions.
func Distance(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	return EuclideanDistance(a, b), nil
}
