// Package introspect recovers MDX parameters from a model artifact when no
// metadata document describes it. Two containers are understood: PyTorch
// Lightning checkpoints (.ckpt) and ONNX graphs (.onnx).
package introspect

import (
	"math/bits"
	"path/filepath"
	"strings"
)

// Container names the artifact format a Partial was read from.
type Container string

const (
	ContainerCheckpoint Container = "checkpoint"
	ContainerGraph      Container = "graph"
)

// Values substituted when a checkpoint omits a key.
const (
	fallbackDimF = 3072
	fallbackDimT = 256
	fallbackNFFT = 6144
	// ONNX graphs carry no FFT size.
	graphNFFT = 6144
	// Exponent used when a stored dim_t is not positive.
	fallbackDimTExponent = 8
)

// Partial holds the parameters an artifact revealed. PrimaryStem is empty
// when the container cannot express it.
type Partial struct {
	Container    Container
	DimF         int
	DimTExponent int
	NFFT         int
	PrimaryStem  string
}

// Introspect inspects path and returns what it could learn. A nil Partial
// with a nil error means the artifact has no usable structure and the caller
// should move on; it is not a failure.
func Introspect(path string) (*Partial, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ckpt":
		return introspectCheckpoint(path)
	case ".onnx":
		return introspectGraph(path)
	default:
		return nil, nil
	}
}

// log2Floor mirrors int(log2(n)) for positive n.
func log2Floor(n int) int {
	if n <= 0 {
		return fallbackDimTExponent
	}
	return bits.Len(uint(n)) - 1
}
