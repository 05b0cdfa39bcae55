// Package calc routes array-processing calls to the CUDA device library when
// the caller asks for it and the build and machine provide one, and to the
// host implementation in ndimage otherwise. Every function is stateless;
// device memory lives only for the duration of a call.
package calc

import (
	"errors"
	"fmt"

	"github.com/qrv0/optimed/internal/logging"
	"github.com/qrv0/optimed/internal/ndimage"
)

// GPUAvailable reports whether the device library loaded. It is fixed at
// program start.
func GPUAvailable() bool { return gpu_Available() }

// DeviceName describes the device library, or why it is missing.
func DeviceName() string { return gpu_Name() }

// useDevice logs and reports whether op should try the device path.
func useDevice(op string, useGPU bool) bool {
	if !useGPU {
		return false
	}
	if !GPUAvailable() {
		logging.WithOp(op).Debug("gpu requested but unavailable, using cpu")
		return false
	}
	return true
}

// Close releases the device context. Every later call takes the host path.
func Close() { gpu_Close() }

func declined(op, why string) {
	logging.WithOp(op).Debugf("device path declined (%s), using cpu", why)
}

// Label labels the connected components of input under structure (nil means
// the connectivity-1 cross) and returns the label grid and component count.
func Label(input ndimage.Array[bool], structure *ndimage.Array[bool], useGPU bool) (ndimage.Array[int32], int, error) {
	if useDevice("label", useGPU) {
		if out, n, ok := labelDevice(input, structure); ok {
			return out, n, nil
		}
	}
	return ndimage.Label(input, structure)
}

// BinaryDilation dilates input by structure (nil means the cross) for the
// given number of iterations; iterations below 1 repeat until stable.
func BinaryDilation(input ndimage.Array[bool], structure *ndimage.Array[bool], iterations int, useGPU bool) (ndimage.Array[bool], error) {
	if useDevice("binary_dilation", useGPU) {
		if out, ok := dilateDevice(input, structure, iterations); ok {
			return out, nil
		}
	}
	return ndimage.BinaryDilation(input, ndimage.MorphOptions{Structure: structure, Iterations: iterations})
}

// DistanceTransformEDT returns, for every set cell of input, the Euclidean
// distance to the nearest unset cell. The device computes in float32; its
// results are snapped back to the exact host values for distances below
// 2048 cells and otherwise agree to float32 precision.
func DistanceTransformEDT(input ndimage.Array[bool], useGPU bool) (ndimage.Array[float64], error) {
	if useDevice("distance_transform_edt", useGPU) {
		if out, ok := distanceDevice(input); ok {
			return out, nil
		}
	}
	return ndimage.DistanceTransformEDT(input, nil)
}

// Minimum returns the smallest value of input among cells whose label equals index.
func Minimum[T ndimage.Number, L ndimage.Scalar](input ndimage.Array[T], labels ndimage.Array[L], index L, useGPU bool) (float64, error) {
	if useDevice("minimum", useGPU) {
		if v, ok := reduceDevice(input, labels, index, gpu_MinF64); ok {
			return v, nil
		}
		declined("minimum", "empty region or device error")
	}
	return ndimage.Minimum(input, &labels, index)
}

// Sum returns the total of input over cells whose label equals index.
func Sum[T ndimage.Number, L ndimage.Scalar](input ndimage.Array[T], labels ndimage.Array[L], index L, useGPU bool) (float64, error) {
	if useDevice("sum", useGPU) {
		if v, ok := reduceDevice(input, labels, index, gpu_SumF64); ok {
			return v, nil
		}
		declined("sum", "empty region or device error")
	}
	return ndimage.Sum(input, &labels, index)
}

// FilterMask zeroes every cell of mask whose label is not in keep. The
// device library has no primitive for it, so both paths run on the host.
func FilterMask[L ndimage.Number](mask ndimage.Array[L], keep []L, useGPU bool) ndimage.Array[L] {
	if useDevice("filter_mask", useGPU) {
		declined("filter_mask", "no device primitive")
	}
	return ndimage.FilterLabels(mask, keep)
}

// MinimumIndex returns Minimum for each label in index. Without the device it
// is a single pass over labels.
func MinimumIndex[T ndimage.Number, L ndimage.Scalar](input ndimage.Array[T], labels ndimage.Array[L], index []L, useGPU bool) ([]float64, error) {
	if useDevice("minimum", useGPU) {
		return eachIndex(input, labels, index, Minimum[T, L])
	}
	return ndimage.MinimumIndex(input, labels, index)
}

// SumIndex returns Sum for each label in index.
func SumIndex[T ndimage.Number, L ndimage.Scalar](input ndimage.Array[T], labels ndimage.Array[L], index []L, useGPU bool) ([]float64, error) {
	if useDevice("sum", useGPU) {
		return eachIndex(input, labels, index, Sum[T, L])
	}
	return ndimage.SumIndex(input, labels, index)
}

// eachIndex reduces one label at a time, keeping the first error like the
// host multi-index forms.
func eachIndex[T ndimage.Number, L ndimage.Scalar](input ndimage.Array[T], labels ndimage.Array[L], index []L, f func(ndimage.Array[T], ndimage.Array[L], L, bool) (float64, error)) ([]float64, error) {
	out := make([]float64, len(index))
	var first error
	for i, l := range index {
		v, err := f(input, labels, l, true)
		if err != nil {
			if !errors.Is(err, ndimage.ErrEmptyRegion) {
				return nil, err
			}
			if first == nil {
				first = err
			}
		}
		out[i] = v
	}
	return out, first
}

// MaximumIndex and MeanIndex have no device primitive and run on the host.
func MaximumIndex[T ndimage.Number, L ndimage.Scalar](input ndimage.Array[T], labels ndimage.Array[L], index []L, useGPU bool) ([]float64, error) {
	if useDevice("maximum", useGPU) {
		declined("maximum", "no device primitive")
	}
	return ndimage.MaximumIndex(input, labels, index)
}

func MeanIndex[T ndimage.Number, L ndimage.Scalar](input ndimage.Array[T], labels ndimage.Array[L], index []L, useGPU bool) ([]float64, error) {
	if useDevice("mean", useGPU) {
		declined("mean", "no device primitive")
	}
	return ndimage.MeanIndex(input, labels, index)
}

// Morphology selects a host-only binary morphology operation.
type Morphology int

const (
	Erosion Morphology = iota
	Opening
	Closing
)

var morphOps = map[Morphology]struct {
	name string
	fn   func(ndimage.Array[bool], ndimage.MorphOptions) (ndimage.Array[bool], error)
}{
	Erosion: {"binary_erosion", ndimage.BinaryErosion},
	Opening: {"binary_opening", ndimage.BinaryOpening},
	Closing: {"binary_closing", ndimage.BinaryClosing},
}

// Morph applies op with structure (nil means the cross) and iterations. The
// device library only provides dilation, so these always run on the host.
func Morph(op Morphology, input ndimage.Array[bool], structure *ndimage.Array[bool], iterations int, useGPU bool) (ndimage.Array[bool], error) {
	m, ok := morphOps[op]
	if !ok {
		return ndimage.Array[bool]{}, fmt.Errorf("calc: unknown morphology %d", op)
	}
	if useDevice(m.name, useGPU) {
		declined(m.name, "no device primitive")
	}
	return m.fn(input, ndimage.MorphOptions{Structure: structure, Iterations: iterations})
}
