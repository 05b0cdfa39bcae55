package ndimage

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Region gathers, as float64, the input values whose label equals index.
// A nil labels selects every cell.
func Region[T Number, L Scalar](input Array[T], labels *Array[L], index L) ([]float64, error) {
	if labels == nil {
		if err := input.Check(); err != nil {
			return nil, err
		}
		vals := make([]float64, len(input.Data))
		for i, v := range input.Data {
			vals[i] = float64(v)
		}
		return vals, nil
	}
	if err := checkShape(input, *labels); err != nil {
		return nil, err
	}
	var vals []float64
	for i, l := range labels.Data {
		if l == index {
			vals = append(vals, float64(input.Data[i]))
		}
	}
	return vals, nil
}

// Regions gathers one value slice per index in a single pass.
func Regions[T Number, L Scalar](input Array[T], labels Array[L], index []L) ([][]float64, error) {
	if err := checkShape(input, labels); err != nil {
		return nil, err
	}
	pos := make(map[L]int, len(index))
	for i, l := range index {
		if _, dup := pos[l]; !dup {
			pos[l] = i
		}
	}
	out := make([][]float64, len(index))
	for i, l := range labels.Data {
		if k, ok := pos[l]; ok {
			out[k] = append(out[k], float64(input.Data[i]))
		}
	}
	// repeated indices share the first occurrence's values
	for i, l := range index {
		if k := pos[l]; k != i {
			out[i] = out[k]
		}
	}
	return out, nil
}

// Minimum returns the smallest input value labelled index.
func Minimum[T Number, L Scalar](input Array[T], labels *Array[L], index L) (float64, error) {
	vals, err := Region(input, labels, index)
	if err != nil {
		return 0, err
	}
	return reduceMin(vals, index)
}

// Maximum returns the largest input value labelled index.
func Maximum[T Number, L Scalar](input Array[T], labels *Array[L], index L) (float64, error) {
	vals, err := Region(input, labels, index)
	if err != nil {
		return 0, err
	}
	return reduceMax(vals, index)
}

// Sum returns the total of the input values labelled index; 0 for an empty region.
func Sum[T Number, L Scalar](input Array[T], labels *Array[L], index L) (float64, error) {
	vals, err := Region(input, labels, index)
	if err != nil {
		return 0, err
	}
	return floats.Sum(vals), nil
}

// Mean returns the arithmetic mean of the input values labelled index.
func Mean[T Number, L Scalar](input Array[T], labels *Array[L], index L) (float64, error) {
	vals, err := Region(input, labels, index)
	if err != nil {
		return 0, err
	}
	return reduceMean(vals, index)
}

// MinimumIndex is Minimum for several labels at once. Empty regions yield 0
// and the first empty region is reported through ErrEmptyRegion.
func MinimumIndex[T Number, L Scalar](input Array[T], labels Array[L], index []L) ([]float64, error) {
	return reduceEach(input, labels, index, reduceMin[L])
}

func MaximumIndex[T Number, L Scalar](input Array[T], labels Array[L], index []L) ([]float64, error) {
	return reduceEach(input, labels, index, reduceMax[L])
}

func SumIndex[T Number, L Scalar](input Array[T], labels Array[L], index []L) ([]float64, error) {
	return reduceEach(input, labels, index, func(v []float64, _ L) (float64, error) { return floats.Sum(v), nil })
}

func MeanIndex[T Number, L Scalar](input Array[T], labels Array[L], index []L) ([]float64, error) {
	return reduceEach(input, labels, index, reduceMean[L])
}

func reduceEach[T Number, L Scalar](input Array[T], labels Array[L], index []L, f func([]float64, L) (float64, error)) ([]float64, error) {
	groups, err := Regions(input, labels, index)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(index))
	var first error
	for i, g := range groups {
		v, err := f(g, index[i])
		if err != nil && first == nil {
			first = err
		}
		out[i] = v
	}
	return out, first
}

func reduceMin[L Scalar](vals []float64, index L) (float64, error) {
	if len(vals) == 0 {
		return 0, fmt.Errorf("%w: no cells labelled %v", ErrEmptyRegion, index)
	}
	return floats.Min(vals), nil
}

func reduceMax[L Scalar](vals []float64, index L) (float64, error) {
	if len(vals) == 0 {
		return 0, fmt.Errorf("%w: no cells labelled %v", ErrEmptyRegion, index)
	}
	return floats.Max(vals), nil
}

func reduceMean[L Scalar](vals []float64, index L) (float64, error) {
	if len(vals) == 0 {
		return 0, fmt.Errorf("%w: no cells labelled %v", ErrEmptyRegion, index)
	}
	return stat.Mean(vals, nil), nil
}

// FilterLabels returns a copy of mask in which every cell whose value is not
// in keep is set to 0.
func FilterLabels[L Number](mask Array[L], keep []L) Array[L] {
	set := make(map[L]struct{}, len(keep))
	for _, k := range keep {
		set[k] = struct{}{}
	}
	out := mask.Clone()
	for i, v := range out.Data {
		if _, ok := set[v]; !ok {
			out.Data[i] = 0
		}
	}
	return out
}
