package ndimage

import (
	"fmt"
	"math"
)

// DistanceTransformEDT returns, for every set cell of input, the Euclidean
// distance to the nearest unset cell; unset cells map to 0. sampling gives
// the spacing along each axis (nil means unit spacing). When input has no
// unset cell every distance is +Inf.
//
// The transform is exact: squared distances are computed one axis at a time
// as the lower envelope of parabolas rooted at each line's sites.
func DistanceTransformEDT(input Array[bool], sampling []float64) (Array[float64], error) {
	if err := input.Check(); err != nil {
		return Array[float64]{}, err
	}
	rank := input.Rank()
	if sampling == nil {
		sampling = make([]float64, rank)
		for i := range sampling {
			sampling[i] = 1
		}
	}
	if len(sampling) != rank {
		return Array[float64]{}, fmt.Errorf("%w: %d sampling values for rank %d", ErrShapeMismatch, len(sampling), rank)
	}
	for i, s := range sampling {
		if !(s > 0) || math.IsInf(s, 0) {
			return Array[float64]{}, fmt.Errorf("ndimage: sampling[%d]=%v must be positive and finite", i, s)
		}
	}
	out := New[float64](input.Shape...)
	for i, set := range input.Data {
		if set {
			out.Data[i] = math.Inf(1)
		}
	}
	if out.Len() == 0 {
		return out, nil
	}
	st := input.Strides()
	maxN := 0
	for _, d := range input.Shape {
		maxN = max(maxN, d)
	}
	line := make([]float64, maxN)
	res := make([]float64, maxN)
	env := newEnvelope(maxN)
	for axis := 0; axis < rank; axis++ {
		n, stride := input.Shape[axis], st[axis]
		for start := range out.Data {
			if (start/stride)%n != 0 {
				continue
			}
			for k := 0; k < n; k++ {
				line[k] = out.Data[start+k*stride]
			}
			env.transform(line[:n], res[:n], sampling[axis])
			for k := 0; k < n; k++ {
				out.Data[start+k*stride] = res[k]
			}
		}
	}
	for i, v := range out.Data {
		out.Data[i] = math.Sqrt(v)
	}
	return out, nil
}

// envelope holds the scratch space for one-dimensional squared distance passes.
type envelope struct {
	v []int
	z []float64
}

func newEnvelope(n int) *envelope {
	return &envelope{v: make([]int, n), z: make([]float64, n+1)}
}

// transform computes d[p] = min_q ((p-q)*h)^2 + f[q] over finite f[q].
func (e *envelope) transform(f, d []float64, h float64) {
	k := -1
	for q := range f {
		if math.IsInf(f[q], 1) {
			continue
		}
		if k < 0 {
			k = 0
			e.v[0] = q
			e.z[0] = math.Inf(-1)
			e.z[1] = math.Inf(1)
			continue
		}
		xq := float64(q) * h
		var s float64
		for {
			xv := float64(e.v[k]) * h
			s = ((f[q] + xq*xq) - (f[e.v[k]] + xv*xv)) / (2 * (xq - xv))
			if s > e.z[k] {
				break
			}
			k--
		}
		k++
		e.v[k] = q
		e.z[k] = s
		e.z[k+1] = math.Inf(1)
	}
	if k < 0 {
		for p := range d {
			d[p] = math.Inf(1)
		}
		return
	}
	k = 0
	for p := range d {
		xp := float64(p) * h
		for e.z[k+1] < xp {
			k++
		}
		dx := xp - float64(e.v[k])*h
		d[p] = dx*dx + f[e.v[k]]
	}
}
