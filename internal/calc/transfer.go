package calc

import (
	"math"

	"github.com/qrv0/optimed/internal/ndimage"
)

// The device library works on 2-D u8 images with 3x3 (labeling) or odd-sized
// symmetric (dilation) elements. Anything else is declined here and handled
// by ndimage.

func toU8(a ndimage.Array[bool]) []uint8 {
	out := make([]uint8, len(a.Data))
	for i, v := range a.Data {
		if v {
			out[i] = 1
		}
	}
	return out
}

func labelDevice(input ndimage.Array[bool], structure *ndimage.Array[bool]) (ndimage.Array[int32], int, bool) {
	if input.Rank() != 2 || input.Len() == 0 || input.Check() != nil {
		declined("label", "needs a well-formed non-empty 2-D input")
		return ndimage.Array[int32]{}, 0, false
	}
	full := false
	if structure != nil {
		switch {
		case isConnectivity(*structure, 1):
		case isConnectivity(*structure, 2):
			full = true
		default:
			declined("label", "structure is neither the cross nor the full 3x3 block")
			return ndimage.Array[int32]{}, 0, false
		}
	}
	src := toU8(input)
	raw, ok := gpu_LabelU8(src, input.Shape[0], input.Shape[1], full)
	if !ok {
		declined("label", "device error")
		return ndimage.Array[int32]{}, 0, false
	}
	out, n := renumber(raw, src)
	return ndimage.Array[int32]{Shape: append([]int(nil), input.Shape...), Data: out}, n, true
}

// renumber maps device labels of foreground cells to 1..n in raster order of
// each component's first cell, matching the host numbering.
func renumber(raw []uint32, fg []uint8) ([]int32, int) {
	out := make([]int32, len(raw))
	ids := make(map[uint32]int32)
	for i, v := range raw {
		if fg[i] == 0 {
			continue
		}
		id, ok := ids[v]
		if !ok {
			id = int32(len(ids) + 1)
			ids[v] = id
		}
		out[i] = id
	}
	return out, len(ids)
}

func isConnectivity(s ndimage.Array[bool], connectivity int) bool {
	want, err := ndimage.GenerateBinaryStructure(2, connectivity)
	if err != nil {
		return false
	}
	return ndimage.Equal(s, want)
}

func dilateDevice(input ndimage.Array[bool], structure *ndimage.Array[bool], iterations int) (ndimage.Array[bool], bool) {
	if input.Rank() != 2 || input.Len() == 0 || input.Check() != nil {
		declined("binary_dilation", "needs a well-formed non-empty 2-D input")
		return ndimage.Array[bool]{}, false
	}
	if iterations < 1 {
		declined("binary_dilation", "iterate-until-stable is host only")
		return ndimage.Array[bool]{}, false
	}
	var se ndimage.Array[bool]
	if structure == nil {
		se, _ = ndimage.GenerateBinaryStructure(2, 1)
	} else {
		se = *structure
	}
	if se.Rank() != 2 || se.Len() != se.Shape[0]*se.Shape[1] || se.Shape[0]%2 == 0 || se.Shape[1]%2 == 0 || !symmetric(se) {
		declined("binary_dilation", "structure must be 2-D, odd-sized and symmetric")
		return ndimage.Array[bool]{}, false
	}
	out, ok := gpu_DilateU8(toU8(input), input.Shape[0], input.Shape[1], toU8(se), se.Shape[0], se.Shape[1], iterations)
	if !ok {
		declined("binary_dilation", "device error")
		return ndimage.Array[bool]{}, false
	}
	res := ndimage.New[bool](input.Shape...)
	for i, v := range out {
		res.Data[i] = v != 0
	}
	return res, true
}

func symmetric(s ndimage.Array[bool]) bool {
	n := len(s.Data)
	for i := 0; i < n/2; i++ {
		if s.Data[i] != s.Data[n-1-i] {
			return false
		}
	}
	return true
}

func distanceDevice(input ndimage.Array[bool]) (ndimage.Array[float64], bool) {
	if input.Rank() != 2 || input.Len() == 0 || input.Check() != nil {
		declined("distance_transform_edt", "needs a well-formed non-empty 2-D input")
		return ndimage.Array[float64]{}, false
	}
	src := toU8(input)
	hasSite := false
	for _, v := range src {
		if v == 0 {
			hasSite = true
			break
		}
	}
	if !hasSite {
		declined("distance_transform_edt", "no background cell")
		return ndimage.Array[float64]{}, false
	}
	d, ok := gpu_DistanceU8(src, input.Shape[0], input.Shape[1])
	if !ok {
		declined("distance_transform_edt", "device error")
		return ndimage.Array[float64]{}, false
	}
	out := ndimage.New[float64](input.Shape...)
	for i, v := range d {
		out.Data[i] = snapDistance(v)
	}
	return out, true
}

// exactSquares bounds the squared distances a float32 result still pins to
// one integer.
const exactSquares = 1 << 22

// snapDistance recovers the float64 distance from the device's float32. On a
// unit grid every squared distance is an integer, so below exactSquares the
// host value is sqrt of the rounded square.
func snapDistance(v float32) float64 {
	f := float64(v)
	sq := math.Round(f * f)
	if sq >= exactSquares {
		return f
	}
	return math.Sqrt(sq)
}

// reduceDevice gathers the region on the host and reduces it on the device.
func reduceDevice[T ndimage.Number, L ndimage.Scalar](input ndimage.Array[T], labels ndimage.Array[L], index L, reduce func([]float64) (float64, bool)) (float64, bool) {
	vals, err := ndimage.Region(input, &labels, index)
	if err != nil || len(vals) == 0 {
		return 0, false
	}
	return reduce(vals)
}
