package ndimage

// MorphOptions controls BinaryDilation and BinaryErosion.
type MorphOptions struct {
	// Structure is the structuring element; nil means the connectivity-1 cross.
	Structure *Array[bool]
	// Iterations repeats the operation; values below 1 repeat until nothing changes.
	Iterations int
	// Mask, when set, limits the cells that may change.
	Mask *Array[bool]
	// BorderValue is the value assumed for cells outside the grid.
	BorderValue bool
}

// BinaryDilation sets every cell that the reflected structuring element,
// centred on it, finds at least one set input cell under.
func BinaryDilation(input Array[bool], opt MorphOptions) (Array[bool], error) {
	return morph(input, opt, true)
}

// BinaryErosion keeps a cell set only when every set cell of the structuring
// element, centred on it, covers a set input cell.
func BinaryErosion(input Array[bool], opt MorphOptions) (Array[bool], error) {
	return morph(input, opt, false)
}

// BinaryOpening is erosion followed by dilation with the same element.
func BinaryOpening(input Array[bool], opt MorphOptions) (Array[bool], error) {
	e, err := BinaryErosion(input, opt)
	if err != nil {
		return Array[bool]{}, err
	}
	return BinaryDilation(e, opt)
}

// BinaryClosing is dilation followed by erosion with the same element.
func BinaryClosing(input Array[bool], opt MorphOptions) (Array[bool], error) {
	d, err := BinaryDilation(input, opt)
	if err != nil {
		return Array[bool]{}, err
	}
	return BinaryErosion(d, opt)
}

func morph(input Array[bool], opt MorphOptions, dilate bool) (Array[bool], error) {
	if err := input.Check(); err != nil {
		return Array[bool]{}, err
	}
	s, err := structureOrDefault(opt.Structure, input.Rank())
	if err != nil {
		return Array[bool]{}, err
	}
	if opt.Mask != nil {
		if err := checkShape(input, *opt.Mask); err != nil {
			return Array[bool]{}, err
		}
	}
	deltas := offsets(s, dilate)
	cur := input.Clone()
	next := New[bool](input.Shape...)
	coords := make([]int, input.Rank())
	st := input.Strides()
	for it := 0; opt.Iterations < 1 || it < opt.Iterations; it++ {
		changed := false
		for idx := range cur.Data {
			if opt.Mask != nil && !opt.Mask.Data[idx] {
				next.Data[idx] = cur.Data[idx]
				continue
			}
			unravel(idx, input.Shape, coords)
			v := morphAt(cur, coords, idx, st, deltas, dilate, opt.BorderValue)
			if v != cur.Data[idx] {
				changed = true
			}
			next.Data[idx] = v
		}
		cur, next = next, cur
		if !changed {
			break
		}
	}
	return cur, nil
}

func morphAt(a Array[bool], coords []int, idx int, st []int, deltas [][]int, dilate, border bool) bool {
	if !dilate && len(deltas) == 0 {
		return false
	}
	for _, d := range deltas {
		off, inside := idx, true
		for i, v := range d {
			c := coords[i] + v
			if c < 0 || c >= a.Shape[i] {
				inside = false
				break
			}
			off += v * st[i]
		}
		val := border
		if inside {
			val = a.Data[off]
		}
		if dilate && val {
			return true
		}
		if !dilate && !val {
			return false
		}
	}
	return !dilate
}
