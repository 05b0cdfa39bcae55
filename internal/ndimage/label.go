package ndimage

// Label finds the connected components of the set cells of input. Two cells
// are connected when their coordinate difference is a set cell of structure
// (nil means the connectivity-1 cross). Components are numbered 1..n in the
// raster order of their first cell; background is 0.
func Label(input Array[bool], structure *Array[bool]) (Array[int32], int, error) {
	if err := input.Check(); err != nil {
		return Array[int32]{}, 0, err
	}
	s, err := structureOrDefault(structure, input.Rank())
	if err != nil {
		return Array[int32]{}, 0, err
	}
	if err := checkConnectivityStructure(s); err != nil {
		return Array[int32]{}, 0, err
	}
	nb := newNeighborhood(input.Shape, offsets(s, false))
	labels := New[int32](input.Shape...)
	var next int32
	queue := make([]int, 0, 1024)
	coords := make([]int, input.Rank())
	for idx, set := range input.Data {
		if !set || labels.Data[idx] != 0 {
			continue
		}
		next++
		labels.Data[idx] = next
		queue = append(queue[:0], idx)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			unravel(cur, input.Shape, coords)
			nb.each(cur, coords, func(ni int) {
				if input.Data[ni] && labels.Data[ni] == 0 {
					labels.Data[ni] = next
					queue = append(queue, ni)
				}
			})
		}
	}
	return labels, int(next), nil
}

// neighborhood walks the in-bounds neighbours of a cell for a fixed set of deltas.
type neighborhood struct {
	shape  []int
	deltas [][]int
	flat   []int
}

func newNeighborhood(shape []int, deltas [][]int) *neighborhood {
	st := strides(shape)
	nb := &neighborhood{shape: shape}
	for _, d := range deltas {
		zero := true
		f := 0
		for i, v := range d {
			f += v * st[i]
			if v != 0 {
				zero = false
			}
		}
		if zero {
			continue
		}
		nb.deltas = append(nb.deltas, d)
		nb.flat = append(nb.flat, f)
	}
	return nb
}

func (nb *neighborhood) each(idx int, coords []int, fn func(int)) {
next:
	for k, d := range nb.deltas {
		for i, v := range d {
			c := coords[i] + v
			if c < 0 || c >= nb.shape[i] {
				continue next
			}
		}
		fn(idx + nb.flat[k])
	}
}
