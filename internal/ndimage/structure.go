package ndimage

import "fmt"

// GenerateBinaryStructure returns a 3x...x3 structuring element of the given
// rank in which a cell is set when its squared distance from the centre is at
// most connectivity. connectivity 1 gives the cross, rank gives the full block.
func GenerateBinaryStructure(rank, connectivity int) (Array[bool], error) {
	if rank < 1 {
		return Array[bool]{}, fmt.Errorf("%w: rank %d", ErrInvalidStructure, rank)
	}
	if connectivity < 1 {
		connectivity = 1
	}
	shape := make([]int, rank)
	for i := range shape {
		shape[i] = 3
	}
	out := New[bool](shape...)
	coords := make([]int, rank)
	for off := range out.Data {
		unravel(off, shape, coords)
		d := 0
		for _, c := range coords {
			d += (c - 1) * (c - 1)
		}
		out.Data[off] = d <= connectivity
	}
	return out, nil
}

// Ones returns a structuring element with every cell set.
func Ones(rank int) Array[bool] {
	s, _ := GenerateBinaryStructure(rank, rank)
	return s
}

func unravel(off int, shape, coords []int) {
	for i := len(shape) - 1; i >= 0; i-- {
		coords[i] = off % shape[i]
		off /= shape[i]
	}
}

// structureOrDefault validates s against rank, or returns the cross when s is nil.
func structureOrDefault(s *Array[bool], rank int) (Array[bool], error) {
	if s == nil {
		return GenerateBinaryStructure(rank, 1)
	}
	if s.Rank() != rank {
		return Array[bool]{}, fmt.Errorf("%w: structure rank %d, input rank %d", ErrInvalidStructure, s.Rank(), rank)
	}
	if len(s.Data) != product(s.Shape) {
		return Array[bool]{}, fmt.Errorf("%w: %d elements for shape %v", ErrInvalidStructure, len(s.Data), s.Shape)
	}
	return *s, nil
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// offsets lists the coordinate deltas of the set cells of s, relative to its centre.
// When reflect is true every delta is negated.
func offsets(s Array[bool], reflect bool) [][]int {
	var out [][]int
	coords := make([]int, s.Rank())
	for off, v := range s.Data {
		if !v {
			continue
		}
		unravel(off, s.Shape, coords)
		d := make([]int, len(coords))
		for i, c := range coords {
			d[i] = c - s.Shape[i]/2
			if reflect {
				d[i] = -d[i]
			}
		}
		out = append(out, d)
	}
	return out
}

// checkConnectivityStructure enforces the labeling constraints: every axis has
// length 3 and the element is symmetric about its centre.
func checkConnectivityStructure(s Array[bool]) error {
	for _, d := range s.Shape {
		if d != 3 {
			return fmt.Errorf("%w: every dimension must be 3, got %v", ErrInvalidStructure, s.Shape)
		}
	}
	n := len(s.Data)
	for i := 0; i < n; i++ {
		if s.Data[i] != s.Data[n-1-i] {
			return fmt.Errorf("%w: not symmetric about its centre", ErrInvalidStructure)
		}
	}
	return nil
}
