package ndimage

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrShapeMismatch    = errors.New("ndimage: shape mismatch")
	ErrInvalidShape     = errors.New("ndimage: invalid shape")
	ErrInvalidStructure = errors.New("ndimage: invalid structuring element")
	ErrEmptyRegion      = errors.New("ndimage: empty region")
)

// Scalar is the set of element types an Array may hold.
type Scalar interface {
	~bool | ~uint8 | ~int32 | ~int64 | ~float32 | ~float64
}

// Number is the subset of Scalar that supports arithmetic reductions.
type Number interface {
	~uint8 | ~int32 | ~int64 | ~float32 | ~float64
}

// Array is a dense row-major N-dimensional grid.
type Array[T Scalar] struct {
	Shape []int
	Data  []T
}

// New allocates a zeroed array of the given shape.
func New[T Scalar](shape ...int) Array[T] {
	n, err := size(shape)
	if err != nil {
		panic(err)
	}
	return Array[T]{Shape: append([]int(nil), shape...), Data: make([]T, n)}
}

// FromSlice wraps data (not copied) with shape.
func FromSlice[T Scalar](data []T, shape ...int) (Array[T], error) {
	n, err := size(shape)
	if err != nil {
		return Array[T]{}, err
	}
	if n != len(data) {
		return Array[T]{}, fmt.Errorf("%w: %d elements for shape %v", ErrInvalidShape, len(data), shape)
	}
	return Array[T]{Shape: append([]int(nil), shape...), Data: data}, nil
}

// FromRows builds a 2-D array from equal-length rows.
func FromRows[T Scalar](rows [][]T) (Array[T], error) {
	if len(rows) == 0 {
		return Array[T]{}, fmt.Errorf("%w: no rows", ErrInvalidShape)
	}
	cols := len(rows[0])
	data := make([]T, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return Array[T]{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidShape, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return FromSlice(data, len(rows), cols)
}

func size(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: rank 0", ErrInvalidShape)
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrInvalidShape, shape)
		}
		n *= d
	}
	return n, nil
}

// Check reports ErrInvalidShape unless Data holds exactly the number of
// elements Shape describes.
func (a Array[T]) Check() error {
	n, err := size(a.Shape)
	if err != nil {
		return err
	}
	if n != len(a.Data) {
		return fmt.Errorf("%w: %d elements for shape %v", ErrInvalidShape, len(a.Data), a.Shape)
	}
	return nil
}

func (a Array[T]) Rank() int { return len(a.Shape) }
func (a Array[T]) Len() int  { return len(a.Data) }

// Strides returns row-major element strides.
func (a Array[T]) Strides() []int { return strides(a.Shape) }

func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// Index converts coordinates to a flat offset. It panics when out of range.
func (a Array[T]) Index(coords ...int) int {
	if len(coords) != len(a.Shape) {
		panic(fmt.Sprintf("ndimage: %d coordinates for rank %d", len(coords), len(a.Shape)))
	}
	off := 0
	for i, c := range coords {
		if c < 0 || c >= a.Shape[i] {
			panic(fmt.Sprintf("ndimage: index %d out of range for axis %d (size %d)", c, i, a.Shape[i]))
		}
		off = off*a.Shape[i] + c
	}
	return off
}

func (a Array[T]) At(coords ...int) T     { return a.Data[a.Index(coords...)] }
func (a Array[T]) Set(v T, coords ...int) { a.Data[a.Index(coords...)] = v }

// Clone returns a deep copy.
func (a Array[T]) Clone() Array[T] {
	return Array[T]{Shape: append([]int(nil), a.Shape...), Data: append([]T(nil), a.Data...)}
}

// SameShape reports whether a and b have identical shapes.
func SameShape[A, B Scalar](a Array[A], b Array[B]) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}

func checkShape[A, B Scalar](a Array[A], b Array[B]) error {
	if err := a.Check(); err != nil {
		return err
	}
	if err := b.Check(); err != nil {
		return err
	}
	if !SameShape(a, b) {
		return fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, a.Shape, b.Shape)
	}
	return nil
}

// Equal reports whether a and b have the same shape and elements.
func Equal[T Scalar](a, b Array[T]) bool {
	if !SameShape(a, b) || len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false
		}
	}
	return true
}

// Convert maps every element of a to a new element type.
func Convert[A, B Scalar](a Array[A], f func(A) B) Array[B] {
	out := Array[B]{Shape: append([]int(nil), a.Shape...), Data: make([]B, len(a.Data))}
	for i, v := range a.Data {
		out.Data[i] = f(v)
	}
	return out
}

// NonZero returns a boolean array that is true where a is non-zero.
func NonZero[T Number](a Array[T]) Array[bool] {
	return Convert(a, func(v T) bool { return v != 0 })
}

// Invert returns the logical negation of a boolean array.
func Invert(a Array[bool]) Array[bool] {
	return Convert(a, func(v bool) bool { return !v })
}

// FromDense copies a gonum matrix into a 2-D float64 array.
func FromDense(m mat.Matrix) Array[float64] {
	r, c := m.Dims()
	out := New[float64](r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Data[i*c+j] = m.At(i, j)
		}
	}
	return out
}

// Dense returns a 2-D numeric array as a gonum matrix.
func Dense[T Number](a Array[T]) (*mat.Dense, error) {
	if a.Rank() != 2 {
		return nil, fmt.Errorf("%w: Dense needs rank 2, got %d", ErrInvalidShape, a.Rank())
	}
	if a.Len() == 0 {
		return nil, fmt.Errorf("%w: Dense of empty array", ErrInvalidShape)
	}
	if err := a.Check(); err != nil {
		return nil, err
	}
	data := make([]float64, len(a.Data))
	for i, v := range a.Data {
		data[i] = float64(v)
	}
	return mat.NewDense(a.Shape[0], a.Shape[1], data), nil
}
