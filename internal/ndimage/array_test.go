package ndimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFromSliceShape(t *testing.T) {
	a, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, a.Strides())
	assert.Equal(t, 6.0, a.At(1, 2))
	assert.Equal(t, 5, a.Index(1, 2))

	_, err = FromSlice([]float64{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = FromSlice([]float64{}, -1)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestFromRowsRagged(t *testing.T) {
	_, err := FromRows([][]int32{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestIndexOutOfRangePanics(t *testing.T) {
	a := New[int32](2, 2)
	assert.Panics(t, func() { a.At(2, 0) })
	assert.Panics(t, func() { a.At(0) })
}

func TestDenseBridge(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	a := FromDense(m)
	assert.Equal(t, []int{2, 3}, a.Shape)
	assert.Equal(t, 4.0, a.At(1, 0))

	back, err := Dense(a)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, back))

	_, err = Dense(New[float64](2, 2, 2))
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestCloneIsDeep(t *testing.T) {
	a := New[bool](2, 2)
	b := a.Clone()
	b.Set(true, 0, 0)
	assert.False(t, a.At(0, 0))
	assert.False(t, Equal(a, b))
	assert.True(t, Equal(a, a.Clone()))
}

func TestNonZeroAndInvert(t *testing.T) {
	a, err := FromSlice([]int32{0, 3, -1, 0}, 2, 2)
	require.NoError(t, err)
	nz := NonZero(a)
	assert.Equal(t, []bool{false, true, true, false}, nz.Data)
	assert.Equal(t, []bool{true, false, false, true}, Invert(nz).Data)
}

func TestCheckRejectsShortData(t *testing.T) {
	short := Array[bool]{Shape: []int{3, 3}, Data: []bool{true}}
	assert.ErrorIs(t, short.Check(), ErrInvalidShape)
	assert.NoError(t, New[bool](3, 3).Check())
	assert.ErrorIs(t, Array[bool]{}.Check(), ErrInvalidShape)

	_, _, err := Label(short, nil)
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = BinaryDilation(short, MorphOptions{})
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = BinaryErosion(short, MorphOptions{})
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = DistanceTransformEDT(short, nil)
	assert.ErrorIs(t, err, ErrInvalidShape)

	values := Array[int32]{Shape: []int{2, 2}, Data: []int32{1}}
	_, err = Sum[int32, int32](values, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidShape)
	labels := New[int32](2, 2)
	_, err = Minimum(values, &labels, 0)
	assert.ErrorIs(t, err, ErrInvalidShape)

	longMask := Array[bool]{Shape: []int{3, 3}, Data: make([]bool, 4)}
	_, err = BinaryDilation(New[bool](3, 3), MorphOptions{Mask: &longMask})
	assert.ErrorIs(t, err, ErrInvalidShape)
}
