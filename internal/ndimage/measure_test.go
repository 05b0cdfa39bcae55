package ndimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regionFixture(t *testing.T) (Array[int32], Array[int32]) {
	t.Helper()
	in, err := FromRows([][]int32{
		{3, 4, 5},
		{7, 1, 2},
		{9, 8, 6},
	})
	require.NoError(t, err)
	labels, err := FromRows([][]int32{
		{1, 1, 2},
		{1, 1, 2},
		{2, 2, 2},
	})
	require.NoError(t, err)
	return in, labels
}

func TestRegionReductions(t *testing.T) {
	in, labels := regionFixture(t)

	v, err := Minimum(in, &labels, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	v, err = Minimum(in, &labels, 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = Sum(in, &labels, 1)
	require.NoError(t, err)
	assert.Equal(t, 15.0, v)
	v, err = Sum(in, &labels, 2)
	require.NoError(t, err)
	assert.Equal(t, 30.0, v)

	v, err = Maximum(in, &labels, 1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	v, err = Mean(in, &labels, 2)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, v, 1e-12)
}

func TestRegionReductionsWholeArray(t *testing.T) {
	in, _ := regionFixture(t)
	v, err := Minimum[int32, int32](in, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	v, err = Sum[int32, int32](in, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 45.0, v)
}

func TestRegionReductionsEmpty(t *testing.T) {
	in, labels := regionFixture(t)
	v, err := Sum(in, &labels, 9)
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = Minimum(in, &labels, 9)
	assert.ErrorIs(t, err, ErrEmptyRegion)
	assert.Zero(t, v)
	_, err = Mean(in, &labels, 9)
	assert.ErrorIs(t, err, ErrEmptyRegion)
}

func TestRegionReductionsBoolLabels(t *testing.T) {
	in, labels := regionFixture(t)
	inside := Convert(labels, func(l int32) bool { return l == 1 })
	v, err := Sum(in, &inside, true)
	require.NoError(t, err)
	assert.Equal(t, 15.0, v)
	v, err = Minimum(in, &inside, false)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestRegionReductionsShapeMismatch(t *testing.T) {
	in, _ := regionFixture(t)
	labels := New[int32](2, 2)
	_, err := Minimum(in, &labels, 1)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = SumIndex(in, labels, []int32{1})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestIndexReductions(t *testing.T) {
	in, labels := regionFixture(t)

	sums, err := SumIndex(in, labels, []int32{2, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 15, 30}, sums)

	mins, err := MinimumIndex(in, labels, []int32{1, 2, 7})
	assert.ErrorIs(t, err, ErrEmptyRegion)
	assert.Equal(t, []float64{1, 2, 0}, mins)

	maxs, err := MaximumIndex(in, labels, []int32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 9}, maxs)

	means, err := MeanIndex(in, labels, []int32{1})
	require.NoError(t, err)
	assert.InDelta(t, 3.75, means[0], 1e-12)
}

func TestFilterLabels(t *testing.T) {
	mask, err := FromRows([][]int32{
		{0, 1, 2},
		{3, 0, 4},
		{5, 1, 1},
	})
	require.NoError(t, err)
	got := FilterLabels(mask, []int32{1, 5})
	assert.Equal(t, []int32{
		0, 1, 0,
		0, 0, 0,
		5, 1, 1,
	}, got.Data)
	assert.Equal(t, []int32{0, 1, 2, 3, 0, 4, 5, 1, 1}, mask.Data, "input must not change")

	none := FilterLabels(mask, nil)
	for _, v := range none.Data {
		assert.Zero(t, v)
	}
}
