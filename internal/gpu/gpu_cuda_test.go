//go:build cuda

package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCUDAAvailable(t *testing.T) {
	if !Available() {
		t.Skip("CUDA not available on this runner")
	}
	t.Log(Name())

	img := []uint8{
		0, 1, 1, 0,
		1, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	labels, ok := LabelU8(img, 4, 4, false)
	require.True(t, ok, "LabelU8 failed")
	assert.Equal(t, labels[1], labels[4])
	assert.NotEqual(t, labels[1], labels[10])
	assert.NotEqual(t, labels[10], labels[15])

	src := make([]uint8, 25)
	src[12] = 1
	se := []uint8{1, 1, 1, 1, 1, 1, 1, 1, 1}
	out, ok := DilateU8(src, 5, 5, se, 3, 3, 1)
	require.True(t, ok, "DilateU8 failed")
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			in := r >= 1 && r <= 3 && c >= 1 && c <= 3
			assert.Equal(t, in, out[r*5+c] != 0, "cell (%d,%d)", r, c)
		}
	}

	dist, ok := DistanceU8([]uint8{0, 1, 1, 1}, 1, 4)
	require.True(t, ok, "DistanceU8 failed")
	assert.InDelta(t, 3.0, dist[3], 1e-4)

	s, ok := SumF64([]float64{3, 4, 7, 1})
	require.True(t, ok)
	assert.InDelta(t, 15.0, s, 1e-9)
	m, ok := MinF64([]float64{3, 4, 7, 1})
	require.True(t, ok)
	assert.InDelta(t, 1.0, m, 1e-9)
}
