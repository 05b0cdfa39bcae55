package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/qrv0/optimed/internal/ndimage"
)

// fakeDevice swaps the device hooks for host-backed fakes that count calls.
type fakeDevice struct {
	label, dilate, distance, reduce int
}

func installFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	avail, label, dilate, dist, sum, minimum := gpu_Available, gpu_LabelU8, gpu_DilateU8, gpu_DistanceU8, gpu_SumF64, gpu_MinF64
	t.Cleanup(func() {
		gpu_Available, gpu_LabelU8, gpu_DilateU8, gpu_DistanceU8, gpu_SumF64, gpu_MinF64 = avail, label, dilate, dist, sum, minimum
	})

	f := &fakeDevice{}
	gpu_Available = func() bool { return true }
	gpu_LabelU8 = func(src []uint8, rows, cols int, full bool) ([]uint32, bool) {
		f.label++
		in := u8ToBool(src, rows, cols)
		conn := 1
		if full {
			conn = 2
		}
		s, _ := ndimage.GenerateBinaryStructure(2, conn)
		labels, _, err := ndimage.Label(in, &s)
		if err != nil {
			return nil, false
		}
		// scramble: device labels are arbitrary and background has its own
		out := make([]uint32, len(labels.Data))
		for i, l := range labels.Data {
			if l == 0 {
				out[i] = 9999
			} else {
				out[i] = uint32(1000 - 7*l)
			}
		}
		return out, true
	}
	gpu_DilateU8 = func(src []uint8, rows, cols int, se []uint8, sh, sw, iterations int) ([]uint8, bool) {
		f.dilate++
		s := u8ToBool(se, sh, sw)
		out, err := ndimage.BinaryDilation(u8ToBool(src, rows, cols), ndimage.MorphOptions{Structure: &s, Iterations: iterations})
		if err != nil {
			return nil, false
		}
		return toU8(out), true
	}
	gpu_DistanceU8 = func(src []uint8, rows, cols int) ([]float32, bool) {
		f.distance++
		d, err := ndimage.DistanceTransformEDT(u8ToBool(src, rows, cols), nil)
		if err != nil {
			return nil, false
		}
		out := make([]float32, len(d.Data))
		for i, v := range d.Data {
			out[i] = float32(v)
		}
		return out, true
	}
	gpu_SumF64 = func(vals []float64) (float64, bool) { f.reduce++; return floats.Sum(vals), true }
	gpu_MinF64 = func(vals []float64) (float64, bool) { f.reduce++; return floats.Min(vals), true }
	return f
}

func u8ToBool(src []uint8, rows, cols int) ndimage.Array[bool] {
	a := ndimage.New[bool](rows, cols)
	for i, v := range src {
		a.Data[i] = v != 0
	}
	return a
}

func TestDevicePathLabelRenumbers(t *testing.T) {
	f := installFakeDevice(t)
	in := labelFixture(t)

	want, wantN, err := Label(in, nil, false)
	require.NoError(t, err)
	got, n, err := Label(in, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, f.label)
	assert.Equal(t, wantN, n)
	assert.Equal(t, want.Data, got.Data)

	full := ndimage.Ones(2)
	_, n, err = Label(in, &full, true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.label)
	assert.Equal(t, 1, n)
}

func TestDevicePathLabelDeclines(t *testing.T) {
	f := installFakeDevice(t)

	vol := ndimage.New[bool](2, 2, 2)
	vol.Set(true, 1, 1, 1)
	_, n, err := Label(vol, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	odd := ndimage.New[bool](3, 3)
	odd.Set(true, 1, 1)
	_, _, err = Label(labelFixture(t), &odd, true)
	require.NoError(t, err)
	assert.Zero(t, f.label)
}

func TestDevicePathDilation(t *testing.T) {
	f := installFakeDevice(t)
	in := ndimage.New[bool](6, 7)
	in.Set(true, 2, 3)
	in.Set(true, 5, 0)

	want, err := BinaryDilation(in, nil, 2, false)
	require.NoError(t, err)
	got, err := BinaryDilation(in, nil, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 1, f.dilate)
	assert.True(t, ndimage.Equal(want, got))

	// until-stable and asymmetric elements stay on the host
	_, err = BinaryDilation(in, nil, 0, true)
	require.NoError(t, err)
	asym := ndimage.New[bool](3, 3)
	asym.Set(true, 1, 1)
	asym.Set(true, 1, 2)
	_, err = BinaryDilation(in, &asym, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 1, f.dilate)
}

func TestDevicePathDistance(t *testing.T) {
	f := installFakeDevice(t)
	in := ndimage.New[bool](4, 6)
	for i := range in.Data {
		in.Data[i] = i%5 != 0
	}
	want, err := DistanceTransformEDT(in, false)
	require.NoError(t, err)
	got, err := DistanceTransformEDT(in, true)
	require.NoError(t, err)
	assert.Equal(t, 1, f.distance)
	assert.Equal(t, want.Data, got.Data)

	allSet := ndimage.New[bool](2, 2)
	for i := range allSet.Data {
		allSet.Data[i] = true
	}
	_, err = DistanceTransformEDT(allSet, true)
	require.NoError(t, err)
	assert.Equal(t, 1, f.distance)
}

func TestDevicePathReductions(t *testing.T) {
	f := installFakeDevice(t)
	in, labels := regionFixture(t)

	v, err := Sum(in, labels, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 30.0, v)
	v, err = Minimum(in, labels, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, 2, f.reduce)

	// an empty region never reaches the device
	v, err = Sum(in, labels, 42, true)
	require.NoError(t, err)
	assert.Zero(t, v)
	_, err = Minimum(in, labels, 42, true)
	assert.ErrorIs(t, err, ndimage.ErrEmptyRegion)
	assert.Equal(t, 2, f.reduce)
}

func TestGPUAvailableFollowsHook(t *testing.T) {
	installFakeDevice(t)
	assert.True(t, GPUAvailable())
}

func TestMalformedInputNeverReachesDevice(t *testing.T) {
	f := installFakeDevice(t)
	short := ndimage.Array[bool]{Shape: []int{3, 3}, Data: []bool{true}}

	_, _, err := Label(short, nil, true)
	assert.ErrorIs(t, err, ndimage.ErrInvalidShape)
	_, err = BinaryDilation(short, nil, 1, true)
	assert.ErrorIs(t, err, ndimage.ErrInvalidShape)
	_, err = DistanceTransformEDT(short, true)
	assert.ErrorIs(t, err, ndimage.ErrInvalidShape)
	assert.Zero(t, f.label+f.dilate+f.distance)
}

func TestSnapDistance(t *testing.T) {
	for _, k := range []int{0, 1, 2, 5, 13, 1000003, exactSquares - 1} {
		exact := math.Sqrt(float64(k))
		assert.Equal(t, exact, snapDistance(float32(exact)), "squared distance %d", k)
	}
	far := float32(math.Sqrt(float64(exactSquares) * 4))
	assert.Equal(t, float64(far), snapDistance(far))
}

func TestDevicePathIndexReductions(t *testing.T) {
	f := installFakeDevice(t)
	in, labels := regionFixture(t)
	v, err := SumIndex(in, labels, []int32{1, 2}, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{15, 30}, v)
	assert.Equal(t, 2, f.reduce)

	_, err = MaximumIndex(in, labels, []int32{1}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.reduce)
}

func TestCloseUsesHook(t *testing.T) {
	installFakeDevice(t)
	saved := gpu_Close
	t.Cleanup(func() { gpu_Close = saved })
	closed := false
	gpu_Close = func() { closed = true }
	Close()
	assert.True(t, closed)
}
