//go:build !cuda

package gpu

// Host-only build (no cuda tag): every device primitive reports not handled
// and callers run the host implementation.

func Available() bool { return false }

func Name() string { return "cuda (not built: rebuild with -tags cuda)" }

func LabelU8(src []uint8, rows, cols int, full bool) ([]uint32, bool) { return nil, false }

func DilateU8(src []uint8, rows, cols int, se []uint8, sh, sw, iterations int) ([]uint8, bool) {
	return nil, false
}

func DistanceU8(src []uint8, rows, cols int) ([]float32, bool) { return nil, false }

func SumF64(vals []float64) (float64, bool) { return 0, false }

func MinF64(vals []float64) (float64, bool) { return 0, false }

func Close() {}
