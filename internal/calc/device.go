package calc

// lightweight indirection to internal/gpu; the cuda build rebinds these in device_cuda.go
var (
	gpu_Available = func() bool { return false }
	gpu_Name      = func() string { return "cuda (not built: rebuild with -tags cuda)" }
	gpu_LabelU8   = func(src []uint8, rows, cols int, full bool) ([]uint32, bool) { return nil, false }
	gpu_DilateU8  = func(src []uint8, rows, cols int, se []uint8, sh, sw, iterations int) ([]uint8, bool) {
		return nil, false
	}
	gpu_DistanceU8 = func(src []uint8, rows, cols int) ([]float32, bool) { return nil, false }
	gpu_SumF64     = func(vals []float64) (float64, bool) { return 0, false }
	gpu_MinF64     = func(vals []float64) (float64, bool) { return 0, false }
	gpu_Close      = func() {}
)
