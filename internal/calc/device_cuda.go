//go:build cuda

package calc

import "github.com/qrv0/optimed/internal/gpu"

func init() {
	gpu_Available = gpu.Available
	gpu_Name = gpu.Name
	gpu_LabelU8 = gpu.LabelU8
	gpu_DilateU8 = gpu.DilateU8
	gpu_DistanceU8 = gpu.DistanceU8
	gpu_SumF64 = gpu.SumF64
	gpu_MinF64 = gpu.MinF64
	gpu_Close = gpu.Close
}
