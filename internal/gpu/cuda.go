//go:build cuda

package gpu

/*
#cgo LDFLAGS: -lcudart -lnppc -lnppif -lnppim -lnpps
#include <stdio.h>
#include <stdlib.h>
#include <cuda_runtime.h>
#include <npp.h>

static const char* cudaErrStr(cudaError_t e) { return cudaGetErrorString(e); }

typedef struct {
    NppStreamContext npp;
    char name[256];
    int ok;
} gpu_ctx;

static gpu_ctx G = {0};

static const char* gpu_init() {
    if (G.ok) return NULL;
    int n = 0;
    cudaError_t ce = cudaGetDeviceCount(&n);
    if (ce != cudaSuccess) return cudaErrStr(ce);
    if (n == 0) return "no CUDA device";
    ce = cudaSetDevice(0); if (ce != cudaSuccess) return cudaErrStr(ce);
    struct cudaDeviceProp prop;
    ce = cudaGetDeviceProperties(&prop, 0); if (ce != cudaSuccess) return cudaErrStr(ce);
    snprintf(G.name, sizeof(G.name), "%s", prop.name);
    if (nppGetStreamContext(&G.npp) != NPP_SUCCESS) return "nppGetStreamContext failed";
    G.ok = 1;
    return NULL;
}

static void gpu_close() {
    if (G.ok) { cudaDeviceReset(); G.ok = 0; }
}

static const char* gpu_name() { return G.name; }

// Union-find labeling of a rows x cols u8 image (non-zero = foreground).
// Labels are left as NPP produces them; the caller renumbers.
static const char* gpu_label_u8(const Npp8u* src, int rows, int cols, int full, Npp32u* dst) {
    if (!G.ok) return "not initialized";
    NppiSize roi = { cols, rows };
    size_t ssz = (size_t)rows * (size_t)cols;
    size_t dsz = ssz * sizeof(Npp32u);
    int bsz = 0;
    if (nppiLabelMarkersUFGetBufferSize_32u_C1R(roi, &bsz) != NPP_SUCCESS) return "nppiLabelMarkersUFGetBufferSize failed";
    Npp8u *dS = NULL, *dB = NULL; Npp32u *dD = NULL;
    cudaError_t ce;
    ce = cudaMalloc((void**)&dS, ssz); if (ce != cudaSuccess) return cudaErrStr(ce);
    ce = cudaMalloc((void**)&dD, dsz); if (ce != cudaSuccess) { cudaFree(dS); return cudaErrStr(ce); }
    ce = cudaMalloc((void**)&dB, bsz); if (ce != cudaSuccess) { cudaFree(dS); cudaFree(dD); return cudaErrStr(ce); }
    ce = cudaMemcpy(dS, src, ssz, cudaMemcpyHostToDevice); if (ce != cudaSuccess) { cudaFree(dS); cudaFree(dD); cudaFree(dB); return cudaErrStr(ce); }
    NppiNorm norm = full ? nppiNormInf : nppiNormL1;
    NppStatus st = nppiLabelMarkersUF_8u32u_C1R_Ctx(dS, cols, dD, cols * (int)sizeof(Npp32u), roi, norm, dB, G.npp);
    if (st != NPP_SUCCESS) { cudaFree(dS); cudaFree(dD); cudaFree(dB); return "nppiLabelMarkersUF failed"; }
    ce = cudaMemcpy(dst, dD, dsz, cudaMemcpyDeviceToHost);
    cudaFree(dS); cudaFree(dD); cudaFree(dB);
    if (ce != cudaSuccess) return cudaErrStr(ce);
    return NULL;
}

// Dilation of a zero-padded u8 image. src is (rows+2*py) x (cols+2*px); the
// ROI is the interior rows x cols. The padding stays zero across iterations.
static const char* gpu_dilate_u8(const Npp8u* src, int rows, int cols, const Npp8u* se, int sh, int sw, int iters, Npp8u* dst) {
    if (!G.ok) return "not initialized";
    int py = sh / 2, px = sw / 2;
    int prow = rows + 2 * py, pcol = cols + 2 * px;
    size_t psz = (size_t)prow * (size_t)pcol;
    size_t msz = (size_t)sh * (size_t)sw;
    Npp8u *dA = NULL, *dB = NULL, *dM = NULL;
    cudaError_t ce;
    ce = cudaMalloc((void**)&dA, psz); if (ce != cudaSuccess) return cudaErrStr(ce);
    ce = cudaMalloc((void**)&dB, psz); if (ce != cudaSuccess) { cudaFree(dA); return cudaErrStr(ce); }
    ce = cudaMalloc((void**)&dM, msz); if (ce != cudaSuccess) { cudaFree(dA); cudaFree(dB); return cudaErrStr(ce); }
    ce = cudaMemcpy(dA, src, psz, cudaMemcpyHostToDevice); if (ce != cudaSuccess) goto fail;
    ce = cudaMemset(dB, 0, psz); if (ce != cudaSuccess) goto fail;
    ce = cudaMemcpy(dM, se, msz, cudaMemcpyHostToDevice); if (ce != cudaSuccess) goto fail;
    NppiSize roi = { cols, rows };
    NppiSize msize = { sw, sh };
    NppiPoint anchor = { px, py };
    size_t origin = (size_t)py * (size_t)pcol + (size_t)px;
    for (int i = 0; i < iters; i++) {
        NppStatus st = nppiDilate_8u_C1R_Ctx(dA + origin, pcol, dB + origin, pcol, roi, dM, msize, anchor, G.npp);
        if (st != NPP_SUCCESS) { cudaFree(dA); cudaFree(dB); cudaFree(dM); return "nppiDilate failed"; }
        Npp8u* t = dA; dA = dB; dB = t;
    }
    ce = cudaMemcpy(dst, dA, psz, cudaMemcpyDeviceToHost);
fail:
    cudaFree(dA); cudaFree(dB); cudaFree(dM);
    if (ce != cudaSuccess) return cudaErrStr(ce);
    return NULL;
}

// Exact EDT: distance from every pixel to the nearest zero-valued pixel.
static const char* gpu_edt_u8(const Npp8u* src, int rows, int cols, Npp32f* dst) {
    if (!G.ok) return "not initialized";
    NppiSize roi = { cols, rows };
    size_t ssz = (size_t)rows * (size_t)cols;
    size_t dsz = ssz * sizeof(Npp32f);
    size_t bsz = 0;
    if (nppiDistanceTransformPBAGetBufferSize(roi, &bsz) != NPP_SUCCESS) return "nppiDistanceTransformPBAGetBufferSize failed";
    Npp8u *dS = NULL, *dB = NULL; Npp32f *dD = NULL;
    cudaError_t ce;
    ce = cudaMalloc((void**)&dS, ssz); if (ce != cudaSuccess) return cudaErrStr(ce);
    ce = cudaMalloc((void**)&dD, dsz); if (ce != cudaSuccess) { cudaFree(dS); return cudaErrStr(ce); }
    ce = cudaMalloc((void**)&dB, bsz); if (ce != cudaSuccess) { cudaFree(dS); cudaFree(dD); return cudaErrStr(ce); }
    ce = cudaMemcpy(dS, src, ssz, cudaMemcpyHostToDevice); if (ce != cudaSuccess) { cudaFree(dS); cudaFree(dD); cudaFree(dB); return cudaErrStr(ce); }
    NppStatus st = nppiDistanceTransformPBA_8u32f_C1R_Ctx(dS, cols, 0, 0,
        NULL, 0, NULL, 0, NULL, 0,
        dD, cols * (int)sizeof(Npp32f), roi, dB, G.npp);
    if (st != NPP_SUCCESS) { cudaFree(dS); cudaFree(dD); cudaFree(dB); return "nppiDistanceTransformPBA failed"; }
    ce = cudaMemcpy(dst, dD, dsz, cudaMemcpyDeviceToHost);
    cudaFree(dS); cudaFree(dD); cudaFree(dB);
    if (ce != cudaSuccess) return cudaErrStr(ce);
    return NULL;
}

// Sum (op=0) or minimum (op=1) of n doubles.
static const char* gpu_reduce_f64(const Npp64f* src, int n, int op, Npp64f* out) {
    if (!G.ok) return "not initialized";
    size_t ssz = (size_t)n * sizeof(Npp64f);
    size_t bsz = 0;
    NppStatus st;
    if (op == 0) st = nppsSumGetBufferSize_64f_Ctx(n, &bsz, G.npp);
    else st = nppsMinGetBufferSize_64f_Ctx(n, &bsz, G.npp);
    if (st != NPP_SUCCESS) return "npps buffer size query failed";
    Npp64f *dS = NULL, *dR = NULL; Npp8u *dB = NULL;
    cudaError_t ce;
    ce = cudaMalloc((void**)&dS, ssz); if (ce != cudaSuccess) return cudaErrStr(ce);
    ce = cudaMalloc((void**)&dR, sizeof(Npp64f)); if (ce != cudaSuccess) { cudaFree(dS); return cudaErrStr(ce); }
    ce = cudaMalloc((void**)&dB, bsz); if (ce != cudaSuccess) { cudaFree(dS); cudaFree(dR); return cudaErrStr(ce); }
    ce = cudaMemcpy(dS, src, ssz, cudaMemcpyHostToDevice); if (ce != cudaSuccess) { cudaFree(dS); cudaFree(dR); cudaFree(dB); return cudaErrStr(ce); }
    if (op == 0) st = nppsSum_64f_Ctx(dS, n, dR, dB, G.npp);
    else st = nppsMin_64f_Ctx(dS, n, dR, dB, G.npp);
    if (st != NPP_SUCCESS) { cudaFree(dS); cudaFree(dR); cudaFree(dB); return "npps reduction failed"; }
    ce = cudaMemcpy(out, dR, sizeof(Npp64f), cudaMemcpyDeviceToHost);
    cudaFree(dS); cudaFree(dR); cudaFree(dB);
    if (ce != cudaSuccess) return cudaErrStr(ce);
    return NULL;
}
*/
import "C"

import (
	"sync"
	"unsafe"
)

var (
	available bool
	initErr   string
	mu        sync.Mutex
)

func init() {
	if err := C.gpu_init(); err != nil {
		initErr = C.GoString(err)
		return
	}
	available = true
}

// Available reports whether a CUDA device and NPP initialised (build tag + init ok).
func Available() bool { return available }

// Name returns the device name, or why the device is unavailable.
func Name() string {
	if !available {
		return "cuda (unavailable: " + initErr + ")"
	}
	return "cuda: " + C.GoString(C.gpu_name())
}

// LabelU8 labels the non-zero pixels of a row-major rows x cols image with
// 4-connectivity, or 8-connectivity when full is set. Label values are
// arbitrary per component; background pixels carry their own labels.
func LabelU8(src []uint8, rows, cols int, full bool) ([]uint32, bool) {
	if !available || rows*cols == 0 || len(src) != rows*cols {
		return nil, false
	}
	dst := make([]uint32, rows*cols)
	f := C.int(0)
	if full {
		f = 1
	}
	mu.Lock()
	defer mu.Unlock()
	if err := C.gpu_label_u8((*C.Npp8u)(unsafe.Pointer(&src[0])), C.int(rows), C.int(cols), f, (*C.Npp32u)(unsafe.Pointer(&dst[0]))); err != nil {
		return nil, false
	}
	return dst, true
}

// DilateU8 dilates a rows x cols image by the sh x sw element se (odd sizes),
// iterations times, treating pixels outside the image as zero.
func DilateU8(src []uint8, rows, cols int, se []uint8, sh, sw, iterations int) ([]uint8, bool) {
	if !available || rows*cols == 0 || len(src) != rows*cols || len(se) != sh*sw || sh%2 == 0 || sw%2 == 0 || iterations < 1 {
		return nil, false
	}
	py, px := sh/2, sw/2
	pcols := cols + 2*px
	padded := make([]uint8, (rows+2*py)*pcols)
	for r := 0; r < rows; r++ {
		copy(padded[(r+py)*pcols+px:], src[r*cols:(r+1)*cols])
	}
	out := make([]uint8, len(padded))
	mu.Lock()
	err := C.gpu_dilate_u8((*C.Npp8u)(unsafe.Pointer(&padded[0])), C.int(rows), C.int(cols),
		(*C.Npp8u)(unsafe.Pointer(&se[0])), C.int(sh), C.int(sw), C.int(iterations),
		(*C.Npp8u)(unsafe.Pointer(&out[0])))
	mu.Unlock()
	if err != nil {
		return nil, false
	}
	dst := make([]uint8, rows*cols)
	for r := 0; r < rows; r++ {
		copy(dst[r*cols:(r+1)*cols], out[(r+py)*pcols+px:])
	}
	return dst, true
}

// DistanceU8 returns, for every pixel, the Euclidean distance to the nearest zero pixel.
func DistanceU8(src []uint8, rows, cols int) ([]float32, bool) {
	if !available || rows*cols == 0 || len(src) != rows*cols {
		return nil, false
	}
	dst := make([]float32, rows*cols)
	mu.Lock()
	defer mu.Unlock()
	if err := C.gpu_edt_u8((*C.Npp8u)(unsafe.Pointer(&src[0])), C.int(rows), C.int(cols), (*C.Npp32f)(unsafe.Pointer(&dst[0]))); err != nil {
		return nil, false
	}
	return dst, true
}

// SumF64 sums vals on the device.
func SumF64(vals []float64) (float64, bool) { return reduceF64(vals, 0) }

// MinF64 returns the minimum of vals computed on the device.
func MinF64(vals []float64) (float64, bool) { return reduceF64(vals, 1) }

func reduceF64(vals []float64, op int) (float64, bool) {
	if !available || len(vals) == 0 {
		return 0, false
	}
	var out C.Npp64f
	mu.Lock()
	defer mu.Unlock()
	if err := C.gpu_reduce_f64((*C.Npp64f)(unsafe.Pointer(&vals[0])), C.int(len(vals)), C.int(op), &out); err != nil {
		return 0, false
	}
	return float64(out), true
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	C.gpu_close()
	available = false
}
