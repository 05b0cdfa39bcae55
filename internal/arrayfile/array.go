package arrayfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/qrv0/optimed/internal/ndimage"
)

type DType string

const (
	Bool    DType = "bool"
	Uint8   DType = "uint8"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

var ErrDType = errors.New("arrayfile: unsupported dtype")

// Size returns the encoded element size in bytes.
func (d DType) Size() int {
	switch d {
	case Bool, Uint8:
		return 1
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	}
	return 0
}

// Any holds one array of any supported element type.
type Any struct {
	DType DType
	Shape []int
	data  any
}

func dtypeOf[T ndimage.Scalar]() DType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return Bool
	case uint8:
		return Uint8
	case int32:
		return Int32
	case int64:
		return Int64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return ""
}

// Of wraps a typed array.
func Of[T ndimage.Scalar](a ndimage.Array[T]) Any {
	return Any{DType: dtypeOf[T](), Shape: append([]int(nil), a.Shape...), data: a}
}

// As returns x with elements of type T, converting when the stored type
// differs. Integer conversions stay in integer arithmetic; conversion to
// bool maps non-zero to true.
func As[T ndimage.Scalar](x Any) (ndimage.Array[T], error) {
	switch a := x.data.(type) {
	case ndimage.Array[T]:
		return a, nil
	case ndimage.Array[bool]:
		n := ndimage.New[uint8](a.Shape...)
		for i, v := range a.Data {
			if v {
				n.Data[i] = 1
			}
		}
		return cast[uint8, T](n), nil
	case ndimage.Array[uint8]:
		return cast[uint8, T](a), nil
	case ndimage.Array[int32]:
		return cast[int32, T](a), nil
	case ndimage.Array[int64]:
		return cast[int64, T](a), nil
	case ndimage.Array[float32]:
		return cast[float32, T](a), nil
	case ndimage.Array[float64]:
		return cast[float64, T](a), nil
	}
	return ndimage.Array[T]{}, fmt.Errorf("%w: %q", ErrDType, x.DType)
}

func cast[S ndimage.Number, T ndimage.Scalar](a ndimage.Array[S]) ndimage.Array[T] {
	out := ndimage.New[T](a.Shape...)
	switch o := any(out.Data).(type) {
	case []bool:
		for i, v := range a.Data {
			o[i] = v != 0
		}
	case []uint8:
		for i, v := range a.Data {
			o[i] = uint8(v)
		}
	case []int32:
		for i, v := range a.Data {
			o[i] = int32(v)
		}
	case []int64:
		for i, v := range a.Data {
			o[i] = int64(v)
		}
	case []float32:
		for i, v := range a.Data {
			o[i] = float32(v)
		}
	case []float64:
		for i, v := range a.Data {
			o[i] = float64(v)
		}
	default:
		panic(fmt.Sprintf("arrayfile: unsupported element type %T", out.Data))
	}
	return out
}

// Float64s returns every element as float64 (bool as 0 or 1).
func (x Any) Float64s() ([]float64, error) {
	switch a := x.data.(type) {
	case ndimage.Array[bool]:
		out := make([]float64, len(a.Data))
		for i, v := range a.Data {
			if v {
				out[i] = 1
			}
		}
		return out, nil
	case ndimage.Array[uint8]:
		return widen(a.Data), nil
	case ndimage.Array[int32]:
		return widen(a.Data), nil
	case ndimage.Array[int64]:
		return widen(a.Data), nil
	case ndimage.Array[float32]:
		return widen(a.Data), nil
	case ndimage.Array[float64]:
		return a.Data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrDType, x.DType)
}

func widen[T ndimage.Number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func (x Any) Len() int {
	n := 1
	for _, d := range x.Shape {
		n *= d
	}
	return n
}

// encode serialises the elements row-major, little endian.
func (x Any) encode() ([]byte, error) {
	sz := x.DType.Size()
	if sz == 0 {
		return nil, fmt.Errorf("%w: %q", ErrDType, x.DType)
	}
	b := make([]byte, x.Len()*sz)
	switch a := x.data.(type) {
	case ndimage.Array[bool]:
		for i, v := range a.Data {
			if v {
				b[i] = 1
			}
		}
	case ndimage.Array[uint8]:
		copy(b, a.Data)
	case ndimage.Array[int32]:
		for i, v := range a.Data {
			binary.LittleEndian.PutUint32(b[4*i:], uint32(v))
		}
	case ndimage.Array[int64]:
		for i, v := range a.Data {
			binary.LittleEndian.PutUint64(b[8*i:], uint64(v))
		}
	case ndimage.Array[float32]:
		for i, v := range a.Data {
			binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
		}
	case ndimage.Array[float64]:
		for i, v := range a.Data {
			binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(v))
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrDType, x.DType)
	}
	return b, nil
}

// Decode builds an array of dtype and shape from little-endian bytes.
func Decode(dtype DType, shape []int, b []byte) (Any, error) {
	sz := dtype.Size()
	if sz == 0 {
		return Any{}, fmt.Errorf("%w: %q", ErrDType, dtype)
	}
	if len(shape) == 0 {
		return Any{}, fmt.Errorf("%w: rank 0", ndimage.ErrInvalidShape)
	}
	n := 1
	for _, d := range shape {
		if d < 0 || (d > 0 && n > math.MaxInt/sz/d) {
			return Any{}, fmt.Errorf("%w: %v", ndimage.ErrInvalidShape, shape)
		}
		n *= d
	}
	if len(b) != n*sz {
		return Any{}, fmt.Errorf("arrayfile: %d bytes of data for %d %s elements", len(b), n, dtype)
	}
	switch dtype {
	case Bool:
		a := ndimage.New[bool](shape...)
		for i := range a.Data {
			a.Data[i] = b[i] != 0
		}
		return Of(a), nil
	case Uint8:
		a := ndimage.New[uint8](shape...)
		copy(a.Data, b)
		return Of(a), nil
	case Int32:
		a := ndimage.New[int32](shape...)
		for i := range a.Data {
			a.Data[i] = int32(binary.LittleEndian.Uint32(b[4*i:]))
		}
		return Of(a), nil
	case Int64:
		a := ndimage.New[int64](shape...)
		for i := range a.Data {
			a.Data[i] = int64(binary.LittleEndian.Uint64(b[8*i:]))
		}
		return Of(a), nil
	case Float32:
		a := ndimage.New[float32](shape...)
		for i := range a.Data {
			a.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		}
		return Of(a), nil
	default:
		a := ndimage.New[float64](shape...)
		for i := range a.Data {
			a.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
		}
		return Of(a), nil
	}
}
