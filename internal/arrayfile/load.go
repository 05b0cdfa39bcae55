package arrayfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qrv0/optimed/internal/safetensors"
)

// Load reads an array from path, choosing the codec by extension:
// .txt grids, .safetensors (the first tensor, or the one named by tensor),
// and the native container for anything else.
func Load(path, tensor string) (Any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		f, err := os.Open(path)
		if err != nil {
			return Any{}, err
		}
		defer f.Close()
		return ReadText(f)
	case ".safetensors":
		st, err := safetensors.Open(path)
		if err != nil {
			return Any{}, err
		}
		name := tensor
		if name == "" {
			names := st.Names()
			if len(names) == 0 {
				return Any{}, fmt.Errorf("arrayfile: %s holds no tensors", path)
			}
			name = names[0]
		}
		t, ok := st.Tensors[name]
		if !ok {
			return Any{}, fmt.Errorf("arrayfile: tensor %q not in %s", name, path)
		}
		dt, err := fromSafetensors(t.Meta.Dtype)
		if err != nil {
			return Any{}, err
		}
		return Decode(dt, t.Meta.Shape, t.Data)
	}
	return Read(path)
}

// Save writes x to path, choosing the codec by extension like Load.
func Save(path string, x Any, opt Options) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := WriteText(f, x); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case ".safetensors":
		data, err := x.encode()
		if err != nil {
			return err
		}
		w := safetensors.NewWriter()
		w.Add("array", toSafetensors(x.DType), x.Shape, data)
		return w.Write(path)
	}
	return Write(path, x, opt)
}

var stDTypes = map[DType]string{
	Bool: "BOOL", Uint8: "U8", Int32: "I32", Int64: "I64", Float32: "F32", Float64: "F64",
}

func toSafetensors(d DType) string { return stDTypes[d] }

func fromSafetensors(s string) (DType, error) {
	for d, name := range stDTypes {
		if name == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: safetensors %q", ErrDType, s)
}
