package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// Single-file safetensors: [header_len:u64][header_json][tensor_data...].
// Offsets in the header are relative to the end of the header.

var ErrInvalid = errors.New("safetensors: invalid file")

type Header map[string]TensorMeta

type TensorMeta struct {
	Dtype string  `json:"dtype"`
	Shape []int   `json:"shape"`
	Data  []int64 `json:"data_offsets"`
}

type Tensor struct {
	Meta TensorMeta
	Data []byte
}

type File struct {
	Header   Header
	Tensors  map[string]Tensor
	Metadata map[string]string
}

// maxHeader bounds the JSON header so a corrupt length cannot exhaust memory.
const maxHeader = 100 << 20

func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	var hdrLen uint64
	if err := binary.Read(f, binary.LittleEndian, &hdrLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if hdrLen == 0 || hdrLen > maxHeader || int64(hdrLen) > size-8 {
		return nil, fmt.Errorf("%w: header length %d", ErrInvalid, hdrLen)
	}
	hdrBytes := make([]byte, hdrLen)
	if _, err := io.ReadFull(f, hdrBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(hdrBytes, &raw); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalid, err)
	}
	out := &File{Header: make(Header), Tensors: make(map[string]Tensor)}
	for name, msg := range raw {
		if name == "__metadata__" {
			if err := json.Unmarshal(msg, &out.Metadata); err != nil {
				return nil, fmt.Errorf("%w: metadata: %v", ErrInvalid, err)
			}
			continue
		}
		var m TensorMeta
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %v", ErrInvalid, name, err)
		}
		if len(m.Data) != 2 || m.Data[0] < 0 || m.Data[1] < m.Data[0] {
			return nil, fmt.Errorf("%w: tensor %q offsets %v", ErrInvalid, name, m.Data)
		}
		out.Header[name] = m
	}
	pos := int64(8 + hdrLen)
	for name, meta := range out.Header {
		if meta.Data[1] > size-pos {
			return nil, fmt.Errorf("%w: tensor %q ends at %d, data section is %d bytes", ErrInvalid, name, meta.Data[1], size-pos)
		}
		buf := make([]byte, meta.Data[1]-meta.Data[0])
		if _, err := f.ReadAt(buf, pos+meta.Data[0]); err != nil {
			return nil, fmt.Errorf("read tensor %q: %w", name, err)
		}
		out.Tensors[name] = Tensor{Meta: meta, Data: buf}
	}
	return out, nil
}

// Names returns the tensor names ordered by data offset.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Header))
	for n := range f.Header {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := f.Header[names[i]].Data[0], f.Header[names[j]].Data[0]
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
	return names
}
