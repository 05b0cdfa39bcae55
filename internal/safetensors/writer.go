package safetensors

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
)

type entry struct {
	name  string
	meta  TensorMeta
	bytes []byte
}

// Writer collects tensors and writes them as one safetensors file.
type Writer struct {
	entries  []entry
	offset   int64
	Metadata map[string]string
}

func NewWriter() *Writer { return &Writer{} }

// Add appends a tensor; data must already be little endian.
func (w *Writer) Add(name, dtype string, shape []int, data []byte) {
	m := TensorMeta{Dtype: dtype, Shape: append([]int{}, shape...), Data: []int64{w.offset, w.offset + int64(len(data))}}
	w.entries = append(w.entries, entry{name, m, data})
	w.offset += int64(len(data))
}

func (w *Writer) Write(path string) error {
	hdr := make(map[string]any, len(w.entries)+1)
	for _, e := range w.entries {
		hdr[e.name] = e.meta
	}
	if len(w.Metadata) > 0 {
		hdr["__metadata__"] = w.Metadata
	}
	js, err := json.Marshal(hdr)
	if err != nil {
		return err
	}
	// pad the header with spaces to an 8-byte boundary
	if pad := len(js) % 8; pad != 0 {
		js = append(js, bytes.Repeat([]byte{' '}, 8-pad)...)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint64(len(js))); err != nil {
		return err
	}
	if _, err := f.Write(js); err != nil {
		return err
	}
	for _, e := range w.entries {
		if _, err := f.Write(e.bytes); err != nil {
			return err
		}
	}
	return f.Close()
}
