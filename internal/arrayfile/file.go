package arrayfile

import (
	"encoding/json"
	"fmt"

	xxh3 "github.com/zeebo/xxh3"
)

const defaultChunkSize = 1 << 20

// Options controls how Write stores the data section.
type Options struct {
	// Compression is "none", "zstd" or "lz4".
	Compression string
	// ChunkSize is the span of each xxh3 checksum over the data section.
	ChunkSize int
}

func (o Options) flags() (uint32, error) {
	switch o.Compression {
	case "", "none":
		return 0, nil
	case "zstd":
		return FlagCompZSTD, nil
	case "lz4":
		return FlagCompLZ4, nil
	}
	return 0, fmt.Errorf("arrayfile: unknown compression %q", o.Compression)
}

// Meta is the JSON document stored in the META section.
type Meta struct {
	FormatVersion int                 `json:"format_version"`
	DType         DType               `json:"dtype"`
	Shape         []int               `json:"shape"`
	Checksums     map[string]Checksum `json:"checksum_index,omitempty"`
}

// Checksum records rolling xxh3 hashes of one section's uncompressed bytes.
type Checksum struct {
	Algo      string   `json:"algo"`
	ChunkSize int      `json:"chunk_size"`
	Count     int      `json:"count"`
	HashesHex []string `json:"hashes_hex"`
}

func rollXXH3(data []byte, chunk int) []uint64 {
	hashes := make([]uint64, 0, (len(data)+chunk-1)/chunk)
	for i := 0; i < len(data); i += chunk {
		end := min(i+chunk, len(data))
		hashes = append(hashes, xxh3.Hash(data[i:end]))
	}
	return hashes
}

func toHex(v []uint64) []string {
	out := make([]string, len(v))
	for i, x := range v {
		out[i] = fmt.Sprintf("%016x", x)
	}
	return out
}

func sectionKey(t uint32) string { return fmt.Sprint(t) }

// Write stores x at path with a META and a DATA section.
func Write(path string, x Any, opt Options) error {
	flags, err := opt.flags()
	if err != nil {
		return err
	}
	chunk := opt.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	data, err := x.encode()
	if err != nil {
		return err
	}
	hashes := rollXXH3(data, chunk)
	meta := Meta{
		FormatVersion: formatVersion,
		DType:         x.DType,
		Shape:         x.Shape,
		Checksums: map[string]Checksum{
			sectionKey(TypeData): {Algo: "xxh3-64", ChunkSize: chunk, Count: len(hashes), HashesHex: toHex(hashes)},
		},
	}
	mb, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	w := NewWriter()
	w.AddSection(TypeMeta, mb, 0)
	w.AddSection(TypeData, data, flags)
	return w.Write(path)
}

// ReadMeta returns the META document of an open file.
func (r *Reader) ReadMeta() (Meta, error) {
	b, err := r.SectionUncompressed(TypeMeta)
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("arrayfile: bad META: %w", err)
	}
	return m, nil
}

// Read loads the array stored at path.
func Read(path string) (Any, error) {
	r, err := Open(path)
	if err != nil {
		return Any{}, err
	}
	defer r.Close()
	m, err := r.ReadMeta()
	if err != nil {
		return Any{}, err
	}
	data, err := r.SectionUncompressed(TypeData)
	if err != nil {
		return Any{}, err
	}
	return Decode(m.DType, m.Shape, data)
}

// Inspect returns the META document and the stored section sizes.
func Inspect(path string) (Meta, map[uint32]uint64, error) {
	r, err := Open(path)
	if err != nil {
		return Meta{}, nil, err
	}
	defer r.Close()
	m, err := r.ReadMeta()
	if err != nil {
		return Meta{}, nil, err
	}
	sizes := make(map[uint32]uint64, len(r.TOC))
	for _, e := range r.TOC {
		sizes[e.TypeID] = e.Size
	}
	return m, sizes, nil
}

// Mismatch names one chunk whose hash does not match META.
type Mismatch struct {
	Section uint32
	Chunk   int
}

// Verify recomputes the rolling checksums recorded in META. It returns the
// mismatching chunks; an error means the file could not be checked at all.
func Verify(path string) ([]Mismatch, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	m, err := r.ReadMeta()
	if err != nil {
		return nil, err
	}
	c, ok := m.Checksums[sectionKey(TypeData)]
	if !ok {
		return nil, fmt.Errorf("arrayfile: no checksum for section %d", TypeData)
	}
	if c.ChunkSize <= 0 {
		return nil, fmt.Errorf("arrayfile: bad chunk size %d", c.ChunkSize)
	}
	data, err := r.SectionUncompressed(TypeData)
	if err != nil {
		return nil, err
	}
	have := toHex(rollXXH3(data, c.ChunkSize))
	var bad []Mismatch
	for i := 0; i < max(len(have), len(c.HashesHex)); i++ {
		if i >= len(have) || i >= len(c.HashesHex) || have[i] != c.HashesHex[i] {
			bad = append(bad, Mismatch{Section: TypeData, Chunk: i})
		}
	}
	return bad, nil
}
