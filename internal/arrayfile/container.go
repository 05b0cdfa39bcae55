package arrayfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"
)

// Container layout (little endian):
//
//	magic[8] | version u32 | count u32 | reserved u32
//	count * { type u32 | offset u64 | size u64 | flags u32 }
//	sections, each starting on a 4096-byte boundary
type section struct {
	TypeID uint32
	Data   []byte
	Flags  uint32
}

type Writer struct {
	sections []section
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) AddSection(t uint32, data []byte, flags uint32) {
	w.sections = append(w.sections, section{t, data, flags})
}

// codec is the compression bound to one section flag.
type codec struct {
	flag   uint32
	name   string
	encode func([]byte) ([]byte, error)
	decode func([]byte) ([]byte, error)
}

// maxSection bounds a decompressed section.
const maxSection = 1 << 34

var (
	zenc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zdec, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxSection))
)

var codecs = []codec{
	{
		flag: FlagCompZSTD, name: "zstd",
		encode: func(b []byte) ([]byte, error) { return zenc.EncodeAll(b, nil), nil },
		decode: func(b []byte) ([]byte, error) { return zdec.DecodeAll(b, nil) },
	},
	{
		flag: FlagCompLZ4, name: "lz4",
		encode: func(b []byte) ([]byte, error) {
			var buf bytes.Buffer
			zw := lz4.NewWriter(&buf)
			if _, err := zw.Write(b); err != nil {
				return nil, err
			}
			err := zw.Close()
			return buf.Bytes(), err
		},
		decode: func(b []byte) ([]byte, error) {
			out, err := io.ReadAll(io.LimitReader(lz4.NewReader(bytes.NewReader(b)), maxSection+1))
			if err == nil && int64(len(out)) > maxSection {
				err = errors.New("section too large")
			}
			return out, err
		},
	},
}

// codecFor returns the codec selected by flags, or nil for raw sections.
func codecFor(flags uint32) *codec {
	for i := range codecs {
		if flags&codecs[i].flag != 0 {
			return &codecs[i]
		}
	}
	return nil
}

func alignUp(x, a int64) int64 {
	r := x % a
	if r == 0 {
		return x
	}
	return x + (a - r)
}

func (w *Writer) Write(path string) error {
	if len(w.sections) == 0 {
		return errors.New("arrayfile: no sections")
	}
	payloads := make([][]byte, len(w.sections))
	for i, s := range w.sections {
		payloads[i] = s.Data
		if c := codecFor(s.Flags); c != nil {
			data, err := c.encode(s.Data)
			if err != nil {
				return fmt.Errorf("%s section %d: %w", c.name, s.TypeID, err)
			}
			payloads[i] = data
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(magic[:]); err != nil {
		return err
	}
	var hdr struct{ Ver, Num, Res uint32 }
	hdr.Ver, hdr.Num = formatVersion, uint32(len(w.sections))
	if err := binary.Write(f, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	recs := make([]tocEntry, len(w.sections))
	base := int64(headerSize + tocEntrySize*len(w.sections))
	offset := alignUp(base, sectionAlign)
	for i, s := range w.sections {
		recs[i] = tocEntry{TypeID: s.TypeID, Offset: uint64(offset), Size: uint64(len(payloads[i])), Flags: s.Flags}
		offset = alignUp(offset+int64(len(payloads[i])), sectionAlign)
	}
	for _, r := range recs {
		if err := binary.Write(f, binary.LittleEndian, &r); err != nil {
			return err
		}
	}
	for i := range w.sections {
		if _, err := f.WriteAt(payloads[i], int64(recs[i].Offset)); err != nil {
			return err
		}
	}
	return f.Close()
}

var magic = [8]byte{'N', 'D', 'A', 'R', 'R', 'A', 'Y', 0}

const (
	formatVersion = 1
	sectionAlign  = 4096
	headerSize    = 8 + 12
	tocEntrySize  = 24
)

const (
	TypeMeta = 1
	TypeData = 2
)

const (
	FlagCompZSTD uint32 = 1 << 0
	FlagCompLZ4  uint32 = 1 << 1
)

type tocEntry struct {
	TypeID uint32
	Offset uint64
	Size   uint64
	Flags  uint32
}

type Reader struct {
	f   *os.File
	TOC []tocEntry
}

var ErrNotArrayFile = errors.New("arrayfile: not an array file")

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(f, head); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotArrayFile, err)
	}
	if !bytes.Equal(head, magic[:]) {
		f.Close()
		return nil, ErrNotArrayFile
	}
	var hdr struct{ Ver, Num, Res uint32 }
	if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotArrayFile, err)
	}
	if hdr.Ver != formatVersion {
		f.Close()
		return nil, fmt.Errorf("arrayfile: unsupported version %d", hdr.Ver)
	}
	size := uint64(st.Size())
	if uint64(hdr.Num) > (size-headerSize)/tocEntrySize {
		f.Close()
		return nil, fmt.Errorf("%w: %d sections in a %d-byte file", ErrNotArrayFile, hdr.Num, size)
	}
	toc := make([]tocEntry, hdr.Num)
	for i := range toc {
		if err := binary.Read(f, binary.LittleEndian, &toc[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %v", ErrNotArrayFile, err)
		}
		e := toc[i]
		if e.Offset > size || e.Size > size-e.Offset {
			f.Close()
			return nil, fmt.Errorf("%w: section %d spans %d+%d past end %d", ErrNotArrayFile, e.TypeID, e.Offset, e.Size, size)
		}
	}
	return &Reader{f: f, TOC: toc}, nil
}

func (r *Reader) Close() error { return r.f.Close() }

// Section returns the stored (possibly compressed) payload.
func (r *Reader) Section(typeID uint32) ([]byte, error) {
	e, err := r.entry(typeID)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, e.Size)
	if _, err := r.f.ReadAt(buf, int64(e.Offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

// SectionUncompressed returns the raw or decompressed payload depending on flags.
func (r *Reader) SectionUncompressed(typeID uint32) ([]byte, error) {
	e, err := r.entry(typeID)
	if err != nil {
		return nil, err
	}
	buf, err := r.Section(typeID)
	if err != nil {
		return nil, err
	}
	if c := codecFor(e.Flags); c != nil {
		out, err := c.decode(buf)
		if err != nil {
			return nil, fmt.Errorf("%s section %d: %w", c.name, typeID, err)
		}
		return out, nil
	}
	return buf, nil
}

func (r *Reader) entry(typeID uint32) (tocEntry, error) {
	for _, e := range r.TOC {
		if e.TypeID == typeID {
			return e, nil
		}
	}
	return tocEntry{}, fmt.Errorf("arrayfile: section %d not found", typeID)
}
