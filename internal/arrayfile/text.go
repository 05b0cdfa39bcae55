package arrayfile

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/qrv0/optimed/internal/ndimage"
)

// ReadText parses a whitespace-separated 2-D grid, one row per line. Blank
// lines and lines starting with '#' are skipped. The dtype is int64 when
// every token parses as an integer and float64 otherwise.
func ReadText(r io.Reader) (Any, error) {
	var rows [][]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(strings.ReplaceAll(line, ",", " "))
		if len(rows) > 0 && len(f) != len(rows[0]) {
			return Any{}, fmt.Errorf("%w: row %d has %d columns, want %d", ndimage.ErrInvalidShape, len(rows)+1, len(f), len(rows[0]))
		}
		rows = append(rows, f)
	}
	if err := sc.Err(); err != nil {
		return Any{}, err
	}
	if len(rows) == 0 {
		return Any{}, fmt.Errorf("%w: empty grid", ndimage.ErrInvalidShape)
	}
	cols := len(rows[0])
	ints := ndimage.New[int64](len(rows), cols)
	integral := true
	for i, row := range rows {
		for j, tok := range row {
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				integral = false
				break
			}
			ints.Data[i*cols+j] = v
		}
		if !integral {
			break
		}
	}
	if integral {
		return Of(ints), nil
	}
	floats := ndimage.New[float64](len(rows), cols)
	for i, row := range rows {
		for j, tok := range row {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return Any{}, fmt.Errorf("arrayfile: row %d col %d: %w", i+1, j+1, err)
			}
			floats.Data[i*cols+j] = v
		}
	}
	return Of(floats), nil
}

// WriteText prints a 1-D or 2-D array as a whitespace grid. Integers are
// written exactly; floats use the shortest form that round-trips.
func WriteText(w io.Writer, x Any) error {
	if len(x.Shape) == 0 || len(x.Shape) > 2 {
		return fmt.Errorf("%w: text grids are 1-D or 2-D, got rank %d", ndimage.ErrInvalidShape, len(x.Shape))
	}
	toks, err := x.tokens()
	if err != nil {
		return err
	}
	cols := x.Shape[len(x.Shape)-1]
	bw := bufio.NewWriter(w)
	for i, t := range toks {
		if i > 0 {
			if cols > 0 && i%cols == 0 {
				bw.WriteByte('\n')
			} else {
				bw.WriteByte(' ')
			}
		}
		bw.WriteString(t)
	}
	if len(toks) > 0 {
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func (x Any) tokens() ([]string, error) {
	switch a := x.data.(type) {
	case ndimage.Array[bool]:
		out := make([]string, len(a.Data))
		for i, v := range a.Data {
			out[i] = "0"
			if v {
				out[i] = "1"
			}
		}
		return out, nil
	case ndimage.Array[uint8]:
		return formatInts(a.Data), nil
	case ndimage.Array[int32]:
		return formatInts(a.Data), nil
	case ndimage.Array[int64]:
		return formatInts(a.Data), nil
	case ndimage.Array[float32]:
		return formatFloats(a.Data, 32), nil
	case ndimage.Array[float64]:
		return formatFloats(a.Data, 64), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrDType, x.DType)
}

func formatInts[T uint8 | int32 | int64](v []T) []string {
	out := make([]string, len(v))
	for i, x := range v {
		out[i] = strconv.FormatInt(int64(x), 10)
	}
	return out
}

func formatFloats[T float32 | float64](v []T, bits int) []string {
	out := make([]string, len(v))
	for i, x := range v {
		f := float64(x)
		switch {
		case math.IsInf(f, 1):
			out[i] = "inf"
		case math.IsInf(f, -1):
			out[i] = "-inf"
		case math.IsNaN(f):
			out[i] = "nan"
		default:
			out[i] = strconv.FormatFloat(f, 'g', -1, bits)
		}
	}
	return out
}
