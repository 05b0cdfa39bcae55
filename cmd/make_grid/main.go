package main

import (
	"flag"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/qrv0/optimed/internal/arrayfile"
	"github.com/qrv0/optimed/internal/ndimage"
)

// make_grid writes a toy binary grid of scattered rectangles, handy for
// trying the optimed commands. The output format follows the extension.
func main() {
	out := flag.String("out", "toy.nda", "output path (.nda, .txt, .safetensors)")
	rows := flag.Int("rows", 64, "rows")
	cols := flag.Int("cols", 64, "cols")
	blobs := flag.Int("blobs", 8, "number of rectangles")
	seed := flag.Int64("seed", 1, "random seed")
	comp := flag.String("compression", "zstd", "compression for .nda output: none, zstd, lz4")
	flag.Parse()

	if *rows < 1 || *cols < 1 {
		logrus.Fatalf("make_grid: rows and cols must be positive, got %dx%d", *rows, *cols)
	}
	g := blobGrid(rand.New(rand.NewSource(*seed)), *rows, *cols, *blobs)
	if err := arrayfile.Save(*out, arrayfile.Of(g), arrayfile.Options{Compression: *comp}); err != nil {
		logrus.Fatalf("make_grid: %v", err)
	}
	logrus.WithFields(logrus.Fields{"path": *out, "rows": *rows, "cols": *cols}).Info("wrote grid")
}

func blobGrid(r *rand.Rand, rows, cols, blobs int) ndimage.Array[uint8] {
	g := ndimage.New[uint8](rows, cols)
	for b := 0; b < blobs; b++ {
		h, w := 1+r.Intn(max(rows/4, 1)), 1+r.Intn(max(cols/4, 1))
		y, x := r.Intn(rows), r.Intn(cols)
		for i := y; i < min(y+h, rows); i++ {
			for j := x; j < min(x+w, cols); j++ {
				g.Set(1, i, j)
			}
		}
	}
	return g
}
