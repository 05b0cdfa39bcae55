// Package render draws 2-D arrays as heat-map images.
package render

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/qrv0/optimed/internal/ndimage"
)

// grid adapts a matrix to plotter.GridXYZ. Row 0 is drawn at the top.
type grid struct {
	m *mat.Dense
}

func (g grid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}
func (g grid) X(c int) float64 { return float64(c) }
func (g grid) Y(r int) float64 {
	rows, _ := g.m.Dims()
	return float64(rows - 1 - r)
}
func (g grid) Z(c, r int) float64 { return g.m.At(r, c) }

// Options sets the image title and size in inches.
type Options struct {
	Title  string
	Width  float64
	Height float64
	Colors int
}

// HeatMap saves a as an image at path; the format follows the extension
// (.png, .svg, .pdf ...). Infinite cells are left blank.
func HeatMap(a ndimage.Array[float64], path string, opt Options) error {
	if a.Rank() != 2 || a.Shape[0] < 2 || a.Shape[1] < 2 {
		return fmt.Errorf("%w: heat maps need a 2-D array of at least 2x2, got %v", ndimage.ErrInvalidShape, a.Shape)
	}
	if opt.Width <= 0 {
		opt.Width = 6
	}
	if opt.Height <= 0 {
		opt.Height = opt.Width * float64(a.Shape[0]) / float64(a.Shape[1])
	}
	if opt.Colors < 2 {
		opt.Colors = 16
	}
	finite := a.Clone()
	for i, v := range finite.Data {
		if math.IsInf(v, 0) {
			finite.Data[i] = math.NaN()
		}
	}

	m, err := ndimage.Dense(finite)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = opt.Title
	h := plotter.NewHeatMap(grid{m}, palette.Heat(opt.Colors, 1))
	lo, hi := bounds(finite.Data)
	if lo == hi {
		hi = lo + 1
	}
	h.Min, h.Max = lo, hi
	p.Add(h)
	p.HideAxes()
	return p.Save(vg.Length(opt.Width)*vg.Inch, vg.Length(opt.Height)*vg.Inch, path)
}

// bounds returns the smallest and largest non-NaN values, or 0 and 0.
func bounds(v []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}
