package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qrv0/optimed/internal/arrayfile"
	"github.com/qrv0/optimed/internal/calc"
	"github.com/qrv0/optimed/internal/ndimage"
)

func (a *app) deviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Show whether the CUDA device library is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gpu available: %v\n", calc.GPUAvailable())
			fmt.Fprintf(out, "device: %s\n", calc.DeviceName())
			fmt.Fprintf(out, "use gpu: %v\n", a.cfg.Compute.UseGPU)
			return nil
		},
	}
}

// ioFlags are the --in/--out/--tensor flags shared by the array commands.
type ioFlags struct {
	in, out, tensor string
}

func (f *ioFlags) bind(cmd *cobra.Command, withOut bool) {
	cmd.Flags().StringVar(&f.in, "in", "", "input array (.nda, .txt, .safetensors)")
	cmd.Flags().StringVar(&f.tensor, "tensor", "", "tensor name inside a .safetensors input")
	cmd.MarkFlagRequired("in")
	if withOut {
		cmd.Flags().StringVar(&f.out, "out", "", "output array (.nda, .txt, .safetensors)")
		cmd.MarkFlagRequired("out")
	}
}

func loadBool(path, tensor string) (ndimage.Array[bool], error) {
	x, err := load(path, tensor)
	if err != nil {
		return ndimage.Array[bool]{}, err
	}
	return arrayfile.As[bool](x)
}

// structureFor returns the element named by a structure file, or the
// connectivity element of the given rank when path is empty.
func structureFor(path string, rank, connectivity int) (*ndimage.Array[bool], error) {
	if path == "" {
		s, err := ndimage.GenerateBinaryStructure(rank, connectivity)
		if err != nil {
			return nil, err
		}
		return &s, nil
	}
	s, err := loadBool(path, "")
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *app) labelCmd() *cobra.Command {
	var paths ioFlags
	var structure string
	var connectivity int
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Label connected components of the non-zero cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := loadBool(paths.in, paths.tensor)
			if err != nil {
				return err
			}
			s, err := structureFor(structure, in.Rank(), connectivity)
			if err != nil {
				return err
			}
			labels, n, err := calc.Label(in, s, a.cfg.Compute.UseGPU)
			if err != nil {
				return err
			}
			if err := a.save(paths.out, arrayfile.Of(labels)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "components: %d\n", n)
			return nil
		},
	}
	paths.bind(cmd, true)
	cmd.Flags().StringVar(&structure, "structure", "", "structuring element file (default: connectivity element)")
	cmd.Flags().IntVar(&connectivity, "connectivity", 1, "neighbourhood connectivity when no --structure is given")
	return cmd
}

func (a *app) dilateCmd() *cobra.Command {
	var paths ioFlags
	var structure string
	var connectivity, iterations int
	cmd := &cobra.Command{
		Use:   "dilate",
		Short: "Binary dilation of the non-zero cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := loadBool(paths.in, paths.tensor)
			if err != nil {
				return err
			}
			s, err := structureFor(structure, in.Rank(), connectivity)
			if err != nil {
				return err
			}
			out, err := calc.BinaryDilation(in, s, iterations, a.cfg.Compute.UseGPU)
			if err != nil {
				return err
			}
			return a.save(paths.out, arrayfile.Of(out))
		},
	}
	paths.bind(cmd, true)
	cmd.Flags().StringVar(&structure, "structure", "", "structuring element file (default: connectivity element)")
	cmd.Flags().IntVar(&connectivity, "connectivity", 1, "neighbourhood connectivity when no --structure is given")
	cmd.Flags().IntVar(&iterations, "iterations", 1, "repetitions; below 1 repeats until nothing changes")
	return cmd
}

func (a *app) edtCmd() *cobra.Command {
	var paths ioFlags
	cmd := &cobra.Command{
		Use:   "edt",
		Short: "Euclidean distance from each non-zero cell to the nearest zero cell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := loadBool(paths.in, paths.tensor)
			if err != nil {
				return err
			}
			d, err := calc.DistanceTransformEDT(in, a.cfg.Compute.UseGPU)
			if err != nil {
				return err
			}
			return a.save(paths.out, arrayfile.Of(d))
		},
	}
	paths.bind(cmd, true)
	return cmd
}

type reduceFunc func(ndimage.Array[float64], ndimage.Array[int64], []int64, bool) ([]float64, error)

var reductions = map[string]reduceFunc{
	"minimum": calc.MinimumIndex[float64, int64],
	"maximum": calc.MaximumIndex[float64, int64],
	"sum":     calc.SumIndex[float64, int64],
	"mean":    calc.MeanIndex[float64, int64],
}

func (a *app) reduceCmd(name, short string) *cobra.Command {
	var paths ioFlags
	var labelsPath string
	var index []int64
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			x, err := load(paths.in, paths.tensor)
			if err != nil {
				return err
			}
			values, err := arrayfile.As[float64](x)
			if err != nil {
				return err
			}
			lx, err := load(labelsPath, "")
			if err != nil {
				return err
			}
			labels, err := arrayfile.As[int64](lx)
			if err != nil {
				return err
			}
			vals, err := reductions[name](values, labels, index, a.cfg.Compute.UseGPU)
			if err != nil {
				return err
			}
			for _, v := range vals {
				fmt.Fprintf(cmd.OutOrStdout(), "%g\n", v)
			}
			return nil
		},
	}
	paths.bind(cmd, false)
	cmd.Flags().StringVar(&labelsPath, "labels", "", "label array with the same shape as --in")
	cmd.Flags().Int64SliceVar(&index, "index", []int64{1}, "labels of the regions to reduce, comma separated")
	cmd.MarkFlagRequired("labels")
	return cmd
}

func (a *app) morphCmd(name, short string, op calc.Morphology) *cobra.Command {
	var paths ioFlags
	var structure string
	var connectivity, iterations int
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := loadBool(paths.in, paths.tensor)
			if err != nil {
				return err
			}
			s, err := structureFor(structure, in.Rank(), connectivity)
			if err != nil {
				return err
			}
			out, err := calc.Morph(op, in, s, iterations, a.cfg.Compute.UseGPU)
			if err != nil {
				return err
			}
			return a.save(paths.out, arrayfile.Of(out))
		},
	}
	paths.bind(cmd, true)
	cmd.Flags().StringVar(&structure, "structure", "", "structuring element file (default: connectivity element)")
	cmd.Flags().IntVar(&connectivity, "connectivity", 1, "neighbourhood connectivity when no --structure is given")
	cmd.Flags().IntVar(&iterations, "iterations", 1, "repetitions; below 1 repeats until nothing changes")
	return cmd
}

func (a *app) filterCmd() *cobra.Command {
	var paths ioFlags
	var keep []int64
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Zero every label not listed in --keep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			x, err := load(paths.in, paths.tensor)
			if err != nil {
				return err
			}
			mask, err := arrayfile.As[int64](x)
			if err != nil {
				return err
			}
			return a.save(paths.out, arrayfile.Of(calc.FilterMask(mask, keep, a.cfg.Compute.UseGPU)))
		},
	}
	paths.bind(cmd, true)
	cmd.Flags().Int64SliceVar(&keep, "keep", nil, "labels to keep, comma separated")
	return cmd
}
