package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"sort"

	"github.com/spf13/cobra"

	"github.com/qrv0/optimed/internal/arrayfile"
	"github.com/qrv0/optimed/internal/fetch"
	"github.com/qrv0/optimed/internal/logging"
	"github.com/qrv0/optimed/internal/render"
)

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.nda>",
		Short: "Print the META section and section sizes of an array file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, sizes, err := arrayfile.Inspect(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			b, err := json.MarshalIndent(meta, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "META:")
			fmt.Fprintln(out, string(b))
			ids := make([]int, 0, len(sizes))
			for id := range sizes {
				ids = append(ids, int(id))
			}
			sort.Ints(ids)
			for _, id := range ids {
				fmt.Fprintf(out, "section %d: %d bytes\n", id, sizes[uint32(id)])
			}
			return nil
		},
	}
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file.nda>",
		Short: "Recompute the xxh3 chunk checksums of an array file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bad, err := arrayfile.Verify(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range bad {
				fmt.Fprintf(out, "section %d chunk %d: checksum mismatch\n", m.Section, m.Chunk)
				logging.Warnf("%s: section %d chunk %d checksum mismatch", args[0], m.Section, m.Chunk)
			}
			if len(bad) > 0 {
				return fmt.Errorf("%s: %d corrupt chunks", args[0], len(bad))
			}
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
}

func (a *app) convertCmd() *cobra.Command {
	var paths ioFlags
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Rewrite an array in the format given by the output extension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			x, err := load(paths.in, paths.tensor)
			if err != nil {
				return err
			}
			if err := a.save(paths.out, x); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s %v)\n", paths.out, x.DType, x.Shape)
			return nil
		},
	}
	paths.bind(cmd, true)
	return cmd
}

func (a *app) pullCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pull <url>",
		Short: "Download an array file and check that it loads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				name, err := defaultName(args[0])
				if err != nil {
					return err
				}
				out = name
			}
			n, err := fetch.Download(cmd.Context(), args[0], out)
			if err != nil {
				return err
			}
			x, err := load(out, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s: %d bytes, %s %v\n", out, n, x.DType, x.Shape)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "destination path (default: last element of the URL)")
	return cmd
}

func (a *app) renderCmd() *cobra.Command {
	var paths ioFlags
	var opt render.Options
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw a 2-D array as a heat-map image (.png, .svg, .pdf)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			x, err := load(paths.in, paths.tensor)
			if err != nil {
				return err
			}
			v, err := arrayfile.As[float64](x)
			if err != nil {
				return err
			}
			return render.HeatMap(v, paths.out, opt)
		},
	}
	paths.bind(cmd, true)
	cmd.Flags().StringVar(&opt.Title, "title", "", "plot title")
	cmd.Flags().Float64Var(&opt.Width, "width", 6, "image width in inches")
	cmd.Flags().IntVar(&opt.Colors, "colors", 16, "palette size")
	return cmd
}

// defaultName is the last path element of rawURL, without query or fragment.
func defaultName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", fmt.Errorf("%s names no file; pass --out", rawURL)
	}
	return name, nil
}
