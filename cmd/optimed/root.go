package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qrv0/optimed/internal/arrayfile"
	"github.com/qrv0/optimed/internal/calc"
	"github.com/qrv0/optimed/internal/config"
	"github.com/qrv0/optimed/internal/logging"
)

// app carries the resolved configuration into every subcommand.
type app struct {
	cfgFile  string
	logLevel string
	gpu      bool
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "optimed",
		Short: "Array processing with optional CUDA acceleration",
		Long: `optimed runs connected-component labeling, binary dilation, the
Euclidean distance transform, region reductions and label filtering on
arrays stored as .nda, .txt or .safetensors files.

With --gpu (or OPTIMED_GPU=1) each operation tries the CUDA device library
first and falls back to the CPU when the device is missing or the input is
outside what it supports.`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { calc.Close() },
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.optimed/config.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.gpu, "gpu", false, "try the GPU path first")

	root.AddCommand(
		a.deviceCmd(),
		a.labelCmd(),
		a.dilateCmd(),
		a.edtCmd(),
		a.morphCmd("erode", "Binary erosion of the non-zero cells", calc.Erosion),
		a.morphCmd("open", "Binary opening (erosion then dilation)", calc.Opening),
		a.morphCmd("close", "Binary closing (dilation then erosion)", calc.Closing),
		a.reduceCmd("minimum", "Smallest value inside each labeled region"),
		a.reduceCmd("maximum", "Largest value inside each labeled region"),
		a.reduceCmd("sum", "Total of the values inside each labeled region"),
		a.reduceCmd("mean", "Mean of the values inside each labeled region"),
		a.filterCmd(),
		a.inspectCmd(),
		a.verifyCmd(),
		a.convertCmd(),
		a.pullCmd(),
		a.renderCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("gpu") {
		cfg.Compute.UseGPU = a.gpu
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	a.cfg = cfg
	logging.Get().WithField("gpu", cfg.Compute.UseGPU).Debugf("running %s", cmd.Name())
	return nil
}

func (a *app) storeOptions() arrayfile.Options {
	return arrayfile.Options{Compression: a.cfg.Storage.Compression, ChunkSize: a.cfg.Storage.ChunkSize}
}

func (a *app) save(path string, x arrayfile.Any) error {
	if err := arrayfile.Save(path, x, a.storeOptions()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logging.Infof("wrote %s (%s %v)", path, x.DType, x.Shape)
	return nil
}

func load(path, tensor string) (arrayfile.Any, error) {
	x, err := arrayfile.Load(path, tensor)
	if err != nil {
		return arrayfile.Any{}, fmt.Errorf("read %s: %w", path, err)
	}
	logging.Debugf("read %s (%s %v)", path, x.DType, x.Shape)
	return x, nil
}
