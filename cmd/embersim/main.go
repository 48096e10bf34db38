//go:build !tinygo

// Command embersim runs scheduler workloads on the host port.
package main

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ember/emberos/sim"
)

//go:embed workloads/mixed.yaml
var defaultWorkload []byte

var (
	rootOpts = struct {
		workload string
		ticks    uint32
		cycles   int
		verbose  bool
	}{}

	rootCmd = &cobra.Command{
		Use:           "embersim",
		Short:         "Simulate the Ember scheduler",
		Long:          "Run a YAML workload of threads on the Ember scheduler with a virtual tick clock and report how each thread was served.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.workload, "workload", "w", "", "workload file (default: built-in mixed workload)")
	rootCmd.PersistentFlags().Uint32VarP(&rootOpts.ticks, "ticks", "n", 0, "override the workload's tick count")
	rootCmd.PersistentFlags().IntVar(&rootOpts.cycles, "cycles-per-tick", 0, "override the workload's preemption points per tick")
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.verbose, "verbose", "v", false, "print kernel log lines to stderr")

	rootCmd.AddCommand(runCmd, reportCmd, stepCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "embersim:", err)
		os.Exit(1)
	}
}

func loadWorkload() (*sim.Workload, error) {
	var (
		w   *sim.Workload
		err error
	)
	if rootOpts.workload == "" {
		w, err = sim.Parse(defaultWorkload)
	} else {
		w, err = sim.Load(rootOpts.workload)
	}
	if err != nil {
		return nil, err
	}
	if rootOpts.ticks > 0 {
		w.Ticks = rootOpts.ticks
	}
	if rootOpts.cycles > 0 {
		w.CyclesPerTick = rootOpts.cycles
	}
	return w, nil
}

func newSim() (*sim.Sim, error) {
	w, err := loadWorkload()
	if err != nil {
		return nil, err
	}
	var opts []sim.Option
	if rootOpts.verbose {
		opts = append(opts, sim.WithLogger(lineWriter{os.Stderr}))
	}
	return sim.New(w, opts...)
}

type lineWriter struct {
	w io.Writer
}

func (l lineWriter) WriteLineString(s string) {
	fmt.Fprintln(l.w, s)
}
