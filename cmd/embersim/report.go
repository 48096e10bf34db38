//go:build !tinygo

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reportOpts = struct {
		format string
	}{}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Run a workload and summarize dispatch share and release latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reportOpts.format != "text" && reportOpts.format != "yaml" {
				return fmt.Errorf("unknown format %q (want text or yaml)", reportOpts.format)
			}
			m, err := newSim()
			if err != nil {
				return err
			}
			// A fault still gets a report; the fault is part of it.
			runErr := m.RunUntil(m.Workload().Ticks)
			rep := m.Report()

			out := cmd.OutOrStdout()
			if reportOpts.format == "yaml" {
				err = rep.WriteYAML(out)
			} else {
				err = rep.WriteText(out)
			}
			if err != nil {
				return err
			}
			return runErr
		},
	}
)

func init() {
	reportCmd.Flags().StringVarP(&reportOpts.format, "format", "f", "text", "output format (=text, =yaml)")
}
