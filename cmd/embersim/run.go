//go:build !tinygo

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	runOpts = struct {
		events bool
	}{}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a workload and print its event trace",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newSim()
			if err != nil {
				return err
			}
			runErr := m.RunUntil(m.Workload().Ticks)

			out := cmd.OutOrStdout()
			if runOpts.events {
				for _, ev := range m.Recorder().Events() {
					fmt.Fprintln(out, ev)
				}
			}
			st := m.Scheduler().Stats()
			fmt.Fprintf(out, "%s: %d ms, %d dispatches, %d idles, %d events\n",
				m.Workload().Name, st.NowMs, st.Dispatches, st.Idles, m.Recorder().Len())
			return runErr
		},
	}
)

func init() {
	runCmd.Flags().BoolVarP(&runOpts.events, "events", "e", true, "print every scheduling event")
}
