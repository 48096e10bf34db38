//go:build !tinygo

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ember/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the embersim version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "embersim", buildinfo.String())
	},
}
