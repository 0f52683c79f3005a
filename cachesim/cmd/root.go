// Package cmd provides the command-line interface of cachesim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cachesim",
	Short: "cachesim simulates a set-associative data cache on a memory trace.",
	Long: `cachesim reads a cache geometry and a trace of reads and writes, ` +
		`and reports, for every access, whether it hit and how many memory ` +
		`transfers it caused, followed by the totals.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
