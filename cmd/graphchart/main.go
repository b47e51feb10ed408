package main

import (
	"fmt"
	"log"
	"os"

	"github.com/recera/graphchart/pkg/scheduler"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var cfgFile string
	var debug bool

	var rootCmd = &cobra.Command{
		Use:   "graphchart",
		Short: "graphchart - interactive graph chart webapp server",
		Long: `graphchart serves an interactive network chart. The page relays the host's
chart configuration over a WebSocket; the server validates it, fetches graph
data from the webapp backend and pushes render and highlight frames back.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				scheduler.SetDebugLog(log.Println)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./graphchart.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log event loop activity")

	// Add commands
	rootCmd.AddCommand(newServeCommand(&cfgFile))
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newInspectCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
