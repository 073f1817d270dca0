package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "formrelay",
	Short: "Contact form relay and machine presence tracker",
	Long: `Formrelay forwards website contact form submissions to a Discord webhook,
allowing one submission per client IP every ten minutes.

It also tracks which named machines are alive: machines POST /ping
periodically and GET /status/{name} reports whether one pinged in the last minute.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(historyCmd)
}
