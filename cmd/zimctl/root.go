package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zimctl",
	Short: "zimctl - inspect and serve ZIM archives",
	Long: `zimctl is a command-line tool for working with ZIM archives:
listing the directory, reading article content, and serving an
archive over HTTP.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
