package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-zim/zim/pkg/zim"
	"github.com/spf13/cobra"
)

var catNamespace string

var catCmd = &cobra.Command{
	Use:   "cat <archive.zim> <url>",
	Short: "Print a single article's content to stdout",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runCat(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
	catCmd.Flags().StringVarP(&catNamespace, "namespace", "n", "A", "article namespace")
}

func runCat(path, url string) {
	if len(catNamespace) != 1 {
		log.Fatalf("zimctl: namespace must be a single byte, got %q", catNamespace)
	}

	r, err := zim.Open(path)
	if err != nil {
		log.Fatalf("zimctl: open %s: %v", path, err)
	}
	defer r.Close()

	content, _, err := r.GetEntryContent(catNamespace[0], url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zimctl: %v\n", err)
		os.Exit(1)
	}

	os.Stdout.Write(content)
}
