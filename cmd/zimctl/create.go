package main

import (
	"fmt"
	"os"

	"github.com/go-zim/zim/pkg/zim"
	"github.com/spf13/cobra"
)

var createOutput string

var createCmd = &cobra.Command{
	Use:   "create <file...>",
	Short: "Create a minimal ZIM archive from plain files",
	Long: `Create a ZIM archive whose articles are the given files, one
article per file, with the first file set as the main page. Namespace
is always "A" and MIME type is always "text/plain"; this command
exists to produce quick test archives, not full-fidelity conversions.`,
	Example: `  zimctl create -o out.zim page1.txt page2.txt`,
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runCreate(args)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&createOutput, "output", "o", "out.zim", "output archive path")
}

func runCreate(paths []string) {
	w, err := zim.Create(createOutput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zimctl: create %s: %v\n", createOutput, err)
		os.Exit(1)
	}

	for i, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zimctl: read %s: %v\n", path, err)
			os.Exit(1)
		}

		idx, err := w.AddArticle(zim.NamespaceArticle, path, path, content, "text/plain")
		if err != nil {
			fmt.Fprintf(os.Stderr, "zimctl: add %s: %v\n", path, err)
			os.Exit(1)
		}
		if i == 0 {
			if err := w.SetMainPage(idx); err != nil {
				fmt.Fprintf(os.Stderr, "zimctl: set main page: %v\n", err)
				os.Exit(1)
			}
		}
	}

	if err := w.Finalize(); err != nil {
		fmt.Fprintf(os.Stderr, "zimctl: finalize: %v\n", err)
		os.Exit(1)
	}
	if err := w.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "zimctl: close: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s (%d articles)\n", createOutput, len(paths))
}
