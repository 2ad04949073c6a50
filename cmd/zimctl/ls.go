package main

import (
	"fmt"
	"log"

	"github.com/go-zim/zim/pkg/zim"
	"github.com/spf13/cobra"
)

var lsArticlesOnly bool

var lsCmd = &cobra.Command{
	Use:   "ls <archive.zim>",
	Short: "List the directory entries of a ZIM archive",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runLs(args[0])
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().BoolVar(&lsArticlesOnly, "articles-only", false, "skip redirect entries")
}

func runLs(path string) {
	r, err := zim.Open(path)
	if err != nil {
		log.Fatalf("zimctl: open %s: %v", path, err)
	}
	defer r.Close()

	entries, err := r.Directory()
	if err != nil {
		log.Fatalf("zimctl: directory: %v", err)
	}

	for _, e := range entries {
		if lsArticlesOnly && e.IsRedirect {
			continue
		}
		kind := "article"
		if e.IsRedirect {
			kind = fmt.Sprintf("redirect -> %d", e.RedirectTarget)
		}
		fmt.Printf("%6d  %s  %s/%-30s  %s\n", e.Index, zim.NamespaceString(e.Namespace), zim.NamespaceString(e.Namespace), e.URL, kind)
	}
}
