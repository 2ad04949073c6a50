package main

import (
	"log"
	"net/http"

	"github.com/go-zim/zim/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve <archive.zim>",
	Short: "Serve a ZIM archive over HTTP",
	Long: `Start an HTTP server exposing a ZIM archive's directory, main
page, and individual articles by namespace and URL.`,
	Example: `  zimctl serve ./data/wiki.zim
  zimctl serve ./data/wiki.zim --port 9090`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runServe(args[0])
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "8080", "server port")
}

func runServe(path string) {
	if err := server.Open(path); err != nil {
		log.Fatalf("zimctl: open %s: %v", path, err)
	}

	e := echo.New()
	server.RegisterRoutes(e)

	log.Printf("zimctl: serving %s on port %s", path, servePort)
	if err := e.Start(":" + servePort); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
