package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/bfgsmin/internal/server"
	"github.com/cwbudde/bfgsmin/internal/store"
)

var (
	serveAddr string
	dataDir   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for solve jobs",
	Long: `Starts a JSON API that accepts solve jobs, streams per-iteration
progress over SSE and persists run records and traces to the data directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open data directory: %w", err)
		}

		s := server.NewServer(serveAddr, dataDir, st)
		return s.Start()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for run records and traces")
	rootCmd.AddCommand(serveCmd)
}
