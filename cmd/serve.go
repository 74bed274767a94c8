package cmd

import (
	"github.com/spf13/cobra"

	"catalot/lotworker/internal/metrics"
	"catalot/lotworker/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP scraping API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "Listen port (default from HTTP_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	port := cfg.HTTPPort
	if v, _ := cmd.Flags().GetString("port"); v != "" {
		port = v
	}

	fetcher := buildFetcher()
	defer closeFetcher(fetcher)
	assembler := buildAssembler(fetcher)

	m := metrics.New()
	srv := server.New(assembler, m, cfg.ItemDelay, cfg.OutputDir)
	return srv.ListenAndServe(cmd.Context(), port)
}
