package cmd

import (
	"fmt"
	"os"
	"time"

	"stacksignal/pkg/config"
	"stacksignal/pkg/server"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP API",
	Long: `Serve repository analysis over HTTP.

Endpoints:
  GET  /health
  GET  /api/v1/patterns[?category=...]
  POST /api/v1/analyze             {"url": "...", "branch": "..."}
  POST /api/v1/reconcile           {"detections": [...], "catalog": [...]}
  GET  /api/v1/reports/{owner}/{repo}

Logs are written to stderr as JSON.`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "stacksignal").Logger()

	cfg := loadConfigOrExit(cmd)

	service, records, cleanup, err := buildService(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize analysis service")
	}
	defer cleanup()

	srv := server.New(service,
		server.WithLogger(logger),
		server.WithRecords(records),
		server.WithTimeout(serveTimeout),
		server.WithVersion(Version),
	)
	if err := srv.ListenAndServe(cmd.Context(), cfg.ServerAddr); err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to the configured server_addr)")
	serveCmd.Flags().String("catalog", "", "Catalog file or postgres:// DSN (overrides config)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", config.DefaultRequestTimeout, "Per-request timeout")
}
