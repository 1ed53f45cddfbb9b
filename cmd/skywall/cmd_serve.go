package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aykute/skywall/internal/server"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web UI",
	Long: `Serve hosts a small web interface with the same scan/confirm/block flow
as 'skywall run': a credentials form, live progress over a websocket, an
audit log download, and Prometheus metrics on /metrics. Credentials are
entered per run in the browser, never stored server-side.`,
	RunE: runServeCmd,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "bind address (default :8090)")
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}

	srv := server.New(cfg, log.Logger)
	return srv.ListenAndServe(cmd.Context())
}
