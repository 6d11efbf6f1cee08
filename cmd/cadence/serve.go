package main

import (
	"github.com/spf13/cobra"

	"github.com/cadence-hq/cadence/internal/api"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the observability HTTP endpoints",
	Long: `Serve exposes /metrics (Prometheus text), /healthz, and /summary
until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	listen := serveListen
	if listen == "" {
		listen = cfg.Server.Listen
	}

	srv := api.NewServer(listen, rt.metrics, rt.tools, api.WithLogger(logger))
	return srv.Run(cmd.Context())
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (overrides server.listen)")
}
