package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ripecheck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web page and JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(cfg, previewDecoder()).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr in config)")
}
