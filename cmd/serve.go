package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the walkthrough API and signed audio URLs over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		if cfg.Server.AdminToken == "" {
			slog.Warn("server.admin_token is not set; create, upload and delete requests will be rejected")
		}

		srv := server.New(b.transport, server.Options{
			AdminToken: cfg.Server.AdminToken,
			Blobs:      b.fs,
			Signer:     b.signer,
			MaxUpload:  cfg.Server.MaxUpload,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.Printf("Listening on http://%s (blobs signed for %s)\n", addr, b.signer.BaseURL)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	rootCmd.AddCommand(serveCmd)
}
