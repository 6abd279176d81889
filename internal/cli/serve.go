package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DovieW/vscode-insiders-release-notes/internal/server"
)

var (
	serveAddr string
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rendered site locally for preview",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "site directory to serve (default: configured site dir)")
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := cfg.SiteDir
	if serveDir != "" {
		dir = serveDir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.New(serveAddr, dir, logger).Run(ctx)
}
