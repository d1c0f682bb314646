package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mhan0505/student-management-system/internal/server"
	"github.com/mhan0505/student-management-system/internal/session"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reports, outliers and deletions with undo over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		opts, err := c.PipelineOptions()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		addr := c.ServerAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		sess := session.New(repo, c.UndoCapacity, appLog())
		color.Green("✓ Listening on %s (Ctrl+C to stop)", addr)
		return server.New(sess, opts, appLog()).ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address (overrides server_addr)")
}
