package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spangraph/spangraph/internal/config"
	"github.com/spangraph/spangraph/internal/graphserver"
	"github.com/spangraph/spangraph/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local graph query server",
		Long: `Starts the HTTP server that executes Spanner property-graph queries and
converts their results into node/edge graphs for visualization clients. The
server runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := config.Get()

			server := graphserver.New(cfg.Server, cfg.Mock.RowLimit, logger)
			if err := server.Start(); err != nil {
				return fmt.Errorf("failed to start graph server: %w", err)
			}
			fmt.Printf("Graph server listening on %s\n", server.URL())

			// Block until the signal-aware context from main.go is cancelled.
			<-ctx.Done()
			logger.Info("Shutdown signal received, draining requests")

			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(stopCtx); err != nil {
				logger.Error("Graceful shutdown failed", zap.Error(err))
				return err
			}
			return nil
		},
	}

	serveCmd.Flags().String("host", "", "listen host (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port, 0 binds an ephemeral port (overrides config)")
	serveCmd.Flags().Int64("mock-row-limit", 0, "row limit for the mock adapter (overrides config)")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("mock.row_limit", serveCmd.Flags().Lookup("mock-row-limit"))

	return serveCmd
}
