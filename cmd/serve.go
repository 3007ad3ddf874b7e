package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kamusis/pcapcat/internal/observability"
	"github.com/kamusis/pcapcat/internal/server"
	"github.com/spf13/cobra"
)

var flagServeNoBootstrap bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reindex, search and download over HTTP",
	Long: `Start the HTTP API. If no index snapshot exists yet, one is built from
the capture directory before the server starts listening.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagServeNoBootstrap, "no-bootstrap", false, "Do not build a missing index at startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := observability.InitLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := newCatalog(cfg, logger)
	if !flagServeNoBootstrap {
		// A failed bootstrap leaves search answering 404 until /reindex succeeds.
		if _, err := cat.Bootstrap(ctx); err != nil {
			printErr("", fmt.Sprintf("startup indexing failed: %v", err))
		}
	}

	srv, err := server.New(cfg.ServiceName, version, cfg.ListenAddr, cat, cfg.CorsOrigins, logger)
	if err != nil {
		return err
	}
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// contextOrBackground guards commands executed without ExecuteContext.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
