package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRunCmd creates the 'run' subcommand, the long-lived service mode.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs the finder service",
		Long: `Starts the polling loop and the HTTP API. The loop fetches the
contest lobby once per interval; the API exposes health, metrics, and
read-only contest endpoints.`,
		RunE: runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()
	ctx := cmd.Context()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", appInstance.Config().Server.Port),
		Handler:           appInstance.Server().Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	runnerErr := make(chan error, 1)
	go func() {
		runnerErr <- appInstance.Runner().Run(ctx)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case err := <-runnerErr:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("http server shutdown failed", zap.Error(serr))
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("run finder: %w", err)
		}
		logger.Info("finder stopped")
		return nil
	}
}
