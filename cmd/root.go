// Package cmd defines and implements the CLI commands for the finder
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kkeeling/dk-contest-finder/internal/api"
	"github.com/kkeeling/dk-contest-finder/internal/app"
	"github.com/kkeeling/dk-contest-finder/internal/config"
	"github.com/kkeeling/dk-contest-finder/internal/runner"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application surface the commands use. Keeping it an
// interface lets tests inject a stub factory.
type App interface {
	Close()
	Logger() *zap.Logger
	Runner() *runner.Runner
	Server() *api.Server
	Config() config.Config
}

// newApp is the application factory, replaceable in tests.
var newApp = func(ctx context.Context) (App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finder",
		Short: "Finds favorable daily fantasy contests",
		Long: `finder polls the contest lobby for small double-up contests, scores
each roster's experience composition, and raises an alert whenever a
contest looks beatable.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus FINDER_* env)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newOnceCmd())

	return cmd
}

// Execute runs the CLI with the given base context.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
