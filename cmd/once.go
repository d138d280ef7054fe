package cmd

import (
	"github.com/spf13/cobra"
)

// newOnceCmd creates the 'once' subcommand for a single pipeline pass.
func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Runs a single discovery cycle and exits",
		Long: `Fetches the lobby for every tracked category, classifies the
eligible contests, and exits. Useful for cron-style scheduling and for
verifying configuration.`,
		RunE: runOnceCommand,
	}
}

func runOnceCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	appInstance.Runner().RunCycle(cmd.Context())
	appInstance.Logger().Info("single cycle finished")
	return nil
}
