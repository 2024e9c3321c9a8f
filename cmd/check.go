package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appimage-updater/appimage-updater/pkg/orchestrator"
	"github.com/appimage-updater/appimage-updater/pkg/selector"
)

var checkCmd = &cobra.Command{
	Use:   "check [application...]",
	Short: "Check registered applications for available updates without downloading",
	Long: `check resolves the latest release for every registered
(or named) application and reports whether a newer version is
available, without downloading anything.

Examples:
  appimage-updater check
  appimage-updater check foo bar`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}
	if err := resolveNames(snap.Apps, args); err != nil {
		return err
	}

	outcomes := orchestrator.Run(context.Background(), *snap, orchestrator.Filter{Names: args}, orchestrator.Options{
		DryRun:      true,
		Interactive: selector.PickFirst{},
	})

	failed := false
	for _, outcome := range outcomes {
		fmt.Println(outcome.Check.Pretty())
		if outcome.Check.Error != "" {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}
