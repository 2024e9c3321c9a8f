package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appimage-updater/appimage-updater/pkg/orchestrator"
	"github.com/appimage-updater/appimage-updater/pkg/selector"
)

var updateDryRun bool

var updateCmd = &cobra.Command{
	Use:   "update [application...]",
	Short: "Download and install available updates",
	Long: `update resolves the latest release for every registered
(or named) application, and for each with a newer version available,
downloads it, verifies its checksum if configured, and rotates it
into place.

Examples:
  appimage-updater update
  appimage-updater update foo --dry-run`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "report what would be downloaded without downloading")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}
	if err := resolveNames(snap.Apps, args); err != nil {
		return err
	}

	outcomes := orchestrator.Run(context.Background(), *snap, orchestrator.Filter{Names: args}, orchestrator.Options{
		DryRun:      updateDryRun,
		Interactive: selector.PickFirst{},
	})

	failed := false
	for _, outcome := range outcomes {
		fmt.Println(outcome.Check.Pretty())
		if outcome.Check.Error != "" {
			failed = true
			continue
		}
		if outcome.Download != nil {
			fmt.Println(outcome.Download.Pretty())
			if outcome.Download.Error != "" {
				failed = true
			}
		}
	}
	if failed {
		return fmt.Errorf("one or more applications failed to update")
	}
	return nil
}
