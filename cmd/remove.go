package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Unregister an application",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}
	if err := resolveNames(snap.Apps, []string{name}); err != nil {
		return err
	}
	if err := store().RemoveApp(name); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", name)
	return nil
}
