package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/appimage-updater/appimage-updater/pkg/config"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new configuration directory with built-in defaults",
	Long: `init creates config.json under --config-dir with the built-in
global defaults and an empty apps/ directory. Existing configuration
is left untouched unless --force is given.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config.json")
}

func runInit(cmd *cobra.Command, args []string) error {
	s := store()
	globalPath := s.Dir + "/config.json"
	if _, err := os.Stat(globalPath); err == nil && !initForce {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", globalPath)
	}

	global := types.GlobalConfig{
		ConcurrentDownloads: 3,
		TimeoutSeconds:      30,
		UserAgent:           "appimage-updater/1.0",
		Defaults: types.GlobalDefaults{
			AutoSubdir:        true,
			RotationEnabled:   true,
			RetainCount:       3,
			SymlinkEnabled:    true,
			SymlinkPattern:    "{appname}.AppImage",
			ChecksumEnabled:   true,
			ChecksumAlgorithm: types.ChecksumSHA256,
			ChecksumPattern:   "{filename}.sha256",
		},
	}

	if err := s.SaveGlobal(global); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir+"/apps", 0o755); err != nil {
		return fmt.Errorf("create apps directory: %w", err)
	}

	fmt.Printf("initialized configuration at %s\n", s.Dir)
	return nil
}
