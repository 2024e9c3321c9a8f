// Package cmd implements the appimage-updater command-line surface:
// a thin cobra layer over pkg/config, pkg/orchestrator and
// pkg/repository. Every subcommand loads a config.Snapshot, delegates
// the actual work to the pipeline packages, and only formats results.
package cmd

import (
	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
	"github.com/appimage-updater/appimage-updater/pkg/config"
	"github.com/appimage-updater/appimage-updater/pkg/platform"
)

var (
	configDir    string
	verbose      bool
	osOverride   string
	archOverride string

	versionInfo VersionInfo
)

// VersionInfo carries build-time version metadata injected by main via
// SetVersion.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// SetVersion records build metadata for the `version` subcommand.
func SetVersion(version, commit, date string) {
	versionInfo = VersionInfo{Version: version, Commit: commit, Date: date}
}

var rootCmd = &cobra.Command{
	Use:   "appimage-updater",
	Short: "Check, download and rotate updates for registered AppImage applications",
	Long: `appimage-updater resolves the latest release for each registered
application from its forge, direct URL, or scraped download page,
compares it against what is installed, and downloads and rotates new
versions into place.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logger.GetLogger().V(3).Infof("verbose logging enabled")
		}
		platform.SetGlobalOverrides(osOverride, archOverride)
		if !platform.Current().IsLinux() {
			return apperrors.New(apperrors.KindPlatformUnsupported, "appimage-updater only runs on linux hosts")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultDir(), "configuration directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&osOverride, "os", "", "override detected host OS (linux, darwin, windows)")
	rootCmd.PersistentFlags().StringVar(&archOverride, "arch", "", "override detected host architecture")
}

// Execute runs the root command; the returned error's apperrors.Kind
// (if any) determines the process exit code per §6.4.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps err (as returned by Execute) to the process exit code.
func ExitCode(err error) int {
	return apperrors.ExitCode(err)
}

func store() *config.Store {
	return config.NewStore(configDir)
}

func loadSnapshot() (*config.Snapshot, error) {
	return store().Load()
}
