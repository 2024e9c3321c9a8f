package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appimage-updater/appimage-updater/pkg/types"
)

var (
	editURL            string
	editPattern        string
	editVersionPattern string
	editDownloadDir    string
	editEnabled        bool
	editPrerelease     bool
	editRotation       bool
	editRetainCount    int
	editSymlinkPath    string
	editChecksum       bool
	editChecksumReq    bool
	editChecksumPat    string
)

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Change a registered application's configuration",
	Long: `edit updates only the fields whose flags are explicitly
passed; any flag not given leaves the stored value unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editURL, "url", "", "source URL")
	editCmd.Flags().StringVar(&editPattern, "pattern", "", "asset-matching regex")
	editCmd.Flags().StringVar(&editVersionPattern, "version-pattern", "", "version-extraction regex")
	editCmd.Flags().StringVar(&editDownloadDir, "download-dir", "", "download directory")
	editCmd.Flags().BoolVar(&editEnabled, "enabled", false, "enable the application")
	editCmd.Flags().BoolVar(&editPrerelease, "prerelease", false, "include prerelease versions")
	editCmd.Flags().BoolVar(&editRotation, "rotation-enabled", false, "enable .current/.old rotation")
	editCmd.Flags().IntVar(&editRetainCount, "retain-count", 0, "number of versions kept on disk, counting .current")
	editCmd.Flags().StringVar(&editSymlinkPath, "symlink-path", "", "stable symlink path")
	editCmd.Flags().BoolVar(&editChecksum, "checksum-enabled", false, "enable checksum verification")
	editCmd.Flags().BoolVar(&editChecksumReq, "checksum-required", false, "fail the download when no checksum can be found")
	editCmd.Flags().StringVar(&editChecksumPat, "checksum-pattern", "", "checksum sidecar filename template")
}

func runEdit(cmd *cobra.Command, args []string) error {
	name := args[0]
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}
	if err := resolveNames(snap.Apps, []string{name}); err != nil {
		return err
	}

	var app types.ApplicationConfig
	for _, a := range snap.Apps {
		if a.Name == name {
			app = a
			break
		}
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		app.URL = editURL
	}
	if flags.Changed("pattern") {
		app.Pattern = editPattern
	}
	if flags.Changed("version-pattern") {
		app.VersionPattern = editVersionPattern
	}
	if flags.Changed("download-dir") {
		app.DownloadDir = editDownloadDir
	}
	if flags.Changed("enabled") {
		app.Enabled = editEnabled
	}
	if flags.Changed("prerelease") {
		app.Prerelease = editPrerelease
	}
	if flags.Changed("rotation-enabled") {
		app.RotationEnabled = editRotation
	}
	if flags.Changed("retain-count") {
		app.RetainCount = editRetainCount
	}
	if flags.Changed("symlink-path") {
		app.SymlinkPath = editSymlinkPath
	}
	if flags.Changed("checksum-enabled") {
		app.Checksum.Enabled = editChecksum
	}
	if flags.Changed("checksum-required") {
		app.Checksum.Required = editChecksumReq
	}
	if flags.Changed("checksum-pattern") {
		app.Checksum.Pattern = editChecksumPat
	}

	if err := store().EditApp(app); err != nil {
		return err
	}
	fmt.Printf("updated %s\n", app.Name)
	return nil
}
