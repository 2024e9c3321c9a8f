package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appimage-updater/appimage-updater/pkg/httpclient"
	"github.com/appimage-updater/appimage-updater/pkg/pattern"
	"github.com/appimage-updater/appimage-updater/pkg/repository"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

const sampleReleaseLimit = 5

var (
	addSourceType      string
	addPattern         string
	addVersionPattern  string
	addDownloadDir     string
	addDisabled        bool
	addPrerelease      bool
	addNoRotation      bool
	addRetainCount     int
	addSymlinkPath     string
	addNoChecksum      bool
	addChecksumRequire bool
	addChecksumPattern string
)

var addCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Register a new application",
	Long: `add registers a new application by name and source URL. The
source type is auto-detected from the URL (forge API, SourceForge,
scraped page, or direct file) unless --source-type overrides it, and
the asset-matching pattern is derived from a sample of recent release
filenames unless --pattern is given explicitly.`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addSourceType, "source-type", "", "override detected source type (forge-api-github, forge-api-gitlab, sourceforge, direct, dynamic)")
	addCmd.Flags().StringVar(&addPattern, "pattern", "", "override the derived asset-matching regex")
	addCmd.Flags().StringVar(&addVersionPattern, "version-pattern", "", "regex extracting the version from an asset or page")
	addCmd.Flags().StringVar(&addDownloadDir, "download-dir", "", "override the resolved download directory")
	addCmd.Flags().BoolVar(&addDisabled, "disabled", false, "register the application disabled")
	addCmd.Flags().BoolVar(&addPrerelease, "prerelease", false, "include prerelease versions")
	addCmd.Flags().BoolVar(&addNoRotation, "no-rotation", false, "disable .current/.old rotation for this application")
	addCmd.Flags().IntVar(&addRetainCount, "retain-count", 0, "override how many versions are kept on disk, counting .current")
	addCmd.Flags().StringVar(&addSymlinkPath, "symlink-path", "", "stable symlink path, required when rotation is enabled")
	addCmd.Flags().BoolVar(&addNoChecksum, "no-checksum", false, "disable checksum verification for this application")
	addCmd.Flags().BoolVar(&addChecksumRequire, "checksum-required", false, "fail the download when no checksum can be found")
	addCmd.Flags().StringVar(&addChecksumPattern, "checksum-pattern", "", "override the checksum sidecar filename template")
}

func runAdd(cmd *cobra.Command, args []string) error {
	name, url := args[0], args[1]

	snap, err := loadSnapshot()
	if err != nil {
		return err
	}
	for _, app := range snap.Apps {
		if app.Name == name {
			return fmt.Errorf("application %q already registered", name)
		}
	}

	ctx := context.Background()
	client := httpclient.New(
		httpclient.WithPurpose(httpclient.PurposeForgeAPI),
		httpclient.WithUserAgent(snap.Global.UserAgent),
	)

	repoCfg := repository.Config{
		URL:            url,
		Pattern:        addPattern,
		VersionPattern: addVersionPattern,
		UserAgent:      snap.Global.UserAgent,
		AppName:        name,
		HTTPClient:     client,
	}

	sourceType := types.SourceType(addSourceType)
	if sourceType == "" {
		sourceType, err = repository.Detect(ctx, repoCfg)
		if err != nil {
			return fmt.Errorf("detect source type: %w", err)
		}
	}

	repoClient, err := repository.New(sourceType, repoCfg)
	if err != nil {
		return err
	}

	derivedPattern := addPattern
	if derivedPattern == "" {
		derivedPattern = derivePattern(ctx, repoClient, name, url)
	}

	app := types.ApplicationConfig{
		Name:            name,
		SourceType:      sourceType,
		URL:             repoClient.NormalizeURL(),
		DownloadDir:     addDownloadDir,
		Pattern:         derivedPattern,
		VersionPattern:  addVersionPattern,
		Enabled:         !addDisabled,
		Prerelease:      addPrerelease,
		RotationEnabled: !addNoRotation && snap.Global.Defaults.RotationEnabled,
		RetainCount:     addRetainCount,
		SymlinkPath:     addSymlinkPath,
		Checksum: types.ChecksumConfig{
			Enabled:   !addNoChecksum && snap.Global.Defaults.ChecksumEnabled,
			Algorithm: snap.Global.Defaults.ChecksumAlgorithm,
			Pattern:   addChecksumPattern,
			Required:  addChecksumRequire,
		},
	}

	if err := store().AddApp(app); err != nil {
		return err
	}

	fmt.Printf("registered %s (%s) with pattern %q\n", app.Name, app.SourceType, app.Pattern)
	return nil
}

// derivePattern lists a small sample of recent releases and runs the
// pattern generator (§4.6) over their asset filenames, falling back to
// the generator's own app-name heuristic when no releases are found.
func derivePattern(ctx context.Context, client repository.Client, name, url string) string {
	releases, err := client.ListReleases(ctx, sampleReleaseLimit)
	var candidates []pattern.Candidate
	if err == nil {
		for _, release := range releases {
			for _, asset := range release.Assets {
				candidates = append(candidates, pattern.Candidate{Name: asset.Name, IsPrerelease: release.IsPrerelease})
			}
		}
	}
	return pattern.Generate(candidates, name, repoPathSegment(url))
}

func repoPathSegment(url string) string {
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			return url[i+1:]
		}
	}
	return url
}
