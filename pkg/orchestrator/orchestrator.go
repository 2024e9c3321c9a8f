// Package orchestrator runs the per-application resolve → decide →
// download pipeline across a config snapshot, bounding concurrency at
// global.concurrent_downloads with golang.org/x/sync/errgroup — the
// structured-concurrency primitive named generically in §4.9 and §5.
package orchestrator

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
	"github.com/appimage-updater/appimage-updater/pkg/config"
	"github.com/appimage-updater/appimage-updater/pkg/download"
	"github.com/appimage-updater/appimage-updater/pkg/httpclient"
	"github.com/appimage-updater/appimage-updater/pkg/platform"
	"github.com/appimage-updater/appimage-updater/pkg/repository"
	"github.com/appimage-updater/appimage-updater/pkg/rotate"
	"github.com/appimage-updater/appimage-updater/pkg/selector"
	"github.com/appimage-updater/appimage-updater/pkg/types"
	"github.com/appimage-updater/appimage-updater/pkg/versiondecide"
)

// Filter selects which applications in a snapshot participate in a run.
type Filter struct {
	Names []string // exact names or doublestar globs; empty means "all"
}

func (f Filter) matches(name string) bool {
	if len(f.Names) == 0 {
		return true
	}
	for _, pattern := range f.Names {
		if strings.EqualFold(pattern, name) {
			return true
		}
		if ok, _ := doublestar.Match(strings.ToLower(pattern), strings.ToLower(name)); ok {
			return true
		}
	}
	return false
}

// Options configures one orchestrator run.
type Options struct {
	DryRun      bool
	Interactive selector.InteractiveSelector
}

// Outcome pairs one application's check and (possibly absent) download
// result.
type Outcome struct {
	ApplicationName string
	Check           types.CheckResult
	Download        *types.DownloadResult
}

// Run executes the pipeline for every enabled, filter-matching
// application in snapshot, bounding concurrency at
// snapshot.Global.ConcurrentDownloads.
func Run(ctx context.Context, snap config.Snapshot, filter Filter, opts Options) []Outcome {
	apps := lo.Filter(snap.Apps, func(app types.ApplicationConfig, _ int) bool {
		return app.Enabled && filter.matches(app.Name)
	})

	limit := snap.Global.ConcurrentDownloads
	if limit < 1 {
		limit = 1
	}

	results := make([]Outcome, len(apps))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, app := range apps {
		i, app := i, app
		g.Go(func() error {
			outcome := runOne(gctx, snap, app, opts)
			mu.Lock()
			results[i] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func runOne(ctx context.Context, snap config.Snapshot, app types.ApplicationConfig, opts Options) Outcome {
	outcome := Outcome{ApplicationName: app.Name}

	if ctx.Err() != nil {
		outcome.Check = types.CheckResult{ApplicationName: app.Name, Status: types.StatusCancelled}
		return outcome
	}

	eff := config.Resolve(snap.Global, app)

	repoCfg := repository.Config{
		URL:             app.URL,
		Pattern:         app.Pattern,
		VersionPattern:  app.VersionPattern,
		ChecksumPattern: eff.Checksum.Pattern,
		UserAgent:       snap.Global.UserAgent,
		AppName:         app.Name,
	}
	repoCfg.HTTPClient = httpclient.New(
		httpclient.WithPurpose(httpclient.PurposeForgeAPI),
		httpclient.WithGlobalTimeoutSeconds(snap.Global.TimeoutSeconds),
		httpclient.WithUserAgent(snap.Global.UserAgent),
	)

	client, err := repository.New(app.SourceType, repoCfg)
	if err != nil {
		outcome.Check = errorResult(app.Name, err)
		return outcome
	}

	release, err := latestRelease(ctx, client, app)
	if err != nil {
		outcome.Check = errorResult(app.Name, err)
		return outcome
	}

	plat := platform.Current()
	for i := range release.Assets {
		selector.DeriveAttributes(&release.Assets[i], plat)
	}

	asset, err := selector.Select(release, app.Pattern, plat, opts.Interactive)
	if err != nil {
		outcome.Check = errorResult(app.Name, err)
		return outcome
	}

	currentVersion, currentTime, err := versiondecide.ResolveCurrentVersion(eff.ResolvedDownloadDir, app.Pattern, app.VersionPattern)
	if err != nil {
		currentVersion = ""
	}

	candidate, checkResult := versiondecide.Decide(app.Name, currentVersion, currentTime, release, *asset)
	outcome.Check = checkResult

	if opts.DryRun || candidate == nil {
		return outcome
	}

	if ctx.Err() != nil {
		outcome.Check.Status = types.StatusCancelled
		return outcome
	}

	dlResult := runDownload(ctx, snap, app, eff, candidate)
	outcome.Download = &dlResult
	return outcome
}

func latestRelease(ctx context.Context, client repository.Client, app types.ApplicationConfig) (types.Release, error) {
	if app.Prerelease {
		return client.GetLatestRelease(ctx)
	}

	type progressive interface {
		FindFirstStableMatching(ctx context.Context) (types.Release, bool, error)
	}
	if p, ok := client.(progressive); ok {
		release, found, err := p.FindFirstStableMatching(ctx)
		if err != nil {
			return types.Release{}, err
		}
		if found {
			return release, nil
		}
	}

	releases, err := client.ListReleases(ctx, repository.ProgressiveFetchCeiling)
	if err != nil {
		return types.Release{}, err
	}
	release, _, found := versiondecide.SelectReleaseForPrerelease(releases, app.Prerelease)
	if !found {
		return types.Release{}, apperrors.New(apperrors.KindNotFound, "no releases available")
	}
	return release, nil
}

func runDownload(ctx context.Context, snap config.Snapshot, app types.ApplicationConfig, eff config.Effective, candidate *types.UpdateCandidate) types.DownloadResult {
	dlClient := httpclient.New(
		httpclient.WithPurpose(httpclient.PurposeDownload),
		httpclient.WithGlobalTimeoutSeconds(snap.Global.TimeoutSeconds),
		httpclient.WithUserAgent(snap.Global.UserAgent),
	)

	req := download.Request{
		ApplicationName:   app.Name,
		Version:           candidate.LatestVersion,
		Asset:             candidate.Asset,
		DestDir:           eff.ResolvedDownloadDir,
		ChecksumEnabled:   eff.Checksum.Enabled,
		ChecksumRequired:  eff.Checksum.Required,
		ChecksumAlgorithm: eff.Checksum.Algorithm,
	}

	if eff.Checksum.Enabled && candidate.Asset.ChecksumAsset != nil {
		req.ChecksumContent = fetchChecksumBody(ctx, dlClient, candidate.Asset.ChecksumAsset.URL)
	}

	if app.RotationEnabled {
		req.Rotation = &rotate.Plan{
			Dir:         eff.ResolvedDownloadDir,
			BaseName:    baseNameFor(candidate.Asset.Name),
			RetainCount: eff.RetainCount,
			SymlinkPath: eff.ResolvedSymlinkPath,
		}
	}

	return download.Run(ctx, req, download.Options{Client: dlClient})
}

func baseNameFor(assetName string) string {
	ext := filepath.Ext(assetName)
	if strings.EqualFold(ext, ".zip") {
		return strings.TrimSuffix(assetName, ext) + ".AppImage"
	}
	return assetName
}

func fetchChecksumBody(ctx context.Context, client *http.Client, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	body := make([]byte, 0, 4096)
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
		}
		if readErr != nil {
			break
		}
		if len(body) > 1<<20 {
			break // checksum files are small; bail out past 1MiB
		}
	}
	return string(body)
}

func errorResult(appName string, err error) types.CheckResult {
	return types.CheckResult{ApplicationName: appName, Status: types.StatusError, Error: err.Error()}
}
