// Package github implements the forge-API repository client (§4.5.1)
// against github.com, grounded on the teacher's singleton client
// wrapper (pkg/manager/github/client.go) generalized from a
// module-fetch helper into a release-listing Client.
package github

import (
	"context"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
	"github.com/appimage-updater/appimage-updater/pkg/template"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

// Config mirrors repository.Config field-for-field so callers can
// convert between the two without copying fields by hand.
type Config struct {
	URL             string
	Pattern         string
	VersionPattern  string
	ChecksumPattern string
	HTTPClient      *http.Client
	UserAgent       string
	AppName         string
	Token           string
}

type Client struct {
	owner, repo     string
	pattern         *regexp.Regexp
	checksumPattern string
	gh              *github.Client
}

// New builds a GitHub client. Token resolution order: GITHUB_TOKEN,
// GH_TOKEN, an app-specific env var, then the embedded config token —
// mirrors pkg/manager/github/client.go's os.ExpandEnv chain.
func New(cfg Config) *Client {
	owner, repo := splitOwnerRepo(cfg.URL)

	token := resolveToken(cfg.AppName, cfg.Token)
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		httpClient = cfg.HTTPClient
	}

	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		pattern = regexp.MustCompile(".*")
	}

	return &Client{
		owner:           owner,
		repo:            repo,
		pattern:         pattern,
		checksumPattern: cfg.ChecksumPattern,
		gh:              github.NewClient(httpClient),
	}
}

func resolveToken(appName, embedded string) string {
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		return v
	}
	if v := os.Getenv("GH_TOKEN"); v != "" {
		return v
	}
	if appName != "" {
		envName := "APPIMAGE_UPDATER_" + strings.ToUpper(sanitizeEnvName(appName)) + "_TOKEN"
		if v := os.Getenv(envName); v != "" {
			return v
		}
	}
	return embedded
}

func sanitizeEnvName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func splitOwnerRepo(rawURL string) (string, string) {
	trimmed := strings.TrimSuffix(strings.TrimRight(rawURL, "/"), ".git")
	trimmed = strings.TrimPrefix(trimmed, "https://github.com/")
	trimmed = strings.TrimPrefix(trimmed, "http://github.com/")
	trimmed = strings.TrimPrefix(trimmed, "github.com/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// NormalizeURL returns the canonical https://github.com/<owner>/<repo>
// form; a trailing slash or .git suffix in the configured URL is dropped.
func (c *Client) NormalizeURL() string {
	return "https://github.com/" + c.owner + "/" + c.repo
}

// DetectURL reports whether url names a github.com owner/repo this
// client could serve, per §8's factory round-trip invariant.
func (c *Client) DetectURL(url string) bool {
	if hostOf(url) != "github.com" {
		return false
	}
	owner, repo := splitOwnerRepo(url)
	return owner != "" && repo != ""
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimPrefix(rawURL, "https://")
	rawURL = strings.TrimPrefix(rawURL, "http://")
	if idx := strings.IndexAny(rawURL, "/?"); idx != -1 {
		rawURL = rawURL[:idx]
	}
	return strings.ToLower(rawURL)
}

// Probe issues a lightweight repository lookup to verify reachability.
func (c *Client) Probe(ctx context.Context) error {
	_, _, err := c.gh.Repositories.Get(ctx, c.owner, c.repo)
	return mapError(err)
}

// GetLatestRelease returns the single most recent release (may be a
// prerelease); callers needing "latest stable" should call
// ListReleases with a larger limit and apply their own prerelease
// policy (see pkg/versiondecide.SelectReleaseForPrerelease).
func (c *Client) GetLatestRelease(ctx context.Context) (types.Release, error) {
	releases, err := c.ListReleases(ctx, 1)
	if err != nil {
		return types.Release{}, err
	}
	if len(releases) == 0 {
		return types.Release{}, apperrors.New(apperrors.KindNotFound, "no releases found")
	}
	return releases[0], nil
}

// FindFirstStableMatching implements the progressive-fetch rule of
// §4.5.1: walk pages of releases up to the progressive-fetch ceiling,
// returning the first non-prerelease whose assets include at least
// one match for the application's pattern.
func (c *Client) FindFirstStableMatching(ctx context.Context) (types.Release, bool, error) {
	opts := &github.ListOptions{PerPage: 100}
	seen := 0
	for seen < repositoryProgressiveCeiling {
		releases, resp, err := c.gh.Repositories.ListReleases(ctx, c.owner, c.repo, opts)
		if err != nil {
			return types.Release{}, false, mapError(err)
		}
		for _, r := range releases {
			seen++
			if r.GetPrerelease() {
				continue
			}
			if c.hasMatchingAsset(r) {
				return c.convert(r), true, nil
			}
			if seen >= repositoryProgressiveCeiling {
				break
			}
		}
		if resp.NextPage == 0 || seen >= repositoryProgressiveCeiling {
			break
		}
		opts.Page = resp.NextPage
	}
	return types.Release{}, false, nil
}

const repositoryProgressiveCeiling = 1600

func (c *Client) hasMatchingAsset(r *github.Release) bool {
	for _, a := range r.Assets {
		if c.pattern.MatchString(a.GetName()) {
			return true
		}
	}
	return false
}

// ListReleases walks pages of up to 100 releases, stopping at limit or
// at the progressive-fetch ceiling, whichever comes first.
func (c *Client) ListReleases(ctx context.Context, limit int) ([]types.Release, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 1600 {
		limit = 1600
	}

	var out []types.Release
	opts := &github.ListOptions{PerPage: 100}
	for len(out) < limit {
		releases, resp, err := c.gh.Repositories.ListReleases(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, mapError(err)
		}
		for _, r := range releases {
			out = append(out, c.convert(r))
			if len(out) >= limit {
				break
			}
		}
		if resp.NextPage == 0 || len(out) >= limit {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) convert(r *github.Release) types.Release {
	assets := make([]types.Asset, 0, len(r.Assets))
	for _, a := range r.Assets {
		assets = append(assets, types.Asset{
			Name:      a.GetName(),
			URL:       a.GetBrowserDownloadURL(),
			Size:      int64(a.GetSize()),
			CreatedAt: timePtr(a.GetCreatedAt().Time),
		})
	}
	associateChecksums(assets, c.checksumPattern)
	return types.Release{
		Tag:          r.GetTagName(),
		PublishedAt:  r.GetPublishedAt().Time,
		IsPrerelease: r.GetPrerelease(),
		Assets:       assets,
	}
}

// associateChecksums matches each asset's checksum sibling per §4.5.1:
// render pattern with {filename} substitution and look for a matching
// asset name among the release's own assets.
func associateChecksums(assets []types.Asset, checksumPattern string) {
	if checksumPattern == "" {
		return
	}
	byName := make(map[string]*types.Asset, len(assets))
	for i := range assets {
		byName[assets[i].Name] = &assets[i]
	}
	for i := range assets {
		rendered, err := template.Render(checksumPattern, map[string]interface{}{"filename": assets[i].Name})
		if err != nil {
			continue
		}
		if checksumAsset, ok := byName[rendered]; ok && checksumAsset != &assets[i] {
			assets[i].ChecksumAsset = checksumAsset
		}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "404"):
		return apperrors.Wrap(apperrors.KindNotFound, "github release lookup", err)
	case strings.Contains(msg, "403") || strings.Contains(msg, "rate limit"):
		return apperrors.Wrap(apperrors.KindRateLimited, "github API", err)
	case strings.Contains(msg, "401"):
		return apperrors.Wrap(apperrors.KindAuthError, "github auth", err)
	default:
		return apperrors.Wrap(apperrors.KindUpstreamUnavailable, "github API", err)
	}
}
