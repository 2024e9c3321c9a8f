// Package gitlab implements the forge-API repository client (§4.5.1)
// against a GitLab instance's REST API. No teacher client exists for
// GitLab; this is authored fresh around a single REST request helper
// (get), adapted to GitLab's /projects/:id/releases endpoint shape.
// Requests are not retried: each failure is returned once as a typed
// apperrors.Error.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
	"github.com/appimage-updater/appimage-updater/pkg/template"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

// Config mirrors repository.Config field-for-field.
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
	baseURL         string
	projectPath     string
	pattern         *regexp.Regexp
	checksumPattern string
	token           string
	httpClient      *http.Client
}

// New builds a GitLab client for the project identified by cfg.URL.
// Token resolution order: CI_JOB_TOKEN-style GITLAB_TOKEN env var, an
// app-specific env var, then the embedded config token.
func New(cfg Config) *Client {
	base, projectPath := splitProject(cfg.URL)

	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		pattern = regexp.MustCompile(".*")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:         base,
		projectPath:     projectPath,
		pattern:         pattern,
		checksumPattern: cfg.ChecksumPattern,
		token:           resolveToken(cfg.AppName, cfg.Token),
		httpClient:      httpClient,
	}
}

func resolveToken(appName, embedded string) string {
	if v := os.Getenv("GITLAB_TOKEN"); v != "" {
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

// splitProject extracts the GitLab instance base URL and the plain
// project path (owner/repo, subgroups included); projectAPI URL-encodes
// the path for the :id param.
func splitProject(rawURL string) (base, projectPath string) {
	scheme := "https://"
	trimmed := strings.TrimSuffix(strings.TrimRight(rawURL, "/"), ".git")
	switch {
	case strings.HasPrefix(trimmed, "https://"):
		trimmed = strings.TrimPrefix(trimmed, "https://")
	case strings.HasPrefix(trimmed, "http://"):
		scheme = "http://"
		trimmed = strings.TrimPrefix(trimmed, "http://")
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return scheme + "gitlab.com", ""
	}
	return scheme + parts[0], parts[1]
}

// NormalizeURL reconstructs the canonical project URL.
func (c *Client) NormalizeURL() string {
	return c.baseURL + "/" + c.projectPath
}

// DetectURL reports whether url names a project on this client's
// GitLab instance, per §8's factory round-trip invariant.
func (c *Client) DetectURL(rawURL string) bool {
	base, projectPath := splitProject(rawURL)
	return projectPath != "" && strings.EqualFold(base, c.baseURL)
}

type glRelease struct {
	TagName     string     `json:"tag_name"`
	ReleasedAt  time.Time  `json:"released_at"`
	UpcomingRel bool       `json:"upcoming_release"`
	Assets      glReleaseAssets `json:"assets"`
}

type glReleaseAssets struct {
	Links []glAssetLink `json:"links"`
}

type glAssetLink struct {
	Name           string `json:"name"`
	DirectAssetURL string `json:"direct_asset_url"`
	URL            string `json:"url"`
}

// Probe issues a lightweight project lookup to verify reachability.
func (c *Client) Probe(ctx context.Context) error {
	var dest struct {
		ID int `json:"id"`
	}
	return c.get(ctx, c.projectAPI(""), &dest)
}

func (c *Client) projectAPI(suffix string) string {
	return c.baseURL + "/api/v4/projects/" + url.PathEscape(c.projectPath) + suffix
}

func (c *Client) get(ctx context.Context, apiURL string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransportError, "build gitlab request", err)
	}
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUpstreamUnavailable, "gitlab API", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return apperrors.New(apperrors.KindNotFound, "gitlab project not found: "+c.projectPath)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(apperrors.KindAuthError, "gitlab auth rejected")
	case http.StatusTooManyRequests:
		return apperrors.New(apperrors.KindRateLimited, "gitlab rate limited")
	default:
		return apperrors.New(apperrors.KindUpstreamUnavailable, fmt.Sprintf("gitlab API HTTP %d", resp.StatusCode))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return apperrors.Wrap(apperrors.KindUnparseableSource, "decode gitlab response", err)
		}
	}
	return nil
}

// ListReleases requests up to limit releases (GitLab paginates at 100
// per page via ?per_page&page).
func (c *Client) ListReleases(ctx context.Context, limit int) ([]types.Release, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 1600 {
		limit = 1600
	}

	var out []types.Release
	page := 1
	for len(out) < limit {
		perPage := 100
		if remaining := limit - len(out); remaining < perPage {
			perPage = remaining
		}
		apiURL := c.projectAPI("/releases") + "?per_page=" + strconv.Itoa(perPage) + "&page=" + strconv.Itoa(page)

		var batch []glRelease
		if err := c.get(ctx, apiURL, &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for _, r := range batch {
			out = append(out, c.convert(r))
		}
		if len(batch) < perPage {
			break
		}
		page++
	}
	return out, nil
}

// GetLatestRelease returns the most recent release.
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

// FindFirstStableMatching mirrors the GitHub client's progressive-fetch
// rule (§4.5.1): page through releases up to the ceiling, returning
// the first non-prerelease with a matching asset.
func (c *Client) FindFirstStableMatching(ctx context.Context) (types.Release, bool, error) {
	const ceiling = 1600
	page := 1
	seen := 0
	for seen < ceiling {
		apiURL := c.projectAPI("/releases") + "?per_page=100&page=" + strconv.Itoa(page)
		var batch []glRelease
		if err := c.get(ctx, apiURL, &batch); err != nil {
			return types.Release{}, false, err
		}
		if len(batch) == 0 {
			break
		}
		for _, r := range batch {
			seen++
			if r.UpcomingRel {
				continue
			}
			if c.hasMatchingAsset(r) {
				return c.convert(r), true, nil
			}
			if seen >= ceiling {
				break
			}
		}
		page++
	}
	return types.Release{}, false, nil
}

func (c *Client) hasMatchingAsset(r glRelease) bool {
	for _, link := range r.Assets.Links {
		if c.pattern.MatchString(link.Name) {
			return true
		}
	}
	return false
}

func (c *Client) convert(r glRelease) types.Release {
	assets := make([]types.Asset, 0, len(r.Assets.Links))
	for _, link := range r.Assets.Links {
		dl := link.DirectAssetURL
		if dl == "" {
			dl = link.URL
		}
		assets = append(assets, types.Asset{Name: link.Name, URL: dl, Size: -1})
	}
	associateChecksums(assets, c.checksumPattern)
	return types.Release{
		Tag:          r.TagName,
		PublishedAt:  r.ReleasedAt,
		IsPrerelease: r.UpcomingRel,
		Assets:       assets,
	}
}

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
