// Package direct implements the direct-URL repository variant (§4.5.3):
// the configured URL is itself the single downloadable artifact.
// Grounded on pkg/manager/direct/direct.go's Resolve, extended with
// version derivation from response headers since the teacher always
// already knows the version it is installing.
package direct

import (
	"context"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
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
	url            string
	versionPattern *regexp.Regexp
	httpClient     *http.Client
	userAgent      string
}

func New(cfg Config) *Client {
	var vp *regexp.Regexp
	if cfg.VersionPattern != "" {
		if compiled, err := regexp.Compile(cfg.VersionPattern); err == nil {
			vp = compiled
		}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: cfg.URL, versionPattern: vp, httpClient: httpClient, userAgent: cfg.UserAgent}
}

func (c *Client) NormalizeURL() string { return c.url }

// DetectURL always reports true: direct is the explicit last-resort
// variant honored by the factory when nothing else claims a URL, per
// §8's factory round-trip invariant.
func (c *Client) DetectURL(rawURL string) bool { return true }

// Probe issues a HEAD request to confirm the URL resolves.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransportError, "build probe request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUpstreamUnavailable, "probe direct URL", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apperrors.New(apperrors.KindNotFound, "direct URL unreachable")
	}
	return nil
}

// ListReleases always returns a single synthetic release describing
// the configured URL.
func (c *Client) ListReleases(ctx context.Context, limit int) ([]types.Release, error) {
	release, err := c.GetLatestRelease(ctx)
	if err != nil {
		return nil, err
	}
	return []types.Release{release}, nil
}

// GetLatestRelease issues a HEAD request to derive size, Last-Modified
// and ETag, then resolves a version via (in order): version_pattern
// over the filename, the Last-Modified header, the ETag header, or —
// last resort — the current time.
func (c *Client) GetLatestRelease(ctx context.Context) (types.Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return types.Release{}, apperrors.Wrap(apperrors.KindTransportError, "build request", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.Release{}, apperrors.Wrap(apperrors.KindUpstreamUnavailable, "head request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return types.Release{}, apperrors.New(apperrors.KindNotFound, "direct URL returned error status")
	}

	filename := filepath.Base(c.url)
	version := c.versionFromFilename(filename)
	if version == "" {
		version = c.versionFromHeader(resp.Header.Get("Last-Modified"))
	}
	if version == "" {
		version = trimQuotes(resp.Header.Get("ETag"))
	}
	if version == "" {
		version = time.Now().UTC().Format("20060102150405")
	}

	size := int64(-1)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if parsed, err := strconv.ParseInt(cl, 10, 64); err == nil {
			size = parsed
		}
	}

	asset := types.Asset{Name: filename, URL: c.url, Size: size}
	var createdAt time.Time
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			createdAt = t
			asset.CreatedAt = &t
		}
	}

	return types.Release{
		Tag:         version,
		PublishedAt: createdAt,
		Assets:      []types.Asset{asset},
	}, nil
}

func (c *Client) versionFromFilename(filename string) string {
	if c.versionPattern == nil {
		return ""
	}
	match := c.versionPattern.FindStringSubmatch(filename)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

func (c *Client) versionFromHeader(lastModified string) string {
	if lastModified == "" {
		return ""
	}
	t, err := http.ParseTime(lastModified)
	if err != nil {
		return ""
	}
	return t.UTC().Format("20060102150405")
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
