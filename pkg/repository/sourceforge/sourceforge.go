// Package sourceforge implements the SourceForge file-listing scrape
// variant (§4.5.2). No teacher analogue exists for HTML scraping; the
// goquery usage here follows the anchor-walking idiom common to the
// pack's other scraping dependents (see DESIGN.md).
package sourceforge

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

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
	listingURL     string
	versionPattern *regexp.Regexp
	httpClient     *http.Client
	userAgent      string
}

var defaultVersionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[_-](\d+\.\d+(?:\.\d+)*)`),
	regexp.MustCompile(`(\d{4}\.\d{2}\.\d{2})`),
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
	return &Client{listingURL: cfg.URL, versionPattern: vp, httpClient: httpClient, userAgent: cfg.UserAgent}
}

func (c *Client) NormalizeURL() string { return strings.TrimRight(c.listingURL, "/") }

// DetectURL reports whether url points at a sourceforge.net project
// listing, per §8's factory round-trip invariant.
func (c *Client) DetectURL(rawURL string) bool {
	host := hostOf(rawURL)
	return host == "sourceforge.net" || strings.HasSuffix(host, ".sourceforge.net")
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimPrefix(rawURL, "https://")
	rawURL = strings.TrimPrefix(rawURL, "http://")
	if idx := strings.IndexAny(rawURL, "/?"); idx != -1 {
		rawURL = rawURL[:idx]
	}
	return strings.ToLower(rawURL)
}

func (c *Client) Probe(ctx context.Context) error {
	_, err := c.fetchDocument(ctx, c.listingURL)
	return err
}

// ListReleases scrapes the file listing once and returns a single
// synthetic Release — SourceForge's project listing is not versioned
// per-release the way a forge API is.
func (c *Client) ListReleases(ctx context.Context, limit int) ([]types.Release, error) {
	release, err := c.GetLatestRelease(ctx)
	if err != nil {
		return nil, err
	}
	return []types.Release{release}, nil
}

// GetLatestRelease extracts .AppImage anchors from the listing page,
// issues a HEAD request per anchor for size and last-modified, and
// reconstructs a single synthetic Release whose tag comes from the
// newest asset's filename.
func (c *Client) GetLatestRelease(ctx context.Context) (types.Release, error) {
	doc, err := c.fetchDocument(ctx, c.listingURL)
	if err != nil {
		return types.Release{}, err
	}

	var assets []types.Asset
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if !strings.Contains(strings.ToLower(href), ".appimage") {
			return
		}
		resolved := c.resolveHref(href)
		name := filenameFromHref(resolved)
		assets = append(assets, types.Asset{Name: name, URL: resolved, Size: -1})
	})

	if len(assets) == 0 {
		return types.Release{}, apperrors.New(apperrors.KindUnparseableSource, "no .AppImage links found on SourceForge listing")
	}

	for i := range assets {
		c.enrichWithHead(ctx, &assets[i])
	}

	newest := assets[0]
	for _, a := range assets {
		if a.CreatedAt != nil && (newest.CreatedAt == nil || a.CreatedAt.After(*newest.CreatedAt)) {
			newest = a
		}
	}

	return types.Release{
		Tag:    c.extractVersion(newest.Name),
		Assets: assets,
	}, nil
}

func (c *Client) enrichWithHead(ctx context.Context, asset *types.Asset) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, asset.URL, nil)
	if err != nil {
		return
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if parsed, err := strconv.ParseInt(cl, 10, 64); err == nil {
			asset.Size = parsed
		}
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			asset.CreatedAt = &t
		}
	}
}

func (c *Client) extractVersion(filename string) string {
	if c.versionPattern != nil {
		if m := c.versionPattern.FindStringSubmatch(filename); len(m) > 1 {
			return m[1]
		}
	}
	for _, p := range defaultVersionPatterns {
		if m := p.FindStringSubmatch(filename); len(m) > 1 {
			return m[1]
		}
	}
	return filename
}

func (c *Client) resolveHref(href string) string {
	base, err := url.Parse(c.listingURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func filenameFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	// SourceForge file links end in /download after the file name.
	path := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/download")
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

func (c *Client) fetchDocument(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransportError, "build request", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstreamUnavailable, "fetch listing", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apperrors.New(apperrors.KindUpstreamUnavailable, "listing page returned error status")
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnparseableSource, "parse listing HTML", err)
	}
	return doc, nil
}
