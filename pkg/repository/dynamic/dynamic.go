// Package dynamic implements the dynamic-page scrape variant (§4.5.4):
// an arbitrary HTML download page, not a forge API or a SourceForge
// file listing. Shares the goquery anchor-walking idiom with
// pkg/repository/sourceforge.
package dynamic

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
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
	pageURL        string
	pattern        *regexp.Regexp
	versionPattern *regexp.Regexp
	httpClient     *http.Client
	userAgent      string
}

var pageVersionScan = regexp.MustCompile(`\bv?(\d+\.\d+(?:\.\d+)*)\b`)

func New(cfg Config) *Client {
	var pattern *regexp.Regexp
	if cfg.Pattern != "" {
		pattern, _ = regexp.Compile(cfg.Pattern)
	}
	var vp *regexp.Regexp
	if cfg.VersionPattern != "" {
		vp, _ = regexp.Compile(cfg.VersionPattern)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{pageURL: cfg.URL, pattern: pattern, versionPattern: vp, httpClient: httpClient, userAgent: cfg.UserAgent}
}

func (c *Client) NormalizeURL() string { return strings.TrimRight(c.pageURL, "/") }

// DetectURL always reports true: dynamic is an explicit fallback the
// factory picks once probing finds download links but no forge API
// or SourceForge listing, per §8's factory round-trip invariant.
func (c *Client) DetectURL(rawURL string) bool { return true }

func (c *Client) Probe(ctx context.Context) error {
	_, _, err := c.fetch(ctx)
	return err
}

func (c *Client) ListReleases(ctx context.Context, limit int) ([]types.Release, error) {
	release, err := c.GetLatestRelease(ctx)
	if err != nil {
		return nil, err
	}
	return []types.Release{release}, nil
}

// GetLatestRelease fetches the page, extracts AppImage download links
// by anchor-text or href, and derives a version from (1) version_pattern
// over the chosen asset's filename, or (2) a regex scan of the page text.
func (c *Client) GetLatestRelease(ctx context.Context) (types.Release, error) {
	doc, pageText, err := c.fetch(ctx)
	if err != nil {
		return types.Release{}, err
	}

	var assets []types.Asset
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		text := sel.Text()
		if !looksLikeAppImageLink(href, text, c.pattern) {
			return
		}
		resolved := c.resolveHref(href)
		assets = append(assets, types.Asset{Name: filenameFromHref(resolved), URL: resolved, Size: -1})
	})

	if len(assets) == 0 {
		return types.Release{}, apperrors.New(apperrors.KindUnparseableSource, "no .AppImage links found on page")
	}

	version := ""
	if c.versionPattern != nil {
		if m := c.versionPattern.FindStringSubmatch(assets[0].Name); len(m) > 1 {
			version = m[1]
		}
	}
	if version == "" {
		if m := pageVersionScan.FindStringSubmatch(pageText); len(m) > 1 {
			version = m[1]
		}
	}

	return types.Release{Tag: version, Assets: assets}, nil
}

func looksLikeAppImageLink(href, text string, pattern *regexp.Regexp) bool {
	lowerHref := strings.ToLower(href)
	lowerText := strings.ToLower(text)
	if !strings.Contains(lowerHref, ".appimage") && !strings.Contains(lowerText, "appimage") {
		return false
	}
	if pattern != nil {
		return pattern.MatchString(href) || pattern.MatchString(text)
	}
	return true
}

func (c *Client) resolveHref(href string) string {
	base, err := url.Parse(c.pageURL)
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
	parts := strings.Split(strings.TrimRight(u.Path, "/"), "/")
	return parts[len(parts)-1]
}

func (c *Client) fetch(ctx context.Context) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL, nil)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.KindTransportError, "build request", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.KindUpstreamUnavailable, "fetch page", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", apperrors.New(apperrors.KindUpstreamUnavailable, "page returned error status")
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.KindUnparseableSource, "parse page HTML", err)
	}
	return doc, doc.Text(), nil
}
