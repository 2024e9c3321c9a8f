// Package repository defines the polymorphic release-source capability
// (§4.5) and the host-based factory that picks a concrete variant for
// an application's configured URL. Client implementations live in
// sibling packages and satisfy this interface structurally — they do
// not import this package, which keeps the factory's dependency on
// them one-directional.
package repository

import (
	"context"
	"net/http"
	"strings"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
	"github.com/appimage-updater/appimage-updater/pkg/repository/direct"
	"github.com/appimage-updater/appimage-updater/pkg/repository/dynamic"
	ghrepo "github.com/appimage-updater/appimage-updater/pkg/repository/github"
	glrepo "github.com/appimage-updater/appimage-updater/pkg/repository/gitlab"
	"github.com/appimage-updater/appimage-updater/pkg/repository/sourceforge"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

// ProgressiveFetchCeiling bounds how many releases a forge-API client
// will walk while searching for the first matching stable release.
const ProgressiveFetchCeiling = 1600

// Client is the capability every repository variant implements.
type Client interface {
	ListReleases(ctx context.Context, limit int) ([]types.Release, error)
	GetLatestRelease(ctx context.Context) (types.Release, error)
	NormalizeURL() string
	DetectURL(url string) bool
	Probe(ctx context.Context) error
}

// Config is the shared construction input for every variant.
type Config struct {
	URL             string
	Pattern         string
	VersionPattern  string
	ChecksumPattern string
	HTTPClient      *http.Client
	UserAgent       string
	AppName         string
	Token           string // embedded-in-config fallback, lowest priority
}

var knownForgeHosts = map[string]types.SourceType{
	"github.com":    types.SourceForgeAPIGithub,
	"www.github.com": types.SourceForgeAPIGithub,
	"gitlab.com":    types.SourceForgeAPIGitlab,
}

// Detect picks a SourceType for a URL when the application config does
// not pin one explicitly, per §4.5.5.
func Detect(ctx context.Context, cfg Config) (types.SourceType, error) {
	host := hostOf(cfg.URL)
	if st, ok := knownForgeHosts[host]; ok {
		return st, nil
	}
	if host == "sourceforge.net" || strings.HasSuffix(host, ".sourceforge.net") {
		return types.SourceSourceForge, nil
	}

	if probeForgeAPI(ctx, cfg, "/api/v4/") == nil {
		return types.SourceForgeAPIGitlab, nil
	}
	if probeForgeAPI(ctx, cfg, "/api/v3/") == nil {
		return types.SourceForgeAPIGithub, nil
	}

	dyn := dynamic.New(dynamic.Config(cfg))
	if _, err := dyn.GetLatestRelease(ctx); err == nil {
		return types.SourceDynamic, nil
	}

	return types.SourceDirect, nil
}

func probeForgeAPI(ctx context.Context, cfg Config, suffix string) error {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	url := strings.TrimRight(cfg.URL, "/") + suffix
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apperrors.New(apperrors.KindNotFound, "forge API probe failed")
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return apperrors.New(apperrors.KindNotFound, "forge API probe returned a non-JSON response")
	}
	return nil
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimPrefix(rawURL, "https://")
	rawURL = strings.TrimPrefix(rawURL, "http://")
	if idx := strings.IndexAny(rawURL, "/?"); idx != -1 {
		rawURL = rawURL[:idx]
	}
	return strings.ToLower(rawURL)
}

// New constructs the Client variant named by sourceType.
func New(sourceType types.SourceType, cfg Config) (Client, error) {
	switch sourceType {
	case types.SourceForgeAPIGithub:
		return ghrepo.New(ghrepo.Config(cfg)), nil
	case types.SourceForgeAPIGitlab:
		return glrepo.New(glrepo.Config(cfg)), nil
	case types.SourceSourceForge:
		return sourceforge.New(sourceforge.Config(cfg)), nil
	case types.SourceDynamic:
		return dynamic.New(dynamic.Config(cfg)), nil
	case types.SourceDirect:
		return direct.New(direct.Config(cfg)), nil
	default:
		return nil, apperrors.New(apperrors.KindConfigError, "unknown source_type: "+string(sourceType))
	}
}
