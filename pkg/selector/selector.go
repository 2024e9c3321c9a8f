// Package selector picks one Asset from a Release according to the
// three-factor architecture/platform/format compatibility score in
// §4.4.
package selector

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
	"github.com/appimage-updater/appimage-updater/pkg/platform"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

// InteractiveSelector is the injected capability for breaking a tie
// when running interactively; non-interactive runs use PickFirst.
type InteractiveSelector interface {
	Pick(candidates []scored) (*types.Asset, bool)
}

// PickFirst is the default non-interactive InteractiveSelector.
type PickFirst struct{}

func (PickFirst) Pick(candidates []scored) (*types.Asset, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	return &candidates[0].asset, true
}

type scored struct {
	asset    types.Asset
	arch     int
	platform int
	format   int
}

func (s scored) total() int { return s.arch + s.platform + s.format }

// Select runs the full algorithm: filter by pattern, score survivors,
// drop zero-score assets, and resolve ties.
func Select(release types.Release, pattern string, plat platform.Platform, interactive InteractiveSelector) (*types.Asset, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindNoMatchingAsset, "invalid pattern", err)
	}

	var candidates []scored
	for _, asset := range release.Assets {
		if !re.MatchString(asset.Name) {
			continue
		}
		s := score(asset, plat)
		if s.arch == 0 || s.platform == 0 {
			continue
		}
		candidates = append(candidates, s)
	}

	if len(candidates) == 0 {
		return nil, apperrors.New(apperrors.KindNoMatchingAsset, "no asset matches pattern and host compatibility")
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.total() != b.total() {
			return a.total() > b.total()
		}
		aIsAppImage := strings.HasSuffix(strings.ToLower(a.asset.Name), ".appimage")
		bIsAppImage := strings.HasSuffix(strings.ToLower(b.asset.Name), ".appimage")
		if aIsAppImage != bIsAppImage {
			return aIsAppImage
		}
		at, bt := a.asset.CreatedAt, b.asset.CreatedAt
		if at != nil && bt != nil && !at.Equal(*bt) {
			return at.After(*bt)
		}
		return false
	})

	topScore := candidates[0].total()
	var tied []scored
	for _, c := range candidates {
		if c.total() == topScore {
			tied = append(tied, c)
		}
	}

	if len(tied) > 1 && interactive != nil {
		if picked, ok := interactive.Pick(tied); ok {
			return picked, nil
		}
	}

	return &candidates[0].asset, nil
}

// score computes the arch/platform/format sub-scores for one asset per
// §4.4 step 2, generalizing pkg/manager/asset_filter.go's alias-table
// filter into numeric scores.
func score(asset types.Asset, plat platform.Platform) scored {
	return scored{
		asset:    asset,
		arch:     archScore(asset.Name, plat),
		platform: platformScore(asset.Name, plat),
		format:   formatScore(asset.Name, plat),
	}
}

func archScore(name string, plat platform.Platform) int {
	lower := strings.ToLower(name)

	for _, alias := range platform.ArchAliases(plat.Arch) {
		if strings.Contains(lower, strings.ToLower(alias)) {
			if alias == plat.Arch {
				return 100
			}
			return 80
		}
	}

	allArches := []string{"x86_64", "amd64", "x64", "arm64", "aarch64", "armv7", "armv7l", "armhf", "i686", "i386", "x86"}
	for _, tok := range allArches {
		if strings.Contains(lower, tok) {
			return 0
		}
	}
	return 50 // absent architecture token
}

func platformScore(name string, plat platform.Platform) int {
	lower := strings.ToLower(name)
	platformTokens := map[string][]string{
		"linux":   {"linux"},
		"darwin":  {"darwin", "macos", "osx"},
		"windows": {"windows", "win32", "win64", ".exe"},
	}

	for osName, tokens := range platformTokens {
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				if osName == plat.OS {
					return 100
				}
				return 0
			}
		}
	}
	return 50 // absent platform token, treated as generic
}

// formatScore ranks an asset by file format per §4.4 step 2's fixed
// table: AppImage outranks the host's native package format, which
// outranks a generic tarball, which outranks a zip.
func formatScore(name string, plat platform.Platform) int {
	lower := strings.ToLower(name)
	native := strings.ToLower(plat.NativeFormat())

	switch {
	case strings.HasSuffix(lower, ".appimage"):
		return 70
	case native != "" && strings.HasSuffix(lower, native):
		return 65
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"),
		strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return 50
	case strings.HasSuffix(lower, ".zip"):
		return 45
	default:
		return 0
	}
}

// DeriveAttributes fills in Asset.Architecture/Platform/FileExtension
// by scanning the filename, per §4.2.
func DeriveAttributes(asset *types.Asset, plat platform.Platform) {
	lower := strings.ToLower(asset.Name)
	for _, canon := range []string{"x86_64", "arm64", "armv7", "i686"} {
		for _, alias := range platform.ArchAliases(canon) {
			if strings.Contains(lower, strings.ToLower(alias)) {
				asset.Architecture = canon
			}
		}
	}
	for _, osName := range []string{"linux", "darwin", "windows"} {
		if strings.Contains(lower, osName) {
			asset.Platform = osName
		}
	}
	asset.FileExtension = filepath.Ext(asset.Name)
}
