package config

import (
	"os"
	"path/filepath"
	"strings"

	tmpl "github.com/appimage-updater/appimage-updater/pkg/template"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

// Effective is a fully-resolved application configuration: every field
// either set explicitly or merged down from global/built-in defaults.
type Effective struct {
	types.ApplicationConfig
	ResolvedDownloadDir string
	ResolvedSymlinkPath string
}

// Resolve merges built-in defaults ← global defaults ← per-app explicit
// values, per §4.1.
func Resolve(global types.GlobalConfig, app types.ApplicationConfig) Effective {
	eff := Effective{ApplicationConfig: app}

	if eff.Checksum.Algorithm == "" {
		eff.Checksum.Algorithm = global.Defaults.ChecksumAlgorithm
	}
	if eff.Checksum.Pattern == "" {
		eff.Checksum.Pattern = global.Defaults.ChecksumPattern
	}
	if eff.RetainCount == 0 {
		eff.RetainCount = global.Defaults.RetainCount
	}
	if eff.RetainCount == 0 {
		eff.RetainCount = 3
	}

	eff.ResolvedDownloadDir = resolveDownloadDir(global, app)
	eff.ResolvedSymlinkPath = resolveSymlinkPath(global, app)
	return eff
}

// resolveDownloadDir implements §4.1's path resolution. An absolute
// download_dir is used as is and a relative one is joined onto
// global.download_dir; an empty one resolves to
// global.download_dir/<lowercased name> when auto_subdir is true, else
// to global.download_dir. The working directory stands in for an unset
// global.download_dir.
func resolveDownloadDir(global types.GlobalConfig, app types.ApplicationConfig) string {
	dir := ExpandPath(app.DownloadDir)
	if filepath.IsAbs(dir) {
		return dir
	}

	base := ExpandPath(global.Defaults.DownloadDir)
	if base == "" {
		cwd, _ := os.Getwd()
		base = cwd
	}

	if global.Defaults.AutoSubdir {
		if dir != "" {
			return filepath.Join(base, dir)
		}
		return filepath.Join(base, strings.ToLower(app.Name))
	}
	if dir != "" {
		return filepath.Join(base, dir)
	}
	return base
}

func resolveSymlinkPath(global types.GlobalConfig, app types.ApplicationConfig) string {
	if app.SymlinkPath != "" {
		return ExpandPath(app.SymlinkPath)
	}
	if !global.Defaults.SymlinkEnabled || global.Defaults.SymlinkDir == "" {
		return ""
	}
	pattern := global.Defaults.SymlinkPattern
	if pattern == "" {
		pattern = "{appname}.AppImage"
	}
	name, err := tmpl.Render(pattern, map[string]interface{}{"appname": app.Name})
	if err != nil || name == "" {
		name = strings.ReplaceAll(pattern, "{appname}", app.Name)
	}
	return filepath.Join(ExpandPath(global.Defaults.SymlinkDir), name)
}

// RenderChecksumPattern substitutes {filename} into a checksum pattern
// template, e.g. "{filename}.sha256".
func RenderChecksumPattern(pattern, filename string) string {
	out, err := tmpl.Render(pattern, map[string]interface{}{"filename": filename})
	if err != nil || out == "" {
		return strings.ReplaceAll(pattern, "{filename}", filename)
	}
	return out
}
