// Package config implements the on-disk configuration store: one
// global document plus one document per application under apps/,
// default-value resolution, and atomic writes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/flanksource/commons/logger"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

const appsDirName = "apps"

// Store is the single source of truth for configuration; the
// orchestrator only ever reads an immutable Snapshot produced by Load.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir (expanded for ~ and env vars).
func NewStore(dir string) *Store {
	return &Store{Dir: ExpandPath(dir)}
}

// DefaultDir returns $XDG_CONFIG_HOME/appimage-updater or
// ~/.config/appimage-updater when unset, per §6.1.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "appimage-updater")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "appimage-updater")
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[2:])
	}
	return os.ExpandEnv(p)
}

// CollapsePath turns an absolute path under the user's home directory
// back into tilde-form for storage, per §4.1.
func CollapsePath(p string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return p
	}
	if p == home {
		return "~"
	}
	if strings.HasPrefix(p, home+string(filepath.Separator)) {
		return "~" + p[len(home):]
	}
	return p
}

func defaultGlobalConfig() types.GlobalConfig {
	return types.GlobalConfig{
		ConcurrentDownloads: 3,
		TimeoutSeconds:      30,
		UserAgent:           "appimage-updater/1.0",
		Defaults: types.GlobalDefaults{
			AutoSubdir:        true,
			RotationEnabled:   true,
			RetainCount:       3,
			SymlinkEnabled:    true,
			SymlinkPattern:    "{appname}.AppImage",
			ChecksumEnabled:   true,
			ChecksumAlgorithm: types.ChecksumSHA256,
			ChecksumPattern:   "{filename}.sha256",
			ChecksumRequired:  false,
			Prerelease:        false,
		},
	}
}

// Snapshot is the fully-resolved, immutable result of Load: the
// orchestrator consumes this and never mutates the store directly.
type Snapshot struct {
	Global types.GlobalConfig
	Apps   []types.ApplicationConfig
}

// Load reads the global file (missing ⇒ built-in defaults) and every
// application file under apps/, validates each, and returns a
// Snapshot.
func (s *Store) Load() (*Snapshot, error) {
	global, err := s.loadGlobal()
	if err != nil {
		return nil, err
	}

	apps, err := s.loadApps()
	if err != nil {
		return nil, err
	}

	if err := validateNames(apps); err != nil {
		return nil, err
	}
	if err := validateSymlinkOverlap(apps); err != nil {
		return nil, err
	}
	for i := range apps {
		if err := validateApp(apps[i]); err != nil {
			return nil, err
		}
	}

	return &Snapshot{Global: global, Apps: apps}, nil
}

func (s *Store) globalPath() string { return filepath.Join(s.Dir, "config.json") }

func (s *Store) appsDir() string { return filepath.Join(s.Dir, appsDirName) }

func (s *Store) appPath(name string) string {
	return filepath.Join(s.appsDir(), strings.ToLower(name)+".json")
}

func (s *Store) loadGlobal() (types.GlobalConfig, error) {
	log := logger.GetLogger()
	data, err := os.ReadFile(s.globalPath())
	if os.IsNotExist(err) {
		log.V(2).Infof("no global config at %s, using defaults", s.globalPath())
		return defaultGlobalConfig(), nil
	}
	if err != nil {
		return types.GlobalConfig{}, apperrors.Wrap(apperrors.KindConfigError, "read global config", err)
	}

	cfg := defaultGlobalConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return types.GlobalConfig{}, apperrors.Wrap(apperrors.KindConfigError, "parse global config", err)
	}
	return cfg, nil
}

func (s *Store) loadApps() ([]types.ApplicationConfig, error) {
	entries, err := os.ReadDir(s.appsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfigError, "read apps directory", err)
	}

	var apps []types.ApplicationConfig
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.appsDir(), entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindConfigError, "read "+path, err)
		}
		var doc types.ApplicationsFile
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, apperrors.Wrap(apperrors.KindConfigError, "parse "+path, err)
		}
		apps = append(apps, doc.Applications...)
	}

	sort.Slice(apps, func(i, j int) bool {
		return strings.ToLower(apps[i].Name) < strings.ToLower(apps[j].Name)
	})
	return apps, nil
}

// AddApp writes a new per-app file, validating it first.
func (s *Store) AddApp(app types.ApplicationConfig) error {
	if _, err := os.Stat(s.appPath(app.Name)); err == nil {
		return apperrors.New(apperrors.KindConfigError, fmt.Sprintf("application %q already exists", app.Name))
	}
	if err := validateApp(app); err != nil {
		return err
	}
	return s.writeApp(app)
}

// EditApp overwrites an existing per-app file.
func (s *Store) EditApp(app types.ApplicationConfig) error {
	if err := validateApp(app); err != nil {
		return err
	}
	return s.writeApp(app)
}

// RemoveApp deletes a per-app file.
func (s *Store) RemoveApp(name string) error {
	path := s.appPath(name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return apperrors.New(apperrors.KindConfigError, fmt.Sprintf("application %q does not exist", name))
		}
		return apperrors.Wrap(apperrors.KindConfigError, "remove "+path, err)
	}
	return nil
}

// SaveGlobal writes the global config atomically.
func (s *Store) SaveGlobal(cfg types.GlobalConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.KindConfigError, "marshal global config", err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindConfigError, "create config dir", err)
	}
	return atomicWrite(s.globalPath(), data)
}

func (s *Store) writeApp(app types.ApplicationConfig) error {
	doc := types.ApplicationsFile{Applications: []types.ApplicationConfig{app}}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.KindConfigError, "marshal app config", err)
	}
	if err := os.MkdirAll(s.appsDir(), 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindConfigError, "create apps dir", err)
	}
	return atomicWrite(s.appPath(app.Name), data)
}

// atomicWrite implements §4.1's "write to temp, fsync, rename",
// generalizing the download engine's dest+".tmp" -> os.Rename pattern.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return apperrors.Wrap(apperrors.KindConfigError, "open temp file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.KindConfigError, "write temp file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.KindConfigError, "fsync temp file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.KindConfigError, "close temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.KindConfigError, "rename into place", err)
	}
	return nil
}

func validateNames(apps []types.ApplicationConfig) error {
	seen := map[string]bool{}
	for _, app := range apps {
		key := strings.ToLower(app.Name)
		if seen[key] {
			return apperrors.New(apperrors.KindConfigError, fmt.Sprintf("duplicate application name %q (case-insensitive)", app.Name))
		}
		seen[key] = true
	}
	return nil
}

func validateSymlinkOverlap(apps []types.ApplicationConfig) error {
	seen := map[string]string{}
	for _, app := range apps {
		if !app.RotationEnabled || app.SymlinkPath == "" {
			continue
		}
		if owner, ok := seen[app.SymlinkPath]; ok {
			return apperrors.New(apperrors.KindConfigError,
				fmt.Sprintf("applications %q and %q share symlink_path %q", owner, app.Name, app.SymlinkPath))
		}
		seen[app.SymlinkPath] = app.Name
	}
	return nil
}

func validateApp(app types.ApplicationConfig) error {
	if app.Name == "" {
		return apperrors.New(apperrors.KindConfigError, "application name is required")
	}
	if app.Pattern != "" {
		if _, err := regexp.Compile(app.Pattern); err != nil {
			return apperrors.Wrap(apperrors.KindConfigError, "invalid pattern for "+app.Name, err)
		}
	}
	if app.VersionPattern != "" {
		if _, err := regexp.Compile(app.VersionPattern); err != nil {
			return apperrors.Wrap(apperrors.KindConfigError, "invalid version_pattern for "+app.Name, err)
		}
	}
	if app.RotationEnabled {
		if app.SymlinkPath == "" {
			return apperrors.New(apperrors.KindConfigError, "symlink_path is required when rotation_enabled for "+app.Name)
		}
		if !strings.HasSuffix(app.SymlinkPath, ".AppImage") {
			return apperrors.New(apperrors.KindConfigError, "symlink_path must end with .AppImage for "+app.Name)
		}
		if strings.ContainsAny(app.SymlinkPath, "\x00\n") {
			return apperrors.New(apperrors.KindConfigError, "symlink_path contains NUL or newline for "+app.Name)
		}
	}
	if app.RetainCount != 0 && (app.RetainCount < 1 || app.RetainCount > 10) {
		return apperrors.New(apperrors.KindConfigError, "retain_count must be in [1,10] for "+app.Name)
	}
	return nil
}
