package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appimage-updater/appimage-updater/pkg/types"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	global := defaultGlobalConfig()
	global.ConcurrentDownloads = 5
	require.NoError(t, store.SaveGlobal(global))

	app := types.ApplicationConfig{
		Name:            "FreeCAD",
		SourceType:      types.SourceForgeAPIGithub,
		URL:             "https://github.com/FreeCAD/FreeCAD",
		Pattern:         `(?i)FreeCAD.*\.AppImage(\.(|current|old[0-9]*))?$`,
		Enabled:         true,
		RotationEnabled: true,
		RetainCount:     3,
		SymlinkPath:     "~/bin/freecad.AppImage",
		Checksum: types.ChecksumConfig{
			Enabled:   true,
			Algorithm: types.ChecksumSHA256,
			Pattern:   "{filename}.sha256",
		},
	}
	require.NoError(t, store.AddApp(app))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Global.ConcurrentDownloads)
	require.Len(t, snap.Apps, 1)
	assert.Equal(t, "FreeCAD", snap.Apps[0].Name)
	assert.Equal(t, "~/bin/freecad.AppImage", snap.Apps[0].SymlinkPath)
}

func TestAddAppRejectsDuplicate(t *testing.T) {
	store := NewStore(t.TempDir())
	app := types.ApplicationConfig{Name: "foo", Pattern: ".*"}
	require.NoError(t, store.AddApp(app))
	err := store.AddApp(app)
	assert.Error(t, err)
}

func TestValidateRotationRequiresSymlink(t *testing.T) {
	err := validateApp(types.ApplicationConfig{Name: "foo", RotationEnabled: true})
	assert.Error(t, err)
}

func TestValidateSymlinkMustEndWithAppImage(t *testing.T) {
	err := validateApp(types.ApplicationConfig{
		Name: "foo", RotationEnabled: true, SymlinkPath: "/bin/foo",
	})
	assert.Error(t, err)
}

func TestValidateSymlinkOverlapRejected(t *testing.T) {
	apps := []types.ApplicationConfig{
		{Name: "a", RotationEnabled: true, SymlinkPath: "/bin/x.AppImage"},
		{Name: "b", RotationEnabled: true, SymlinkPath: "/bin/x.AppImage"},
	}
	err := validateSymlinkOverlap(apps)
	assert.Error(t, err)
}

func TestResolveDownloadDirAutoSubdir(t *testing.T) {
	global := types.GlobalConfig{Defaults: types.GlobalDefaults{DownloadDir: "/data", AutoSubdir: true}}
	app := types.ApplicationConfig{Name: "FreeCAD"}
	dir := resolveDownloadDir(global, app)
	assert.Equal(t, filepath.Join("/data", "freecad"), dir)
}

func TestCollapsePathRoundTrip(t *testing.T) {
	home, _ := expandHomeForTest()
	collapsed := CollapsePath(filepath.Join(home, "bin", "app.AppImage"))
	assert.Equal(t, filepath.Join("~", "bin", "app.AppImage"), collapsed)
}

func expandHomeForTest() (string, error) {
	return ExpandPath("~"), nil
}
