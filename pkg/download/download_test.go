package download

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appimage-updater/appimage-updater/pkg/rotate"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

func TestRunDownloadsVerifiesAndRotates(t *testing.T) {
	content := []byte("fake-appimage-binary")
	sum := sha256.Sum256(content)
	expected := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	req := Request{
		ApplicationName:   "FreeCAD",
		Version:           "0.22.0",
		Asset:             types.Asset{Name: "FreeCAD-0.22.0-Linux-x86_64.AppImage", URL: srv.URL},
		DestDir:           dir,
		ChecksumEnabled:   true,
		ChecksumAlgorithm: types.ChecksumSHA256,
		ChecksumContent:   expected,
		Rotation: &rotate.Plan{
			Dir: dir, BaseName: "FreeCAD.AppImage", RetainCount: 3,
			SymlinkPath: filepath.Join(dir, "freecad.AppImage"),
		},
	}

	result := Run(context.Background(), req, Options{})
	require.Empty(t, result.Error)
	assert.Equal(t, "verified", result.ChecksumVerified)
	assert.Equal(t, filepath.Join(dir, "FreeCAD.AppImage.current"), result.Path)

	target, err := os.Readlink(req.Rotation.SymlinkPath)
	require.NoError(t, err)
	assert.Equal(t, result.Path, target)

	_, err = os.Stat(filepath.Join(dir, req.Asset.Name+".partial"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunChecksumMismatchRemovesPartialAndLeavesNoInstall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("actual-content"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	req := Request{
		ApplicationName:   "FreeCAD",
		Asset:             types.Asset{Name: "FreeCAD.AppImage", URL: srv.URL},
		DestDir:           dir,
		ChecksumEnabled:   true,
		ChecksumAlgorithm: types.ChecksumSHA256,
		ChecksumContent:   "0000000000000000000000000000000000000000000000000000000000000000",
	}

	result := Run(context.Background(), req, Options{})
	assert.NotEmpty(t, result.Error)

	_, err := os.Stat(filepath.Join(dir, req.Asset.Name+".partial"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunExtractsZipBeforeInstall(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("App.AppImage")
	require.NoError(t, err)
	_, err = w.Write([]byte("binary"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	zipBytes, err := os.ReadFile(zipPath)
	require.NoError(t, err)
	os.Remove(zipPath)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	}))
	defer srv.Close()

	req := Request{
		ApplicationName: "App",
		Asset:           types.Asset{Name: "bundle.zip", URL: srv.URL},
		DestDir:         dir,
	}

	result := Run(context.Background(), req, Options{})
	require.Empty(t, result.Error)
	assert.Equal(t, filepath.Join(dir, "App.AppImage"), result.Path)

	info, err := os.Stat(result.Path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)
}

func TestRunPreservesZipWithNoAppImageInside(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("no binary here"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	zipBytes, err := os.ReadFile(zipPath)
	require.NoError(t, err)
	os.Remove(zipPath)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	}))
	defer srv.Close()

	req := Request{
		ApplicationName: "App",
		Asset:           types.Asset{Name: "bundle.zip", URL: srv.URL},
		DestDir:         dir,
	}

	result := Run(context.Background(), req, Options{})
	assert.NotEmpty(t, result.Error)

	partial := filepath.Join(dir, req.Asset.Name+".partial")
	info, err := os.Stat(partial)
	require.NoError(t, err, "expected the zip to be preserved on disk")
	assert.NotZero(t, info.Size())
}

func TestRunRequiredChecksumMissingFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	req := Request{
		ApplicationName:  "App",
		Asset:            types.Asset{Name: "App.AppImage", URL: srv.URL},
		DestDir:          dir,
		ChecksumRequired: true,
	}

	result := Run(context.Background(), req, Options{})
	assert.NotEmpty(t, result.Error)
}
