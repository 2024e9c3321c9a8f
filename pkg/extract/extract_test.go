package extract

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestExtractAppImageSingleMatch(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	writeZip(t, zipPath, map[string]string{
		"README.md":                "hello",
		"FreeCAD-0.22.0.AppImage":  "binarydata",
	})

	result, err := ExtractAppImage(zipPath, dir)
	require.NoError(t, err)
	assert.False(t, result.MultipleFound)
	assert.Equal(t, filepath.Join(dir, "FreeCAD-0.22.0.AppImage"), result.ExtractedPath)

	data, err := os.ReadFile(result.ExtractedPath)
	require.NoError(t, err)
	assert.Equal(t, "binarydata", string(data))
}

func TestExtractAppImageNestedAndCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	writeZip(t, zipPath, map[string]string{
		"payload/App.appimage": "binarydata",
	})

	result, err := ExtractAppImage(zipPath, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "App.appimage"), result.ExtractedPath)
}

func TestExtractAppImageMultipleMatchesWarns(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	writeZip(t, zipPath, map[string]string{
		"a.AppImage": "1",
		"b.AppImage": "2",
	})

	result, err := ExtractAppImage(zipPath, dir)
	require.NoError(t, err)
	assert.True(t, result.MultipleFound)
	assert.Len(t, result.CandidateNames, 2)
}

func TestExtractAppImageNoneFoundLeavesArchive(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	writeZip(t, zipPath, map[string]string{
		"README.md": "hello",
	})

	_, err := ExtractAppImage(zipPath, dir)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindNoAppImageInArchive))
	_, statErr := os.Stat(zipPath)
	assert.NoError(t, statErr)
}

func TestIsZip(t *testing.T) {
	assert.True(t, IsZip("thing.ZIP"))
	assert.False(t, IsZip("thing.AppImage"))
}
