package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appimage-updater/appimage-updater/pkg/types"
)

func TestParseChecksumFileBareHash(t *testing.T) {
	hash, err := ParseChecksumFile("abc123\n", "anything.AppImage")
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)
}

func TestParseChecksumFileHashFilenameLines(t *testing.T) {
	content := "deadbeef  FreeCAD-0.22.0.AppImage\ncafebabe  other.AppImage\n"
	hash, err := ParseChecksumFile(content, "FreeCAD-0.22.0.AppImage")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", hash)
}

func TestVerifyDetectsMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	result := Verify(path, types.ChecksumSHA256, "0000")
	assert.False(t, result.Verified)
	assert.NotEmpty(t, result.Error)
}

func TestVerifySucceedsOnMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	expected, err := HashFile(path, types.ChecksumSHA256)
	require.NoError(t, err)

	result := Verify(path, types.ChecksumSHA256, expected)
	assert.True(t, result.Verified)
}
