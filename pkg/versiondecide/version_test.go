package versiondecide

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appimage-updater/appimage-updater/pkg/types"
)

func TestNormalizeStripsPrefixes(t *testing.T) {
	assert.Equal(t, "1.2.3", Normalize("v1.2.3"))
	assert.Equal(t, "1.2.3", Normalize("release-1.2.3"))
}

func TestIsNewerMissingCurrentCountsAsNewer(t *testing.T) {
	assert.True(t, IsNewer("", "1.0.0", time.Time{}, time.Time{}))
}

func TestIsNewerSemverCompare(t *testing.T) {
	assert.True(t, IsNewer("0.21.2", "0.22.0", time.Time{}, time.Time{}))
	assert.False(t, IsNewer("0.22.0", "0.21.2", time.Time{}, time.Time{}))
}

func TestIsNewerFallsBackToStringCompareOnParseFailure(t *testing.T) {
	assert.True(t, IsNewer("nightly-2024-01-01", "nightly-2024-06-01", time.Time{}, time.Time{}))
}

func TestIsNewerFallsBackToTimestampWhenStringOrderDisagrees(t *testing.T) {
	// "build-9" sorts after "build-100" lexically, but build-100 was
	// actually published later, so the timestamp must win the tie.
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, IsNewer("build-9", "build-100", older, newer))
	assert.False(t, IsNewer("build-100", "build-9", newer, older))
}

func TestResolveCurrentVersionPrefersCurrentSidecar(t *testing.T) {
	dir := t.TempDir()
	cur := filepath.Join(dir, "FreeCAD-0.21.2-Linux-x86_64.AppImage.current")
	require.NoError(t, os.WriteFile(cur, []byte("binary"), 0o755))
	require.NoError(t, os.WriteFile(cur+".info", []byte("Version: 0.21.2\n"), 0o644))

	version, modTime, err := ResolveCurrentVersion(dir, `(?i)FreeCAD.*\.AppImage(\.(|current|old[0-9]*))?$`, "")
	require.NoError(t, err)
	assert.Equal(t, "0.21.2", version)
	assert.False(t, modTime.IsZero())
}

func TestDecideReturnsUpToDateWhenNotNewer(t *testing.T) {
	candidate, result := Decide("FreeCAD", "0.22.0", time.Time{}, types.Release{Tag: "0.22.0"}, types.Asset{})
	assert.Nil(t, candidate)
	assert.Equal(t, types.StatusUpToDate, result.Status)
}

func TestDecideReturnsUpdateCandidateWhenNewer(t *testing.T) {
	candidate, result := Decide("FreeCAD", "0.21.2", time.Time{}, types.Release{Tag: "0.22.0"}, types.Asset{Name: "x.AppImage"})
	require.NotNil(t, candidate)
	assert.Equal(t, types.StatusUpdateAvailable, result.Status)
	assert.True(t, candidate.IsNewer)
}

func TestDecideFallsBackToPublishedAtOnNonSemverTags(t *testing.T) {
	currentTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	latestTime := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	candidate, result := Decide("App", "build-9", currentTime,
		types.Release{Tag: "build-100", PublishedAt: latestTime}, types.Asset{Name: "x.AppImage"})
	require.NotNil(t, candidate)
	assert.Equal(t, types.StatusUpdateAvailable, result.Status)
}
