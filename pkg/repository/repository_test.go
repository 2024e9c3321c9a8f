package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appimage-updater/appimage-updater/pkg/types"
)

func TestDetectKnownForgeHosts(t *testing.T) {
	st, err := Detect(context.Background(), Config{URL: "https://github.com/foo/bar"})
	require.NoError(t, err)
	assert.Equal(t, types.SourceForgeAPIGithub, st)

	st, err = Detect(context.Background(), Config{URL: "https://gitlab.com/foo/bar"})
	require.NoError(t, err)
	assert.Equal(t, types.SourceForgeAPIGitlab, st)
}

func TestDetectSourceForge(t *testing.T) {
	st, err := Detect(context.Background(), Config{URL: "https://sourceforge.net/projects/foo/files/"})
	require.NoError(t, err)
	assert.Equal(t, types.SourceSourceForge, st)
}

func TestDetectFallsBackToDynamicThenDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/x.AppImage">dl</a></body></html>`))
	}))
	defer srv.Close()

	st, err := Detect(context.Background(), Config{URL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	assert.Equal(t, types.SourceDynamic, st)
}

func TestNewBuildsEachVariant(t *testing.T) {
	for _, st := range []types.SourceType{
		types.SourceForgeAPIGithub, types.SourceForgeAPIGitlab,
		types.SourceSourceForge, types.SourceDynamic, types.SourceDirect,
	} {
		c, err := New(st, Config{URL: "https://github.com/foo/bar"})
		require.NoError(t, err)
		assert.NotNil(t, c)
	}
}

func TestNewRejectsUnknownSourceType(t *testing.T) {
	_, err := New(types.SourceType("bogus"), Config{})
	assert.Error(t, err)
}

// TestFactoryDetectURLRoundTrip exercises §8's boundary property: for
// a URL T, the client the factory builds for Detect(T)'s source type
// reports DetectURL(T) == true.
func TestFactoryDetectURLRoundTrip(t *testing.T) {
	urls := map[string]types.SourceType{
		"https://github.com/foo/bar":                types.SourceForgeAPIGithub,
		"https://gitlab.com/foo/bar":                types.SourceForgeAPIGitlab,
		"https://sourceforge.net/projects/foo/files/": types.SourceSourceForge,
	}
	for rawURL, wantType := range urls {
		st, err := Detect(context.Background(), Config{URL: rawURL})
		require.NoError(t, err)
		require.Equal(t, wantType, st)

		client, err := New(st, Config{URL: rawURL})
		require.NoError(t, err)
		assert.True(t, client.DetectURL(rawURL), "%s: client for %s should detect its own URL", rawURL, st)
	}
}

func TestDirectAndDynamicClientsHonorAnyURL(t *testing.T) {
	direct, err := New(types.SourceDirect, Config{URL: "https://example.com/app.AppImage"})
	require.NoError(t, err)
	assert.True(t, direct.DetectURL("https://example.com/app.AppImage"))

	dyn, err := New(types.SourceDynamic, Config{URL: "https://example.com/downloads"})
	require.NoError(t, err)
	assert.True(t, dyn.DetectURL("https://example.com/downloads"))
}
