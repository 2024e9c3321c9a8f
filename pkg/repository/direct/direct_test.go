package direct

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLatestReleaseDerivesVersionFromPattern(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1024")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{
		URL:            srv.URL + "/App-1.2.3.AppImage",
		VersionPattern: `App-([0-9.]+)\.AppImage`,
		HTTPClient:     srv.Client(),
	})

	release, err := c.GetLatestRelease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", release.Tag)
	require.Len(t, release.Assets, 1)
	assert.Equal(t, int64(1024), release.Assets[0].Size)
}

func TestGetLatestReleaseFallsBackToLastModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL + "/app.AppImage", HTTPClient: srv.Client()})
	release, err := c.GetLatestRelease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20060102150405", release.Tag)
}
