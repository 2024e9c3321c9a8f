package sourceforge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
<a href="/projects/foo/files/FooApp-1.2.3-x86_64.AppImage/download">FooApp-1.2.3-x86_64.AppImage</a>
<a href="/projects/foo/files/README.txt/download">README.txt</a>
</body></html>`

func TestGetLatestReleaseExtractsAppImageLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "2048")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL + "/projects/foo/files/", HTTPClient: srv.Client()})
	release, err := c.GetLatestRelease(context.Background())
	require.NoError(t, err)
	require.Len(t, release.Assets, 1)
	assert.Equal(t, "FooApp-1.2.3-x86_64.AppImage", release.Assets[0].Name)
	assert.Equal(t, int64(2048), release.Assets[0].Size)
	assert.Equal(t, "1.2.3", release.Tag)
}

func TestGetLatestReleaseFailsWithNoAppImageLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/readme">readme</a></body></html>`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, HTTPClient: srv.Client()})
	_, err := c.GetLatestRelease(context.Background())
	assert.Error(t, err)
}
