package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/appimage-updater/appimage-updater/pkg/types"
)

func TestApplicationRowsMapsFields(t *testing.T) {
	apps := []types.ApplicationConfig{
		{Name: "firefox", SourceType: types.SourceForgeAPIGithub, URL: "https://github.com/mozilla/firefox", Enabled: true, RotationEnabled: true},
		{Name: "legacy-tool", SourceType: types.SourceDirect, URL: "https://example.com/tool.AppImage", Enabled: false, RotationEnabled: false},
	}

	rows := applicationRows(apps)

	assert.Len(t, rows, 2)
	assert.Equal(t, "firefox", rows[0].Name)
	assert.Equal(t, "forge-api-github", rows[0].SourceType)
	assert.Equal(t, "yes", rows[0].Enabled)
	assert.Equal(t, "yes", rows[0].Rotation)
	assert.Equal(t, "no", rows[1].Enabled)
	assert.Equal(t, "no", rows[1].Rotation)
}

func TestApplicationRowsEmpty(t *testing.T) {
	assert.Empty(t, applicationRows(nil))
}

func TestBoolLabel(t *testing.T) {
	assert.Equal(t, "yes", boolLabel(true))
	assert.Equal(t, "no", boolLabel(false))
}
