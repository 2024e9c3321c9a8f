package pattern

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMatchesTrainingSetAndRotationSuffixes(t *testing.T) {
	candidates := []Candidate{
		{Name: "FreeCAD_weekly-builds-34223-Linux-x86_64.AppImage"},
		{Name: "FreeCAD_weekly-builds-34224-Linux-x86_64.AppImage"},
		{Name: "FreeCAD_weekly-builds-34225-Linux-x86_64.AppImage"},
	}

	pat := Generate(candidates, "FreeCAD", "FreeCAD/FreeCAD")
	re, err := regexp.Compile(pat)
	require.NoError(t, err)

	for _, c := range candidates {
		assert.True(t, re.MatchString(c.Name), "expected %q to match %q", c.Name, pat)
		for _, suffix := range []string{"", ".current", ".old", ".old2", ".old13"} {
			assert.True(t, re.MatchString(c.Name+suffix), "expected %q+%q to match", c.Name, suffix)
		}
	}
}

func TestGeneratePrefersStableAppImageOverZip(t *testing.T) {
	candidates := []Candidate{
		{Name: "tool-1.0.0.zip"},
		{Name: "tool-1.0.0.AppImage"},
	}
	pat := Generate(candidates, "tool", "")
	re := regexp.MustCompile(pat)
	assert.True(t, re.MatchString("tool-1.0.0.AppImage"))
}

func TestGenerateFallsBackToAppNameWhenNoReleases(t *testing.T) {
	pat := Generate(nil, "MyApp", "org/myapp")
	re := regexp.MustCompile(pat)
	assert.True(t, re.MatchString("MyApp-2.0.AppImage"))
}

func TestGenerateFallsBackToRepoPathForGenericNames(t *testing.T) {
	pat := Generate(nil, "app", "someorg/realname")
	re := regexp.MustCompile(pat)
	assert.True(t, re.MatchString("realname-2.0.AppImage"))
}
