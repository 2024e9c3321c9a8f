// Package versiondecide resolves the current and latest versions for
// an application and decides whether an update is available, per
// §4.7.
package versiondecide

import (
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Normalize strips common prefixes (v, V, version-, release-) so two
// differently-formatted tags can be compared, grounded on
// pkg/version/version.go's Normalize.
func Normalize(version string) string {
	v := strings.TrimSpace(version)
	for _, prefix := range []string{"version-", "release-", "v", "V"} {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(prefix)) && len(v) > len(prefix) {
			rest := v[len(prefix):]
			if len(rest) > 0 && (rest[0] >= '0' && rest[0] <= '9') {
				v = rest
				break
			}
		}
	}
	v = strings.TrimSuffix(v, "-release")
	return v
}

var defaultVersionPattern = regexp.MustCompile(`v?\d+\.\d+(?:\.\d+)?(?:[-+][A-Za-z0-9.]+)?`)

// ExtractFromFilename pulls a version token out of a filename using an
// optional custom pattern, else the default family.
func ExtractFromFilename(filename, customPattern string) string {
	re := defaultVersionPattern
	if customPattern != "" {
		if compiled, err := regexp.Compile(customPattern); err == nil {
			re = compiled
		}
	}
	match := re.FindString(filename)
	return match
}

// Compare parses both versions as semver and compares them. If either
// fails to parse, it falls back to the asset/release timestamps
// (aTime for a, bTime for b) when both are set and they disagree, and
// otherwise drops to plain string ordering — per
// §4.7, this is what lets a non-semver scheme like "build-9" vs
// "build-100" (where the string compare gets it backwards) resolve
// correctly from publish dates instead. Returns <0, 0, >0.
func Compare(a, b string, aTime, bTime time.Time) int {
	av, aerr := semver.NewVersion(Normalize(a))
	bv, berr := semver.NewVersion(Normalize(b))
	if aerr == nil && berr == nil {
		return av.Compare(bv)
	}
	if a == b {
		return 0
	}
	if !aTime.IsZero() && !bTime.IsZero() && !aTime.Equal(bTime) {
		if aTime.Before(bTime) {
			return -1
		}
		return 1
	}
	if a < b {
		return -1
	}
	return 1
}

// IsNewer implements §4.7's is_newer rule: missing current counts as
// newer; parse failures fall back to the timestamp/string comparison
// in Compare. currentTime/latestTime may be zero when unavailable.
func IsNewer(current, latest string, currentTime, latestTime time.Time) bool {
	if current == "" {
		return true
	}
	return Compare(latest, current, latestTime, currentTime) > 0
}
