package versiondecide

import (
	"fmt"
	"time"

	"github.com/appimage-updater/appimage-updater/pkg/types"
)

// Decide implements §4.7's final step: produce an UpdateCandidate, or
// report up-to-date. currentTime is the installed file's resolved
// timestamp (zero if unknown); it backs the fallback comparison in
// IsNewer when the tags aren't valid semver.
func Decide(appName, currentVersion string, currentTime time.Time, release types.Release, asset types.Asset) (*types.UpdateCandidate, types.CheckResult) {
	latest := release.Tag
	latestTime := release.PublishedAt
	if latestTime.IsZero() && asset.CreatedAt != nil {
		latestTime = *asset.CreatedAt
	}

	newer := IsNewer(currentVersion, latest, currentTime, latestTime)
	reason := fmt.Sprintf("latest tag %q vs current %q", latest, currentVersion)

	if !newer {
		return nil, types.CheckResult{
			ApplicationName: appName,
			Current:         currentVersion,
			Latest:          latest,
			Status:          types.StatusUpToDate,
		}
	}

	candidate := &types.UpdateCandidate{
		ApplicationName: appName,
		CurrentVersion:  currentVersion,
		LatestVersion:   latest,
		Asset:           asset,
		IsNewer:         true,
		Reason:          reason,
	}

	return candidate, types.CheckResult{
		ApplicationName: appName,
		Current:         currentVersion,
		Latest:          latest,
		Status:          types.StatusUpdateAvailable,
	}
}

// SelectReleaseForPrerelease implements the prerelease-auto-detection
// rule: if prerelease is allowed, the first (newest) release wins; if
// it is disabled, reject prereleases unless nothing else qualifies, in
// which case fall back and report it via autoDetectedPrerelease=true.
func SelectReleaseForPrerelease(releases []types.Release, allowPrerelease bool) (release types.Release, autoDetectedPrerelease bool, found bool) {
	if allowPrerelease {
		if len(releases) > 0 {
			return releases[0], false, true
		}
		return types.Release{}, false, false
	}
	for _, r := range releases {
		if !r.IsPrerelease {
			return r, false, true
		}
	}
	// No stable release exists anywhere in the walked history: fall
	// back to the first prerelease and flag the auto-detection.
	if len(releases) > 0 {
		return releases[0], true, true
	}
	return types.Release{}, false, false
}
