package cmd

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/appimage-updater/appimage-updater/pkg/types"
)

// resolveNames validates that every requested name matches a
// registered application (case-insensitively), returning an error
// naming the closest registered name by edit distance for typos.
func resolveNames(apps []types.ApplicationConfig, requested []string) error {
	if len(requested) == 0 {
		return nil
	}
	known := make(map[string]bool, len(apps))
	for _, app := range apps {
		known[strings.ToLower(app.Name)] = true
	}
	for _, name := range requested {
		if known[strings.ToLower(name)] {
			continue
		}
		if suggestion := closestName(apps, name); suggestion != "" {
			return fmt.Errorf("unknown application %q, did you mean %q?", name, suggestion)
		}
		return fmt.Errorf("unknown application %q", name)
	}
	return nil
}

// closestName returns the registered application name with the
// smallest Levenshtein distance to name, or "" when apps is empty or
// nothing is reasonably close.
func closestName(apps []types.ApplicationConfig, name string) string {
	best := ""
	bestDist := -1
	lower := strings.ToLower(name)
	for _, app := range apps {
		dist := levenshtein.ComputeDistance(lower, strings.ToLower(app.Name))
		if bestDist == -1 || dist < bestDist {
			bestDist = dist
			best = app.Name
		}
	}
	if bestDist < 0 || bestDist > maxSuggestDistance(lower) {
		return ""
	}
	return best
}

// maxSuggestDistance scales the acceptable edit distance with the
// length of the typed name so short names don't match everything.
func maxSuggestDistance(name string) int {
	if len(name) <= 4 {
		return 1
	}
	return 3
}
