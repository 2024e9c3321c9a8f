package versiondecide

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var versionLineRE = regexp.MustCompile(`^Version:\s*(.+)$`)

// ReadSidecar reads the single `Version: <tag>` line from an .info
// sidecar file.
func ReadSidecar(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if m := versionLineRE.FindStringSubmatch(strings.TrimSpace(scanner.Text())); m != nil {
			return strings.TrimSpace(m[1]), nil
		}
	}
	return "", nil
}

type candidateFile struct {
	path    string
	version string
	modTime time.Time
}

// ResolveCurrentVersion implements §4.7 step 1–3: prefer the `.current`
// file's sidecar; else take each pattern-matching file's version from
// its sidecar or, without one, from its filename, and pick the highest.
// The returned time is the winning
// file's mtime (zero if none was found), used as the fallback
// comparison point when a tag doesn't parse as semver.
func ResolveCurrentVersion(downloadDir, pattern, versionPattern string) (string, time.Time, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", time.Time{}, err
	}

	entries, err := os.ReadDir(downloadDir)
	if os.IsNotExist(err) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, err
	}

	// Step 1: a rotation .current file's sidecar wins outright.
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".current") && re.MatchString(strings.TrimSuffix(name, ".current")) {
			sidecar := filepath.Join(downloadDir, name+".info")
			if v, err := ReadSidecar(sidecar); err == nil && v != "" {
				modTime := time.Time{}
				if info, err := entry.Info(); err == nil {
					modTime = info.ModTime()
				}
				return v, modTime, nil
			}
		}
	}

	// Step 2/3: every matching file, versioned by its sidecar when it
	// has one and by its filename otherwise; sort by parsed version desc
	// then mtime desc.
	var candidates []candidateFile
	for _, entry := range entries {
		if entry.IsDir() || !re.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(downloadDir, entry.Name())

		version := ""
		if v, err := ReadSidecar(path + ".info"); err == nil {
			version = v
		}
		if version == "" {
			version = ExtractFromFilename(entry.Name(), versionPattern)
		}
		if version == "" {
			continue
		}
		candidates = append(candidates, candidateFile{path: path, version: version, modTime: info.ModTime()})
	}

	if len(candidates) == 0 {
		return "", time.Time{}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		cmp := Compare(candidates[i].version, candidates[j].version, candidates[i].modTime, candidates[j].modTime)
		if cmp != 0 {
			return cmp > 0
		}
		return candidates[i].modTime.After(candidates[j].modTime)
	})

	return candidates[0].version, candidates[0].modTime, nil
}
