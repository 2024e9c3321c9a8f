// Package types defines the value types shared across the update
// pipeline: configuration documents, transient release/asset models,
// and the result aggregates the orchestrator produces.
package types

import (
	"fmt"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
)

// ChecksumAlgorithm is the supported set of digest algorithms.
type ChecksumAlgorithm string

const (
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumMD5    ChecksumAlgorithm = "md5"
)

// SourceType identifies which repository client variant serves an
// application.
type SourceType string

const (
	SourceForgeAPIGithub SourceType = "forge-api-github"
	SourceForgeAPIGitlab SourceType = "forge-api-gitlab"
	SourceSourceForge    SourceType = "sourceforge"
	SourceDirect         SourceType = "direct"
	SourceDynamic        SourceType = "dynamic"
)

// ChecksumConfig is the per-application integrity policy.
type ChecksumConfig struct {
	Enabled   bool              `json:"enabled"`
	Algorithm ChecksumAlgorithm `json:"algorithm"`
	Pattern   string            `json:"pattern"`
	Required  bool              `json:"required"`
}

// GlobalDefaults are the built-in / global-file defaults merged into
// every application that does not set its own value explicitly.
type GlobalDefaults struct {
	DownloadDir       string            `json:"download_dir"`
	AutoSubdir        bool              `json:"auto_subdir"`
	RotationEnabled   bool              `json:"rotation_enabled"`
	RetainCount       int               `json:"retain_count"`
	SymlinkEnabled    bool              `json:"symlink_enabled"`
	SymlinkDir        string            `json:"symlink_dir"`
	SymlinkPattern    string            `json:"symlink_pattern"`
	ChecksumEnabled   bool              `json:"checksum_enabled"`
	ChecksumAlgorithm ChecksumAlgorithm `json:"checksum_algorithm"`
	ChecksumPattern   string            `json:"checksum_pattern"`
	ChecksumRequired  bool              `json:"checksum_required"`
	Prerelease        bool              `json:"prerelease"`
}

// GlobalConfig is the single `config.json` document.
type GlobalConfig struct {
	ConcurrentDownloads int            `json:"concurrent_downloads"`
	TimeoutSeconds      int            `json:"timeout_seconds"`
	UserAgent           string         `json:"user_agent"`
	Defaults            GlobalDefaults `json:"defaults"`
}

// ApplicationConfig is one `apps/<name>.json` entry.
type ApplicationConfig struct {
	Name            string         `json:"name"`
	SourceType      SourceType     `json:"source_type"`
	URL             string         `json:"url"`
	DownloadDir     string         `json:"download_dir"`
	Pattern         string         `json:"pattern"`
	VersionPattern  string         `json:"version_pattern,omitempty"`
	Enabled         bool           `json:"enabled"`
	Prerelease      bool           `json:"prerelease"`
	RotationEnabled bool           `json:"rotation_enabled"`
	RetainCount     int            `json:"retain_count"`
	SymlinkPath     string         `json:"symlink_path,omitempty"`
	Checksum        ChecksumConfig `json:"checksum"`
}

// ApplicationsFile is the `apps/<name>.json` document wrapper — a
// one-element sequence retained for forward compatibility with a
// future multi-app file.
type ApplicationsFile struct {
	Applications []ApplicationConfig `json:"applications"`
}

// Asset is one downloadable file belonging to a Release.
type Asset struct {
	Name             string
	URL              string
	Size             int64 // -1 when unknown until a HEAD request resolves it
	CreatedAt        *time.Time
	Architecture     string
	Platform         string
	FileExtension    string
	ChecksumAsset    *Asset
}

// Release is a versioned upstream publication grouping assets under a
// tag.
type Release struct {
	Tag          string
	PublishedAt  time.Time
	IsPrerelease bool
	Assets       []Asset
}

// UpdateCandidate describes a newer version ready to be downloaded.
type UpdateCandidate struct {
	ApplicationName string
	CurrentVersion  string
	LatestVersion   string
	Asset           Asset
	ChecksumAsset   *Asset
	IsNewer         bool
	Reason          string
}

// CheckStatus enumerates the outcomes of a version check.
type CheckStatus string

const (
	StatusUpToDate         CheckStatus = "up-to-date"
	StatusUpdateAvailable  CheckStatus = "update-available"
	StatusDisabled         CheckStatus = "disabled"
	StatusError            CheckStatus = "error"
	StatusCancelled        CheckStatus = "cancelled"
)

func (s CheckStatus) Pretty() api.Text {
	switch s {
	case StatusUpToDate:
		return clicky.Text("up-to-date").Color("text-green-500")
	case StatusUpdateAvailable:
		return clicky.Text("update-available").Color("text-blue-500")
	case StatusDisabled:
		return clicky.Text("disabled").Color("text-gray-400")
	case StatusCancelled:
		return clicky.Text("cancelled").Color("text-yellow-500")
	default:
		return clicky.Text("error").Color("text-red-500")
	}
}

// CheckResult is the aggregation-layer record of a single app's check.
type CheckResult struct {
	ApplicationName string
	Current         string
	Latest          string
	Status          CheckStatus
	Error           string
}

func (r CheckResult) Pretty() api.Text {
	t := clicky.Text(r.ApplicationName + ": ").Append(r.Status.Pretty())
	if r.Error != "" {
		t = t.Append(clicky.Text(" (" + r.Error + ")").Color("text-red-400"))
	}
	return t
}

// DownloadResult is the aggregation-layer record of a single app's
// download/rotate attempt.
type DownloadResult struct {
	ApplicationName   string
	Path              string
	Size              int64
	Duration          time.Duration
	ChecksumVerified  string // "verified" | "skipped" | "failed"
	Error             string
}

func (r DownloadResult) Pretty() api.Text {
	if r.Error != "" {
		return clicky.Text(fmt.Sprintf("%s: failed (%s)", r.ApplicationName, r.Error)).Color("text-red-500")
	}
	return clicky.Text(fmt.Sprintf("%s: %s (%s)", r.ApplicationName, r.Path, formatBytes(r.Size))).Color("text-green-500")
}

// ChecksumResult records the outcome of a checksum verification.
type ChecksumResult struct {
	Verified  bool
	Algorithm ChecksumAlgorithm
	Expected  string
	Actual    string
	Error     string
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
