// Package download implements the fetch → verify → extract → rotate
// pipeline of §4.8. Each call handles one application's single asset;
// the orchestrator bounds how many run concurrently.
package download

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/flanksource/clicky/task"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
	"github.com/appimage-updater/appimage-updater/pkg/checksum"
	"github.com/appimage-updater/appimage-updater/pkg/extract"
	"github.com/appimage-updater/appimage-updater/pkg/rotate"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

const maxAttempts = 3

// Request describes one asset fetch + rotation.
type Request struct {
	ApplicationName string
	Version         string
	Asset           types.Asset
	DestDir         string

	ChecksumEnabled   bool
	ChecksumRequired  bool
	ChecksumAlgorithm types.ChecksumAlgorithm
	ChecksumContent   string // pre-fetched checksum file body, empty if none available

	Rotation *rotate.Plan // nil when rotation_enabled is false
}

// Options carries the shared HTTP client and optional progress sink.
type Options struct {
	Client *http.Client
	Task   *task.Task // nilable; progress is skipped when nil
}

// Run executes one download end-to-end, never panicking: all failures
// are reported via DownloadResult.Error.
func Run(ctx context.Context, req Request, opts Options) types.DownloadResult {
	start := time.Now()
	result := types.DownloadResult{ApplicationName: req.ApplicationName}

	if err := os.MkdirAll(req.DestDir, 0o755); err != nil {
		result.Error = apperrors.Wrap(apperrors.KindRotationError, "create download dir", err).Error()
		return result
	}

	partial := filepath.Join(req.DestDir, req.Asset.Name+".partial")
	keepPartial := false
	defer func() {
		if !keepPartial {
			os.Remove(partial)
		}
	}()

	size, err := fetchWithRetry(ctx, opts, req.Asset.URL, partial)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	checksumStatus := "skipped"
	if req.ChecksumEnabled && req.ChecksumContent != "" {
		expected, parseErr := checksum.ParseChecksumFile(req.ChecksumContent, req.Asset.Name)
		if parseErr != nil {
			if req.ChecksumRequired {
				result.ChecksumVerified = "failed"
				result.Error = apperrors.Wrap(apperrors.KindChecksumMismatch, "parse checksum file", parseErr).Error()
				return result
			}
			checksumStatus = "skipped"
		} else {
			verified := checksum.Verify(partial, req.ChecksumAlgorithm, expected)
			if !verified.Verified {
				result.ChecksumVerified = "failed"
				result.Error = verified.Error
				return result
			}
			checksumStatus = "verified"
		}
	} else if req.ChecksumRequired {
		result.ChecksumVerified = "failed"
		result.Error = apperrors.New(apperrors.KindChecksumMismatch, "checksum required but no checksum asset available").Error()
		return result
	}
	result.ChecksumVerified = checksumStatus

	finalArtifact := partial
	if extract.IsZip(req.Asset.Name) {
		extracted, extractErr := extract.ExtractAppImage(partial, req.DestDir)
		if extractErr != nil {
			// A ZIP that doesn't contain an AppImage (or can't be
			// opened at all) is left on disk for inspection rather
			// than deleted with the rest of the partial's lifecycle.
			keepPartial = true
			result.Error = extractErr.Error()
			result.Path = partial
			return result
		}
		finalArtifact = extracted.ExtractedPath
	}

	if err := os.Chmod(finalArtifact, 0o755); err != nil {
		result.Error = apperrors.Wrap(apperrors.KindRotationError, "set executable bit", err).Error()
		return result
	}

	var installedPath string
	if req.Rotation != nil {
		current, rotErr := rotate.Rotate(*req.Rotation, finalArtifact)
		if rotErr != nil {
			result.Error = rotErr.Error()
			result.Path = finalArtifact
			return result
		}
		installedPath = current
		_ = rotate.WriteSidecar(installedPath, req.Version)
	} else {
		// An AppImage extracted from a ZIP already sits in DestDir under
		// its own name; a plain download moves from .partial to the asset name.
		installedPath = finalArtifact
		if finalArtifact == partial {
			installedPath = filepath.Join(req.DestDir, filepath.Base(req.Asset.Name))
		}
		if finalArtifact != installedPath {
			if err := os.Rename(finalArtifact, installedPath); err != nil {
				result.Error = apperrors.Wrap(apperrors.KindRotationError, "install artifact", err).Error()
				return result
			}
		}
		sidecar := installedPath + ".info"
		_ = os.WriteFile(sidecar, []byte(fmt.Sprintf("Version: %s\n", req.Version)), 0o644)
	}

	result.Path = installedPath
	result.Size = size
	result.Duration = time.Since(start)
	return result
}

// fetchWithRetry performs the chunked GET with the spec's backoff
// schedule: min(2^n, 30) seconds between attempts, up to maxAttempts.
func fetchWithRetry(ctx context.Context, opts Options, url, destPath string) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Min(math.Pow(2, float64(attempt)), 30)) * time.Second
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return 0, apperrors.Wrap(apperrors.KindTransportError, "cancelled during backoff", ctx.Err())
			}
		}

		size, err := fetchOnce(ctx, opts, url, destPath)
		if err == nil {
			return size, nil
		}
		lastErr = err
		if appErr, ok := err.(*apperrors.Error); ok && !apperrors.Retryable(appErr.Kind) {
			return 0, err
		}
	}
	return 0, lastErr
}

func fetchOnce(ctx context.Context, opts Options, url, destPath string) (int64, error) {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindTransportError, "build request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindUpstreamUnavailable, "fetch asset", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, apperrors.New(apperrors.KindRateLimited, fmt.Sprintf("rate limited: HTTP %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return 0, apperrors.New(apperrors.KindUpstreamUnavailable, fmt.Sprintf("server error: HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return 0, apperrors.New(apperrors.KindTransportError, fmt.Sprintf("unexpected status: HTTP %d", resp.StatusCode))
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindRotationError, "create partial file", err)
	}
	defer out.Close()

	var reader io.Reader = resp.Body
	if opts.Task != nil {
		reader = &progressReader{Reader: resp.Body, total: resp.ContentLength, t: opts.Task}
	}

	written, err := io.Copy(out, reader)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindTransportError, "stream body", err)
	}
	return written, nil
}

// progressReader reports download progress through a clicky task at
// most every 100ms, mirroring the cadence used elsewhere in the pack.
type progressReader struct {
	io.Reader
	total      int64
	current    int64
	t          *task.Task
	lastUpdate time.Time
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.current += int64(n)

	now := time.Now()
	if now.Sub(pr.lastUpdate) >= 100*time.Millisecond {
		if pr.total > 0 {
			pr.t.SetProgress(int(pr.current), int(pr.total))
		}
		pr.lastUpdate = now
	}
	return n, err
}
