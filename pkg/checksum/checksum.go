// Package checksum parses checksum files and verifies a downloaded
// asset's digest, per §4.8 step 5. Trimmed from the teacher's
// multi-strategy discovery to the spec's single configured algorithm.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
	"github.com/appimage-updater/appimage-updater/pkg/types"
)

func newHasher(algo types.ChecksumAlgorithm) (hash.Hash, error) {
	switch algo {
	case types.ChecksumSHA256, "":
		return sha256.New(), nil
	case types.ChecksumSHA1:
		return sha1.New(), nil
	case types.ChecksumMD5:
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm %q", algo)
	}
}

// HashFile computes the hex digest of a file's contents.
func HashFile(path string, algo types.ChecksumAlgorithm) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashReader computes the hex digest of a reader's contents.
func HashReader(r io.Reader, algo types.ChecksumAlgorithm) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ParseChecksumFile parses either `<hash> <filename>` lines (picking
// the line matching assetName, or the single line if there is only
// one) or a bare hash string, per §4.8 step 5.
func ParseChecksumFile(content, assetName string) (string, error) {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	var nonEmpty []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) == 0 {
		return "", fmt.Errorf("empty checksum file")
	}

	if len(nonEmpty) == 1 && len(strings.Fields(nonEmpty[0])) == 1 {
		return nonEmpty[0], nil
	}

	for _, line := range nonEmpty {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		hashVal, name := fields[0], strings.TrimPrefix(fields[len(fields)-1], "*")
		if name == assetName || strings.HasSuffix(assetName, name) || strings.HasSuffix(name, assetName) {
			return hashVal, nil
		}
	}

	if len(nonEmpty) == 1 {
		return strings.Fields(nonEmpty[0])[0], nil
	}
	return "", fmt.Errorf("no checksum entry found for %s", assetName)
}

// Verify compares an expected digest against a file's actual digest.
func Verify(path string, algo types.ChecksumAlgorithm, expected string) types.ChecksumResult {
	actual, err := HashFile(path, algo)
	if err != nil {
		return types.ChecksumResult{Algorithm: algo, Expected: expected, Error: err.Error()}
	}
	expected = strings.ToLower(strings.TrimSpace(expected))
	actual = strings.ToLower(actual)
	if expected != actual {
		return types.ChecksumResult{
			Verified: false, Algorithm: algo, Expected: expected, Actual: actual,
			Error: apperrors.New(apperrors.KindChecksumMismatch, fmt.Sprintf("expected %s, got %s", expected, actual)).Error(),
		}
	}
	return types.ChecksumResult{Verified: true, Algorithm: algo, Expected: expected, Actual: actual}
}
