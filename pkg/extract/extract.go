// Package extract implements ZIP-to-AppImage selective extraction per
// §4.8 step 6. Uses archive/zip directly: no example repository ships
// a library for extracting a single selected entry out of a zip
// archive (see DESIGN.md).
package extract

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
)

// Result describes the outcome of extracting an AppImage from a zip.
type Result struct {
	ExtractedPath  string
	MultipleFound  bool
	CandidateNames []string
}

// ExtractAppImage scans zipPath for entries ending in .AppImage
// (case-insensitive, including nested directories), extracts exactly
// the first match to destDir (collapsing intermediate directory
// components), and returns its path. If none are found, the archive
// is left in place and NoAppImageInArchive is returned with the full
// file listing.
func ExtractAppImage(zipPath, destDir string) (*Result, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindNoAppImageInArchive, "open archive", err)
	}
	defer r.Close()

	var matches []*zip.File
	var listing []string
	for _, f := range r.File {
		listing = append(listing, f.Name)
		if !f.FileInfo().IsDir() && strings.HasSuffix(strings.ToLower(f.Name), ".appimage") {
			matches = append(matches, f)
		}
	}

	if len(matches) == 0 {
		sort.Strings(listing)
		return nil, apperrors.New(apperrors.KindNoAppImageInArchive,
			fmt.Sprintf("no .AppImage entry found in %s; contents: %s", filepath.Base(zipPath), strings.Join(listing, ", ")))
	}

	chosen := matches[0]
	destName := filepath.Base(chosen.Name)
	destPath := filepath.Join(destDir, destName)

	if err := copyZipEntry(chosen, destPath); err != nil {
		return nil, apperrors.Wrap(apperrors.KindNoAppImageInArchive, "extract entry", err)
	}

	result := &Result{ExtractedPath: destPath}
	if len(matches) > 1 {
		result.MultipleFound = true
		for _, m := range matches {
			result.CandidateNames = append(result.CandidateNames, m.Name)
		}
	}
	return result, nil
}

func copyZipEntry(f *zip.File, destPath string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// IsZip reports whether filename has a .zip extension.
func IsZip(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".zip")
}
