// Package rotate implements the on-disk .current/.old<k> rotation
// scheme and atomic symlink retargeting described in §3 and §4.8 step
// 9. Renames are ordered oldest-first so a crash mid-rotation never
// loses the previously-active file.
package rotate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/appimage-updater/appimage-updater/pkg/apperrors"
)

// Plan describes the base path (without rotation suffix) that siblings
// share, e.g. "/home/u/Downloads/FreeCAD/FreeCAD-0.22.0-Linux-x86_64.AppImage".
type Plan struct {
	Dir         string
	BaseName    string
	RetainCount int
	SymlinkPath string
}

func (p Plan) suffixed(suffix string) string {
	if suffix == "" {
		return filepath.Join(p.Dir, p.BaseName)
	}
	return filepath.Join(p.Dir, p.BaseName+suffix)
}

func oldSuffix(k int) string {
	if k <= 1 {
		return ".old"
	}
	return ".old" + strconv.Itoa(k)
}

// Rotate shifts existing .current/.old<k> siblings of plan.BaseName
// down by one slot, installs newFile as .current, atomically
// retargets the symlink, and only then deletes whatever slot the
// shift pushed beyond retain_count. The deletion happens last so a
// retain_count of 1 never leaves a transient .old file on disk and a
// crash mid-rotation never loses the previously-active file.
// newFile must already reside in plan.Dir.
func Rotate(plan Plan, newFile string) (currentPath string, err error) {
	if plan.RetainCount < 1 {
		plan.RetainCount = 1
	}

	current := plan.suffixed(".current")

	if plan.RetainCount == 1 {
		// No .old slot is ever created: the new file replaces .current
		// directly, and os.Rename overwrites whatever was there.
		if err := os.Rename(newFile, current); err != nil {
			return "", apperrors.Wrap(apperrors.KindRotationError, "install current", err)
		}
		if plan.SymlinkPath != "" {
			if err := retargetSymlink(plan.SymlinkPath, current); err != nil {
				return current, apperrors.Wrap(apperrors.KindRotationError, "retarget symlink", err)
			}
		}
		return current, nil
	}

	// Shift .old<k> -> .old<k+1> in reverse order (highest k first) so
	// no rename ever overwrites a file still waiting to move. The slot
	// this pushes past retain_count, .old<retain_count>, is removed
	// only after the whole chain lands.
	surplusSuffix := oldSuffix(plan.RetainCount)
	for k := plan.RetainCount - 1; k >= 1; k-- {
		from := oldSuffix(k)
		to := oldSuffix(k + 1)
		if err := renameIfExists(plan.suffixed(from), plan.suffixed(to)); err != nil {
			return "", apperrors.Wrap(apperrors.KindRotationError, "shift rotation slot", err)
		}
		if err := renameIfExists(plan.suffixed(from+".info"), plan.suffixed(to+".info")); err != nil {
			return "", apperrors.Wrap(apperrors.KindRotationError, "shift rotation sidecar", err)
		}
	}

	// Existing .current -> .old
	if err := renameIfExists(current, plan.suffixed(".old")); err != nil {
		return "", apperrors.Wrap(apperrors.KindRotationError, "demote current", err)
	}
	if err := renameIfExists(current+".info", plan.suffixed(".old.info")); err != nil {
		return "", apperrors.Wrap(apperrors.KindRotationError, "demote current sidecar", err)
	}

	// New file -> .current
	if err := os.Rename(newFile, current); err != nil {
		return "", apperrors.Wrap(apperrors.KindRotationError, "install current", err)
	}

	if plan.SymlinkPath != "" {
		if err := retargetSymlink(plan.SymlinkPath, current); err != nil {
			return current, apperrors.Wrap(apperrors.KindRotationError, "retarget symlink", err)
		}
	}

	removeIfExists(plan.suffixed(surplusSuffix))
	removeIfExists(plan.suffixed(surplusSuffix + ".info"))

	return current, nil
}

// WriteSidecar writes (or rewrites) the rotation-suffixed .info file
// alongside path, containing a single "Version: <version>" line.
func WriteSidecar(path, version string) error {
	content := fmt.Sprintf("Version: %s\n", version)
	return os.WriteFile(path+".info", []byte(content), 0o644)
}

func removeIfExists(path string) {
	_ = os.Remove(path)
}

func renameIfExists(from, to string) error {
	if _, err := os.Lstat(from); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Rename(from, to)
}

// retargetSymlink points target atomically at newDest: create a temp
// symlink in the same directory, then rename it over target.
func retargetSymlink(target, newDest string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, ".appimage-updater-symlink-tmp")
	_ = os.Remove(tmp)
	if err := os.Symlink(newDest, tmp); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}
