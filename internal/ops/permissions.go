package ops

import (
	"io/fs"
	"os"
	"path/filepath"

	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

const (
	dirMode  fs.FileMode = 0o755
	fileMode fs.FileMode = 0o644
)

// FixPermissions creates dir when missing and resets modes to 0755 for
// directories and 0644 for files below it. It returns the paths it changed.
func FixPermissions(dir string) ([]string, error) {
	log := logger.Get().With("component", "ops", "dir", dir)

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}

	var changed []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		want := fileMode
		if d.IsDir() {
			want = dirMode
		} else if !d.Type().IsRegular() {
			return nil
		}

		if info.Mode().Perm() == want {
			return nil
		}
		if err := os.Chmod(path, want); err != nil {
			return errors.Wrapf(err, "chmod %s", path)
		}
		changed = append(changed, path)
		return nil
	})
	if err != nil {
		return changed, errors.Wrapf(err, "fix permissions under %s", dir)
	}

	log.Infow("Permissions checked", "changed", len(changed))
	return changed, nil
}
