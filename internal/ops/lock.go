package ops

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

// LockFile records the pid of the running bot instance
type LockFile struct {
	path string
	log  *logger.Logger
}

// NewLockFile creates a handle for the lock at path
func NewLockFile(path string) *LockFile {
	return &LockFile{
		path: path,
		log:  logger.Get().With("component", "lock_file", "path", path),
	}
}

// Path returns the lock file location
func (l *LockFile) Path() string {
	return l.path
}

// Acquire writes the current pid. It fails with ErrUnavailable while another live process holds the lock.
func (l *LockFile) Acquire() error {
	if holder, ok := l.Holder(); ok && holder != os.Getpid() {
		return errors.Wrapf(errors.ErrUnavailable, "lock %s held by pid %d", l.path, holder)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrapf(err, "create lock dir")
	}
	if err := os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return errors.Wrapf(err, "write lock %s", l.path)
	}

	l.log.Infow("Lock acquired", "pid", os.Getpid())
	return nil
}

// Holder returns the pid in the lock file when that process is alive.
// A lock naming a dead process is removed.
func (l *LockFile) Holder() (int, bool) {
	pid, err := l.read()
	if err != nil {
		return 0, false
	}
	if !Alive(pid) {
		l.log.Infow("Removing stale lock", "pid", pid)
		l.remove()
		return 0, false
	}
	return pid, true
}

// Release removes the lock when it belongs to the current process
func (l *LockFile) Release() error {
	pid, err := l.read()
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return errors.Wrapf(errors.ErrInvalidInput, "lock %s belongs to pid %d", l.path, pid)
	}

	l.remove()
	l.log.Infow("Lock released")
	return nil
}

func (l *LockFile) read() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.Wrapf(errors.ErrNotFound, "lock %s", l.path)
		}
		return 0, errors.Wrapf(err, "read lock %s", l.path)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		l.log.Warnw("Removing unreadable lock", "content", string(data))
		l.remove()
		return 0, errors.Wrapf(errors.ErrParse, "lock %s: %v", l.path, err)
	}
	return pid, nil
}

func (l *LockFile) remove() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.log.Warnw("Failed to remove lock", "error", err)
	}
}
