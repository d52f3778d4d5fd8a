package persistence

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"cortex/internal/logging"
)

// ErrLockBusy is returned only by TryLockedUpdate's non-blocking
// acquisition path.
var ErrLockBusy = fmt.Errorf("lock busy")

// LockedUpdate performs one atomic, cross-process-safe read-modify-write
// on a flat file: it acquires an exclusive advisory lock on path+".lock",
// reads the existing content (empty if absent), invokes modify, writes the
// result to a temp file, chmods it 0600, and renames it over path. The
// lock is released and the temp file removed on any error.
func LockedUpdate(path string, modify func(existing []byte) ([]byte, error)) error {
	return lockedUpdate(path, modify, true)
}

// TryLockedUpdate is the non-blocking variant; it returns ErrLockBusy
// immediately if the lock is already held rather than waiting.
func TryLockedUpdate(path string, modify func(existing []byte) ([]byte, error)) error {
	return lockedUpdate(path, modify, false)
}

func lockedUpdate(path string, modify func(existing []byte) ([]byte, error), blocking bool) error {
	log := logging.Get(logging.CategoryPersistence)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		log.Warn("no locking backend available for %s, proceeding without lock: %v", path, err)
		return modifyUnlocked(path, modify)
	}
	defer lockFile.Close()

	// A non-empty file is required by platforms whose lock implementation
	// needs at least one byte to range-lock.
	if info, statErr := lockFile.Stat(); statErr == nil && info.Size() == 0 {
		if _, werr := lockFile.Write([]byte{0}); werr != nil {
			log.Warn("failed to seed lock file %s: %v", lockPath, werr)
		}
	}

	flags := unix.LOCK_EX
	if !blocking {
		flags |= unix.LOCK_NB
	}
	if err := unix.Flock(int(lockFile.Fd()), flags); err != nil {
		if !blocking && err == unix.EWOULDBLOCK {
			return ErrLockBusy
		}
		log.Warn("failed to acquire lock on %s, proceeding without lock: %v", lockPath, err)
		return modifyUnlocked(path, modify)
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	return applyModify(path, modify)
}

// modifyUnlocked runs the read-modify-write without holding any lock, used
// only when no locking backend is available. This mode is
// not considered correct and must be visible in logs, which
// the caller above already emitted.
func modifyUnlocked(path string, modify func(existing []byte) ([]byte, error)) error {
	return applyModify(path, modify)
}

func applyModify(path string, modify func(existing []byte) ([]byte, error)) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("persistence: read %s: %w", path, err)
	}

	result, err := modify(existing)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, result, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: write %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: rename %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}
