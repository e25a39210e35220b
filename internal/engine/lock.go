package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// RunLock provides an exclusive lock so only one run mutates the data
// dir at a time.
type RunLock struct {
	file *os.File
}

// AcquireRunLock creates and locks <dataDir>/locks/run.lock, blocking
// until the lock is available.
func AcquireRunLock(dataDir string) (*RunLock, error) {
	file, err := openLockFile(dataDir)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("lock run.lock: %w", err)
	}
	return &RunLock{file: file}, nil
}

// TryAcquireRunLock attempts to acquire the run lock without blocking.
func TryAcquireRunLock(dataDir string) (*RunLock, bool, error) {
	file, err := openLockFile(dataDir)
	if err != nil {
		return nil, false, err
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		return nil, false, nil
	}
	return &RunLock{file: file}, true, nil
}

// Release releases the lock.
func (l *RunLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}

func openLockFile(dataDir string) (*os.File, error) {
	locksDir := filepath.Join(dataDir, "locks")
	if err := os.MkdirAll(locksDir, 0o755); err != nil {
		return nil, fmt.Errorf("create locks dir: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(locksDir, "run.lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return file, nil
}
