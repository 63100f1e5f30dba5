package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const (
	minPollInterval = 10 * time.Millisecond
	maxPollInterval = 500 * time.Millisecond
)

// ErrLockTimeout indicates the index lock could not be acquired in time.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// FileLock is an exclusive flock(2) lock shared by every server instance
// pointed at the same index directory. The kernel drops it when the holding
// process exits.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock backed by the file at path. Nothing is created
// on disk until the lock is first requested.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// TryLock acquires the lock without waiting. It reports false when another
// process holds it.
func (l *FileLock) TryLock() (bool, error) {
	if err := l.open(); err != nil {
		return false, err
	}

	held, err := l.flock()
	if err != nil || !held {
		l.release()
	}
	return held, err
}

// Lock waits up to timeout for the lock.
func (l *FileLock) Lock(timeout time.Duration) error {
	return l.LockWithContext(context.Background(), timeout)
}

// LockWithContext waits for the lock until timeout expires or ctx is done.
// It returns ErrLockTimeout when the timeout expires first.
func (l *FileLock) LockWithContext(ctx context.Context, timeout time.Duration) error {
	if err := l.open(); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	wait := minPollInterval
	for {
		held, err := l.flock()
		if err != nil {
			l.release()
			return err
		}
		if held {
			return nil
		}

		select {
		case <-ctx.Done():
			l.release()
			return ctx.Err()
		case <-timer.C:
			l.release()
			return ErrLockTimeout
		case <-time.After(wait):
			wait = min(wait*2, maxPollInterval)
		}
	}
}

// Unlock releases the lock. Unlocking a lock that is not held is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

// IsLocked reports whether this instance holds the lock.
func (l *FileLock) IsLocked() bool {
	return l.file != nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// flock makes one non-blocking attempt. Contention is not an error.
func (l *FileLock) flock() (bool, error) {
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, syscall.EWOULDBLOCK):
		return false, nil
	default:
		return false, fmt.Errorf("flock failed: %w", err)
	}
}

func (l *FileLock) open() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	l.file = file
	return nil
}

func (l *FileLock) release() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}
