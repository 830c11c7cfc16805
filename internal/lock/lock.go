// Package lock provides an advisory, cross-process lock file guarding one
// install directory for the duration of an install.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute

	// DefaultPollInterval is how often a busy lock is retried.
	DefaultPollInterval = 100 * time.Millisecond
)

var (
	ErrLockExists  = errors.New("install lock exists: another operation may be in progress")
	ErrLockTimeout = errors.New("timed out waiting for install lock")
	ErrLockLost    = errors.New("install lock was broken as stale and taken by another owner")
)

// Lock represents a held lock file.
type Lock struct {
	path  string
	owner string
	file  *os.File
}

// Options tunes Acquire.
type Options struct {
	// Wait is how long to keep polling a busy lock. Zero fails immediately
	// with ErrLockExists.
	Wait time.Duration
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
}

// PathFor returns the lock path guarding dir. It is a sibling of dir so it
// survives dir being removed during an upgrade.
func PathFor(dir string) string {
	clean := filepath.Clean(dir)
	return filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+".relfetch.lock")
}

// Acquire takes the lock at path, polling until it is free, opts.Wait
// elapses, or ctx is done. Locks older than StaleLockThreshold are broken.
func Acquire(ctx context.Context, path string, opts Options) (*Lock, error) {
	// Check context before attempting
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := time.Now().Add(opts.Wait)

	for {
		l, err := tryAcquire(path)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, ErrLockExists) {
			return nil, err
		}
		if opts.Wait <= 0 {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}

// tryAcquire makes one O_CREATE|O_EXCL attempt, breaking a stale lock once.
func tryAcquire(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if stale, _ := isLockStale(path); !stale {
			return nil, ErrLockExists
		}
		// Remove stale lock and retry once
		_ = os.Remove(path)
		file, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err != nil {
			return nil, ErrLockExists
		}
	}

	owner := uuid.NewString()

	// Write lock metadata (PID, owner and timestamp)
	lockData := fmt.Sprintf("pid=%d\nowner=%s\ntimestamp=%s\n",
		os.Getpid(), owner, time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{
		path:  path,
		owner: owner,
		file:  file,
	}, nil
}

// Owner returns the unique id written into the lock file.
func (l *Lock) Owner() string {
	return l.owner
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. The file is removed only while it still
// carries this lock's owner id; a lock broken as stale and re-acquired by
// another process is left in place and ErrLockLost is returned.
func (l *Lock) Release() error {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}

	if l.path == "" {
		return nil
	}
	path := l.path
	l.path = ""

	owner, err := readOwner(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read lock file: %w", err)
	}
	if owner != l.owner {
		return fmt.Errorf("%w: %s", ErrLockLost, path)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// readOwner returns the owner= value recorded in the lock file at path.
func readOwner(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(line, "owner="); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", nil
}

// isLockStale checks if a lock file is older than the stale lock threshold.
func isLockStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}

	age := time.Since(info.ModTime())
	return age > StaleLockThreshold, nil
}
