package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
)

// InstanceLock keeps two relays from serving out of the same data directory.
// Lock file: <data_dir>/opendocs.lock
// Content: PID of the running relay
type InstanceLock struct {
	path string
}

func NewInstanceLock(dataDir string) *InstanceLock {
	return &InstanceLock{path: filepath.Join(dataDir, "opendocs.lock")}
}

// Path returns the lock file location.
func (l *InstanceLock) Path() string {
	return l.path
}

// Acquire takes the lock, failing when another live relay holds it.
func (l *InstanceLock) Acquire() error {
	locked, pid, err := l.Check()
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("another opendocs relay is running (pid %d); remove %s if it is not", pid, l.path)
	}

	// Write PID to lock file (0600 - user-only access)
	return os.WriteFile(l.path, []byte(fmt.Sprintf("%d", os.Getpid())), 0600)
}

// Release removes the lock file.
func (l *InstanceLock) Release() error {
	// Ignore error if file doesn't exist
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Check reports whether another process currently holds the lock.
// Returns (isLocked bool, runningPID int, err error)
func (l *InstanceLock) Check() (bool, int, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return false, 0, nil // No lock file, not locked
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read lock file: %w", err)
	}

	var pid int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &pid); err != nil || pid <= 0 {
		// Invalid lock file, clean it up
		_ = os.Remove(l.path)
		return false, 0, nil
	}
	if pid == os.Getpid() {
		return false, pid, nil
	}

	if !processAlive(pid) {
		_ = os.Remove(l.path)
		return false, 0, nil
	}

	return true, pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		// Process not found (Windows)
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	// os.FindProcess always succeeds on Unix; signal 0 probes for existence.
	err = proc.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
