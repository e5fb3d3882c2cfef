// Package pidfile manages the bridge daemon's single-instance pid file.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Flaresoft-Solutions/prompt-dock-bridge/internal/procutil"
)

// Acquire writes the current process's pid to path, refusing if another
// live process already holds it. A stale file (owner dead) is cleaned up
// and reclaimed.
func Acquire(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("pidfile: create directory: %w", err)
	}

	if content, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(content))); perr == nil {
			if procutil.IsAlive(pid) {
				return fmt.Errorf("pidfile: bridge already running with pid %d", pid)
			}
		}
		_ = os.Remove(path)
	}

	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

// Release removes the pid file.
func Release(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Read returns the pid recorded in path.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(content)))
}

// IsRunning reports whether the process named by path's pid is alive.
func IsRunning(path string) (bool, int, error) {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return procutil.IsAlive(pid), pid, nil
}
