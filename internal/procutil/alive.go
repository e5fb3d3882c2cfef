// Package procutil provides small OS-process helpers shared by the pidfile
// and CLI packages.
package procutil

import (
	"os"
	"syscall"
)

// IsAlive reports whether a process with the given pid still exists, by
// sending signal 0 (which never actually signals anything) and inspecting
// the result.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
