//go:build unix

package lock

import (
	"os"
	"syscall"
)

// pidAlive reports whether a process with the given pid exists.
// Signal 0 checks existence without delivering anything; EPERM still means
// the process is there.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
