//go:build windows

package lock

import "os"

// pidAlive reports whether a process with the given pid exists.
// On Windows, FindProcess fails for a pid that is not running.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = process.Release()
	return true
}
