//go:build darwin

package sandbox

import "syscall"

// maxRSSBytes converts ru_maxrss to bytes. macOS reports bytes directly.
func maxRSSBytes(rusage *syscall.Rusage) int64 {
	return rusage.Maxrss
}
