//go:build linux

package sandbox

import "syscall"

// maxRSSBytes converts ru_maxrss to bytes. Linux reports kilobytes.
func maxRSSBytes(rusage *syscall.Rusage) int64 {
	return rusage.Maxrss * 1024
}
