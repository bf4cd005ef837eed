//go:build linux

package platform

import "golang.org/x/sys/unix"

// ThreadID returns the calling OS thread's identifier. Callers that bind
// contexts must have locked their goroutine with runtime.LockOSThread.
func ThreadID() uint64 {
	return uint64(unix.Gettid())
}
