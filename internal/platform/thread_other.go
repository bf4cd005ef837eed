//go:build !linux && !windows && !darwin

package platform

// ThreadID reports a single logical thread on platforms without a thread id
// source; cross-thread takeover is not detected there.
func ThreadID() uint64 {
	return 1
}
