//go:build darwin

package platform

import (
	"sync"

	"github.com/ebitengine/purego"
)

var (
	pthreadOnce       sync.Once
	pthreadThreadIDNP func(thread uintptr, id *uint64) int32
)

// ThreadID returns the calling OS thread's identifier. Callers that bind
// contexts must have locked their goroutine with runtime.LockOSThread.
func ThreadID() uint64 {
	pthreadOnce.Do(func() {
		lib, err := purego.Dlopen("/usr/lib/libSystem.B.dylib", purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			Logger().Warn("glkit: libSystem unavailable, thread tracking disabled", "error", err)
			return
		}
		purego.RegisterLibFunc(&pthreadThreadIDNP, lib, "pthread_threadid_np")
	})
	if pthreadThreadIDNP == nil {
		return 1
	}
	var id uint64
	pthreadThreadIDNP(0, &id)
	return id
}
