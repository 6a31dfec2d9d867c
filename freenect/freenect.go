//go:build freenect

package freenect

/*
#cgo darwin CFLAGS: -I/opt/homebrew/include
#cgo darwin LDFLAGS: -L/opt/homebrew/lib -lfreenect
#cgo linux LDFLAGS: -lfreenect
#include <libfreenect/libfreenect.h>
*/
import "C"

import "sync"

// contexts holds the live library contexts, so that a destroyed one is never
// handed back to libfreenect. Callbacks from C find their devices through
// devices.
var (
	registryMu sync.RWMutex
	contexts   map[*C.freenect_context]struct{}
	devices    map[*C.freenect_device]*Device
)

func init() {
	contexts = make(map[*C.freenect_context]struct{})
	devices = make(map[*C.freenect_device]*Device)
}

func lookupContext(ptr *C.freenect_context) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	_, ok := contexts[ptr]
	return ok
}

func lookupDevice(ptr *C.freenect_device) (*Device, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := devices[ptr]
	return d, ok
}
