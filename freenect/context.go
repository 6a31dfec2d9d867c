//go:build freenect

package freenect

/*
#include <stdlib.h>
#include <sys/time.h>
#include <libfreenect/libfreenect.h>

static int process_events_usec(freenect_context *ctx, long usec) {
	struct timeval tv;
	tv.tv_sec = usec / 1000000;
	tv.tv_usec = usec % 1000000;
	return freenect_process_events_timeout(ctx, &tv);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"time"
	"unsafe"
)

// ErrContextDestroyed is returned by every Context method once Destroy has
// run.
var ErrContextDestroyed = errors.New("context already destroyed")

// Context is a libfreenect library context.
type Context struct {
	ptr *C.freenect_context
}

// NewContext initialises libfreenect for the camera and motor subdevices.
func NewContext() (Context, error) {
	var ptr *C.freenect_context
	if rc := C.freenect_init(&ptr, nil); rc < 0 {
		return Context{}, fmt.Errorf("freenect_init failed with %d", int(rc))
	}
	C.freenect_select_subdevices(ptr, C.freenect_device_flags(C.FREENECT_DEVICE_MOTOR|C.FREENECT_DEVICE_CAMERA))

	registryMu.Lock()
	contexts[ptr] = struct{}{}
	registryMu.Unlock()

	return Context{ptr: ptr}, nil
}

// Destroy shuts the context down. Devices opened from it must be destroyed
// first.
func (c *Context) Destroy() error {
	registryMu.Lock()
	_, ok := contexts[c.ptr]
	delete(contexts, c.ptr)
	registryMu.Unlock()

	if !ok {
		return ErrContextDestroyed
	}
	if rc := C.freenect_shutdown(c.ptr); rc < 0 {
		return fmt.Errorf("freenect_shutdown failed with %d", int(rc))
	}
	return nil
}

// ProcessEvents handles pending USB events, waiting at most timeout. Frame
// callbacks run on the calling goroutine.
func (c *Context) ProcessEvents(timeout time.Duration) error {
	if !lookupContext(c.ptr) {
		return ErrContextDestroyed
	}
	if rc := C.process_events_usec(c.ptr, C.long(timeout.Microseconds())); rc < 0 {
		return fmt.Errorf("freenect_process_events failed with %d", int(rc))
	}
	return nil
}

func (c *Context) NumDevices() (int, error) {
	if !lookupContext(c.ptr) {
		return 0, ErrContextDestroyed
	}
	n := C.freenect_num_devices(c.ptr)
	if n < 0 {
		return 0, fmt.Errorf("freenect_num_devices failed with %d", int(n))
	}
	return int(n), nil
}

// ListDeviceSerials returns the camera serial of every attached device.
func (c *Context) ListDeviceSerials() ([]string, error) {
	if !lookupContext(c.ptr) {
		return nil, ErrContextDestroyed
	}
	var attrs *C.struct_freenect_device_attributes
	n := C.freenect_list_device_attributes(c.ptr, &attrs)
	if n < 0 {
		return nil, fmt.Errorf("freenect_list_device_attributes failed with %d", int(n))
	}
	defer C.freenect_free_device_attributes(attrs)

	serials := make([]string, 0, int(n))
	for a := attrs; a != nil; a = a.next {
		serials = append(serials, C.GoString(a.camera_serial))
	}

	return serials, nil
}

func (c *Context) OpenDevice(index int) (Device, error) {
	if !lookupContext(c.ptr) {
		return Device{}, ErrContextDestroyed
	}
	var ptr *C.freenect_device
	if rc := C.freenect_open_device(c.ptr, &ptr, C.int(index)); rc < 0 {
		return Device{}, fmt.Errorf("could not open device %d: error %d", index, int(rc))
	}
	return Device{ptr: ptr}, nil
}

func (c *Context) OpenDeviceBySerial(serial string) (Device, error) {
	if !lookupContext(c.ptr) {
		return Device{}, ErrContextDestroyed
	}
	cs := C.CString(serial)
	defer C.free(unsafe.Pointer(cs))

	var ptr *C.freenect_device
	if rc := C.freenect_open_device_by_camera_serial(c.ptr, &ptr, cs); rc < 0 {
		return Device{}, fmt.Errorf("could not open device %s: error %d", serial, int(rc))
	}
	return Device{ptr: ptr}, nil
}
