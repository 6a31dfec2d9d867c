//go:build freenect

package freenect

/*
#include <libfreenect/libfreenect.h>

extern void goDepthCallback(freenect_device *dev, void *depth, uint32_t timestamp);
extern void goVideoCallback(freenect_device *dev, void *video, uint32_t timestamp);

static void set_callbacks(freenect_device *dev) {
	freenect_set_depth_callback(dev, goDepthCallback);
	freenect_set_video_callback(dev, goVideoCallback);
}
*/
import "C"

import (
	"errors"
	"fmt"
)

// Device is an opened Kinect.
type Device struct {
	ptr *C.freenect_device

	depthCallback DepthCallback
	videoCallback VideoCallback
}

func (d *Device) SetLED(color LEDColor) error {
	if rc := C.freenect_set_led(d.ptr, C.freenect_led_options(color)); rc < 0 {
		return fmt.Errorf("freenect_set_led failed with %d", int(rc))
	}
	return nil
}

// SetDepthCallback registers fn for depth frames. d must stay at the same
// address until it is destroyed.
func (d *Device) SetDepthCallback(fn DepthCallback) {
	d.depthCallback = fn
	d.register()
}

// SetVideoCallback registers fn for video frames.
func (d *Device) SetVideoCallback(fn VideoCallback) {
	d.videoCallback = fn
	d.register()
}

func (d *Device) register() {
	registryMu.Lock()
	devices[d.ptr] = d
	registryMu.Unlock()

	C.set_callbacks(d.ptr)
}

func (d *Device) StartDepthStream(res Resolution, format DepthFormat) error {
	mode := C.freenect_find_depth_mode(C.freenect_resolution(res), C.freenect_depth_format(format))
	if mode.is_valid == 0 {
		return fmt.Errorf("no depth mode for resolution %d format %d", res, format)
	}
	if rc := C.freenect_set_depth_mode(d.ptr, mode); rc < 0 {
		return fmt.Errorf("freenect_set_depth_mode failed with %d", int(rc))
	}
	if rc := C.freenect_start_depth(d.ptr); rc < 0 {
		return fmt.Errorf("freenect_start_depth failed with %d", int(rc))
	}
	return nil
}

func (d *Device) StopDepthStream() error {
	if rc := C.freenect_stop_depth(d.ptr); rc < 0 {
		return fmt.Errorf("freenect_stop_depth failed with %d", int(rc))
	}
	return nil
}

func (d *Device) StartVideoStream(res Resolution, format VideoFormat) error {
	mode := C.freenect_find_video_mode(C.freenect_resolution(res), C.freenect_video_format(format))
	if mode.is_valid == 0 {
		return fmt.Errorf("no video mode for resolution %d format %d", res, format)
	}
	if rc := C.freenect_set_video_mode(d.ptr, mode); rc < 0 {
		return fmt.Errorf("freenect_set_video_mode failed with %d", int(rc))
	}
	if rc := C.freenect_start_video(d.ptr); rc < 0 {
		return fmt.Errorf("freenect_start_video failed with %d", int(rc))
	}
	return nil
}

func (d *Device) StopVideoStream() error {
	if rc := C.freenect_stop_video(d.ptr); rc < 0 {
		return fmt.Errorf("freenect_stop_video failed with %d", int(rc))
	}
	return nil
}

// DepthMode returns the geometry of the current depth mode.
func (d *Device) DepthMode() FrameMode {
	return frameMode(C.freenect_get_current_depth_mode(d.ptr))
}

// VideoMode returns the geometry of the current video mode.
func (d *Device) VideoMode() FrameMode {
	return frameMode(C.freenect_get_current_video_mode(d.ptr))
}

func frameMode(m C.freenect_frame_mode) FrameMode {
	return FrameMode{Width: int(m.width), Height: int(m.height), Bytes: int(m.bytes)}
}

func (d *Device) Destroy() error {
	registryMu.Lock()
	delete(devices, d.ptr)
	registryMu.Unlock()

	if d.ptr == nil {
		return errors.New("device not opened")
	}
	if rc := C.freenect_close_device(d.ptr); rc < 0 {
		return fmt.Errorf("freenect_close_device failed with %d", int(rc))
	}
	d.ptr = nil
	return nil
}
