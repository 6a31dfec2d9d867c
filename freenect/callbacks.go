//go:build freenect

package freenect

/*
#include <libfreenect/libfreenect.h>
*/
import "C"

import "unsafe"

//export goDepthCallback
func goDepthCallback(dev *C.freenect_device, depth unsafe.Pointer, timestamp C.uint32_t) {
	d, ok := lookupDevice(dev)
	if !ok || d.depthCallback == nil {
		return
	}
	n := d.DepthMode().Bytes / 2
	d.depthCallback(d, unsafe.Slice((*uint16)(depth), n), uint32(timestamp))
}

//export goVideoCallback
func goVideoCallback(dev *C.freenect_device, video unsafe.Pointer, timestamp C.uint32_t) {
	d, ok := lookupDevice(dev)
	if !ok || d.videoCallback == nil {
		return
	}
	n := d.VideoMode().Bytes
	d.videoCallback(d, unsafe.Slice((*byte)(video), n), uint32(timestamp))
}
