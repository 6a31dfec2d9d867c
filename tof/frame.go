// Package tof describes the time-of-flight camera surface the viewer drives:
// frame types, the three configuration layers and the Camera interface that
// every backend (hardware, simulated or relayed) implements.
package tof

import (
	"encoding/binary"
	"fmt"
	"time"
)

// FrameType tags every frame returned by a camera.
type FrameType int

const (
	FrameTypeRadial FrameType = iota + 1
	FrameTypeIntensity
	FrameTypeBGR
	FrameTypeBGRProjected
)

var frameTypeNames = map[FrameType]string{
	FrameTypeRadial:       "radial",
	FrameTypeIntensity:    "intensity",
	FrameTypeBGR:          "bgr",
	FrameTypeBGRProjected: "bgr_projected",
}

func (t FrameType) String() string {
	if name, ok := frameTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("frame_type(%d)", int(t))
}

// BytesPerPixel is the size of one pixel of the given frame type.
func (t FrameType) BytesPerPixel() int {
	switch t {
	case FrameTypeRadial:
		return 2
	case FrameTypeIntensity:
		return 1
	case FrameTypeBGR, FrameTypeBGRProjected:
		return 3
	default:
		return 0
	}
}

// Frame is one decoded image pulled from a camera. Radial frames hold
// little-endian uint16 samples, intensity frames one byte per pixel and the
// colour frames three bytes per pixel in B, G, R order.
type Frame struct {
	Type      FrameType
	Rows      int
	Cols      int
	Count     uint64
	Timestamp time.Time
	Data      []byte
}

// Validate checks that the buffer matches the frame dimensions.
func (f *Frame) Validate() error {
	bpp := f.Type.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("unknown frame type %s", f.Type)
	}
	if f.Rows <= 0 || f.Cols <= 0 {
		return fmt.Errorf("invalid %s frame size %dx%d", f.Type, f.Cols, f.Rows)
	}
	if want := f.Rows * f.Cols * bpp; len(f.Data) != want {
		return fmt.Errorf("%s frame has %d bytes, expected %d", f.Type, len(f.Data), want)
	}
	return nil
}

// Uint16 decodes a radial frame buffer.
func (f *Frame) Uint16() []uint16 {
	out := make([]uint16, len(f.Data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(f.Data[i*2:])
	}
	return out
}

// NewRadialFrame encodes depth samples into a radial frame.
func NewRadialFrame(rows, cols int, depth []uint16) Frame {
	data := make([]byte, len(depth)*2)
	for i, d := range depth {
		binary.LittleEndian.PutUint16(data[i*2:], d)
	}

	return Frame{
		Type: FrameTypeRadial,
		Rows: rows,
		Cols: cols,
		Data: data,
	}
}
