// Package freenect implements a Go binding for the libfreenect library.
//
// The cgo binding is only compiled with the freenect build tag. Without it
// every entry point returns ErrUnsupported.
package freenect

import "errors"

// ErrUnsupported is returned when the package was built without libfreenect.
var ErrUnsupported = errors.New("built without libfreenect support")

// LEDColor mirrors freenect_led_options.
type LEDColor int

const (
	LEDColorOff            LEDColor = 0
	LEDColorGreen          LEDColor = 1
	LEDColorRed            LEDColor = 2
	LEDColorYellow         LEDColor = 3
	LEDColorBlinkGreen     LEDColor = 4
	LEDColorBlinkRedYellow LEDColor = 6
)

// Resolution mirrors freenect_resolution.
type Resolution int

const (
	ResolutionLow    Resolution = 0
	ResolutionMedium Resolution = 1
	ResolutionHigh   Resolution = 2
)

// DepthFormat mirrors freenect_depth_format.
type DepthFormat int

const (
	DepthFormat11Bit       DepthFormat = 0
	DepthFormat10Bit       DepthFormat = 1
	DepthFormat11BitPacked DepthFormat = 2
	DepthFormat10BitPacked DepthFormat = 3
	DepthFormatRegistered  DepthFormat = 4
	DepthFormatMM          DepthFormat = 5
)

// VideoFormat mirrors freenect_video_format.
type VideoFormat int

const (
	VideoFormatRGB           VideoFormat = 0
	VideoFormatBayer         VideoFormat = 1
	VideoFormatIR8Bit        VideoFormat = 2
	VideoFormatIR10Bit       VideoFormat = 3
	VideoFormatIR10BitPacked VideoFormat = 4
	VideoFormatYUVRGB        VideoFormat = 5
	VideoFormatYUVRaw        VideoFormat = 6
)

// FrameMode is the geometry of the current depth or video mode.
type FrameMode struct {
	Width  int
	Height int
	Bytes  int
}

// DepthCallback receives every depth frame. The slice is owned by
// libfreenect and only valid for the duration of the call.
type DepthCallback func(device *Device, depth []uint16, timestamp uint32)

// VideoCallback receives every video frame under the same ownership rule as
// DepthCallback.
type VideoCallback func(device *Device, video []byte, timestamp uint32)
