package tof

import (
	"errors"
	"fmt"
	"net/netip"
)

// ErrNotStreaming is returned by Frames once the camera was stopped.
var ErrNotStreaming = errors.New("camera is not streaming")

// Stream is one output a camera can produce.
type Stream struct {
	Type FrameType
	Rows int
	Cols int
}

// Camera is a time-of-flight camera session. Implementations are not safe
// for concurrent use.
type Camera interface {
	Serial() string

	// ConfigFor derives the capture configuration for this camera.
	ConfigFor(user UserConfig) (*CameraConfig, error)
	SetCameraConfig(cfg *CameraConfig) error
	SetProcessConfig(cfg ProcessingConfig) error

	OnCameraProcessingCapable() bool
	SetOnCameraProcessing(enabled bool) error

	StreamList() ([]Stream, error)
	SetStreams(streams []Stream) error

	Start() error
	Stop() error
	IsStreaming() bool

	// Frames blocks until the next batch of frames is ready or the backend
	// timeout elapses, in which case it returns an empty batch.
	Frames() ([]Frame, error)

	Close() error
}

// SelectStreams enables every stream of the camera whose type is listed in
// types and returns how many were selected. Requested types the camera does
// not provide are skipped.
func SelectStreams(cam Camera, types []FrameType) (int, error) {
	available, err := cam.StreamList()
	if err != nil {
		return 0, fmt.Errorf("could not get stream list: %w", err)
	}

	var selected []Stream
	for _, stream := range available {
		for _, t := range types {
			if stream.Type == t {
				selected = append(selected, stream)
				break
			}
		}
	}

	if len(selected) == 0 {
		return 0, nil
	}

	if err := cam.SetStreams(selected); err != nil {
		return 0, fmt.Errorf("could not set streams: %w", err)
	}

	return len(selected), nil
}

// HasStream reports whether the stream list contains the given type.
func HasStream(streams []Stream, t FrameType) bool {
	for _, s := range streams {
		if s.Type == t {
			return true
		}
	}
	return false
}

// UsbDevice is a camera found on the local bus.
type UsbDevice struct {
	Serial string
}

// DiscoveryMessage is a camera found on the network.
type DiscoveryMessage struct {
	Serial string
	IP     netip.Addr
	Port   uint16
}
