// Package toftest provides a scripted tof.Camera for tests.
package toftest

import (
	"essaim.dev/tofview/tof"
)

// Camera is a tof.Camera that records every call and replays Batches from
// Frames. It stops streaming once the batches are used up.
type Camera struct {
	SerialNumber string
	Streams      []tof.Stream
	Capable      bool
	Batches      [][]tof.Frame

	ConfigErr error
	StartErr  error
	FramesErr error

	CameraConfig       *tof.CameraConfig
	ProcessingConfig   tof.ProcessingConfig
	OnCameraProcessing bool
	Selected           []tof.Stream
	UserConfig         tof.UserConfig

	Started    bool
	Stopped    int
	Closed     int
	FrameCalls int

	streaming bool
}

// New returns a camera advertising the given stream types at 4x3.
func New(serial string, types ...tof.FrameType) *Camera {
	c := &Camera{SerialNumber: serial}
	for _, t := range types {
		c.Streams = append(c.Streams, tof.Stream{Type: t, Rows: 3, Cols: 4})
	}
	return c
}

func (c *Camera) Serial() string { return c.SerialNumber }

func (c *Camera) ConfigFor(user tof.UserConfig) (*tof.CameraConfig, error) {
	if c.ConfigErr != nil {
		return nil, c.ConfigErr
	}
	c.UserConfig = user
	return tof.DeriveConfig(user, []float64{100, 80})
}

func (c *Camera) SetCameraConfig(cfg *tof.CameraConfig) error {
	c.CameraConfig = cfg
	return nil
}

func (c *Camera) SetProcessConfig(cfg tof.ProcessingConfig) error {
	c.ProcessingConfig = cfg
	return nil
}

func (c *Camera) OnCameraProcessingCapable() bool { return c.Capable }

func (c *Camera) SetOnCameraProcessing(enabled bool) error {
	c.OnCameraProcessing = enabled
	return nil
}

func (c *Camera) StreamList() ([]tof.Stream, error) { return c.Streams, nil }

func (c *Camera) SetStreams(streams []tof.Stream) error {
	c.Selected = streams
	return nil
}

func (c *Camera) Start() error {
	if c.StartErr != nil {
		return c.StartErr
	}
	c.Started = true
	c.streaming = true
	return nil
}

func (c *Camera) Stop() error {
	c.Stopped++
	c.streaming = false
	return nil
}

func (c *Camera) IsStreaming() bool { return c.streaming }

func (c *Camera) Frames() ([]tof.Frame, error) {
	c.FrameCalls++
	if c.FramesErr != nil {
		return nil, c.FramesErr
	}
	if len(c.Batches) == 0 {
		c.streaming = false
		return nil, nil
	}
	batch := c.Batches[0]
	c.Batches = c.Batches[1:]
	if len(c.Batches) == 0 {
		c.streaming = false
	}
	return batch, nil
}

func (c *Camera) Close() error {
	c.Closed++
	return nil
}

// Opener returns a session opener that hands out cam, or err when set.
func Opener(cam *Camera, err error) func(string) (tof.Camera, error) {
	return func(string) (tof.Camera, error) {
		if err != nil {
			return nil, err
		}
		return cam, nil
	}
}
