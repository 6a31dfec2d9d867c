// Package kinect exposes a Kinect as a time-of-flight camera: depth in
// millimetres becomes the radial stream and the infrared camera the
// intensity stream.
package kinect

import (
	"errors"
	"fmt"
	"time"

	"essaim.dev/tofview/freenect"
	"essaim.dev/tofview/monitoring"
	"essaim.dev/tofview/tof"
)

const (
	depthRows = 480
	depthCols = 640

	// 8-bit infrared at medium resolution carries 8 extra rows.
	irRows = 488
	irCols = 640

	eventTimeout = 100 * time.Millisecond
)

// The Kinect projects structured light; one nominal frequency keeps the
// derived config describable.
var nominalFrequencies = []float64{30}

// Discover lists the serials of the attached Kinects. Builds without
// libfreenect report no devices.
func Discover() ([]tof.UsbDevice, error) {
	fctx, err := freenect.NewContext()
	if errors.Is(err, freenect.ErrUnsupported) {
		monitoring.Logf("skipping usb scan: %v", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not create freenect context: %w", err)
	}
	defer fctx.Destroy()

	serials, err := fctx.ListDeviceSerials()
	if err != nil {
		return nil, fmt.Errorf("could not list devices: %w", err)
	}

	devices := make([]tof.UsbDevice, 0, len(serials))
	for _, s := range serials {
		devices = append(devices, tof.UsbDevice{Serial: s})
	}
	return devices, nil
}

// Camera is an opened Kinect. Frame callbacks run inside Frames on the
// calling goroutine.
type Camera struct {
	fctx   *freenect.Context
	device *freenect.Device
	serial string

	maxDistance float64
	cfg         *tof.CameraConfig
	selected    []tof.Stream

	streaming    bool
	depthStarted bool
	irStarted    bool
	count        uint64

	depth      []uint16
	depthReady bool
	ir         []byte
	irReady    bool
}

// Open opens the Kinect with the given serial, or the first one when serial
// is empty. The LED turns yellow.
func Open(serial string) (*Camera, error) {
	fctx, err := freenect.NewContext()
	if err != nil {
		return nil, fmt.Errorf("could not create freenect context: %w", err)
	}

	var device freenect.Device
	if serial == "" {
		device, err = fctx.OpenDevice(0)
	} else {
		device, err = fctx.OpenDeviceBySerial(serial)
	}
	if err != nil {
		fctx.Destroy()
		return nil, fmt.Errorf("could not open kinect: %w", err)
	}

	if serial == "" {
		if serials, err := fctx.ListDeviceSerials(); err == nil && len(serials) > 0 {
			serial = serials[0]
		}
	}

	if err := device.SetLED(freenect.LEDColorYellow); err != nil {
		monitoring.Logf("could not set kinect led: %v", err)
	}

	return &Camera{
		fctx:   &fctx,
		device: &device,
		serial: serial,
	}, nil
}

func (c *Camera) Serial() string {
	return c.serial
}

func (c *Camera) ConfigFor(u tof.UserConfig) (*tof.CameraConfig, error) {
	cfg, err := tof.DeriveConfig(u, nominalFrequencies)
	if err != nil {
		return nil, err
	}
	c.maxDistance = u.MaxDistance
	return cfg, nil
}

func (c *Camera) SetCameraConfig(cfg *tof.CameraConfig) error {
	for _, f := range cfg.Frames {
		if f.Binning != 1 {
			monitoring.Logf("kinect ignores binning %d", f.Binning)
		}
	}
	c.cfg = cfg
	return nil
}

func (c *Camera) SetProcessConfig(tof.ProcessingConfig) error {
	return nil
}

func (c *Camera) OnCameraProcessingCapable() bool {
	return false
}

func (c *Camera) SetOnCameraProcessing(enabled bool) error {
	if enabled {
		return errors.New("kinect has no on-camera processing")
	}
	return nil
}

// StreamList advertises depth and infrared only. The colour camera shares
// its USB endpoint with infrared and is left out.
func (c *Camera) StreamList() ([]tof.Stream, error) {
	return []tof.Stream{
		{Type: tof.FrameTypeRadial, Rows: depthRows, Cols: depthCols},
		{Type: tof.FrameTypeIntensity, Rows: irRows, Cols: irCols},
	}, nil
}

func (c *Camera) SetStreams(streams []tof.Stream) error {
	available, _ := c.StreamList()
	for _, s := range streams {
		if !tof.HasStream(available, s.Type) {
			return fmt.Errorf("kinect has no %s stream", s.Type)
		}
	}
	c.selected = streams
	return nil
}

// Start starts the selected streams and blinks the LED green.
func (c *Camera) Start() error {
	if c.maxDistance <= 0 {
		return errors.New("kinect is not configured")
	}

	for _, s := range c.selected {
		switch s.Type {
		case tof.FrameTypeRadial:
			c.device.SetDepthCallback(c.depthFunc)
			if err := c.device.StartDepthStream(freenect.ResolutionMedium, freenect.DepthFormatMM); err != nil {
				c.stopStreams()
				return fmt.Errorf("could not start depth stream: %w", err)
			}
			c.depthStarted = true

		case tof.FrameTypeIntensity:
			c.device.SetVideoCallback(c.irFunc)
			if err := c.device.StartVideoStream(freenect.ResolutionMedium, freenect.VideoFormatIR8Bit); err != nil {
				c.stopStreams()
				return fmt.Errorf("could not start infrared stream: %w", err)
			}
			c.irStarted = true
		}
	}

	if err := c.device.SetLED(freenect.LEDColorBlinkGreen); err != nil {
		monitoring.Logf("could not set kinect led: %v", err)
	}
	c.streaming = true
	return nil
}

func (c *Camera) Stop() error {
	if !c.streaming {
		return nil
	}
	c.streaming = false

	err := c.stopStreams()
	if lerr := c.device.SetLED(freenect.LEDColorGreen); lerr != nil {
		monitoring.Logf("could not set kinect led: %v", lerr)
	}
	return err
}

func (c *Camera) stopStreams() error {
	var errs []error
	if c.depthStarted {
		errs = append(errs, c.device.StopDepthStream())
		c.depthStarted = false
	}
	if c.irStarted {
		errs = append(errs, c.device.StopVideoStream())
		c.irStarted = false
	}
	return errors.Join(errs...)
}

func (c *Camera) IsStreaming() bool {
	return c.streaming
}

// Frames processes USB events for up to 100ms and returns the frames that
// completed meanwhile.
func (c *Camera) Frames() ([]tof.Frame, error) {
	if !c.streaming {
		return nil, tof.ErrNotStreaming
	}

	if err := c.fctx.ProcessEvents(eventTimeout); err != nil {
		return nil, fmt.Errorf("could not process events: %w", err)
	}

	now := time.Now()
	var frames []tof.Frame
	if c.depthReady {
		c.count++
		f := tof.NewRadialFrame(depthRows, depthCols, c.depth)
		f.Count = c.count
		f.Timestamp = now
		frames = append(frames, f)
		c.depthReady = false
	}
	if c.irReady {
		frames = append(frames, tof.Frame{
			Type:      tof.FrameTypeIntensity,
			Rows:      irRows,
			Cols:      irCols,
			Count:     c.count,
			Timestamp: now,
			Data:      append([]byte(nil), c.ir...),
		})
		c.irReady = false
	}

	return frames, nil
}

// Close stops streaming, turns the LED red and releases the device.
func (c *Camera) Close() error {
	stopErr := c.Stop()
	if err := c.device.SetLED(freenect.LEDColorRed); err != nil {
		monitoring.Logf("could not set kinect led: %v", err)
	}
	return errors.Join(stopErr, c.device.Destroy(), c.fctx.Destroy())
}

func (c *Camera) depthFunc(device *freenect.Device, depth []uint16, timestamp uint32) {
	c.depth = scaleDepth(depth, c.maxDistance, c.depth[:0])
	c.depthReady = true
}

func (c *Camera) irFunc(device *freenect.Device, video []byte, timestamp uint32) {
	c.ir = append(c.ir[:0], video...)
	c.irReady = true
}

// scaleDepth maps millimetres onto 0..65535 so that 65535 is maxDistance
// metres. Zero marks pixels without a reading and stays zero.
func scaleDepth(mm []uint16, maxDistance float64, dst []uint16) []uint16 {
	limit := maxDistance * 1000

	for _, v := range mm {
		switch {
		case v == 0:
			dst = append(dst, 0)
		case float64(v) >= limit:
			dst = append(dst, 65535)
		default:
			dst = append(dst, uint16(float64(v)*65535/limit+0.5))
		}
	}

	return dst
}
