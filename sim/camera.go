// Package sim is a camera backend producing a synthetic scene, for running
// the viewer and the relay without hardware.
package sim

import (
	"errors"
	"fmt"
	"math"
	"net/netip"
	"time"

	"essaim.dev/tofview/tof"
)

const (
	SerialColor     = "sim-kea-01"
	SerialDepthOnly = "sim-kea-02"
	SerialNetwork   = "sim-kea-03"

	rows = 240
	cols = 320
)

// Modulation frequencies in MHz, highest first.
var frequencies = []float64{100, 80, 60, 20}

var networkAddr = netip.MustParseAddr("192.168.7.2")

// DiscoverUSB lists the simulated directly attached cameras.
func DiscoverUSB() ([]tof.UsbDevice, error) {
	return []tof.UsbDevice{{Serial: SerialColor}, {Serial: SerialDepthOnly}}, nil
}

// DiscoverNetwork lists the simulated network cameras.
func DiscoverNetwork() ([]tof.DiscoveryMessage, error) {
	return []tof.DiscoveryMessage{{Serial: SerialNetwork, IP: networkAddr}}, nil
}

// Camera is a simulated camera. Frames blocks until the next frame period.
type Camera struct {
	serial string
	color  bool

	fps     float64
	cfg     *tof.CameraConfig
	proc    tof.ProcessingConfig
	onCam   bool
	streams []tof.Stream

	ticker    *time.Ticker
	streaming bool
	count     uint64
	closed    bool
}

// Open opens the simulated camera with the given serial, or the first one
// when serial is empty.
func Open(serial string) (*Camera, error) {
	switch serial {
	case "", SerialColor:
		return &Camera{serial: SerialColor, color: true}, nil
	case SerialDepthOnly, SerialNetwork:
		return &Camera{serial: serial}, nil
	}
	return nil, fmt.Errorf("no simulated camera with serial %q", serial)
}

func (c *Camera) Serial() string {
	return c.serial
}

func (c *Camera) ConfigFor(u tof.UserConfig) (*tof.CameraConfig, error) {
	cfg, err := tof.DeriveConfig(u, frequencies)
	if err != nil {
		return nil, err
	}
	c.fps = u.FPS
	return cfg, nil
}

func (c *Camera) SetCameraConfig(cfg *tof.CameraConfig) error {
	if cfg == nil || cfg.FrameSize() == 0 {
		return errors.New("empty camera config")
	}
	for _, f := range cfg.Frames {
		if f.Binning < 1 || rows%f.Binning != 0 || cols%f.Binning != 0 {
			return fmt.Errorf("unsupported binning %d", f.Binning)
		}
	}
	c.cfg = cfg
	return nil
}

func (c *Camera) SetProcessConfig(cfg tof.ProcessingConfig) error {
	c.proc = cfg
	return nil
}

func (c *Camera) OnCameraProcessingCapable() bool {
	return true
}

func (c *Camera) SetOnCameraProcessing(enabled bool) error {
	c.onCam = enabled
	return nil
}

func (c *Camera) StreamList() ([]tof.Stream, error) {
	r, cl := c.depthSize()
	streams := []tof.Stream{
		{Type: tof.FrameTypeRadial, Rows: r, Cols: cl},
		{Type: tof.FrameTypeIntensity, Rows: r, Cols: cl},
	}
	if c.color {
		streams = append(streams,
			tof.Stream{Type: tof.FrameTypeBGR, Rows: rows, Cols: cols},
			tof.Stream{Type: tof.FrameTypeBGRProjected, Rows: r, Cols: cl},
		)
	}
	return streams, nil
}

func (c *Camera) SetStreams(streams []tof.Stream) error {
	available, _ := c.StreamList()
	for _, s := range streams {
		if !tof.HasStream(available, s.Type) {
			return fmt.Errorf("camera %s has no %s stream", c.serial, s.Type)
		}
	}
	c.streams = streams
	return nil
}

func (c *Camera) Start() error {
	if c.closed {
		return errors.New("camera is closed")
	}
	if c.cfg == nil {
		return errors.New("camera is not configured")
	}
	if len(c.streams) == 0 {
		return errors.New("no streams selected")
	}
	if c.streaming {
		return nil
	}

	if c.fps <= 0 {
		c.fps = 15
	}
	c.ticker = time.NewTicker(time.Duration(float64(time.Second) / c.fps))
	c.streaming = true
	return nil
}

func (c *Camera) Stop() error {
	if !c.streaming {
		return nil
	}
	c.ticker.Stop()
	c.streaming = false
	return nil
}

func (c *Camera) IsStreaming() bool {
	return c.streaming
}

func (c *Camera) Frames() ([]tof.Frame, error) {
	if !c.streaming {
		return nil, tof.ErrNotStreaming
	}

	now := <-c.ticker.C
	c.count++

	frames := make([]tof.Frame, 0, len(c.streams))
	for _, s := range c.streams {
		f := tof.Frame{
			Type:      s.Type,
			Rows:      s.Rows,
			Cols:      s.Cols,
			Count:     c.count,
			Timestamp: now,
		}
		switch s.Type {
		case tof.FrameTypeRadial:
			f.Data = tof.NewRadialFrame(s.Rows, s.Cols, c.radial(s.Rows, s.Cols)).Data
		case tof.FrameTypeIntensity:
			f.Data = c.intensity(s.Rows, s.Cols)
		case tof.FrameTypeBGR, tof.FrameTypeBGRProjected:
			f.Data = c.bgr(s.Rows, s.Cols)
		}
		frames = append(frames, f)
	}

	return frames, nil
}

func (c *Camera) Close() error {
	if err := c.Stop(); err != nil {
		return err
	}
	c.closed = true
	return nil
}

func (c *Camera) depthSize() (int, int) {
	binning := 1
	if c.cfg != nil && len(c.cfg.Frames) > 0 {
		binning = c.cfg.Frames[0].Binning
	}
	return rows / binning, cols / binning
}

// phase moves the scene one full cycle every 4 seconds of frames.
func (c *Camera) phase() float64 {
	fps := c.fps
	if fps <= 0 {
		fps = 1
	}
	return 2 * math.Pi * float64(c.count) / (4 * fps)
}

// sphere returns the normalized distance of pixel (x, y) to a sphere
// orbiting the middle of the scene, 0 being closest.
func (c *Camera) sphere(x, y, r, cl int) float64 {
	p := c.phase()
	cx := float64(cl)/2 + float64(cl)/4*math.Cos(p)
	cy := float64(r)/2 + float64(r)/4*math.Sin(p)
	dx := (float64(x) - cx) / float64(cl)
	dy := (float64(y) - cy) / float64(r)
	return math.Min(1, 2*math.Sqrt(dx*dx+dy*dy))
}

func (c *Camera) radial(r, cl int) []uint16 {
	depth := make([]uint16, r*cl)
	for y := 0; y < r; y++ {
		for x := 0; x < cl; x++ {
			d := c.sphere(x, y, r, cl)
			// Background wall slopes away towards the top of the frame.
			if d >= 1 {
				d = 0.6 + 0.4*float64(r-y)/float64(r)
			} else {
				d = 0.05 + 0.5*d
			}
			depth[y*cl+x] = uint16(math.Round(d * 65535))
		}
	}
	return depth
}

func (c *Camera) intensity(r, cl int) []byte {
	scale := c.proc.IntensityScale
	if scale <= 0 {
		scale = 1
	}
	out := make([]byte, r*cl)
	for y := 0; y < r; y++ {
		for x := 0; x < cl; x++ {
			v := (1 - c.sphere(x, y, r, cl)) * 51 * scale
			out[y*cl+x] = uint8(math.Min(255, v))
		}
	}
	return out
}

func (c *Camera) bgr(r, cl int) []byte {
	out := make([]byte, r*cl*3)
	for y := 0; y < r; y++ {
		for x := 0; x < cl; x++ {
			i := (y*cl + x) * 3
			if c.sphere(x, y, r, cl) < 1 {
				out[i+0], out[i+1], out[i+2] = 40, 60, 220
				continue
			}
			out[i+0] = uint8(255 * x / cl)
			out[i+1] = uint8(255 * y / r)
			out[i+2] = 96
		}
	}
	return out
}
