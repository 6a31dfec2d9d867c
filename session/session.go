// Package session brings one camera from unopened to streaming.
package session

import (
	"errors"
	"fmt"

	"essaim.dev/tofview/config"
	"essaim.dev/tofview/monitoring"
	"essaim.dev/tofview/tof"
)

var (
	// ErrDevice wraps failures to open or configure the camera.
	ErrDevice = errors.New("camera device error")

	// ErrNoStreamsSelected is returned when none of the requested streams
	// is provided by the camera.
	ErrNoStreamsSelected = errors.New("did not select any streams from the camera")
)

// State is how far Open got.
type State int

const (
	StateUnopened State = iota
	StateOpened
	StateConfigured
	StateStreamSelected
	StateStreaming
)

func (s State) String() string {
	return [...]string{"unopened", "opened", "configured", "stream-selected", "streaming"}[s]
}

// Opener opens a camera by serial number. An empty serial opens the first
// camera found.
type Opener func(serial string) (tof.Camera, error)

// Capabilities records what was asked for and what the camera allowed.
type Capabilities struct {
	BGRRequested                bool
	BGR                         bool
	BGRProjectedRequested       bool
	BGRProjected                bool
	OnCameraProcessingRequested bool
	OnCameraProcessing          bool
}

// Downgraded reports whether a requested feature was silently dropped.
func (c Capabilities) Downgraded() bool {
	return (c.BGRRequested && !c.BGR) ||
		(c.BGRProjectedRequested && !c.BGRProjected) ||
		(c.OnCameraProcessingRequested && !c.OnCameraProcessing)
}

// Session is a camera that is streaming.
type Session struct {
	Camera  tof.Camera
	Caps    Capabilities
	Streams []tof.FrameType

	CameraConfig     *tof.CameraConfig
	ProcessingConfig tof.ProcessingConfig

	state State
}

// State returns the state the session reached.
func (s *Session) State() State {
	return s.state
}

// Open opens, configures and starts a camera. The camera is closed again
// when any step after opening fails.
func Open(open Opener, opts config.Options) (*Session, error) {
	s := &Session{state: StateUnopened}

	cam, err := open(opts.Serial)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open camera: %v", ErrDevice, err)
	}
	s.Camera = cam
	s.state = StateOpened
	monitoring.Logf("opened camera %s", cam.Serial())

	if err := s.setup(opts); err != nil {
		if cerr := cam.Close(); cerr != nil {
			monitoring.Logf("could not close camera %s: %v", cam.Serial(), cerr)
		}
		return nil, err
	}

	return s, nil
}

func (s *Session) setup(opts config.Options) error {
	if err := s.configure(opts); err != nil {
		return err
	}
	s.state = StateConfigured

	if err := s.selectStreams(opts); err != nil {
		return err
	}
	s.state = StateStreamSelected

	if err := s.Camera.Start(); err != nil {
		return fmt.Errorf("%w: could not start camera: %v", ErrDevice, err)
	}
	s.state = StateStreaming

	return nil
}

func (s *Session) configure(opts config.Options) error {
	cam := s.Camera

	cfg, err := cam.ConfigFor(opts.UserConfig())
	if err != nil {
		return fmt.Errorf("%w: could not derive camera config: %v", ErrDevice, err)
	}
	for n := 0; n < cfg.FrameSize(); n++ {
		if err := cfg.SetBinning(n, opts.Binning); err != nil {
			return fmt.Errorf("%w: could not set binning: %v", ErrDevice, err)
		}
	}

	proc := cfg.DefaultProcessing()
	proc.IntensityScale = opts.IntensityScale
	if opts.OnCameraProcessing {
		proc.TemporalSigma = opts.TemporalSigma
	}

	if err := cam.SetCameraConfig(cfg); err != nil {
		return fmt.Errorf("%w: could not set camera config: %v", ErrDevice, err)
	}
	if err := cam.SetProcessConfig(proc); err != nil {
		return fmt.Errorf("%w: could not set processing config: %v", ErrDevice, err)
	}

	s.Caps.OnCameraProcessingRequested = opts.OnCameraProcessing
	if opts.OnCameraProcessing && cam.OnCameraProcessingCapable() {
		if err := cam.SetOnCameraProcessing(true); err != nil {
			return fmt.Errorf("%w: could not enable on-camera processing: %v", ErrDevice, err)
		}
		s.Caps.OnCameraProcessing = true
	}

	s.CameraConfig = cfg
	s.ProcessingConfig = proc
	return nil
}

func (s *Session) selectStreams(opts config.Options) error {
	available, err := s.Camera.StreamList()
	if err != nil {
		return fmt.Errorf("%w: could not get stream list: %v", ErrDevice, err)
	}

	s.Caps.BGRRequested = opts.BGR
	s.Caps.BGRProjectedRequested = opts.BGRProjected
	s.Caps.BGR = opts.BGR && tof.HasStream(available, tof.FrameTypeBGR)
	s.Caps.BGRProjected = opts.BGRProjected && tof.HasStream(available, tof.FrameTypeBGRProjected)

	types := []tof.FrameType{tof.FrameTypeRadial, tof.FrameTypeIntensity}
	if s.Caps.BGR {
		types = append(types, tof.FrameTypeBGR)
	}
	if s.Caps.BGRProjected {
		types = append(types, tof.FrameTypeBGRProjected)
	}

	n, err := tof.SelectStreams(s.Camera, types)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	if n == 0 {
		return ErrNoStreamsSelected
	}

	for _, t := range types {
		if tof.HasStream(available, t) {
			s.Streams = append(s.Streams, t)
		}
	}

	if s.Caps.Downgraded() {
		monitoring.Logf("camera %s does not provide every requested feature: %+v", s.Camera.Serial(), s.Caps)
	}

	return nil
}

// Close stops streaming and releases the camera.
func (s *Session) Close() error {
	if s.Camera.IsStreaming() {
		if err := s.Camera.Stop(); err != nil {
			monitoring.Logf("could not stop camera %s: %v", s.Camera.Serial(), err)
		}
	}
	return s.Camera.Close()
}
