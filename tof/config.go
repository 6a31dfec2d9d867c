package tof

import (
	"fmt"
	"math"
	"strings"
)

// IntegrationTime is the user level exposure selection.
type IntegrationTime int

const (
	IntegrationTimeShort IntegrationTime = iota
	IntegrationTimeMedium
	IntegrationTimeLong
)

// ImagingEnvironment tells the camera how much ambient light to expect.
type ImagingEnvironment int

const (
	EnvironmentIndoor ImagingEnvironment = iota
	EnvironmentSunlight
)

// Strategy trades frame rate against depth accuracy.
type Strategy int

const (
	StrategyBalanced Strategy = iota
	StrategySpeed
	StrategyAccuracy
)

func (t IntegrationTime) String() string {
	return [...]string{"short", "medium", "long"}[t]
}

func (e ImagingEnvironment) String() string {
	return [...]string{"indoor", "sunlight"}[e]
}

func (s Strategy) String() string {
	return [...]string{"balanced", "speed", "accuracy"}[s]
}

// ParseIntegrationTime parses "short", "medium" or "long".
func ParseIntegrationTime(s string) (IntegrationTime, error) {
	switch strings.ToLower(s) {
	case "short":
		return IntegrationTimeShort, nil
	case "medium":
		return IntegrationTimeMedium, nil
	case "long":
		return IntegrationTimeLong, nil
	}
	return 0, fmt.Errorf("unknown integration time %q", s)
}

// ParseEnvironment parses "indoor" or "sunlight".
func ParseEnvironment(s string) (ImagingEnvironment, error) {
	switch strings.ToLower(s) {
	case "indoor":
		return EnvironmentIndoor, nil
	case "sunlight":
		return EnvironmentSunlight, nil
	}
	return 0, fmt.Errorf("unknown imaging environment %q", s)
}

// ParseStrategy parses "balanced", "speed" or "accuracy".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "balanced":
		return StrategyBalanced, nil
	case "speed":
		return StrategySpeed, nil
	case "accuracy":
		return StrategyAccuracy, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// UserConfig holds the high level settings a camera turns into a
// CameraConfig.
type UserConfig struct {
	FPS             float64
	IntegrationTime IntegrationTime
	MaxDistance     float64 // metres
	Environment     ImagingEnvironment
	Strategy        Strategy
}

// FrameConfig is the capture configuration of one raw frame of a depth
// measurement.
type FrameConfig struct {
	ModulationFrequency float64 // MHz
	IntegrationTimes    []uint32
	DutyCycle           float64
	PhaseShifts         []float64
	Binning             int
}

// CameraConfig is the low level capture configuration derived from a
// UserConfig for one specific camera.
type CameraConfig struct {
	Frames []FrameConfig
	DAC    []uint16
}

// FrameSize returns the number of raw frames per depth measurement.
func (c *CameraConfig) FrameSize() int {
	return len(c.Frames)
}

// SetBinning sets the binning factor of frame n.
func (c *CameraConfig) SetBinning(n, binning int) error {
	if n < 0 || n >= len(c.Frames) {
		return fmt.Errorf("frame index %d out of range", n)
	}
	if binning < 1 {
		return fmt.Errorf("invalid binning %d", binning)
	}
	c.Frames[n].Binning = binning
	return nil
}

// DefaultProcessing returns the processing configuration matching this
// capture configuration.
func (c *CameraConfig) DefaultProcessing() ProcessingConfig {
	return ProcessingConfig{
		CalibrationEnabled: true,
		PhaseUnwrapping:    len(c.Frames) > 1,
		MedianFilter:       true,
		FlyingPixelFilter:  true,
		IntensityScale:     1.0,
	}
}

// ProcessingConfig controls the depth processing pipeline, on the host or on
// the camera.
type ProcessingConfig struct {
	CalibrationEnabled bool
	PhaseUnwrapping    bool
	MedianFilter       bool
	FlyingPixelFilter  bool
	IntensityScale     float64
	TemporalSigma      float64
}

const speedOfLight = 299792458.0

// UnambiguousRange returns the maximum distance in metres a modulation
// frequency in MHz measures without phase wrapping.
func UnambiguousRange(mhz float64) float64 {
	return speedOfLight / (2 * mhz * 1e6)
}

// DeriveConfig builds a CameraConfig for a camera supporting the given
// modulation frequencies (MHz, highest first). A single frequency is used
// when its unambiguous range covers the max distance, otherwise frequencies
// are added until it does.
func DeriveConfig(u UserConfig, frequencies []float64) (*CameraConfig, error) {
	if u.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps %v", u.FPS)
	}
	if u.MaxDistance <= 0 {
		return nil, fmt.Errorf("invalid max distance %v", u.MaxDistance)
	}
	if len(frequencies) == 0 {
		return nil, fmt.Errorf("no modulation frequencies available")
	}

	count := 1
	for count < len(frequencies) && UnambiguousRange(frequencies[count-1]) < u.MaxDistance {
		count++
	}
	if u.Strategy == StrategyAccuracy && count < len(frequencies) {
		count++
	}
	if u.Strategy == StrategySpeed {
		count = 1
	}

	exposure := map[IntegrationTime]uint32{
		IntegrationTimeShort:  300,
		IntegrationTimeMedium: 600,
		IntegrationTimeLong:   1000,
	}[u.IntegrationTime]
	if u.Environment == EnvironmentSunlight {
		exposure /= 2
	}

	// Four phase captures per frequency have to fit in one depth frame.
	budget := uint32(math.Floor(1e6 / u.FPS / float64(count*4)))
	if exposure > budget {
		exposure = budget
	}

	dutyCycle := 0.4
	if u.Environment == EnvironmentSunlight {
		dutyCycle = 0.3
	}

	cfg := &CameraConfig{
		DAC: []uint16{1800, 1800, 1800, 1800},
	}
	for _, freq := range frequencies[:count] {
		cfg.Frames = append(cfg.Frames, FrameConfig{
			ModulationFrequency: freq,
			IntegrationTimes:    []uint32{exposure, exposure, exposure, exposure},
			DutyCycle:           dutyCycle,
			PhaseShifts:         []float64{0, 0.25, 0.5, 0.75},
			Binning:             1,
		})
	}

	return cfg, nil
}
