// Package config parses the tofview command line and the optional YAML
// settings file into an immutable Options record.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	"essaim.dev/tofview/tof"
	"gopkg.in/yaml.v3"
)

// ErrInvalidArgument wraps every command line or settings file error.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	DefaultMaxDistance    = 30.0
	DefaultFPS            = 15.0
	DefaultBinning        = 1
	DefaultIntensityScale = 5.0
	DefaultTemporalSigma  = 1.0
)

// Options is the parsed configuration of one run.
type Options struct {
	Help bool
	List bool

	BGR          bool
	BGRProjected bool
	MaxDistance  float64
	FPS          float64
	Binning      int
	Serial       string

	Sim        bool
	Relay      string
	ConfigFile string
	ShowConfig bool
	ShowFPS    bool

	IntegrationTime    tof.IntegrationTime
	Environment        tof.ImagingEnvironment
	Strategy           tof.Strategy
	IntensityScale     float64
	OnCameraProcessing bool
	TemporalSigma      float64
}

// Default returns the options used when nothing is given.
func Default() Options {
	return Options{
		MaxDistance:     DefaultMaxDistance,
		FPS:             DefaultFPS,
		Binning:         DefaultBinning,
		IntegrationTime: tof.IntegrationTimeShort,
		Environment:     tof.EnvironmentSunlight,
		Strategy:        tof.StrategyBalanced,
		IntensityScale:  DefaultIntensityScale,
		TemporalSigma:   DefaultTemporalSigma,
	}
}

// Parse reads args (without the program name). It returns flag.ErrHelp
// after printing the usage when help was requested, and an error wrapping
// ErrInvalidArgument for anything it cannot accept.
func Parse(name string, args []string, out io.Writer) (Options, error) {
	opts := Default()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Kea on-camera display\n")
		fmt.Fprintf(out, "Display the output of a time-of-flight camera\n\n")
		fmt.Fprintf(out, "Usage:\n  %s [options]\n\nOptions:\n", name)
		fs.PrintDefaults()
	}

	fs.BoolVar(&opts.Help, "h", false, "Help")
	fs.BoolVar(&opts.Help, "help", false, "Help")
	fs.BoolVar(&opts.List, "l", false, "List all cameras discovered")
	fs.BoolVar(&opts.List, "list", false, "List all cameras discovered")
	fs.BoolVar(&opts.BGR, "bgr", false, "Display the colour image")
	fs.BoolVar(&opts.BGRProjected, "bgr_projected", false, "Display the projected BGR image")
	fs.Float64Var(&opts.MaxDistance, "dmax", DefaultMaxDistance, "Maximum distance")
	fs.Float64Var(&opts.FPS, "fps", DefaultFPS, "Depth frames per second")
	fs.StringVar(&opts.Serial, "serial", "", "Camera serial number")
	fs.BoolVar(&opts.Sim, "sim", false, "Use the simulated camera")
	fs.StringVar(&opts.Relay, "relay", "", "host:port of a tofrelay server to use as camera")
	fs.StringVar(&opts.ConfigFile, "config", "", "YAML settings file")
	fs.BoolVar(&opts.ShowConfig, "show_config", false, "Print the derived camera configuration")
	fs.BoolVar(&opts.ShowFPS, "show_fps", false, "Draw the measured frame rate on the colour image")

	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return opts, fmt.Errorf("%w: unexpected argument %q", ErrInvalidArgument, fs.Arg(0))
	}

	if opts.Help {
		fs.Usage()
		return opts, flag.ErrHelp
	}

	if opts.ConfigFile != "" {
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

		if err := opts.loadFile(opts.ConfigFile, set); err != nil {
			return opts, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}

	if err := opts.Validate(); err != nil {
		fs.Usage()
		return opts, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	return opts, nil
}

// Validate checks the option values.
func (o *Options) Validate() error {
	if o.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %v", o.FPS)
	}
	if o.MaxDistance <= 0 {
		return fmt.Errorf("dmax must be positive, got %v", o.MaxDistance)
	}
	if o.Binning < 1 {
		return fmt.Errorf("binning must be at least 1, got %d", o.Binning)
	}
	if o.IntensityScale <= 0 {
		return fmt.Errorf("intensity scale must be positive, got %v", o.IntensityScale)
	}
	if o.TemporalSigma < 0 {
		return fmt.Errorf("temporal sigma must not be negative, got %v", o.TemporalSigma)
	}
	if o.Sim && o.Relay != "" {
		return errors.New("sim and relay cannot be used together")
	}
	if o.Relay != "" {
		if _, _, err := net.SplitHostPort(o.Relay); err != nil {
			return fmt.Errorf("invalid relay address %q: %w", o.Relay, err)
		}
	}
	return nil
}

// UserConfig returns the camera level user settings.
func (o *Options) UserConfig() tof.UserConfig {
	return tof.UserConfig{
		FPS:             o.FPS,
		IntegrationTime: o.IntegrationTime,
		MaxDistance:     o.MaxDistance,
		Environment:     o.Environment,
		Strategy:        o.Strategy,
	}
}

// fileSettings is the YAML settings file. Unset keys keep their defaults.
type fileSettings struct {
	FPS                *float64 `yaml:"fps,omitempty"`
	MaxDistance        *float64 `yaml:"max_distance,omitempty"`
	Serial             *string  `yaml:"serial,omitempty"`
	BGR                *bool    `yaml:"bgr,omitempty"`
	BGRProjected       *bool    `yaml:"bgr_projected,omitempty"`
	Binning            *int     `yaml:"binning,omitempty"`
	IntegrationTime    *string  `yaml:"integration_time,omitempty"`
	Environment        *string  `yaml:"environment,omitempty"`
	Strategy           *string  `yaml:"strategy,omitempty"`
	IntensityScale     *float64 `yaml:"intensity_scale,omitempty"`
	OnCameraProcessing *bool    `yaml:"on_camera_processing,omitempty"`
	TemporalSigma      *float64 `yaml:"temporal_sigma,omitempty"`
}

// loadFile applies the settings file. Keys whose flag was given on the
// command line are ignored.
func (o *Options) loadFile(path string, set map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read settings file: %w", err)
	}

	var s fileSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("could not decode settings file: %w", err)
	}

	if s.FPS != nil && !set["fps"] {
		o.FPS = *s.FPS
	}
	if s.MaxDistance != nil && !set["dmax"] {
		o.MaxDistance = *s.MaxDistance
	}
	if s.Serial != nil && !set["serial"] {
		o.Serial = *s.Serial
	}
	if s.BGR != nil && !set["bgr"] {
		o.BGR = *s.BGR
	}
	if s.BGRProjected != nil && !set["bgr_projected"] {
		o.BGRProjected = *s.BGRProjected
	}
	if s.Binning != nil {
		o.Binning = *s.Binning
	}
	if s.IntegrationTime != nil {
		if o.IntegrationTime, err = tof.ParseIntegrationTime(*s.IntegrationTime); err != nil {
			return err
		}
	}
	if s.Environment != nil {
		if o.Environment, err = tof.ParseEnvironment(*s.Environment); err != nil {
			return err
		}
	}
	if s.Strategy != nil {
		if o.Strategy, err = tof.ParseStrategy(*s.Strategy); err != nil {
			return err
		}
	}
	if s.IntensityScale != nil {
		o.IntensityScale = *s.IntensityScale
	}
	if s.OnCameraProcessing != nil {
		o.OnCameraProcessing = *s.OnCameraProcessing
	}
	if s.TemporalSigma != nil {
		o.TemporalSigma = *s.TemporalSigma
	}

	return nil
}
