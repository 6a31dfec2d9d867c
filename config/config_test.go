package config

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"essaim.dev/tofview/tof"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	var out bytes.Buffer
	opts, err := Parse("tofview", nil, &out)
	require.NoError(t, err)

	assert.Equal(t, 15.0, opts.FPS)
	assert.Equal(t, 30.0, opts.MaxDistance)
	assert.Equal(t, 1, opts.Binning)
	assert.Equal(t, "", opts.Serial)
	assert.False(t, opts.BGR)
	assert.False(t, opts.BGRProjected)
	assert.False(t, opts.List)
	assert.False(t, opts.OnCameraProcessing)
	assert.Equal(t, tof.IntegrationTimeShort, opts.IntegrationTime)
	assert.Equal(t, tof.EnvironmentSunlight, opts.Environment)
	assert.Equal(t, tof.StrategyBalanced, opts.Strategy)
	assert.Equal(t, 5.0, opts.IntensityScale)
	assert.Empty(t, out.String())
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, o Options)
	}{
		{
			name:  "dmax",
			args:  []string{"--dmax", "10.5"},
			check: func(t *testing.T, o Options) { assert.Equal(t, 10.5, o.MaxDistance) },
		},
		{
			name:  "fps with equals",
			args:  []string{"--fps=30"},
			check: func(t *testing.T, o Options) { assert.Equal(t, 30.0, o.FPS) },
		},
		{
			name: "colour streams",
			args: []string{"--bgr", "--bgr_projected"},
			check: func(t *testing.T, o Options) {
				assert.True(t, o.BGR)
				assert.True(t, o.BGRProjected)
			},
		},
		{
			name:  "serial",
			args:  []string{"--serial", "202002a"},
			check: func(t *testing.T, o Options) { assert.Equal(t, "202002a", o.Serial) },
		},
		{
			name:  "short list flag",
			args:  []string{"-l"},
			check: func(t *testing.T, o Options) { assert.True(t, o.List) },
		},
		{
			name:  "long list flag",
			args:  []string{"--list"},
			check: func(t *testing.T, o Options) { assert.True(t, o.List) },
		},
		{
			name:  "relay",
			args:  []string{"--relay", "10.0.0.2:20811"},
			check: func(t *testing.T, o Options) { assert.Equal(t, "10.0.0.2:20811", o.Relay) },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := Parse("tofview", tc.args, &bytes.Buffer{})
			require.NoError(t, err)
			tc.check(t, opts)
		})
	}
}

func TestParseHelp(t *testing.T) {
	for _, arg := range []string{"-h", "--help"} {
		t.Run(arg, func(t *testing.T) {
			var out bytes.Buffer
			opts, err := Parse("tofview", []string{arg}, &out)
			assert.True(t, errors.Is(err, flag.ErrHelp))
			assert.False(t, errors.Is(err, ErrInvalidArgument))
			assert.True(t, opts.Help)
			assert.Contains(t, out.String(), "-bgr_projected")
			assert.Contains(t, out.String(), "Usage:")
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--nope"}},
		{"malformed float", []string{"--dmax", "far"}},
		{"missing value", []string{"--fps"}},
		{"zero fps", []string{"--fps", "0"}},
		{"negative dmax", []string{"--dmax", "-1"}},
		{"positional", []string{"extra"}},
		{"sim and relay", []string{"--sim", "--relay", "host:1"}},
		{"bad relay", []string{"--relay", "nohostport"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := Parse("tofview", tc.args, &out)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Contains(t, out.String(), "Usage:")
		})
	}
}

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tofview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseSettingsFile(t *testing.T) {
	path := writeSettings(t, `
fps: 5
max_distance: 12
binning: 2
integration_time: long
environment: indoor
strategy: accuracy
intensity_scale: 10
on_camera_processing: true
temporal_sigma: 0.5
`)

	opts, err := Parse("tofview", []string{"--config", path, "--fps", "20"}, &bytes.Buffer{})
	require.NoError(t, err)

	// The flag wins over the file.
	assert.Equal(t, 20.0, opts.FPS)
	assert.Equal(t, 12.0, opts.MaxDistance)
	assert.Equal(t, 2, opts.Binning)
	assert.Equal(t, tof.IntegrationTimeLong, opts.IntegrationTime)
	assert.Equal(t, tof.EnvironmentIndoor, opts.Environment)
	assert.Equal(t, tof.StrategyAccuracy, opts.Strategy)
	assert.Equal(t, 10.0, opts.IntensityScale)
	assert.True(t, opts.OnCameraProcessing)
	assert.Equal(t, 0.5, opts.TemporalSigma)
}

func TestParseSettingsFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "fps: [1"},
		{"unknown strategy", "strategy: fastest"},
		{"invalid binning", "binning: 0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSettings(t, tc.content)
			_, err := Parse("tofview", []string{"--config", path}, &bytes.Buffer{})
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Parse("tofview", []string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, &bytes.Buffer{})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestUserConfig(t *testing.T) {
	opts := Default()
	opts.FPS = 25
	opts.MaxDistance = 7.5

	assert.Equal(t, tof.UserConfig{
		FPS:             25,
		IntegrationTime: tof.IntegrationTimeShort,
		MaxDistance:     7.5,
		Environment:     tof.EnvironmentSunlight,
		Strategy:        tof.StrategyBalanced,
	}, opts.UserConfig())
}
