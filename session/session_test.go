package session

import (
	"bytes"
	"errors"
	"testing"

	"essaim.dev/tofview/config"
	"essaim.dev/tofview/monitoring"
	"essaim.dev/tofview/tof"
	"essaim.dev/tofview/tof/toftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	monitoring.SetLogger(nil)
}

func allStreams() []tof.FrameType {
	return []tof.FrameType{
		tof.FrameTypeRadial,
		tof.FrameTypeIntensity,
		tof.FrameTypeBGR,
		tof.FrameTypeBGRProjected,
	}
}

func TestOpenStreamsDepthAndIntensity(t *testing.T) {
	cam := toftest.New("kea-1", allStreams()...)

	s, err := Open(toftest.Opener(cam, nil), config.Default())
	require.NoError(t, err)

	assert.Equal(t, StateStreaming, s.State())
	assert.True(t, cam.Started)
	assert.Equal(t, []tof.FrameType{tof.FrameTypeRadial, tof.FrameTypeIntensity}, s.Streams)
	require.Len(t, cam.Selected, 2)
	assert.False(t, s.Caps.BGR)
	assert.False(t, s.Caps.BGRProjected)
	assert.False(t, s.Caps.Downgraded())
}

func TestOpenAppliesUserSettings(t *testing.T) {
	cam := toftest.New("kea-1", allStreams()...)
	opts := config.Default()
	opts.FPS = 10
	opts.MaxDistance = 12
	opts.Binning = 2

	s, err := Open(toftest.Opener(cam, nil), opts)
	require.NoError(t, err)

	assert.Equal(t, 10.0, cam.UserConfig.FPS)
	assert.Equal(t, 12.0, cam.UserConfig.MaxDistance)
	assert.Equal(t, tof.IntegrationTimeShort, cam.UserConfig.IntegrationTime)
	assert.Equal(t, tof.EnvironmentSunlight, cam.UserConfig.Environment)
	assert.Equal(t, tof.StrategyBalanced, cam.UserConfig.Strategy)

	require.NotNil(t, cam.CameraConfig)
	for _, f := range cam.CameraConfig.Frames {
		assert.Equal(t, 2, f.Binning)
	}
	assert.True(t, cam.ProcessingConfig.CalibrationEnabled)
	assert.Equal(t, 5.0, cam.ProcessingConfig.IntensityScale)
	assert.Zero(t, cam.ProcessingConfig.TemporalSigma)
	assert.Same(t, cam.CameraConfig, s.CameraConfig)
}

func TestOpenColourStreams(t *testing.T) {
	cam := toftest.New("kea-1", allStreams()...)
	opts := config.Default()
	opts.BGR = true
	opts.BGRProjected = true

	s, err := Open(toftest.Opener(cam, nil), opts)
	require.NoError(t, err)

	assert.True(t, s.Caps.BGR)
	assert.True(t, s.Caps.BGRProjected)
	assert.Len(t, cam.Selected, 4)
	assert.Equal(t, allStreams(), s.Streams)
}

func TestOpenColourRequestedButUnsupported(t *testing.T) {
	cam := toftest.New("kea-1", tof.FrameTypeRadial, tof.FrameTypeIntensity)
	opts := config.Default()
	opts.BGR = true

	s, err := Open(toftest.Opener(cam, nil), opts)
	require.NoError(t, err)

	assert.True(t, s.Caps.BGRRequested)
	assert.False(t, s.Caps.BGR)
	assert.True(t, s.Caps.Downgraded())
	assert.Equal(t, []tof.FrameType{tof.FrameTypeRadial, tof.FrameTypeIntensity}, s.Streams)
	for _, st := range cam.Selected {
		assert.NotEqual(t, tof.FrameTypeBGR, st.Type)
	}
}

func TestOpenNoStreams(t *testing.T) {
	cam := toftest.New("kea-1", tof.FrameTypeBGR)

	_, err := Open(toftest.Opener(cam, nil), config.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoStreamsSelected))
	assert.False(t, cam.Started)
	assert.Equal(t, 1, cam.Closed)
}

func TestOpenOnCameraProcessing(t *testing.T) {
	t.Run("capable camera", func(t *testing.T) {
		cam := toftest.New("kea-1", allStreams()...)
		cam.Capable = true
		opts := config.Default()
		opts.OnCameraProcessing = true

		s, err := Open(toftest.Opener(cam, nil), opts)
		require.NoError(t, err)
		assert.True(t, cam.OnCameraProcessing)
		assert.True(t, s.Caps.OnCameraProcessing)
		assert.Equal(t, 1.0, cam.ProcessingConfig.TemporalSigma)
	})

	t.Run("camera without support", func(t *testing.T) {
		cam := toftest.New("kea-1", allStreams()...)
		opts := config.Default()
		opts.OnCameraProcessing = true

		s, err := Open(toftest.Opener(cam, nil), opts)
		require.NoError(t, err)
		assert.False(t, cam.OnCameraProcessing)
		assert.False(t, s.Caps.OnCameraProcessing)
		assert.True(t, s.Caps.Downgraded())
	})

	t.Run("not requested", func(t *testing.T) {
		cam := toftest.New("kea-1", allStreams()...)
		cam.Capable = true

		s, err := Open(toftest.Opener(cam, nil), config.Default())
		require.NoError(t, err)
		assert.False(t, cam.OnCameraProcessing)
		assert.False(t, s.Caps.OnCameraProcessing)
	})
}

func TestOpenFailures(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		_, err := Open(toftest.Opener(nil, errors.New("no camera")), config.Default())
		assert.ErrorIs(t, err, ErrDevice)
	})

	t.Run("config", func(t *testing.T) {
		cam := toftest.New("kea-1", allStreams()...)
		cam.ConfigErr = errors.New("unsupported fps")
		_, err := Open(toftest.Opener(cam, nil), config.Default())
		assert.ErrorIs(t, err, ErrDevice)
		assert.Equal(t, 1, cam.Closed)
	})

	t.Run("start", func(t *testing.T) {
		cam := toftest.New("kea-1", allStreams()...)
		cam.StartErr = errors.New("link down")
		_, err := Open(toftest.Opener(cam, nil), config.Default())
		assert.ErrorIs(t, err, ErrDevice)
		assert.Equal(t, 1, cam.Closed)
	})
}

func TestSessionClose(t *testing.T) {
	cam := toftest.New("kea-1", allStreams()...)
	s, err := Open(toftest.Opener(cam, nil), config.Default())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, cam.Stopped)
	assert.Equal(t, 1, cam.Closed)
}

func TestDescribeConfig(t *testing.T) {
	cfg := &tof.CameraConfig{
		Frames: []tof.FrameConfig{{
			ModulationFrequency: 80,
			IntegrationTimes:    []uint32{300},
			DutyCycle:           0.3,
			PhaseShifts:         []float64{0, 0.25},
			Binning:             2,
		}},
		DAC: []uint16{1800},
	}

	var out bytes.Buffer
	DescribeConfig(&out, cfg)

	assert.Equal(t, "Frame 0\n"+
		"Modulation Frequency 80.0\n"+
		"Integration Times [300]\n"+
		"Duty Cycle: 0.300000\n"+
		"DAC: [1800]\n"+
		"Phase Shifts [0 0.25]\n"+
		"Binning 2\n", out.String())
}
