package tof

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type streamCamera struct {
	Camera

	streams  []Stream
	listErr  error
	selected []Stream
}

func (c *streamCamera) StreamList() ([]Stream, error) {
	return c.streams, c.listErr
}

func (c *streamCamera) SetStreams(streams []Stream) error {
	c.selected = streams
	return nil
}

func TestSelectStreams(t *testing.T) {
	cam := &streamCamera{
		streams: []Stream{
			{Type: FrameTypeRadial, Rows: 480, Cols: 640},
			{Type: FrameTypeIntensity, Rows: 480, Cols: 640},
			{Type: FrameTypeBGRProjected, Rows: 480, Cols: 640},
		},
	}

	n, err := SelectStreams(cam, []FrameType{FrameTypeRadial, FrameTypeIntensity, FrameTypeBGR})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, cam.selected, 2)
	assert.Equal(t, FrameTypeRadial, cam.selected[0].Type)
	assert.Equal(t, FrameTypeIntensity, cam.selected[1].Type)
}

func TestSelectStreamsNothingAvailable(t *testing.T) {
	cam := &streamCamera{}

	n, err := SelectStreams(cam, []FrameType{FrameTypeRadial, FrameTypeIntensity})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, cam.selected)
}

func TestSelectStreamsListError(t *testing.T) {
	listErr := errors.New("usb gone")
	cam := &streamCamera{listErr: listErr}

	_, err := SelectStreams(cam, []FrameType{FrameTypeRadial})
	assert.ErrorIs(t, err, listErr)
}

func TestFrameValidate(t *testing.T) {
	f := NewRadialFrame(2, 3, []uint16{1, 2, 3, 4, 5, 6})
	require.NoError(t, f.Validate())
	assert.Equal(t, []uint16{1, 2, 3, 4, 5, 6}, f.Uint16())

	f.Data = f.Data[:4]
	assert.Error(t, f.Validate())

	bad := Frame{Type: FrameType(42), Rows: 1, Cols: 1}
	assert.Error(t, bad.Validate())
}

func TestDeriveConfig(t *testing.T) {
	frequencies := []float64{100, 80, 20}

	t.Run("short range uses one frequency", func(t *testing.T) {
		cfg, err := DeriveConfig(UserConfig{FPS: 15, MaxDistance: 1}, frequencies)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.FrameSize())
	})

	t.Run("long range adds frequencies", func(t *testing.T) {
		cfg, err := DeriveConfig(UserConfig{FPS: 15, MaxDistance: 30}, frequencies)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.FrameSize())
		for _, f := range cfg.Frames {
			assert.Equal(t, 1, f.Binning)
			assert.Len(t, f.PhaseShifts, 4)
		}
	})

	t.Run("speed strategy forces one frequency", func(t *testing.T) {
		cfg, err := DeriveConfig(UserConfig{FPS: 15, MaxDistance: 30, Strategy: StrategySpeed}, frequencies)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.FrameSize())
	})

	t.Run("sunlight shortens exposure", func(t *testing.T) {
		indoor, err := DeriveConfig(UserConfig{FPS: 15, MaxDistance: 1}, frequencies)
		require.NoError(t, err)
		sun, err := DeriveConfig(UserConfig{FPS: 15, MaxDistance: 1, Environment: EnvironmentSunlight}, frequencies)
		require.NoError(t, err)
		assert.Less(t, sun.Frames[0].IntegrationTimes[0], indoor.Frames[0].IntegrationTimes[0])
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := DeriveConfig(UserConfig{FPS: 0, MaxDistance: 1}, frequencies)
		assert.Error(t, err)
		_, err = DeriveConfig(UserConfig{FPS: 15, MaxDistance: 0}, frequencies)
		assert.Error(t, err)
		_, err = DeriveConfig(UserConfig{FPS: 15, MaxDistance: 1}, nil)
		assert.Error(t, err)
	})
}

func TestSetBinning(t *testing.T) {
	cfg := &CameraConfig{Frames: make([]FrameConfig, 2)}
	require.NoError(t, cfg.SetBinning(1, 2))
	assert.Equal(t, 2, cfg.Frames[1].Binning)
	assert.Error(t, cfg.SetBinning(2, 1))
	assert.Error(t, cfg.SetBinning(0, 0))
}

func TestParseEnums(t *testing.T) {
	it, err := ParseIntegrationTime("LONG")
	require.NoError(t, err)
	assert.Equal(t, IntegrationTimeLong, it)

	env, err := ParseEnvironment("sunlight")
	require.NoError(t, err)
	assert.Equal(t, EnvironmentSunlight, env)

	s, err := ParseStrategy("accuracy")
	require.NoError(t, err)
	assert.Equal(t, StrategyAccuracy, s)

	_, err = ParseStrategy("fastest")
	assert.Error(t, err)
}
