package colormap

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJetLength(t *testing.T) {
	jet := Jet()
	assert.Len(t, jet, 256)
}

func TestJetIsDeterministic(t *testing.T) {
	assert.Equal(t, Jet(), Jet())
}

func TestJetEndpoints(t *testing.T) {
	jet := Jet()

	// Dark blue at the start, dark red at the end, green in the middle.
	assert.Equal(t, [3]uint8{0, 0, 128}, jet[0])
	assert.Equal(t, [3]uint8{128, 0, 0}, jet[255])
	assert.Equal(t, uint8(255), jet[128][1])
	assert.Less(t, jet[128][0], uint8(255))
	assert.Less(t, jet[128][2], uint8(255))
}

func TestJetChannelsVaryMonotonically(t *testing.T) {
	jet := Jet()

	// Red rises until the yellow/red plateau ends at 7/8 of the range.
	for i := 1; i <= 223; i++ {
		assert.GreaterOrEqual(t, jet[i][0], jet[i-1][0], "red at %d", i)
	}
	for i := 224; i < Size; i++ {
		assert.LessOrEqual(t, jet[i][0], jet[i-1][0], "red at %d", i)
	}

	// Blue is at its peak by 3/8 of the range and only falls after that.
	for i := 1; i <= 31; i++ {
		assert.GreaterOrEqual(t, jet[i][2], jet[i-1][2], "blue at %d", i)
	}
	for i := 97; i < Size; i++ {
		assert.LessOrEqual(t, jet[i][2], jet[i-1][2], "blue at %d", i)
	}

	// Green rises through the first half and falls through the second.
	for i := 1; i <= 127; i++ {
		assert.GreaterOrEqual(t, jet[i][1], jet[i-1][1], "green at %d", i)
	}
	for i := 129; i < Size; i++ {
		assert.LessOrEqual(t, jet[i][1], jet[i-1][1], "green at %d", i)
	}
}

func TestIndex(t *testing.T) {
	tests := []struct {
		name     string
		v        uint16
		min, max uint16
		want     uint8
	}{
		{"minimum", 0, 0, 65535, 0},
		{"maximum", 65535, 0, 65535, 255},
		{"midpoint", 32768, 0, 65535, 127},
		{"below range", 10, 100, 200, 0},
		{"above range", 300, 100, 200, 255},
		{"inside range", 150, 100, 200, 127},
		{"empty range", 150, 200, 200, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Index(tc.v, tc.min, tc.max))
		})
	}
}

func TestColorize(t *testing.T) {
	jet := Jet()
	depth := []uint16{1, 65535, 32768, 1000}

	img := jet.Colorize(depth, 2, 2, 0, 65535)
	require.Equal(t, 2, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())

	assert.Equal(t, jet.Color(0), img.RGBAAt(0, 0))
	assert.Equal(t, jet.Color(255), img.RGBAAt(1, 0))
	assert.Equal(t, jet.Color(127), img.RGBAAt(0, 1))
	assert.Equal(t, jet.Color(Index(1000, 0, 65535)), img.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{0, 0, 128, 255}, img.RGBAAt(0, 0))
}

func TestColorizePaintsMissingReadingsBlack(t *testing.T) {
	jet := Jet()

	img := jet.Colorize([]uint16{0, 1, 0, 40000, 0, 0}, 2, 3, 0, 65535)

	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(2, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(2, 1))
	assert.Equal(t, jet.Color(0), img.RGBAAt(1, 0))
	assert.Equal(t, jet.Color(Index(40000, 0, 65535)), img.RGBAAt(0, 1))
}
