package display

import (
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
)

// fakeScreen hands out fakeWindows. Any other screen method panics.
type fakeScreen struct {
	screen.Screen
	windows []*fakeWindow
}

func (s *fakeScreen) NewWindow(*screen.NewWindowOptions) (screen.Window, error) {
	w := &fakeWindow{events: make(chan interface{}, 8)}
	s.windows = append(s.windows, w)
	return w, nil
}

type fakeWindow struct {
	screen.Window
	events   chan interface{}
	released atomic.Int32
}

func (w *fakeWindow) Send(e interface{}) { w.events <- e }
func (w *fakeWindow) NextEvent() interface{} { return <-w.events }
func (w *fakeWindow) Release() { w.released.Add(1) }

func TestShowUnknownWindow(t *testing.T) {
	d := NewShiny(nil)
	err := d.Show("Radial", image.NewRGBA(image.Rect(0, 0, 2, 2)))
	assert.ErrorIs(t, err, ErrNoWindow)
}

func TestWaitKey(t *testing.T) {
	d := NewShiny(nil)

	_, ok := d.WaitKey(10 * time.Millisecond)
	assert.False(t, ok)

	d.press(key.CodeEscape)
	code, ok := d.WaitKey(10 * time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, key.CodeEscape, code)
}

func TestPressDoesNotBlockWhenFull(t *testing.T) {
	d := NewShiny(nil)
	for i := 0; i < cap(d.keys)+4; i++ {
		d.press(key.CodeA)
	}
	assert.Len(t, d.keys, cap(d.keys))
}

func TestDestroyAllWindowsWithoutWindows(t *testing.T) {
	d := NewShiny(nil)
	d.DestroyAllWindows()
	assert.Empty(t, d.windows)
}

func TestDestroyAllWindowsStopsPumps(t *testing.T) {
	s := &fakeScreen{}
	d := NewShiny(s)
	require.NoError(t, d.NamedWindow("Radial"))
	require.NoError(t, d.NamedWindow("Radial"))
	require.NoError(t, d.NamedWindow("BGR"))
	require.Len(t, s.windows, 2)

	s.windows[0].Send(key.Event{Code: key.CodeQ, Direction: key.DirPress})
	code, ok := d.WaitKey(time.Second)
	require.True(t, ok)
	assert.Equal(t, key.CodeQ, code)

	pumps := []chan struct{}{d.windows["Radial"].done, d.windows["BGR"].done}

	destroyed := make(chan struct{})
	go func() {
		d.DestroyAllWindows()
		close(destroyed)
	}()
	select {
	case <-destroyed:
	case <-time.After(5 * time.Second):
		t.Fatal("DestroyAllWindows did not return")
	}

	for _, done := range pumps {
		select {
		case <-done:
		default:
			t.Error("window pump still running")
		}
	}
	for _, w := range s.windows {
		assert.Equal(t, int32(1), w.released.Load())
	}
	assert.Empty(t, d.windows)
}
