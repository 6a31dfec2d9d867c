// Package display shows images in named on-screen windows and reports key
// presses, on top of shiny.
package display

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
)

const (
	defaultWidth  = 640
	defaultHeight = 480
)

// ErrNoWindow is returned by Show for a window that was never created.
var ErrNoWindow = errors.New("no such window")

// Display owns a set of named windows.
type Display interface {
	NamedWindow(name string) error
	Show(name string, img *image.RGBA) error

	// WaitKey waits up to d for a key press in any window. A window closed
	// by the user reports key.CodeEscape.
	WaitKey(d time.Duration) (key.Code, bool)

	DestroyAllWindows()
}

type window struct {
	w    screen.Window
	done chan struct{}

	mu   sync.Mutex
	tex  screen.Texture
	buf  screen.Buffer
	size size.Event
}

// Shiny is a Display backed by a shiny screen. Show and WaitKey must be
// called from a single goroutine; each window runs its own event pump.
type Shiny struct {
	s screen.Screen

	mu      sync.Mutex
	windows map[string]*window

	keys chan key.Code
}

// NewShiny returns a display drawing on s.
func NewShiny(s screen.Screen) *Shiny {
	return &Shiny{
		s:       s,
		windows: make(map[string]*window),
		keys:    make(chan key.Code, 16),
	}
}

// NamedWindow creates a window titled name. Creating an existing window is a
// no-op.
func (d *Shiny) NamedWindow(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.windows[name]; ok {
		return nil
	}

	w, err := d.s.NewWindow(&screen.NewWindowOptions{
		Title:  name,
		Width:  defaultWidth,
		Height: defaultHeight,
	})
	if err != nil {
		return fmt.Errorf("could not create window %q: %w", name, err)
	}

	win := &window{
		w:    w,
		done: make(chan struct{}),
		size: size.Event{WidthPx: defaultWidth, HeightPx: defaultHeight},
	}
	d.windows[name] = win

	go d.pump(win)

	return nil
}

// Show uploads img to the named window and presents it scaled to the window.
func (d *Shiny) Show(name string, img *image.RGBA) error {
	d.mu.Lock()
	win, ok := d.windows[name]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("could not show image in %q: %w", name, ErrNoWindow)
	}

	win.mu.Lock()
	defer win.mu.Unlock()

	bounds := img.Bounds().Size()
	if win.buf == nil || win.buf.Size() != bounds {
		if err := win.resize(d.s, bounds); err != nil {
			return fmt.Errorf("could not allocate %q buffers: %w", name, err)
		}
	}

	draw.Draw(win.buf.RGBA(), win.buf.Bounds(), img, img.Bounds().Min, draw.Src)
	win.tex.Upload(image.Point{}, win.buf, win.buf.Bounds())
	win.present()

	return nil
}

// WaitKey returns the first key pressed within d.
func (d *Shiny) WaitKey(timeout time.Duration) (key.Code, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case code := <-d.keys:
		return code, true
	case <-t.C:
		return key.CodeUnknown, false
	}
}

// DestroyAllWindows stops the event pump of every window, then releases the
// window and its textures.
func (d *Shiny) DestroyAllWindows() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name, win := range d.windows {
		win.w.Send(closeEvent{})
		<-win.done

		win.mu.Lock()
		win.release()
		win.mu.Unlock()
		win.w.Release()
		delete(d.windows, name)
	}
}

// closeEvent asks a window pump to return.
type closeEvent struct{}

func (d *Shiny) pump(win *window) {
	defer close(win.done)

	for {
		switch e := win.w.NextEvent().(type) {
		case closeEvent:
			return

		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				d.press(key.CodeEscape)
				return
			}

		case key.Event:
			if e.Direction == key.DirPress {
				d.press(e.Code)
			}

		case size.Event:
			win.mu.Lock()
			win.size = e
			win.mu.Unlock()

		case paint.Event:
			win.mu.Lock()
			if win.tex != nil {
				win.present()
			}
			win.mu.Unlock()

		case error:
			return
		}
	}
}

func (d *Shiny) press(code key.Code) {
	select {
	case d.keys <- code:
	default:
	}
}

func (win *window) resize(s screen.Screen, sz image.Point) error {
	win.release()

	buf, err := s.NewBuffer(sz)
	if err != nil {
		return err
	}
	tex, err := s.NewTexture(sz)
	if err != nil {
		buf.Release()
		return err
	}

	win.buf = buf
	win.tex = tex
	return nil
}

func (win *window) present() {
	win.w.Scale(win.size.Bounds(), win.tex, win.tex.Bounds(), draw.Src, nil)
	win.w.Publish()
}

func (win *window) release() {
	if win.tex != nil {
		win.tex.Release()
		win.tex = nil
	}
	if win.buf != nil {
		win.buf.Release()
		win.buf = nil
	}
}
