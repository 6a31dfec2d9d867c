// Package displaytest provides an in-memory display.Display for tests.
package displaytest

import (
	"fmt"
	"image"
	"time"

	"golang.org/x/mobile/event/key"
)

// Recorder keeps the last image shown in every window. Keys are handed out
// one per WaitKey call, in order.
type Recorder struct {
	Windows   []string
	Shown     map[string]*image.RGBA
	ShowCount map[string]int
	Keys      []key.Code
	Waits     []time.Duration
	Destroyed int
}

// New returns an empty recorder.
func New(keys ...key.Code) *Recorder {
	return &Recorder{
		Shown:     make(map[string]*image.RGBA),
		ShowCount: make(map[string]int),
		Keys:      keys,
	}
}

func (r *Recorder) NamedWindow(name string) error {
	r.Windows = append(r.Windows, name)
	return nil
}

func (r *Recorder) Show(name string, img *image.RGBA) error {
	for _, w := range r.Windows {
		if w == name {
			r.Shown[name] = img
			r.ShowCount[name]++
			return nil
		}
	}
	return fmt.Errorf("no window %q", name)
}

func (r *Recorder) WaitKey(d time.Duration) (key.Code, bool) {
	r.Waits = append(r.Waits, d)
	if len(r.Keys) == 0 {
		return key.CodeUnknown, false
	}
	code := r.Keys[0]
	r.Keys = r.Keys[1:]
	return code, true
}

func (r *Recorder) DestroyAllWindows() {
	r.Destroyed++
}
