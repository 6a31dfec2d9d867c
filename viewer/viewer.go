// Package viewer runs the capture and display loop: it opens a camera
// session, creates one window per stream and routes every frame to its
// window until the stream ends or Escape is pressed.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"essaim.dev/tofview/colormap"
	"essaim.dev/tofview/config"
	"essaim.dev/tofview/display"
	"essaim.dev/tofview/monitoring"
	"essaim.dev/tofview/session"
	"essaim.dev/tofview/tof"
	"golang.org/x/mobile/event/key"
)

const (
	RadialWindow       = "Radial"
	IntensityWindow    = "Intensity"
	BGRWindow          = "BGR"
	BGRProjectedWindow = "BGR Projected"

	keyWait = 10 * time.Millisecond

	radialMin = 0
	radialMax = 65535

	fpsAverageBatches = 10
)

// Run opens the camera described by opts and displays its frames until the
// camera stops streaming, Escape is pressed or ctx is cancelled. Every
// window is destroyed exactly once before Run returns.
func Run(ctx context.Context, opts config.Options, open session.Opener, disp display.Display, out io.Writer) error {
	defer disp.DestroyAllWindows()

	s, err := session.Open(open, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			monitoring.Logf("could not close camera: %v", err)
		}
	}()

	if opts.ShowConfig {
		session.DescribeConfig(out, s.CameraConfig)
	}

	var windows []string
	if s.Caps.BGR {
		windows = append(windows, BGRWindow)
	}
	if s.Caps.BGRProjected {
		windows = append(windows, BGRProjectedWindow)
	}
	windows = append(windows, IntensityWindow, RadialWindow)
	for _, name := range windows {
		if err := disp.NamedWindow(name); err != nil {
			return fmt.Errorf("could not create window: %w", err)
		}
	}

	r := &renderer{
		disp:    disp,
		jet:     colormap.Jet(),
		caps:    s.Caps,
		showFPS: opts.ShowFPS,
		fps:     newFPSMeter(fpsAverageBatches, time.Now),
	}

	cam := s.Camera
	for cam.IsStreaming() {
		if ctx.Err() != nil {
			monitoring.Logf("stopping camera: %v", ctx.Err())
			if err := cam.Stop(); err != nil {
				return fmt.Errorf("could not stop camera: %w", err)
			}
			break
		}

		frames, err := cam.Frames()
		if errors.Is(err, tof.ErrNotStreaming) {
			break
		}
		if err != nil {
			return fmt.Errorf("could not get frames: %w", err)
		}

		if err := r.render(frames); err != nil {
			return err
		}

		if code, ok := disp.WaitKey(keyWait); ok && code == key.CodeEscape {
			if err := cam.Stop(); err != nil {
				return fmt.Errorf("could not stop camera: %w", err)
			}
		}
	}

	return nil
}

type renderer struct {
	disp    display.Display
	jet     colormap.Table
	caps    session.Capabilities
	showFPS bool
	fps     *fpsMeter
}

// render draws one batch. Empty batches, returned when a backend times out,
// do not count towards the frame rate.
func (r *renderer) render(frames []tof.Frame) error {
	if len(frames) == 0 {
		return nil
	}

	r.fps.tick()
	for i := range frames {
		if err := r.dispatch(&frames[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) dispatch(f *tof.Frame) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("could not display frame %d: %w", f.Count, err)
	}

	switch f.Type {
	case tof.FrameTypeRadial:
		img := r.jet.Colorize(f.Uint16(), f.Rows, f.Cols, radialMin, radialMax)
		return r.show(RadialWindow, flipVertical(img))

	case tof.FrameTypeBGR:
		if !r.caps.BGR {
			return nil
		}
		img, err := bgrToRGBA(f.Data, f.Rows, f.Cols)
		if err != nil {
			return err
		}
		img = flipVertical(img)
		if r.showFPS {
			drawText(img, 24, 20, fmt.Sprintf("FPS = %.1f", r.fps.rate()))
		}
		return r.show(BGRWindow, img)

	case tof.FrameTypeIntensity:
		img, err := grayToRGBA(f.Data, f.Rows, f.Cols)
		if err != nil {
			return err
		}
		return r.show(IntensityWindow, flipVertical(img))

	case tof.FrameTypeBGRProjected:
		img, err := bgrToRGBA(f.Data, f.Rows, f.Cols)
		if err != nil {
			return err
		}
		return r.show(BGRProjectedWindow, flipVertical(img))
	}

	return nil
}

func (r *renderer) show(name string, img *image.RGBA) error {
	if err := r.disp.Show(name, img); err != nil {
		return fmt.Errorf("could not show %s frame: %w", name, err)
	}
	return nil
}

// fpsMeter averages the batch rate over every n batches.
type fpsMeter struct {
	n     int
	now   func() time.Time
	count int
	start time.Time
	fps   float64
}

func newFPSMeter(n int, now func() time.Time) *fpsMeter {
	return &fpsMeter{n: n, now: now, start: now()}
}

func (m *fpsMeter) tick() {
	m.count++
	if m.count%m.n != 0 {
		return
	}
	end := m.now()
	if elapsed := end.Sub(m.start).Seconds(); elapsed > 0 {
		m.fps = float64(m.n) / elapsed
	}
	m.start = end
}

func (m *fpsMeter) rate() float64 {
	return m.fps
}
