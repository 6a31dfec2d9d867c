//go:build !freenect

package freenect

import "time"

type Context struct{}

type Device struct{}

func NewContext() (Context, error) { return Context{}, ErrUnsupported }

func (c *Context) Destroy() error { return ErrUnsupported }
func (c *Context) ProcessEvents(timeout time.Duration) error { return ErrUnsupported }
func (c *Context) NumDevices() (int, error) { return 0, ErrUnsupported }
func (c *Context) ListDeviceSerials() ([]string, error) { return nil, ErrUnsupported }
func (c *Context) OpenDevice(index int) (Device, error) { return Device{}, ErrUnsupported }
func (c *Context) OpenDeviceBySerial(serial string) (Device, error) { return Device{}, ErrUnsupported }

func (d *Device) SetLED(color LEDColor) error { return ErrUnsupported }
func (d *Device) SetDepthCallback(fn DepthCallback) {}
func (d *Device) SetVideoCallback(fn VideoCallback) {}
func (d *Device) StartDepthStream(res Resolution, format DepthFormat) error { return ErrUnsupported }
func (d *Device) StopDepthStream() error { return ErrUnsupported }
func (d *Device) StartVideoStream(res Resolution, format VideoFormat) error { return ErrUnsupported }
func (d *Device) StopVideoStream() error { return ErrUnsupported }
func (d *Device) DepthMode() FrameMode { return FrameMode{} }
func (d *Device) VideoMode() FrameMode { return FrameMode{} }
func (d *Device) Destroy() error { return ErrUnsupported }
