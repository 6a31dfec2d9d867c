package depthstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"essaim.dev/tofview/tof"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

const (
	// frameTimeout bounds how long Frames waits for the relay.
	frameTimeout = time.Second

	// minDecodedSize is the smallest decompression limit a client uses,
	// whatever the relay announces.
	minDecodedSize = 64 << 10
)

// Client is a tof.Camera reading frames from a relay server. The capture
// configuration belongs to the relay: the config derived by ConfigFor is the
// one the relay runs with.
type Client struct {
	conn    net.Conn
	enc     *cbor.Encoder
	decoder *zstd.Decoder
	hello   hello

	selected  []tof.Stream
	streaming bool

	batches chan *batch

	errMu sync.Mutex
	err   error
}

// Dial connects to the relay at addr and waits for its greeting.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to relay %s: %w", addr, err)
	}

	dec := cbor.NewDecoder(bufio.NewReader(conn))
	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var m message
	if err := dec.Decode(&m); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not read relay greeting: %w", err)
	}
	if m.Kind != kindHello || m.Hello == nil {
		conn.Close()
		return nil, fmt.Errorf("unexpected relay message kind %d", m.Kind)
	}
	conn.SetReadDeadline(time.Time{})

	// A frame never decompresses to more than the largest announced stream.
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize(m.Hello.Streams)))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not create decoder: %w", err)
	}

	c := &Client{
		conn:    conn,
		enc:     cbor.NewEncoder(conn),
		decoder: decoder,
		hello:   *m.Hello,
		batches: make(chan *batch, 2),
	}

	go c.readLoop(dec)

	return c, nil
}

func maxDecodedSize(streams []tof.Stream) uint64 {
	size := uint64(minDecodedSize)
	for _, s := range streams {
		if n := uint64(s.Rows * s.Cols * s.Type.BytesPerPixel()); n > size {
			size = n
		}
	}
	return size
}

// readLoop queues batches until the relay goes away. A relay closing the
// connection between two messages ends the stream without error.
func (c *Client) readLoop(dec *cbor.Decoder) {
	defer close(c.batches)

	for {
		var m message
		if err := dec.Decode(&m); err != nil {
			if !errors.Is(err, io.EOF) {
				c.setErr(fmt.Errorf("relay connection lost: %w", err))
			}
			return
		}
		if m.Kind != kindBatch || m.Batch == nil {
			continue
		}

		// Keep only the freshest batches.
		for {
			select {
			case c.batches <- m.Batch:
			default:
				select {
				case <-c.batches:
				default:
				}
				continue
			}
			break
		}
	}
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Client) connErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) Serial() string {
	return c.hello.Serial
}

func (c *Client) ConfigFor(tof.UserConfig) (*tof.CameraConfig, error) {
	if c.hello.Config == nil {
		return nil, errors.New("relay did not send its camera config")
	}
	cfg := *c.hello.Config
	cfg.Frames = append([]tof.FrameConfig(nil), c.hello.Config.Frames...)
	return &cfg, nil
}

func (c *Client) SetCameraConfig(*tof.CameraConfig) error {
	return nil
}

func (c *Client) SetProcessConfig(tof.ProcessingConfig) error {
	return nil
}

func (c *Client) OnCameraProcessingCapable() bool {
	return false
}

func (c *Client) SetOnCameraProcessing(enabled bool) error {
	if enabled {
		return errors.New("processing is controlled by the relay")
	}
	return nil
}

func (c *Client) StreamList() ([]tof.Stream, error) {
	return c.hello.Streams, nil
}

func (c *Client) SetStreams(streams []tof.Stream) error {
	for _, s := range streams {
		if !tof.HasStream(c.hello.Streams, s.Type) {
			return fmt.Errorf("relay has no %s stream", s.Type)
		}
	}
	c.selected = streams
	return nil
}

func (c *Client) subscribe(types []tof.FrameType) error {
	m := &message{Kind: kindSubscribe, Subscribe: &subscribe{Types: types}}
	if err := c.enc.Encode(m); err != nil {
		return fmt.Errorf("could not subscribe: %w", err)
	}
	return nil
}

func (c *Client) Start() error {
	types := make([]tof.FrameType, 0, len(c.selected))
	for _, s := range c.selected {
		types = append(types, s.Type)
	}
	if len(types) == 0 {
		return errors.New("no streams selected")
	}
	if err := c.subscribe(types); err != nil {
		return err
	}
	c.streaming = true
	return nil
}

func (c *Client) Stop() error {
	if !c.streaming {
		return nil
	}
	c.streaming = false
	return c.subscribe([]tof.FrameType{})
}

func (c *Client) IsStreaming() bool {
	return c.streaming
}

// Frames waits for the next batch from the relay. It returns an empty batch
// when none arrives within a second, and tof.ErrNotStreaming once the relay
// has ended the stream.
func (c *Client) Frames() ([]tof.Frame, error) {
	if !c.streaming {
		return nil, tof.ErrNotStreaming
	}

	timer := time.NewTimer(frameTimeout)
	defer timer.Stop()

	select {
	case b, ok := <-c.batches:
		if !ok {
			c.streaming = false
			if err := c.connErr(); err != nil {
				return nil, err
			}
			return nil, tof.ErrNotStreaming
		}
		frames := make([]tof.Frame, 0, len(b.Frames))
		for _, w := range b.Frames {
			f, err := decodeFrame(c.decoder, w)
			if err != nil {
				return nil, err
			}
			frames = append(frames, f)
		}
		return frames, nil

	case <-timer.C:
		return nil, nil
	}
}

func (c *Client) Close() error {
	c.streaming = false
	c.decoder.Close()
	return c.conn.Close()
}
