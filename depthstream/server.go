package depthstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"essaim.dev/tofview/monitoring"
	"essaim.dev/tofview/session"
	"essaim.dev/tofview/tof"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Server publishes the frames of a streaming session.
type Server struct {
	session *session.Session
	hello   hello

	encoder *zstd.Encoder

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewServer returns a server for s, which must be streaming.
func NewServer(s *session.Session) (*Server, error) {
	available, err := s.Camera.StreamList()
	if err != nil {
		return nil, fmt.Errorf("could not get stream list: %w", err)
	}

	var streams []tof.Stream
	for _, st := range available {
		for _, t := range s.Streams {
			if st.Type == t {
				streams = append(streams, st)
			}
		}
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("could not create encoder: %w", err)
	}

	return &Server{
		session: s,
		hello: hello{
			Serial:  s.Camera.Serial(),
			Streams: streams,
			Config:  s.CameraConfig,
		},
		encoder: encoder,
		clients: make(map[*client]struct{}),
	}, nil
}

// Close releases the encoder. The session stays open.
func (s *Server) Close() error {
	return s.encoder.Close()
}

// Run accepts subscribers on ln and publishes frames until ctx is done or
// the camera stops streaming. Frames are pulled on the calling goroutine.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	defer func() {
		cancel()
		ln.Close()
		wg.Wait()
		s.dropClients()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.accept(ctx, ln)
	}()

	cam := s.session.Camera
	for cam.IsStreaming() {
		if ctx.Err() != nil {
			return nil
		}

		frames, err := cam.Frames()
		if errors.Is(err, tof.ErrNotStreaming) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not get frames: %w", err)
		}
		if len(frames) > 0 {
			s.publish(frames)
		}
	}

	return nil
}

func (s *Server) accept(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				monitoring.Logf("could not accept subscriber: %v", err)
			}
			return
		}

		c := newClient(conn)
		if err := c.write(&message{Kind: kindHello, Hello: &s.hello}); err != nil {
			monitoring.Logf("could not greet %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}

		s.mu.Lock()
		s.clients[c] = struct{}{}
		s.mu.Unlock()
		monitoring.Logf("subscriber %s connected", conn.RemoteAddr())

		go c.writeLoop()
		go func() {
			c.readLoop()
			s.removeClient(c)
		}()
	}
}

// publish compresses each frame once and queues it for every subscriber of
// its type.
func (s *Server) publish(frames []tof.Frame) {
	encoded := make([]wireFrame, len(frames))
	for i := range frames {
		encoded[i] = encodeFrame(s.encoder, &frames[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		var out []wireFrame
		for _, f := range encoded {
			if c.subscribed(f.Type) {
				out = append(out, f)
			}
		}
		if len(out) > 0 {
			c.send(&message{Kind: kindBatch, Batch: &batch{Frames: out}})
		}
	}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	if ok {
		c.close()
		monitoring.Logf("subscriber %s disconnected", c.conn.RemoteAddr())
	}
}

func (s *Server) dropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		c.close()
		delete(s.clients, c)
	}
}

type client struct {
	conn net.Conn
	enc  *cbor.Encoder

	out     chan *message
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu    sync.Mutex
	types []tof.FrameType
}

func newClient(conn net.Conn) *client {
	return &client{
		conn: conn,
		enc:  cbor.NewEncoder(conn),
		out:     make(chan *message, clientQueue),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (c *client) write(m *message) error {
	return c.enc.Encode(m)
}

// send queues m, dropping the oldest queued message when full.
func (c *client) send(m *message) {
	for {
		select {
		case c.out <- m:
			return
		default:
		}

		select {
		case <-c.out:
		default:
		}
	}
}

func (c *client) writeLoop() {
	defer close(c.stopped)

	for {
		select {
		case <-c.done:
			return
		case m := <-c.out:
			if err := c.write(m); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

func (c *client) readLoop() {
	dec := cbor.NewDecoder(bufio.NewReader(c.conn))
	for {
		var m message
		if err := dec.Decode(&m); err != nil {
			return
		}
		if m.Kind == kindSubscribe && m.Subscribe != nil {
			c.mu.Lock()
			c.types = m.Subscribe.Types
			c.mu.Unlock()
		}
	}
}

func (c *client) subscribed(t tof.FrameType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, st := range c.types {
		if st == t {
			return true
		}
	}
	return false
}

// close waits for the message being written, if any, so the subscriber
// never sees a truncated one.
func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.SetWriteDeadline(time.Now().Add(closeTimeout))
		<-c.stopped
		c.conn.Close()
	})
}

// Beacon announces the relay on group every second until ctx is done.
func Beacon(ctx context.Context, group netip.AddrPort, serial string, port uint16) error {
	conn, err := net.DialUDP("udp4", nil, net.UDPAddrFromAddrPort(group))
	if err != nil {
		return fmt.Errorf("could not dial udp address: %w", err)
	}
	defer conn.Close()

	payload, err := cbor.Marshal(announcement{Serial: serial, Port: port})
	if err != nil {
		return fmt.Errorf("could not encode announcement: %w", err)
	}

	ticker := time.NewTicker(beaconInterval)
	defer ticker.Stop()

	for {
		if _, err := conn.Write(payload); err != nil {
			monitoring.Logf("could not send beacon: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
