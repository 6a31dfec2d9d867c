// Package depthstream relays camera frames over the network. A Server
// publishes the frames of a local camera session to TCP subscribers and
// announces itself on a multicast group; a Client is a tof.Camera backed by
// such a server.
package depthstream

import (
	"fmt"
	"net/netip"
	"time"

	"essaim.dev/tofview/tof"
	"github.com/klauspost/compress/zstd"
)

const (
	// DefaultPort is the TCP port relays listen on.
	DefaultPort = 20811

	beaconInterval = time.Second
	helloTimeout   = 5 * time.Second
	closeTimeout   = time.Second

	// Subscribers receiving batches slower than they are produced lose the
	// oldest ones.
	clientQueue = 4
)

// DefaultGroup is the multicast group relays announce themselves on.
var DefaultGroup = netip.MustParseAddrPort("224.76.78.75:20810")

type kind uint8

const (
	kindHello kind = iota + 1
	kindSubscribe
	kindBatch
)

type message struct {
	Kind      kind       `cbor:"1,keyasint"`
	Hello     *hello     `cbor:"2,keyasint,omitempty"`
	Subscribe *subscribe `cbor:"3,keyasint,omitempty"`
	Batch     *batch     `cbor:"4,keyasint,omitempty"`
}

// hello is sent by the server once a client connects.
type hello struct {
	Serial  string            `cbor:"1,keyasint"`
	Streams []tof.Stream      `cbor:"2,keyasint"`
	Config  *tof.CameraConfig `cbor:"3,keyasint,omitempty"`
}

// subscribe replaces the set of stream types a client receives. An empty
// set pauses the client.
type subscribe struct {
	Types []tof.FrameType `cbor:"1,keyasint"`
}

type batch struct {
	Frames []wireFrame `cbor:"1,keyasint"`
}

// wireFrame is a frame with its data zstd compressed.
type wireFrame struct {
	Type      tof.FrameType `cbor:"1,keyasint"`
	Rows      int           `cbor:"2,keyasint"`
	Cols      int           `cbor:"3,keyasint"`
	Count     uint64        `cbor:"4,keyasint"`
	Timestamp int64         `cbor:"5,keyasint"`
	Data      []byte        `cbor:"6,keyasint"`
}

// announcement is the beacon payload. The relay address is the datagram
// source.
type announcement struct {
	Serial string `cbor:"1,keyasint"`
	Port   uint16 `cbor:"2,keyasint"`
}

func encodeFrame(enc *zstd.Encoder, f *tof.Frame) wireFrame {
	return wireFrame{
		Type:      f.Type,
		Rows:      f.Rows,
		Cols:      f.Cols,
		Count:     f.Count,
		Timestamp: f.Timestamp.UnixNano(),
		Data:      enc.EncodeAll(f.Data, make([]byte, 0, len(f.Data)/2)),
	}
}

func decodeFrame(dec *zstd.Decoder, w wireFrame) (tof.Frame, error) {
	data, err := dec.DecodeAll(w.Data, nil)
	if err != nil {
		return tof.Frame{}, fmt.Errorf("could not decompress %s frame: %w", w.Type, err)
	}

	f := tof.Frame{
		Type:      w.Type,
		Rows:      w.Rows,
		Cols:      w.Cols,
		Count:     w.Count,
		Timestamp: time.Unix(0, w.Timestamp),
		Data:      data,
	}
	if err := f.Validate(); err != nil {
		return tof.Frame{}, err
	}
	return f, nil
}
