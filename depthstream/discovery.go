package depthstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"essaim.dev/tofview/monitoring"
	"essaim.dev/tofview/tof"
	"github.com/fxamacker/cbor/v2"
)

// DefaultScan is how long Discover listens for beacons.
const DefaultScan = 2 * time.Second

// Discover listens on group for relay beacons during scan and returns one
// entry per relay heard.
func Discover(ctx context.Context, group netip.AddrPort, scan time.Duration) ([]tof.DiscoveryMessage, error) {
	conn, err := net.ListenMulticastUDP("udp4", nil, net.UDPAddrFromAddrPort(group))
	if err != nil {
		return nil, fmt.Errorf("could not listen on multicast address: %w", err)
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(scan)); err != nil {
		return nil, fmt.Errorf("could not set scan deadline: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var found []tof.DiscoveryMessage
	seen := make(map[tof.DiscoveryMessage]bool)
	b := make([]byte, 512)

	for {
		n, from, err := conn.ReadFromUDPAddrPort(b)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return found, ctx.Err()
		}
		if err != nil {
			return nil, fmt.Errorf("could not read beacon: %w", err)
		}

		msg, err := parseBeacon(b[:n], from)
		if err != nil {
			monitoring.Logf("ignoring beacon from %s: %v", from, err)
			continue
		}
		if !seen[msg] {
			seen[msg] = true
			found = append(found, msg)
		}
	}
}

func parseBeacon(b []byte, from netip.AddrPort) (tof.DiscoveryMessage, error) {
	var a announcement
	if err := cbor.Unmarshal(b, &a); err != nil {
		return tof.DiscoveryMessage{}, fmt.Errorf("could not decode announcement: %w", err)
	}
	if a.Serial == "" || a.Port == 0 {
		return tof.DiscoveryMessage{}, errors.New("incomplete announcement")
	}

	return tof.DiscoveryMessage{
		Serial: a.Serial,
		IP:     from.Addr().Unmap(),
		Port:   a.Port,
	}, nil
}
