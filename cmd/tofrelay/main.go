package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"essaim.dev/tofview/config"
	"essaim.dev/tofview/depthstream"
	"essaim.dev/tofview/kinect"
	"essaim.dev/tofview/session"
	"essaim.dev/tofview/sim"
	"essaim.dev/tofview/tof"
)

var (
	addrFlag         string
	groupFlag        string
	serialFlag       string
	simFlag          bool
	bgrFlag          bool
	bgrProjectedFlag bool
	fpsFlag          float64
	dmaxFlag         float64
)

func init() {
	flag.StringVar(&addrFlag, "addr", fmt.Sprintf(":%d", depthstream.DefaultPort), "address subscribers connect to")
	flag.StringVar(&groupFlag, "group", depthstream.DefaultGroup.String(), "multicast group and port the relay is announced on")
	flag.StringVar(&serialFlag, "serial", "", "camera serial number")
	flag.BoolVar(&simFlag, "sim", false, "relay the simulated camera")
	flag.BoolVar(&bgrFlag, "bgr", false, "relay the colour image")
	flag.BoolVar(&bgrProjectedFlag, "bgr_projected", false, "relay the projected BGR image")
	flag.Float64Var(&fpsFlag, "fps", config.DefaultFPS, "depth frames per second")
	flag.Float64Var(&dmaxFlag, "dmax", config.DefaultMaxDistance, "maximum distance")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatalf("could not run relay: %s", err)
	}
}

func run() error {
	group, err := netip.ParseAddrPort(groupFlag)
	if err != nil {
		return fmt.Errorf("could not parse group address: %w", err)
	}

	opts := config.Default()
	opts.Serial = serialFlag
	opts.BGR = bgrFlag
	opts.BGRProjected = bgrProjectedFlag
	opts.FPS = fpsFlag
	opts.MaxDistance = dmaxFlag
	if err := opts.Validate(); err != nil {
		return err
	}

	open := func(serial string) (tof.Camera, error) {
		cam, err := kinect.Open(serial)
		if err != nil {
			return nil, err
		}
		return cam, nil
	}
	if simFlag {
		open = func(serial string) (tof.Camera, error) {
			cam, err := sim.Open(serial)
			if err != nil {
				return nil, err
			}
			return cam, nil
		}
	}

	s, err := session.Open(open, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	srv, err := depthstream.NewServer(s)
	if err != nil {
		return fmt.Errorf("could not create relay server: %w", err)
	}
	defer srv.Close()

	ln, err := net.Listen("tcp", addrFlag)
	if err != nil {
		return fmt.Errorf("could not listen: %w", err)
	}
	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	log.Printf("relaying camera %s on %s", s.Camera.Serial(), ln.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := depthstream.Beacon(ctx, group, s.Camera.Serial(), port); err != nil {
			log.Printf("could not announce relay: %s", err)
		}
	}()

	return srv.Run(ctx, ln)
}
