package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"essaim.dev/tofview/config"
	"essaim.dev/tofview/depthstream"
	"essaim.dev/tofview/display"
	"essaim.dev/tofview/kinect"
	"essaim.dev/tofview/session"
	"essaim.dev/tofview/sim"
	"essaim.dev/tofview/tof"
	"essaim.dev/tofview/viewer"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the exit code. Usage, listings and fatal errors all go to
// stdout.
func run(args []string, stdout io.Writer) int {
	opts, err := config.Parse("tofview", args, stdout)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.List {
		if err := list(ctx, discoverersFor(opts), stdout); err != nil {
			fmt.Fprintln(stdout, err)
			return 1
		}
		return 0
	}

	open := openerFor(ctx, opts)

	var runErr error
	driver.Main(func(s screen.Screen) {
		runErr = viewer.Run(ctx, opts, open, display.NewShiny(s), stdout)
	})
	if runErr != nil {
		fmt.Fprintln(stdout, runErr)
		return 1
	}

	return 0
}

type discoverers struct {
	usb     func() ([]tof.UsbDevice, error)
	network func(ctx context.Context) ([]tof.DiscoveryMessage, error)
}

func discoverersFor(opts config.Options) discoverers {
	if opts.Sim {
		return discoverers{
			usb:     sim.DiscoverUSB,
			network: func(context.Context) ([]tof.DiscoveryMessage, error) { return sim.DiscoverNetwork() },
		}
	}

	return discoverers{
		usb: kinect.Discover,
		network: func(ctx context.Context) ([]tof.DiscoveryMessage, error) {
			return depthstream.Discover(ctx, depthstream.DefaultGroup, depthstream.DefaultScan)
		},
	}
}

// list prints the cameras found on both transports, usb devices first.
func list(ctx context.Context, d discoverers, w io.Writer) error {
	devices, err := d.usb()
	if err != nil {
		return fmt.Errorf("could not discover usb cameras: %w", err)
	}

	cameras, err := d.network(ctx)
	if err != nil {
		return fmt.Errorf("could not discover network cameras: %w", err)
	}

	for _, dev := range devices {
		fmt.Fprintf(w, "%s - usb\n", dev.Serial)
	}
	for _, msg := range cameras {
		fmt.Fprintf(w, "%s %s\n", msg.Serial, msg.IP)
	}

	return nil
}

func openerFor(ctx context.Context, opts config.Options) session.Opener {
	switch {
	case opts.Sim:
		return func(serial string) (tof.Camera, error) {
			cam, err := sim.Open(serial)
			if err != nil {
				return nil, err
			}
			return cam, nil
		}
	case opts.Relay != "":
		return func(string) (tof.Camera, error) {
			cam, err := depthstream.Dial(ctx, opts.Relay)
			if err != nil {
				return nil, err
			}
			return cam, nil
		}
	default:
		return func(serial string) (tof.Camera, error) {
			cam, err := kinect.Open(serial)
			if err != nil {
				return nil, err
			}
			return cam, nil
		}
	}
}
