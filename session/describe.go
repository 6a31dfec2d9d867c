package session

import (
	"fmt"
	"io"

	"essaim.dev/tofview/tof"
)

// DescribeConfig prints the capture configuration frame by frame.
func DescribeConfig(w io.Writer, cfg *tof.CameraConfig) {
	for n, f := range cfg.Frames {
		fmt.Fprintf(w, "Frame %d\n", n)
		fmt.Fprintf(w, "Modulation Frequency %2.1f\n", f.ModulationFrequency)
		fmt.Fprintf(w, "Integration Times %v\n", f.IntegrationTimes)
		fmt.Fprintf(w, "Duty Cycle: %f\n", f.DutyCycle)
		fmt.Fprintf(w, "DAC: %v\n", cfg.DAC)
		fmt.Fprintf(w, "Phase Shifts %v\n", f.PhaseShifts)
		fmt.Fprintf(w, "Binning %d\n", f.Binning)
	}
}
