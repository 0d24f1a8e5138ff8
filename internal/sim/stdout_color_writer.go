// ColorStdoutWriter prints human-friendly, colorized events to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"lorawan-sim/internal/config"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var nodePalette = []string{colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

// ColorStdoutWriter prints rows using ANSI colors, one colour per end device.
type ColorStdoutWriter struct {
	cfg  *config.SimulationConfig
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func nodeColor(id int) string {
	if id < 0 {
		return colorGray
	}
	return nodePalette[id%len(nodePalette)]
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "End devices:\t%d\tGateways:\t%d\n", w.cfg.Devices, w.cfg.Gateways)
	fmt.Fprintf(tw, "Deployment radius (m):\t%.0f\tStop time:\t%s\n", w.cfg.DeploymentRadiusM, w.cfg.StopTime)
	fmt.Fprintf(tw, "App period:\t%s\tPacket size:\t%d\n", w.cfg.AppPeriod, w.cfg.PacketSize)
	fmt.Fprintf(tw, "Shadowing:\t%t\tBuilding penetration:\t%t\n", w.cfg.Shadowing, w.cfg.BuildingPenetration)
	fmt.Fprintf(tw, "Mobile devices:\t%d\tGrace period:\t%s\n", w.cfg.Mobility.MobileDevices, w.cfg.GracePeriod)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WritePacket prints a send.
func (w *ColorStdoutWriter) WritePacket(row PacketRow) error {
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintf(w.out, "%s[%12s]%s %sTX%s %snode=%d%s packet=%#x size=%d\n",
		colorGray, row.SentAt, colorReset,
		colorBlue, colorReset,
		nodeColor(row.Sender), row.Sender, colorReset,
		row.PacketID, row.Size)
	return err
}

// WriteReception prints a gateway reception.
func (w *ColorStdoutWriter) WriteReception(row ReceptionRow) error {
	w.once.Do(w.printOverview)
	outColor := colorGreen
	if row.Orphan {
		outColor = colorMagenta
	} else if row.Outcome != "success" {
		outColor = colorRed
	}
	_, err := fmt.Fprintf(w.out, "%s[%12s]%s %sRX%s gw=%d %snode=%d%s packet=%#x %s%s%s rx=%.1fdBm\n",
		colorGray, row.At, colorReset,
		colorCyan, colorReset,
		row.Gateway,
		nodeColor(row.Sender), row.Sender, colorReset,
		row.PacketID,
		outColor, outcomeLabel(row), colorReset,
		row.RxPowerDbm)
	return err
}

// WriteState prints cumulative counters.
func (w *ColorStdoutWriter) WriteState(row StateRow) error {
	w.once.Do(w.printOverview)
	failColor := colorGray
	if row.Failed > 0 {
		failColor = colorRed
	}
	_, err := fmt.Fprintf(w.out, "%s[%12s]%s %sSTATE%s sent=%d %sdelivered=%d%s dup=%d %sfailed=%d%s pending=%d orphans=%d thr=%.4f/s\n",
		colorGray, row.SimTime, colorReset,
		colorYellow, colorReset,
		row.Sent, colorGreen, row.Delivered, colorReset, row.Duplicates,
		failColor, row.Failed, colorReset, row.Pending, row.Orphans, row.Throughput)
	return err
}
