package sim

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"lorawan-sim/internal/tracker"
)

// Report is the aggregate result of a run over [Start, End).
type Report struct {
	RunID           string                 `json:"run_id"`
	Start           time.Duration          `json:"start"`
	End             time.Duration          `json:"end"`
	Counts          tracker.Counts         `json:"counts"`
	DeliveryRatio   float64                `json:"delivery_ratio"`
	Throughput      float64                `json:"throughput"`
	Orphans         int                    `json:"orphans"`
	Gateways        []tracker.GatewayStats `json:"gateways"`
	EndDevices      int                    `json:"end_devices"`
	GatewayNodes    int                    `json:"gateway_nodes"`
	MobileDevices   int                    `json:"mobile_devices"`
	EventsProcessed uint64                 `json:"events_processed"`
	WallTime        time.Duration          `json:"wall_time"`
}

// NewReport queries tr over [start, end).
func NewReport(tr *tracker.Tracker, start, end time.Duration) Report {
	c := tr.CountInWindow(start, end)
	return Report{
		Start:         start,
		End:           end,
		Counts:        c,
		DeliveryRatio: c.DeliveryRatio(),
		Throughput:    tr.Throughput(start, end),
		Orphans:       tr.Orphans(),
		Gateways:      tr.GatewayCounts(start, end),
	}
}

// Render formats the report as a boxed table. With color unset no ANSI
// sequences are emitted.
func (r Report) Render(color bool) string {
	title := lipgloss.NewStyle()
	label := lipgloss.NewStyle().Width(22)
	good := lipgloss.NewStyle()
	bad := lipgloss.NewStyle()
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if color {
		title = title.Bold(true).Foreground(lipgloss.Color("12"))
		label = label.Foreground(lipgloss.Color("8"))
		good = good.Foreground(lipgloss.Color("10"))
		bad = bad.Foreground(lipgloss.Color("9"))
		box = box.BorderForeground(lipgloss.Color("8"))
	}

	line := func(name, value string) string {
		return label.Render(name) + value
	}
	failed := fmt.Sprint(r.Counts.Failed)
	if r.Counts.Failed > 0 {
		failed = bad.Render(failed)
	}
	orphans := fmt.Sprint(r.Orphans)
	if r.Orphans > 0 {
		orphans = bad.Render(orphans)
	}

	lines := []string{
		title.Render("LoRaWAN simulation report"),
		line("Run", r.RunID),
		line("Window", fmt.Sprintf("[%s, %s)", r.Start, r.End)),
		line("Nodes", fmt.Sprintf("%d end devices (%d mobile), %d gateways", r.EndDevices, r.MobileDevices, r.GatewayNodes)),
		"",
		line("Sent", fmt.Sprint(r.Counts.Sent)),
		line("Delivered (unique)", good.Render(fmt.Sprint(r.Counts.UniqueDelivered))),
		line("Duplicate deliveries", fmt.Sprint(r.Counts.DuplicateDeliveries)),
		line("Failed", failed),
		line("Pending", fmt.Sprint(r.Counts.Pending)),
		line("Orphan receptions", orphans),
		line("Delivery ratio", fmt.Sprintf("%.2f%%", 100*r.DeliveryRatio)),
		line("Throughput", fmt.Sprintf("%.4f packets/s", r.Throughput)),
	}
	if len(r.Gateways) > 0 {
		lines = append(lines, "", title.Render("Per gateway"))
		for _, g := range r.Gateways {
			lines = append(lines, line(fmt.Sprintf("Gateway %d", g.Gateway),
				fmt.Sprintf("%d received, %d lost", g.Received, g.Lost)))
		}
	}
	if r.EventsProcessed > 0 {
		lines = append(lines, "", line("Events", fmt.Sprintf("%d in %s", r.EventsProcessed, r.WallTime.Round(time.Millisecond))))
	}
	return box.Render(strings.Join(lines, "\n"))
}

// PrintReport renders r to w, using color only when w is a terminal.
func PrintReport(w io.Writer, r Report) error {
	_, err := fmt.Fprintln(w, r.Render(isTerminal(w)))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
