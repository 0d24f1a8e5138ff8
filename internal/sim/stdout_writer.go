// Writer implementation printing a line per event to STDOUT
package sim

import (
	"fmt"
	"io"
	"os"
)

// StdoutWriter prints one plain line per row.
type StdoutWriter struct {
	out io.Writer
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{out: os.Stdout}
}

// WritePacket outputs a single packet row.
func (w *StdoutWriter) WritePacket(row PacketRow) error {
	_, err := fmt.Fprintf(w.out, "%12s  tx   node=%d packet=%#x size=%d\n", row.SentAt, row.Sender, row.PacketID, row.Size)
	return err
}

// WriteReception outputs a single reception row.
func (w *StdoutWriter) WriteReception(row ReceptionRow) error {
	_, err := fmt.Fprintf(w.out, "%12s  rx   gw=%d packet=%#x %s rx=%.1fdBm\n", row.At, row.Gateway, row.PacketID, outcomeLabel(row), row.RxPowerDbm)
	return err
}

// WriteState outputs a single state row.
func (w *StdoutWriter) WriteState(row StateRow) error {
	_, err := fmt.Fprintf(w.out, "%12s  state sent=%d delivered=%d failed=%d pending=%d orphans=%d\n",
		row.SimTime, row.Sent, row.Delivered, row.Failed, row.Pending, row.Orphans)
	return err
}

func outcomeLabel(row ReceptionRow) string {
	switch {
	case row.Orphan:
		return "orphan"
	case row.Reason != "":
		return row.Reason
	}
	return row.Outcome
}
