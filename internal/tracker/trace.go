package tracker

import (
	"context"
	"errors"

	"lorawan-sim/internal/logging"
	"lorawan-sim/internal/radio"
)

// HandleTrace applies an engine trace event to the ledger. Transmit traces are
// ignored since sends are recorded when they are issued. Orphans are logged and
// swallowed; other errors are returned.
func (t *Tracker) HandleTrace(ctx context.Context, ev radio.TraceEvent) error {
	if ev.Kind != radio.TraceReceive {
		return nil
	}
	err := t.RecordReception(ev.NodeID, ev.PacketID, ev.Time, ev.Outcome, ev.Reason)
	var orphan *OrphanReceptionWarning
	if errors.As(err, &orphan) {
		logging.FromContext(ctx).Warn("orphan reception",
			"gateway", orphan.Gateway, "packet_id", orphan.PacketID, "t", orphan.At, "orphans", t.orphans)
		return nil
	}
	return err
}
