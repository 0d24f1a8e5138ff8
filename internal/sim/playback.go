package sim

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"lorawan-sim/internal/radio"
	"lorawan-sim/internal/tracker"
)

// ReplayLog replays state rows from r to writer. A speed >0 spaces rows by
// their simulated time divided by speed. If speed <= 0, no artificial delay
// is inserted.
func ReplayLog(r io.Reader, writer StateWriter, speed float64) error {
	dec := json.NewDecoder(r)
	first := true
	var prev time.Duration
	for {
		var row StateRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if !first && speed > 0 {
			diff := row.SimTime - prev
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				time.Sleep(diff)
			}
		}
		if err := writer.WriteState(row); err != nil {
			return err
		}
		prev = row.SimTime
		first = false
	}
}

// ReplayLogFile opens a file and replays its state rows.
func ReplayLogFile(path string, writer StateWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(f, writer, speed)
}

// ReplayLedger rebuilds a ledger from packet and reception logs written by
// FileWriter. Packets are loaded first so reception order in the file does not
// matter. Orphans are counted by the tracker, not returned.
func ReplayLedger(packets, receptions io.Reader, tr *tracker.Tracker) error {
	dec := json.NewDecoder(packets)
	for {
		var row PacketRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if err := tr.RecordTransmission(row.Sender, row.PacketID, row.SentAt, row.Size); err != nil {
			return err
		}
	}
	if receptions == nil {
		return nil
	}
	dec = json.NewDecoder(receptions)
	for {
		var row ReceptionRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		err := tr.RecordReception(row.Gateway, row.PacketID, row.At, radio.Outcome(row.Outcome), row.Reason)
		var orphan *tracker.OrphanReceptionWarning
		if err != nil && !errors.As(err, &orphan) {
			return err
		}
	}
}

// ReplayLedgerFiles opens the packet log and, if receptionPath is not empty,
// the reception log, and replays them into tr.
func ReplayLedgerFiles(packetPath, receptionPath string, tr *tracker.Tracker) error {
	pf, err := os.Open(packetPath)
	if err != nil {
		return err
	}
	defer pf.Close()
	var rr io.Reader
	if receptionPath != "" {
		rf, err := os.Open(receptionPath)
		if err != nil {
			return err
		}
		defer rf.Close()
		rr = rf
	}
	return ReplayLedger(pf, rr, tr)
}
