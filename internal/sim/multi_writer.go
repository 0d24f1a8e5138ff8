package sim

import "errors"

// MultiWriter fans rows out to multiple writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Add appends a writer.
func (mw *MultiWriter) Add(w Writer) { mw.writers = append(mw.writers, w) }

// Len returns the number of writers.
func (mw *MultiWriter) Len() int { return len(mw.writers) }

// WritePacket sends a packet row to all writers.
func (mw *MultiWriter) WritePacket(row PacketRow) error {
	for _, w := range mw.writers {
		if err := w.WritePacket(row); err != nil {
			return err
		}
	}
	return nil
}

// WritePackets sends packet rows to all writers, using batch if supported.
func (mw *MultiWriter) WritePackets(rows []PacketRow) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchPacketWriter); ok {
			if err := bw.WritePackets(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WritePacket(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteReception sends a reception row to all writers.
func (mw *MultiWriter) WriteReception(row ReceptionRow) error {
	for _, w := range mw.writers {
		if err := w.WriteReception(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteReceptions sends reception rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteReceptions(rows []ReceptionRow) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchReceptionWriter); ok {
			if err := bw.WriteReceptions(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteReception(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteState sends a state row to all writers.
func (mw *MultiWriter) WriteState(row StateRow) error {
	for _, w := range mw.writers {
		if err := w.WriteState(row); err != nil {
			return err
		}
	}
	return nil
}

// SetAdminStatus forwards the status to writers that display it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}

// Close closes every writer implementing io.Closer and joins the errors.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		if c, ok := w.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
