package sim

// PacketWriter handles packet rows.
type PacketWriter interface {
	WritePacket(PacketRow) error
}

// ReceptionWriter handles reception rows.
type ReceptionWriter interface {
	WriteReception(ReceptionRow) error
}

// StateWriter handles simulation state rows.
type StateWriter interface {
	WriteState(StateRow) error
}

// Writer receives every row stream produced by a run.
type Writer interface {
	PacketWriter
	ReceptionWriter
	StateWriter
}

// Optional: writers may support batch mode for packet rows.
type batchPacketWriter interface {
	WritePackets([]PacketRow) error
}

// Optional: writers may support batch mode for reception rows.
type batchReceptionWriter interface {
	WriteReceptions([]ReceptionRow) error
}

// AdminStatusWriter allows writers to receive result server status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}

// NopWriter discards every row.
type NopWriter struct{}

func (NopWriter) WritePacket(PacketRow) error       { return nil }
func (NopWriter) WriteReception(ReceptionRow) error { return nil }
func (NopWriter) WriteState(StateRow) error         { return nil }
