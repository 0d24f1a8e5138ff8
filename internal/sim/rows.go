package sim

import "time"

// PacketRow is exported for every send.
type PacketRow struct {
	RunID     string        `json:"run_id"`
	PacketID  uint64        `json:"packet_id"`
	Sender    int           `json:"sender"`
	Size      int           `json:"size"`
	SentAt    time.Duration `json:"sent_at"`
	Timestamp time.Time     `json:"ts"`
}

// ReceptionRow is exported for every gateway reception trace.
type ReceptionRow struct {
	RunID      string        `json:"run_id"`
	PacketID   uint64        `json:"packet_id"`
	Sender     int           `json:"sender"` // -1 for orphans
	Gateway    int           `json:"gateway"`
	At         time.Duration `json:"at"`
	Outcome    string        `json:"outcome"`
	Reason     string        `json:"reason,omitempty"`
	RxPowerDbm float64       `json:"rx_power_dbm"`
	Orphan     bool          `json:"orphan,omitempty"`
	Timestamp  time.Time     `json:"ts"`
}

// StateRow captures cumulative delivery counters at a point in simulated time.
type StateRow struct {
	RunID           string        `json:"run_id"`
	SimTime         time.Duration `json:"sim_time"`
	Sent            int           `json:"sent"`
	Delivered       int           `json:"delivered"`
	Duplicates      int           `json:"duplicates"`
	Failed          int           `json:"failed"`
	Pending         int           `json:"pending"`
	Orphans         int           `json:"orphans"`
	Throughput      float64       `json:"throughput"`
	EventsProcessed uint64        `json:"events_processed"`
	Timestamp       time.Time     `json:"ts"`
}
