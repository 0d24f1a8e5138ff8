package sim

import (
	"context"
	"fmt"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"lorawan-sim/internal/logging"
)

// Table names written by GreptimeDBWriter.
const (
	PacketTable    = "lorawan_packets"
	ReceptionTable = "lorawan_receptions"
	StateTable     = "lorawan_sim_state"
)

// greptimeClient is the part of the ingester client the writer uses.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes run rows to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	ctx            context.Context
	client         greptimeClient
	packetTable    string
	receptionTable string
	stateTable     string
}

// NewGreptimeDBWriter connects to endpoint (host or host:port) and writes into
// database. Tables are created by GreptimeDB on first write.
func NewGreptimeDBWriter(ctx context.Context, endpoint, database string) (*GreptimeDBWriter, error) {
	host, port := endpoint, 0
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptimedb endpoint %q: bad port: %w", endpoint, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port != 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		ctx:            ctx,
		client:         client,
		packetTable:    PacketTable,
		receptionTable: ReceptionTable,
		stateTable:     StateTable,
	}, nil
}

func (w *GreptimeDBWriter) write(name string, tbl *table.Table, rows int) error {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := w.client.Write(ctx, tbl); err != nil {
		logging.FromContext(ctx).Error("greptimedb write failed", "table", name, "err", err)
		return err
	}
	logging.FromContext(ctx).Debug("greptimedb rows written", "table", name, "rows", rows)
	return nil
}

// WritePacket inserts a single packet row.
func (w *GreptimeDBWriter) WritePacket(row PacketRow) error {
	return w.WritePackets([]PacketRow{row})
}

// WritePackets inserts multiple packet rows.
func (w *GreptimeDBWriter) WritePackets(rows []PacketRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.packetTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddTagColumn("sender", types.INT64)
	tbl.AddFieldColumn("packet_id", types.UINT64)
	tbl.AddFieldColumn("size", types.INT64)
	tbl.AddFieldColumn("sent_at_s", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, int64(r.Sender), r.PacketID, int64(r.Size), r.SentAt.Seconds(), r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.packetTable, tbl, len(rows))
}

// WriteReception inserts a single reception row.
func (w *GreptimeDBWriter) WriteReception(row ReceptionRow) error {
	return w.WriteReceptions([]ReceptionRow{row})
}

// WriteReceptions inserts multiple reception rows.
func (w *GreptimeDBWriter) WriteReceptions(rows []ReceptionRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.receptionTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddTagColumn("gateway", types.INT64)
	tbl.AddFieldColumn("packet_id", types.UINT64)
	tbl.AddFieldColumn("sender", types.INT64)
	tbl.AddFieldColumn("at_s", types.FLOAT64)
	tbl.AddFieldColumn("outcome", types.STRING)
	tbl.AddFieldColumn("reason", types.STRING)
	tbl.AddFieldColumn("rx_power_dbm", types.FLOAT64)
	tbl.AddFieldColumn("orphan", types.BOOLEAN)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, int64(r.Gateway), r.PacketID, int64(r.Sender), r.At.Seconds(),
			r.Outcome, r.Reason, r.RxPowerDbm, r.Orphan, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.receptionTable, tbl, len(rows))
}

// WriteState inserts a simulation state row.
func (w *GreptimeDBWriter) WriteState(row StateRow) error {
	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddFieldColumn("sim_time_s", types.FLOAT64)
	tbl.AddFieldColumn("sent", types.INT64)
	tbl.AddFieldColumn("delivered", types.INT64)
	tbl.AddFieldColumn("duplicates", types.INT64)
	tbl.AddFieldColumn("failed", types.INT64)
	tbl.AddFieldColumn("pending", types.INT64)
	tbl.AddFieldColumn("orphans", types.INT64)
	tbl.AddFieldColumn("throughput", types.FLOAT64)
	tbl.AddFieldColumn("events_processed", types.UINT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	if err := tbl.AddRow(row.RunID, row.SimTime.Seconds(), int64(row.Sent), int64(row.Delivered),
		int64(row.Duplicates), int64(row.Failed), int64(row.Pending), int64(row.Orphans),
		row.Throughput, row.EventsProcessed, row.Timestamp); err != nil {
		return err
	}
	return w.write(w.stateTable, tbl, 1)
}
