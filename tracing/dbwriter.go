package tracing

import (
	"github.com/sarchlab/netsim/datarecording"
)

// DBRecord is how a Record is laid out in a database table.
type DBRecord struct {
	Time       float64
	Kind       string
	Node       int
	Interface  int
	App        int
	PacketID   uint64
	PacketSize int
	Protocol   string
	Src        string
	Dst        string
	Outcome    string
}

// ToDBRecord flattens a record into scalar columns.
func ToDBRecord(rec Record) DBRecord {
	row := DBRecord{
		Time:      rec.Time,
		Kind:      rec.Kind.String(),
		Node:      int(rec.Node),
		Interface: int(rec.Interface),
		App:       int(rec.App),
		Outcome:   rec.Outcome.String(),
	}

	if rec.IsPacket() {
		row.PacketID = uint64(rec.PacketID)
		row.PacketSize = rec.PacketSize
		row.Protocol = rec.Protocol.String()
		row.Src = rec.Src.String()
		row.Dst = rec.Dst.String()
	}

	return row
}

// DefaultTraceTable is the table DBWriter writes to unless told otherwise.
const DefaultTraceTable = "trace"

// DBWriter stores records as rows of a DataRecorder table.
type DBWriter struct {
	recorder datarecording.DataRecorder
	table    string
}

// NewDBWriter creates the table and returns a writer that fills it.
func NewDBWriter(recorder datarecording.DataRecorder, table string) *DBWriter {
	if table == "" {
		table = DefaultTraceTable
	}

	recorder.CreateTable(table, DBRecord{})

	return &DBWriter{recorder: recorder, table: table}
}

func (w *DBWriter) Write(rec Record) error {
	w.recorder.InsertData(w.table, ToDBRecord(rec))
	return nil
}

func (w *DBWriter) Flush() error {
	w.recorder.Flush()
	return nil
}

// Close flushes and closes the recorder.
func (w *DBWriter) Close() error {
	return w.recorder.Close()
}
