package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSONStdoutWriter prints every row as one JSON object per line, tagged with
// its stream name.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

type taggedRow struct {
	Stream string `json:"stream"`
	Row    any    `json:"row"`
}

func (w *JSONStdoutWriter) emit(stream string, row any) error {
	data, err := json.Marshal(taggedRow{Stream: stream, Row: row})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WritePacket outputs a packet row in JSON format.
func (w *JSONStdoutWriter) WritePacket(row PacketRow) error { return w.emit("packet", row) }

// WriteReception outputs a reception row in JSON format.
func (w *JSONStdoutWriter) WriteReception(row ReceptionRow) error {
	return w.emit("reception", row)
}

// WriteState outputs a state row in JSON format.
func (w *JSONStdoutWriter) WriteState(row StateRow) error { return w.emit("state", row) }
