package sim

import (
	"encoding/json"
	"os"
)

// FileWriter writes packet, reception and state rows to JSONL files.
type FileWriter struct {
	packetFile    *os.File
	receptionFile *os.File
	stateFile     *os.File
	packetEnc     *json.Encoder
	receptionEnc  *json.Encoder
	stateEnc      *json.Encoder
}

// NewFileWriter creates a FileWriter. receptionPath or statePath may be empty
// to skip those logs.
func NewFileWriter(packetPath, receptionPath, statePath string) (*FileWriter, error) {
	pf, err := os.Create(packetPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{packetFile: pf, packetEnc: json.NewEncoder(pf)}
	if receptionPath != "" {
		rf, err := os.Create(receptionPath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.receptionFile = rf
		fw.receptionEnc = json.NewEncoder(rf)
	}
	if statePath != "" {
		sf, err := os.Create(statePath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.stateFile = sf
		fw.stateEnc = json.NewEncoder(sf)
	}
	return fw, nil
}

// WritePacket logs a single packet row.
func (f *FileWriter) WritePacket(row PacketRow) error {
	return f.packetEnc.Encode(row)
}

// WritePackets logs multiple packet rows.
func (f *FileWriter) WritePackets(rows []PacketRow) error {
	for _, r := range rows {
		if err := f.WritePacket(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteReception logs a reception row, if enabled.
func (f *FileWriter) WriteReception(row ReceptionRow) error {
	if f.receptionEnc == nil {
		return nil
	}
	return f.receptionEnc.Encode(row)
}

// WriteState logs a simulation state row, if enabled.
func (f *FileWriter) WriteState(row StateRow) error {
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	for _, file := range []*os.File{f.packetFile, f.receptionFile, f.stateFile} {
		if file == nil {
			continue
		}
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
