package binlog

import (
	"io"
	"os"
)

// File decodes the events of one binlog file held in memory. The
// binlog version comes from the first event; table maps and the format
// description are tracked internally so rows events decode fully.
type File struct {
	data    []byte
	off     int
	version BinlogVersion
	fm      Format
	reg     SchemaRegistry
}

// NewFile checks the magic, resolves the binlog version and returns a
// File positioned at the first event.
func NewFile(data []byte) (*File, error) {
	version, off, err := DetectVersion(data)
	if err != nil {
		return nil, err
	}
	return &File{
		data:    data,
		off:     off,
		version: version,
		fm:      Format{Version: version},
	}, nil
}

// Open reads the binlog file at path into memory.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewFile(data)
}

// Version returns the binlog version of the file.
func (f *File) Version() BinlogVersion { return f.version }

// Pos returns the byte offset of the next event.
func (f *File) Pos() int64 { return int64(f.off) }

// Next decodes and returns the next event, the format description and
// table map events included. It returns io.EOF after the last event,
// and io.ErrUnexpectedEOF when the file ends inside an event.
func (f *File) Next() (Event, error) {
	if f.off == len(f.data) {
		return Event{}, io.EOF
	}
	ev, n, err := DecodeEvent(f.data[f.off:], &f.fm, &f.reg)
	if err != nil {
		if IsIncomplete(err) {
			return Event{}, io.ErrUnexpectedEOF
		}
		return Event{}, err
	}
	f.off += n
	return ev, nil
}
