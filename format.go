package binlog

import "strings"

// ChecksumMode tells whether events in the stream carry a trailing
// CRC32.
type ChecksumMode uint8

const (
	ChecksumNone ChecksumMode = iota
	ChecksumCRC32
)

func (m ChecksumMode) String() string {
	if m == ChecksumCRC32 {
		return "crc32"
	}
	return "none"
}

// StartEventV3 opens v1 and v3 binlog files the way
// FormatDescriptionEvent opens v4 files.
type StartEventV3 struct {
	BinlogVersion   uint16
	ServerVersion   string
	CreateTimestamp uint32
}

func (e *StartEventV3) decode(c *cursor) error {
	e.BinlogVersion = c.int2()
	sv := c.take(50)
	e.CreateTimestamp = c.int4()
	if c.err != nil {
		return c.err
	}
	e.ServerVersion = strings.TrimRight(string(sv), "\x00")
	return nil
}

// size of the fixed part of a FormatDescriptionEvent payload:
// 2 binlog version + 50 server version + 4 create timestamp +
// 1 header length.
const fdeFixedSize = 57

// FormatDescriptionEvent is the first event of every v4 binlog file.
//
// https://dev.mysql.com/doc/internals/en/format-description-event.html
type FormatDescriptionEvent struct {
	BinlogVersion   uint16
	ServerVersion   string
	CreateTimestamp uint32
	HeaderLength    uint8
}

// Format carries what later events need from the file's
// FormatDescriptionEvent: the header layout and whether events end in
// a CRC32.
type Format struct {
	Version       BinlogVersion
	ServerVersion string
	Checksum      ChecksumMode

	// ChecksumFlag is the raw algorithm byte from the format
	// description event, zero when the event carried none.
	ChecksumFlag byte

	// indexed by EventType; entry 0 is reserved and always zero
	postHeaderLengths []byte
}

func (f *Format) headerSize() int {
	if f == nil {
		return V4.headerSize()
	}
	return f.Version.headerSize()
}

// postHeaderLength returns the post-header length the file declares
// for typ, or def when the file predates that event type.
func (f *Format) postHeaderLength(typ EventType, def int) int {
	if f == nil || int(typ) >= len(f.postHeaderLengths) {
		return def
	}
	return int(f.postHeaderLengths[typ])
}

// decodeFDE decodes data as a FormatDescriptionEvent payload and
// derives the Format for the rest of the file. Whether the file
// carries checksums is detected from the event itself: its own
// post-header table entry says how long the table should be, so any
// extra trailing bytes are the checksum suffix.
func decodeFDE(data []byte) (*FormatDescriptionEvent, *Format, error) {
	c := newCursor(data)
	e := new(FormatDescriptionEvent)
	e.BinlogVersion = c.int2()
	sv := c.take(50)
	e.CreateTimestamp = c.int4()
	e.HeaderLength = c.int1()
	if c.err != nil {
		return nil, nil, c.err
	}
	e.ServerVersion = strings.TrimRight(string(sv), "\x00")
	if e.BinlogVersion != 4 {
		return nil, nil, formatErrorf("unsupported binlog version %d in format description", e.BinlogVersion)
	}
	if int(e.HeaderLength) != V4.headerSize() {
		return nil, nil, formatErrorf("unsupported event header length %d", e.HeaderLength)
	}

	table := c.bytesEOF()
	if int(FORMAT_DESCRIPTION_EVENT) > len(table) {
		return nil, nil, formatErrorf("format description post-header table too short: %d entries", len(table))
	}
	declared := int(table[FORMAT_DESCRIPTION_EVENT-1]) - fdeFixedSize

	f := &Format{
		Version:       V4,
		ServerVersion: e.ServerVersion,
	}
	switch len(table) {
	case declared:
		f.Checksum = ChecksumNone
	case declared + 5:
		// 1 checksum algorithm byte + the event's own CRC32
		switch alg := table[declared]; alg {
		case 0x00:
			f.ChecksumFlag = alg
			f.Checksum = ChecksumNone
		case 0x01:
			f.ChecksumFlag = alg
			f.Checksum = ChecksumCRC32
		default:
			return nil, nil, formatErrorf("unsupported checksum algorithm 0x%02x", alg)
		}
		table = table[:declared]
	default:
		return nil, nil, formatErrorf("format description post-header table has %d entries, declared %d", len(table), declared)
	}

	// entry 0 is reserved; the table on the wire starts at type 1
	f.postHeaderLengths = make([]byte, 1+len(table))
	copy(f.postHeaderLengths[1:], table)
	return e, f, nil
}
