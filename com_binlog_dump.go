package binlog

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// https://dev.mysql.com/doc/internals/en/com-binlog-dump.html
// https://dev.mysql.com/doc/internals/en/com-binlog-dump-gtid.html

const (
	COM_BINLOG_DUMP      = 0x12
	COM_BINLOG_DUMP_GTID = 0x1e

	BINLOG_DUMP_NON_BLOCK   = 0x01
	BINLOG_THROUGH_POSITION = 0x02
	BINLOG_THROUGH_GTID     = 0x04
)

// ComBinlogDump asks the server to start streaming binlog events from
// a file and offset. The payload goes inside one packet; Reassembler
// or an equivalent does the framing.
type ComBinlogDump struct {
	BinlogPos      uint32
	Flags          uint16
	ServerID       uint32
	BinlogFilename string
}

func (e ComBinlogDump) Encode() []byte {
	b := make([]byte, 0, 11+len(e.BinlogFilename))
	b = append(b, COM_BINLOG_DUMP)
	b = binary.LittleEndian.AppendUint32(b, e.BinlogPos)
	b = binary.LittleEndian.AppendUint16(b, e.Flags)
	b = binary.LittleEndian.AppendUint32(b, e.ServerID)
	return append(b, e.BinlogFilename...)
}

func (e *ComBinlogDump) decode(c *cursor) error {
	if cmd := c.int1(); c.err == nil && cmd != COM_BINLOG_DUMP {
		return formatErrorf("not a COM_BINLOG_DUMP command: 0x%02x", cmd)
	}
	e.BinlogPos = c.int4()
	e.Flags = c.int2()
	e.ServerID = c.int4()
	e.BinlogFilename = c.stringEOF()
	return c.err
}

// ComBinlogDumpGtid is the GTID flavor of the dump command. The GTID
// set is sent only when Flags has BINLOG_THROUGH_GTID.
type ComBinlogDumpGtid struct {
	Flags          uint16
	ServerID       uint32
	BinlogFilename string
	BinlogPos      uint64
	GtidSet        GtidSet
}

func (e ComBinlogDumpGtid) Encode() []byte {
	b := make([]byte, 0, 23+len(e.BinlogFilename))
	b = append(b, COM_BINLOG_DUMP_GTID)
	b = binary.LittleEndian.AppendUint16(b, e.Flags)
	b = binary.LittleEndian.AppendUint32(b, e.ServerID)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(e.BinlogFilename)))
	b = append(b, e.BinlogFilename...)
	b = binary.LittleEndian.AppendUint64(b, e.BinlogPos)
	if e.Flags&BINLOG_THROUGH_GTID != 0 {
		data := e.GtidSet.encode()
		b = binary.LittleEndian.AppendUint32(b, uint32(len(data)))
		b = append(b, data...)
	}
	return b
}

func (e *ComBinlogDumpGtid) decode(c *cursor) error {
	if cmd := c.int1(); c.err == nil && cmd != COM_BINLOG_DUMP_GTID {
		return formatErrorf("not a COM_BINLOG_DUMP_GTID command: 0x%02x", cmd)
	}
	e.Flags = c.int2()
	e.ServerID = c.int4()
	nameLen := c.int4()
	if c.err != nil {
		return c.err
	}
	e.BinlogFilename = c.string(int(nameLen))
	e.BinlogPos = c.int8()
	e.GtidSet = nil
	if c.err != nil || e.Flags&BINLOG_THROUGH_GTID == 0 {
		return c.err
	}
	dataLen := c.int4()
	if c.err != nil {
		return c.err
	}
	d := newCursor(c.take(int(dataLen)))
	if c.err != nil {
		return c.err
	}
	n := d.int4()
	if d.err != nil {
		return d.err
	}
	// each range is at least a sid and an interval count
	if uint64(n) > uint64(d.remaining())/24 {
		return formatErrorf("gtid set range count %d exceeds payload", n)
	}
	e.GtidSet = make(GtidSet, 0, n)
	for i := uint32(0); i < n; i++ {
		var r GtidRange
		if err := r.decode(d); err != nil {
			return err
		}
		e.GtidSet = append(e.GtidSet, r)
	}
	return nil
}

// GtidInterval is a half-closed range of transaction ids: Start is
// included, End is the first id past the range.
type GtidInterval struct {
	Start int64
	End   int64
}

// GtidRange is the executed intervals of one server uuid.
type GtidRange struct {
	SID       uuid.UUID
	Intervals []GtidInterval
}

func (r *GtidRange) decode(c *cursor) error {
	sid := c.take(16)
	n := c.int8()
	if c.err != nil {
		return c.err
	}
	copy(r.SID[:], sid)
	if n > uint64(c.remaining())/16 {
		return formatErrorf("gtid interval count %d exceeds payload", n)
	}
	r.Intervals = make([]GtidInterval, n)
	for i := range r.Intervals {
		r.Intervals[i].Start = int64(c.int8())
		r.Intervals[i].End = int64(c.int8())
	}
	return c.err
}

func (r GtidRange) encode(b []byte) []byte {
	b = append(b, r.SID[:]...)
	b = binary.LittleEndian.AppendUint64(b, uint64(len(r.Intervals)))
	for _, iv := range r.Intervals {
		b = binary.LittleEndian.AppendUint64(b, uint64(iv.Start))
		b = binary.LittleEndian.AppendUint64(b, uint64(iv.End))
	}
	return b
}

// GtidSet is a set of executed GTID ranges.
type GtidSet []GtidRange

// encode renders the set with a 4-byte range count, the layout
// COM_BINLOG_DUMP_GTID expects. PreviousGtidsEvent uses an 8-byte
// count instead and decodes through GtidRange directly.
func (s GtidSet) encode() []byte {
	b := binary.LittleEndian.AppendUint32(nil, uint32(len(s)))
	for _, r := range s {
		b = r.encode(b)
	}
	return b
}
