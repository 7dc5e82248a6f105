package binlog

import (
	"fmt"

	"github.com/google/uuid"
)

// https://dev.mysql.com/doc/internals/en/binlog-event-type.html
// https://dev.mysql.com/doc/internals/en/event-meanings.html

type EventType uint8

const (
	UNKNOWN_EVENT            EventType = 0x00
	START_EVENT_V3           EventType = 0x01
	QUERY_EVENT              EventType = 0x02
	STOP_EVENT               EventType = 0x03
	ROTATE_EVENT             EventType = 0x04
	INTVAR_EVENT             EventType = 0x05
	LOAD_EVENT               EventType = 0x06
	SLAVE_EVENT              EventType = 0x07
	CREATE_FILE_EVENT        EventType = 0x08
	APPEND_BLOCK_EVENT       EventType = 0x09
	EXEC_LOAD_EVENT          EventType = 0x0a
	DELETE_FILE_EVENT        EventType = 0x0b
	NEW_LOAD_EVENT           EventType = 0x0c
	RAND_EVENT               EventType = 0x0d
	USER_VAR_EVENT           EventType = 0x0e
	FORMAT_DESCRIPTION_EVENT EventType = 0x0f
	XID_EVENT                EventType = 0x10
	BEGIN_LOAD_QUERY_EVENT   EventType = 0x11
	EXECUTE_LOAD_QUERY_EVENT EventType = 0x12
	TABLE_MAP_EVENT          EventType = 0x13
	WRITE_ROWS_EVENTv0       EventType = 0x14
	UPDATE_ROWS_EVENTv0      EventType = 0x15
	DELETE_ROWS_EVENTv0      EventType = 0x16
	WRITE_ROWS_EVENTv1       EventType = 0x17
	UPDATE_ROWS_EVENTv1      EventType = 0x18
	DELETE_ROWS_EVENTv1      EventType = 0x19
	INCIDENT_EVENT           EventType = 0x1a
	HEARTBEAT_EVENT          EventType = 0x1b
	IGNORABLE_EVENT          EventType = 0x1c
	ROWS_QUERY_EVENT         EventType = 0x1d
	WRITE_ROWS_EVENTv2       EventType = 0x1e
	UPDATE_ROWS_EVENTv2      EventType = 0x1f
	DELETE_ROWS_EVENTv2      EventType = 0x20
	GTID_EVENT               EventType = 0x21
	ANONYMOUS_GTID_EVENT     EventType = 0x22
	PREVIOUS_GTIDS_EVENT     EventType = 0x23
)

var eventTypeNames = map[EventType]string{
	UNKNOWN_EVENT:            "unknown",
	START_EVENT_V3:           "startV3",
	QUERY_EVENT:              "query",
	STOP_EVENT:               "stop",
	ROTATE_EVENT:             "rotate",
	INTVAR_EVENT:             "intVar",
	LOAD_EVENT:               "load",
	SLAVE_EVENT:              "slave",
	CREATE_FILE_EVENT:        "createFile",
	APPEND_BLOCK_EVENT:       "appendBlock",
	EXEC_LOAD_EVENT:          "execLoad",
	DELETE_FILE_EVENT:        "deleteFile",
	NEW_LOAD_EVENT:           "newLoad",
	RAND_EVENT:               "rand",
	USER_VAR_EVENT:           "userVar",
	FORMAT_DESCRIPTION_EVENT: "formatDescription",
	XID_EVENT:                "xid",
	BEGIN_LOAD_QUERY_EVENT:   "beginLoadQuery",
	EXECUTE_LOAD_QUERY_EVENT: "executeLoadQuery",
	TABLE_MAP_EVENT:          "tableMap",
	WRITE_ROWS_EVENTv0:       "writeRowsV0",
	UPDATE_ROWS_EVENTv0:      "updateRowsV0",
	DELETE_ROWS_EVENTv0:      "deleteRowsV0",
	WRITE_ROWS_EVENTv1:       "writeRowsV1",
	UPDATE_ROWS_EVENTv1:      "updateRowsV1",
	DELETE_ROWS_EVENTv1:      "deleteRowsV1",
	INCIDENT_EVENT:           "incident",
	HEARTBEAT_EVENT:          "heartbeat",
	IGNORABLE_EVENT:          "ignorable",
	ROWS_QUERY_EVENT:         "rowsQuery",
	WRITE_ROWS_EVENTv2:       "writeRowsV2",
	UPDATE_ROWS_EVENTv2:      "updateRowsV2",
	DELETE_ROWS_EVENTv2:      "deleteRowsV2",
	GTID_EVENT:               "gtid",
	ANONYMOUS_GTID_EVENT:     "anonymousGTID",
	PREVIOUS_GTIDS_EVENT:     "previousGTIDs",
}

func (t EventType) String() string {
	if s, ok := eventTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("0x%02x", uint8(t))
}

func (t EventType) IsWriteRows() bool {
	return t == WRITE_ROWS_EVENTv0 || t == WRITE_ROWS_EVENTv1 || t == WRITE_ROWS_EVENTv2
}

func (t EventType) IsUpdateRows() bool {
	return t == UPDATE_ROWS_EVENTv0 || t == UPDATE_ROWS_EVENTv1 || t == UPDATE_ROWS_EVENTv2
}

func (t EventType) IsDeleteRows() bool {
	return t == DELETE_ROWS_EVENTv0 || t == DELETE_ROWS_EVENTv1 || t == DELETE_ROWS_EVENTv2
}

func (t EventType) isRows() bool {
	return t.IsWriteRows() || t.IsUpdateRows() || t.IsDeleteRows()
}

// Event is one decoded binlog event. Data holds the type specific
// payload struct; Checksum is the trailing CRC32 when the stream
// carries checksums, zero otherwise.
type Event struct {
	Header   EventHeader
	Data     interface{}
	Checksum uint32
}

// RotateEvent is written when mysqld switches to a new binary log
// file, and sent artificially at the start of a dump stream.
//
// https://dev.mysql.com/doc/internals/en/rotate-event.html
type RotateEvent struct {
	Position   uint64
	NextBinlog string
}

func (e *RotateEvent) decode(c *cursor, version BinlogVersion) error {
	if version > V1 {
		e.Position = c.int8()
	}
	e.NextBinlog = c.stringEOF()
	return c.err
}

// QueryEvent is written for every updating statement under
// statement based logging, and for BEGIN/DDL under row based logging.
//
// https://dev.mysql.com/doc/internals/en/query-event.html
type QueryEvent struct {
	SlaveProxyID  uint32
	ExecutionTime uint32
	ErrorCode     uint16
	StatusVars    []byte
	Schema        string
	Query         string
}

func (e *QueryEvent) decode(c *cursor) error {
	e.SlaveProxyID = c.int4()
	e.ExecutionTime = c.int4()
	schemaLen := c.int1()
	e.ErrorCode = c.int2()
	statusVarsLen := c.int2()
	if c.err != nil {
		return c.err
	}
	e.StatusVars = c.bytes(int(statusVarsLen))
	e.Schema = c.string(int(schemaLen))
	c.skip(1)
	e.Query = c.stringEOF()
	return c.err
}

// IntVarEvent subtypes.
const (
	INTVAR_LAST_INSERT_ID = 0x01
	INTVAR_INSERT_ID      = 0x02
)

// IntVarEvent precedes a QueryEvent that uses an AUTO_INCREMENT column
// or LAST_INSERT_ID().
//
// https://dev.mysql.com/doc/internals/en/intvar-event.html
type IntVarEvent struct {
	Type  uint8
	Value uint64
}

func (e *IntVarEvent) decode(c *cursor) error {
	e.Type = c.int1()
	e.Value = c.int8()
	if c.err != nil {
		return c.err
	}
	if e.Type != INTVAR_LAST_INSERT_ID && e.Type != INTVAR_INSERT_ID {
		return formatErrorf("invalid intvar key 0x%02x", e.Type)
	}
	return nil
}

// RandEvent carries the seeds for RAND() in the next statement.
//
// https://dev.mysql.com/doc/internals/en/rand-event.html
type RandEvent struct {
	Seed1 uint64
	Seed2 uint64
}

func (e *RandEvent) decode(c *cursor) error {
	e.Seed1 = c.int8()
	e.Seed2 = c.int8()
	return c.err
}

// UserVarEvent is written every time a statement uses a user variable.
// The value bytes keep their wire form; Value decodes them on demand.
//
// https://dev.mysql.com/doc/internals/en/user-var-event.html
type UserVarEvent struct {
	Name  string
	Null  bool
	value []byte
}

func (e *UserVarEvent) decode(c *cursor) error {
	nameLen := c.int4()
	if c.err != nil {
		return c.err
	}
	e.Name = c.string(int(nameLen))
	e.Null = c.int1() != 0
	if c.err != nil {
		return c.err
	}
	if !e.Null {
		e.value = c.bytes(c.remaining())
	}
	return c.err
}

// UserVarValue is the decoded value part of a UserVarEvent.
type UserVarValue struct {
	Type     uint8
	Charset  uint32
	Value    []byte
	Unsigned bool
}

// Value decodes the value bytes. It fails on a NULL variable.
func (e *UserVarEvent) Value() (UserVarValue, error) {
	if e.Null {
		return UserVarValue{}, formatErrorf("user variable %s is null", e.Name)
	}
	c := newCursor(e.value)
	var v UserVarValue
	v.Type = c.int1()
	v.Charset = c.int4()
	valueLen := c.int4()
	if c.err != nil {
		return UserVarValue{}, c.err
	}
	v.Value = c.bytes(int(valueLen))
	if c.more() {
		v.Unsigned = c.int1()&0x01 != 0
	}
	if c.err != nil {
		return UserVarValue{}, c.err
	}
	return v, nil
}

// XidEvent commits a transaction under row based logging.
//
// https://dev.mysql.com/doc/internals/en/xid-event.html
type XidEvent struct {
	Xid uint64
}

func (e *XidEvent) decode(c *cursor) error {
	e.Xid = c.int8()
	return c.err
}

// IncidentEvent notifies the replica that something on the master may
// have left the data in an inconsistent state.
//
// https://dev.mysql.com/doc/internals/en/incident-event.html
type IncidentEvent struct {
	Type    uint16
	Message string
}

func (e *IncidentEvent) decode(c *cursor) error {
	e.Type = c.int2()
	size := c.int1()
	e.Message = c.string(int(size))
	return c.err
}

// HeartbeatEvent is sent when the master has no more data, to keep the
// connection alive. Never written to log files.
type HeartbeatEvent struct {
	LogName string
}

func (e *HeartbeatEvent) decode(c *cursor) error {
	e.LogName = c.stringEOF()
	return c.err
}

// RowsQueryEvent carries the original statement text for the rows
// events that follow, when binlog_rows_query_log_events is ON.
type RowsQueryEvent struct {
	Query string
}

func (e *RowsQueryEvent) decode(c *cursor) error {
	c.skip(1) // length byte, unreliable for long statements
	e.Query = c.stringEOF()
	return c.err
}

// GtidEvent assigns a global transaction id to the transaction that
// follows. AnonymousGtidEvent has the same layout.
//
// https://github.com/mysql/mysql-server/blob/5.7/libbinlogevents/include/control_events.h
type GtidEvent struct {
	Flags          uint8
	SID            uuid.UUID
	GNO            uint64
	LastCommitted  int64
	SequenceNumber int64
}

func (e *GtidEvent) decode(c *cursor) error {
	e.Flags = c.int1()
	sid := c.take(16)
	if c.err != nil {
		return c.err
	}
	copy(e.SID[:], sid)
	e.GNO = c.int8()
	// logical timestamps exist only from 5.7.4 on
	if c.remaining() >= 17 {
		c.skip(1) // ts type
		e.LastCommitted = int64(c.int8())
		e.SequenceNumber = int64(c.int8())
	}
	return c.err
}

// AnonymousGtidEvent marks a transaction logged without a GTID.
type AnonymousGtidEvent struct {
	GtidEvent
}

// PreviousGtidsEvent lists the GTID sets already contained in earlier
// binlog files. The payload is kept raw; GtidSet resolves it.
type PreviousGtidsEvent struct {
	payload []byte
}

func (e *PreviousGtidsEvent) decode(c *cursor) error {
	e.payload = c.bytes(c.remaining())
	return c.err
}

// GtidSet decodes the payload. The server encodes the SID count as
// 8 bytes here, unlike the 4 byte count in COM_BINLOG_DUMP_GTID.
//
// https://github.com/mysql/mysql-server/blob/5.7/sql/rpl_gtid_set.cc
func (e *PreviousGtidsEvent) GtidSet() (GtidSet, error) {
	c := newCursor(e.payload)
	n := c.int8()
	if c.err != nil {
		return nil, c.err
	}
	// each range is at least a sid and an interval count
	if n > uint64(c.remaining())/24 {
		return nil, formatErrorf("gtid set range count %d exceeds payload", n)
	}
	set := make(GtidSet, 0, n)
	for i := uint64(0); i < n; i++ {
		var r GtidRange
		if err := r.decode(c); err != nil {
			return nil, err
		}
		set = append(set, r)
	}
	return set, nil
}

// StopEvent signals the last event in the file on clean shutdown.
type StopEvent struct{}

// UnknownEvent carries the raw payload of an event type this package
// does not recognize, so a consumer can still skip past it.
type UnknownEvent struct {
	Type EventType
	Data []byte
}
