package binlog

import (
	"encoding/binary"
	"hash/crc32"
)

// DecodeEvent decodes the first event in buf and returns it along with
// the number of bytes consumed. fm carries the format established by
// the file's FormatDescriptionEvent; pass nil before one is seen, in
// which case v4 headers without checksums are assumed. reg resolves
// table ids for rows events and is updated by table map and rotate
// events.
//
// If buf does not yet hold a complete event, the error is an
// *IncompleteError saying how many more bytes are needed; decode again
// with more input. buf is not modified.
func DecodeEvent(buf []byte, fm *Format, reg *SchemaRegistry) (Event, int, error) {
	version := V4
	if fm != nil && fm.Version != 0 {
		version = fm.Version
	}
	c := newCursor(buf)
	var h EventHeader
	if err := h.decode(c, version); err != nil {
		return Event{}, 0, err
	}
	if len(buf) < int(h.EventSize) {
		return Event{}, 0, &IncompleteError{Needed: int(h.EventSize) - len(buf)}
	}
	frame := buf[:h.EventSize]
	payload := frame[version.headerSize():]

	ev := Event{Header: h}
	mode := ChecksumNone
	if fm != nil {
		mode = fm.Checksum
	}

	// the FDE describes its own checksum, so it decodes before any
	// stripping and the derived format drives verification
	if h.EventType == FORMAT_DESCRIPTION_EVENT {
		fde, derived, err := decodeFDE(payload)
		if err != nil {
			return Event{}, 0, err
		}
		if fm != nil {
			*fm = *derived
		}
		if derived.Checksum == ChecksumCRC32 {
			if err := verifyChecksum(frame, h, &ev.Checksum); err != nil {
				return Event{}, 0, err
			}
		}
		ev.Data = fde
		return ev, int(h.EventSize), nil
	}

	if mode == ChecksumCRC32 {
		if len(payload) < 4 {
			return Event{}, 0, formatErrorf("%s event too short for checksum", h.EventType)
		}
		if err := verifyChecksum(frame, h, &ev.Checksum); err != nil {
			return Event{}, 0, err
		}
		payload = payload[:len(payload)-4]
	}

	data, err := decodePayload(h, payload, fm, reg, version)
	if err != nil {
		return Event{}, 0, err
	}
	ev.Data = data
	return ev, int(h.EventSize), nil
}

// SkipEvent returns the size of the first event in buf without
// decoding its payload, so a consumer can step past events it does not
// care about, or resynchronize after an error.
func SkipEvent(buf []byte, fm *Format) (int, error) {
	version := V4
	if fm != nil && fm.Version != 0 {
		version = fm.Version
	}
	c := newCursor(buf)
	var h EventHeader
	if err := h.decode(c, version); err != nil {
		return 0, err
	}
	if len(buf) < int(h.EventSize) {
		return 0, &IncompleteError{Needed: int(h.EventSize) - len(buf)}
	}
	return int(h.EventSize), nil
}

func verifyChecksum(frame []byte, h EventHeader, out *uint32) error {
	if len(frame) < 4 {
		return formatErrorf("%s event too short for checksum", h.EventType)
	}
	expected := binary.LittleEndian.Uint32(frame[len(frame)-4:])
	actual := crc32.ChecksumIEEE(frame[:len(frame)-4])
	if actual != expected {
		return &ChecksumError{Header: h, Expected: expected, Actual: actual}
	}
	*out = expected
	return nil
}

func decodePayload(h EventHeader, payload []byte, fm *Format, reg *SchemaRegistry, version BinlogVersion) (interface{}, error) {
	c := newCursor(payload)
	switch t := h.EventType; {
	case t == START_EVENT_V3:
		e := new(StartEventV3)
		return e, e.decode(c)
	case t == ROTATE_EVENT:
		e := new(RotateEvent)
		if err := e.decode(c, version); err != nil {
			return nil, err
		}
		if reg != nil {
			reg.Reset()
		}
		return e, nil
	case t == QUERY_EVENT:
		e := new(QueryEvent)
		return e, e.decode(c)
	case t == STOP_EVENT:
		return new(StopEvent), nil
	case t == INTVAR_EVENT:
		e := new(IntVarEvent)
		return e, e.decode(c)
	case t == RAND_EVENT:
		e := new(RandEvent)
		return e, e.decode(c)
	case t == USER_VAR_EVENT:
		e := new(UserVarEvent)
		return e, e.decode(c)
	case t == XID_EVENT:
		e := new(XidEvent)
		return e, e.decode(c)
	case t == INCIDENT_EVENT:
		e := new(IncidentEvent)
		return e, e.decode(c)
	case t == HEARTBEAT_EVENT:
		e := new(HeartbeatEvent)
		return e, e.decode(c)
	case t == ROWS_QUERY_EVENT:
		e := new(RowsQueryEvent)
		return e, e.decode(c)
	case t == TABLE_MAP_EVENT:
		e := new(TableMapEvent)
		if err := e.decode(c, fm); err != nil {
			return nil, err
		}
		if reg != nil {
			reg.put(e)
		}
		return e, nil
	case t.isRows():
		e := new(RowsEvent)
		return e, e.decode(c, t, fm, reg)
	case t == GTID_EVENT:
		e := new(GtidEvent)
		return e, e.decode(c)
	case t == ANONYMOUS_GTID_EVENT:
		e := new(AnonymousGtidEvent)
		return e, e.decode(c)
	case t == PREVIOUS_GTIDS_EVENT:
		e := new(PreviousGtidsEvent)
		return e, e.decode(c)
	default:
		return &UnknownEvent{Type: t, Data: c.bytes(c.remaining())}, nil
	}
}
