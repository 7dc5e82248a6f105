package binlog

import (
	"fmt"
	"io"
)

// packet markers in a dump stream
const (
	markerOK  = 0x00
	markerEOF = 0xfe
	markerErr = 0xff
)

// ServerError is an ERR packet received instead of an event.
//
// https://dev.mysql.com/doc/internals/en/packet-ERR_Packet.html
type ServerError struct {
	Code     uint16
	SQLState string
	Message  string
}

func (e *ServerError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("mysql: %d (%s): %s", e.Code, e.SQLState, e.Message)
	}
	return fmt.Sprintf("mysql: %d: %s", e.Code, e.Message)
}

// Stream decodes the events a server sends after a COM_BINLOG_DUMP or
// COM_BINLOG_DUMP_GTID command. Each packet carries a status marker
// and, on OK, one event; Stream reassembles packets from src, strips
// the markers and tracks format and table maps across events.
type Stream struct {
	src io.Reader
	ra  Reassembler
	fm  Format
	reg SchemaRegistry
	buf []byte
}

// NewStream wraps the post-command side of a connection. checksum
// applies to events arriving before the format description, such as
// the artificial rotate a dump starts with; once a format description
// event is seen it takes over.
func NewStream(src io.Reader, checksum ChecksumMode) *Stream {
	return &Stream{
		src: src,
		fm:  Format{Version: V4, Checksum: checksum},
		buf: make([]byte, 8192),
	}
}

// Format returns the format established so far.
func (s *Stream) Format() Format { return s.fm }

// Next returns the next event from the stream. It returns io.EOF on a
// clean EOF packet, a *ServerError on an ERR packet, and
// io.ErrUnexpectedEOF when the connection closes mid-stream.
func (s *Stream) Next() (Event, error) {
	pkt, err := s.nextPacket()
	if err != nil {
		return Event{}, err
	}
	if len(pkt.Payload) == 0 {
		return Event{}, formatErrorf("empty packet in dump stream")
	}
	switch marker := pkt.Payload[0]; marker {
	case markerOK:
		ev, _, err := DecodeEvent(pkt.Payload[1:], &s.fm, &s.reg)
		return ev, err
	case markerEOF:
		return Event{}, io.EOF
	case markerErr:
		return Event{}, decodeErrPacket(pkt.Payload[1:])
	default:
		return Event{}, formatErrorf("unexpected packet marker 0x%02x in dump stream", marker)
	}
}

func (s *Stream) nextPacket() (Packet, error) {
	for {
		pkt, err := s.ra.Next()
		if err == nil {
			return pkt, nil
		}
		if !IsIncomplete(err) {
			return Packet{}, err
		}
		n, rerr := s.src.Read(s.buf)
		if n > 0 {
			if _, werr := s.ra.Write(s.buf[:n]); werr != nil {
				return Packet{}, werr
			}
			continue
		}
		if rerr == io.EOF {
			return Packet{}, io.ErrUnexpectedEOF
		}
		if rerr != nil {
			return Packet{}, rerr
		}
	}
}

func decodeErrPacket(b []byte) error {
	c := newCursor(b)
	e := &ServerError{Code: c.int2()}
	if c.err != nil {
		return c.err
	}
	// the sql state marker exists only with CLIENT_PROTOCOL_41
	if c.more() && c.buf[c.off] == '#' {
		c.skip(1)
		e.SQLState = c.string(5)
	}
	e.Message = c.stringEOF()
	if c.err != nil {
		return c.err
	}
	return e
}
