package binlog

// MySQL packet framing: [3-byte LE payload length][1-byte sequence id][payload].
// https://dev.mysql.com/doc/internals/en/mysql-packet.html

const (
	packetHeaderSize = 4
	maxPacketSize    = 1<<24 - 1
)

// Packet is one reassembled protocol message. Payloads of exactly
// maxPacketSize bytes signal continuation and are concatenated with the
// following packet(s); Seq is the sequence id of the final fragment.
type Packet struct {
	Seq     uint8
	Payload []byte
}

type reassemblerState uint8

const (
	stateLength reassemblerState = iota
	stateSeq
	statePayload
)

// Reassembler turns a raw duplex byte stream into discrete protocol
// messages. Bytes are supplied with Write in whatever chunks the
// transport produces; Next returns the next complete message or an
// IncompleteError when the machine has to suspend.
//
// Suspension keeps partially-read scalars (a half-arrived length
// prefix, a partial payload) in the accumulator fields, so resuming
// never re-reads bytes already committed. A Reassembler serves exactly
// one connection and one consumer; it is not safe for concurrent use.
type Reassembler struct {
	state reassemblerState

	// partial-scalar accumulators, persisted across suspensions
	lenBytes int    // bytes of the length prefix consumed so far
	length   int    // payload length of the packet in flight
	got      int    // payload bytes consumed so far
	seq      uint8  // sequence id of the packet in flight
	payload  []byte // message accumulated across continuation packets

	nextSeq uint8
	buf     []byte
	off     int
}

// Write feeds raw stream bytes into the reassembler. It never fails;
// the error return exists to satisfy io.Writer.
func (r *Reassembler) Write(p []byte) (int, error) {
	if r.off > 0 {
		r.buf = append(r.buf[:0], r.buf[r.off:]...)
		r.off = 0
	}
	r.buf = append(r.buf, p...)
	return len(p), nil
}

// Reset prepares the reassembler for a new command cycle: the expected
// sequence id returns to zero and any partially-accumulated message is
// dropped. Buffered stream bytes are kept.
func (r *Reassembler) Reset() {
	r.state = stateLength
	r.lenBytes, r.length, r.got = 0, 0, 0
	r.payload = nil
	r.nextSeq = 0
}

func (r *Reassembler) buffered() int { return len(r.buf) - r.off }

// Next returns the next complete message. When the buffered bytes run
// out mid-state it returns an IncompleteError reporting the shortfall
// for the current state; the caller Writes more bytes and calls Next
// again, resuming exactly where the machine suspended.
func (r *Reassembler) Next() (Packet, error) {
	for {
		switch r.state {
		case stateLength:
			for r.lenBytes < 3 {
				if r.buffered() == 0 {
					return Packet{}, &IncompleteError{Needed: 3 - r.lenBytes}
				}
				r.length |= int(r.buf[r.off]) << (uint(r.lenBytes) * 8)
				r.off++
				r.lenBytes++
			}
			r.state = stateSeq

		case stateSeq:
			if r.buffered() == 0 {
				return Packet{}, &IncompleteError{Needed: 1}
			}
			r.seq = r.buf[r.off]
			r.off++
			if r.seq != r.nextSeq {
				return Packet{}, formatErrorf("packet out of order: sequence id %d, expected %d", r.seq, r.nextSeq)
			}
			r.nextSeq++
			r.state = statePayload

		case statePayload:
			for r.got < r.length {
				n := r.length - r.got
				if avail := r.buffered(); avail < n {
					if avail == 0 {
						return Packet{}, &IncompleteError{Needed: n}
					}
					n = avail
				}
				r.payload = append(r.payload, r.buf[r.off:r.off+n]...)
				r.off += n
				r.got += n
			}
			length := r.length
			r.state = stateLength
			r.lenBytes, r.length, r.got = 0, 0, 0
			if length == maxPacketSize {
				// continuation: the message extends into the next
				// packet, possibly an empty one
				continue
			}
			p := Packet{Seq: r.seq, Payload: r.payload}
			r.payload = nil
			return p, nil
		}
	}
}
