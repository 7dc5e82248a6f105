package binlog

import (
	"bytes"
	"math"
)

// cursor provides zero-copy reads over an immutable byte slice.
// Slices returned by take and friends alias the underlying buffer and
// must not outlive it.
//
// Like the wire format itself, all fixed-width integers are
// little-endian; the be* helpers exist only for the packed temporal and
// decimal encodings, which are the one big-endian corner of MySQL.
//
// The first failed read latches err; every later read returns zero
// values, so decode methods can read a whole struct and check err once.
type cursor struct {
	buf []byte
	off int
	err error
}

func newCursor(b []byte) *cursor {
	return &cursor{buf: b}
}

func (c *cursor) remaining() int { return len(c.buf) - c.off }

func (c *cursor) more() bool { return c.err == nil && c.off < len(c.buf) }

// take returns the next n bytes without copying. On shortfall it
// latches an IncompleteError reporting exactly how many bytes are
// missing.
func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 {
		// A length-encoded integer >= 2^63 wraps negative when
		// converted to int; it can never describe real bytes.
		c.err = formatErrorf("negative length %d", n)
		return nil
	}
	if c.remaining() < n {
		c.err = &IncompleteError{Needed: n - c.remaining()}
		return nil
	}
	v := c.buf[c.off : c.off+n]
	c.off += n
	return v
}

// takeUntil scans forward for the first occurrence of b. The needed
// count is unknowable when the terminator is absent, so the latched
// IncompleteError reports NeededUnknown.
func (c *cursor) takeUntil(b byte, inclusive bool) []byte {
	if c.err != nil {
		return nil
	}
	i := bytes.IndexByte(c.buf[c.off:], b)
	if i == -1 {
		c.err = &IncompleteError{Needed: NeededUnknown}
		return nil
	}
	v := c.buf[c.off : c.off+i]
	if inclusive {
		v = c.buf[c.off : c.off+i+1]
	}
	c.off += i + 1
	return v
}

func (c *cursor) skip(n int) {
	c.take(n)
}

func (c *cursor) int1() byte {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) int2() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return uint16(b[0]) | uint16(b[1])<<8
}

func (c *cursor) int3() uint32 {
	b := c.take(3)
	if b == nil {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func (c *cursor) int4() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (c *cursor) int6() uint64 {
	b := c.take(6)
	if b == nil {
		return 0
	}
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 |
		uint64(b[3])<<24 | uint64(b[4])<<32 | uint64(b[5])<<40
}

func (c *cursor) int8() uint64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

func (c *cursor) intFixed(n int) uint64 {
	b := c.take(n)
	if b == nil {
		return 0
	}
	var v uint64
	for i, x := range b {
		v |= uint64(x) << (uint(i) * 8)
	}
	return v
}

// beFixed reads an n-byte big-endian integer. Packed temporals and
// decimals are stored big-endian so they sort correctly in indexes.
func (c *cursor) beFixed(n int) uint64 {
	b := c.take(n)
	if b == nil {
		return 0
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func (c *cursor) float4() float32 {
	return math.Float32frombits(c.int4())
}

func (c *cursor) float8() float64 {
	return math.Float64frombits(c.int8())
}

// intN decodes a length-encoded integer. The null return is true for
// the 0xfb marker, which stands for NULL in contexts where the integer
// heads a length-encoded string.
func (c *cursor) intN() (v uint64, null bool) {
	m := c.int1()
	if c.err != nil {
		return 0, false
	}
	switch m {
	case 0xfb:
		return 0, true
	case 0xfc:
		return uint64(c.int2()), false
	case 0xfd:
		return uint64(c.int3()), false
	case 0xfe:
		return c.int8(), false
	case 0xff:
		c.err = formatErrorf("0xff is not a valid length-encoded integer marker")
		return 0, false
	default:
		return uint64(m), false
	}
}

// bytesN reads a length-encoded string without copying.
func (c *cursor) bytesN() (b []byte, null bool) {
	n, null := c.intN()
	if c.err != nil || null {
		return nil, null
	}
	return c.take(int(n)), false
}

func (c *cursor) stringN() string {
	b, _ := c.bytesN()
	return string(b)
}

// bytes returns a copy, for values that must outlive the buffer.
func (c *cursor) bytes(n int) []byte {
	return append([]byte(nil), c.take(n)...)
}

func (c *cursor) string(n int) string {
	return string(c.take(n))
}

func (c *cursor) stringNull() string {
	return string(c.takeUntil(0, false))
}

func (c *cursor) bytesEOF() []byte {
	return c.take(c.remaining())
}

func (c *cursor) stringEOF() string {
	return string(c.take(c.remaining()))
}
