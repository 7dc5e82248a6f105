package binlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeOne(t *testing.T, col Column, in []byte) interface{} {
	t.Helper()
	c := newCursor(in)
	v, err := decodeValue(c, &col)
	require.NoError(t, err)
	require.NoError(t, c.err)
	assert.False(t, c.more(), "value decode left %d bytes", c.remaining())
	return v
}

func TestDecodeIntegers(t *testing.T) {
	assert.Equal(t, int8(-1), decodeOne(t, Column{Type: TypeTiny}, []byte{0xff}))
	assert.Equal(t, uint8(0xff), decodeOne(t, Column{Type: TypeTiny, Unsigned: true}, []byte{0xff}))
	assert.Equal(t, int16(-2), decodeOne(t, Column{Type: TypeShort}, []byte{0xfe, 0xff}))
	assert.Equal(t, int32(-3), decodeOne(t, Column{Type: TypeInt24}, []byte{0xfd, 0xff, 0xff}))
	assert.Equal(t, uint32(0xfffffd), decodeOne(t, Column{Type: TypeInt24, Unsigned: true}, []byte{0xfd, 0xff, 0xff}))
	assert.Equal(t, int32(-4), decodeOne(t, Column{Type: TypeLong}, []byte{0xfc, 0xff, 0xff, 0xff}))
	assert.Equal(t, int64(-5), decodeOne(t, Column{Type: TypeLongLong},
		[]byte{0xfb, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}))
	assert.Equal(t, uint64(1), decodeOne(t, Column{Type: TypeLongLong, Unsigned: true},
		[]byte{1, 0, 0, 0, 0, 0, 0, 0}))
}

func TestDecodeFloats(t *testing.T) {
	assert.Equal(t, float32(0.5), decodeOne(t, Column{Type: TypeFloat, Meta: []byte{4}}, []byte{0, 0, 0, 0x3f}))
	assert.Equal(t, float64(2), decodeOne(t, Column{Type: TypeDouble, Meta: []byte{8}},
		[]byte{0, 0, 0, 0, 0, 0, 0, 0x40}))
}

func TestDecodeYear(t *testing.T) {
	assert.Equal(t, 2020, decodeOne(t, Column{Type: TypeYear}, []byte{120}))
	assert.Equal(t, 0, decodeOne(t, Column{Type: TypeYear}, []byte{0}))
}

func TestDecodeDate(t *testing.T) {
	// 2024-03-15: day 15, month 3, year 2024
	v := uint32(15) | 3<<5 | 2024<<9
	in := []byte{byte(v), byte(v >> 8), byte(v >> 16)}
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		decodeOne(t, Column{Type: TypeDate}, in))
	assert.Equal(t, time.Time{}, decodeOne(t, Column{Type: TypeDate}, []byte{0, 0, 0}))
}

func TestDecodeTime2(t *testing.T) {
	// 01:02:03, no fractional seconds
	assert.Equal(t, 1*time.Hour+2*time.Minute+3*time.Second,
		decodeOne(t, Column{Type: TypeTime2, Meta: []byte{0}}, []byte{0x80, 0x10, 0x83}))
	// 01:02:03.045 with fsp 3
	assert.Equal(t, 1*time.Hour+2*time.Minute+3*time.Second+45*time.Millisecond,
		decodeOne(t, Column{Type: TypeTime2, Meta: []byte{3}}, []byte{0x80, 0x10, 0x83, 0x01, 0xc2}))
	// -01:02:03
	assert.Equal(t, -(1*time.Hour + 2*time.Minute + 3*time.Second),
		decodeOne(t, Column{Type: TypeTime2, Meta: []byte{0}}, []byte{0x7f, 0xef, 0x7d}))
}

func TestDecodeDatetime2(t *testing.T) {
	// 2024-03-15 10:20:30: pack the fields and set the sign bit
	ym := uint64(2024*13 + 3)
	v := uint64(1)<<39 | ym<<22 | 15<<17 | 10<<12 | 20<<6 | 30
	in := []byte{byte(v >> 32), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	assert.Equal(t, time.Date(2024, 3, 15, 10, 20, 30, 0, time.UTC),
		decodeOne(t, Column{Type: TypeDatetime2, Meta: []byte{0}}, in))

	// with fsp 6, microseconds appended as 3 big-endian bytes
	in6 := append(append([]byte{}, in...), 0x07, 0xa1, 0x20) // 500000
	assert.Equal(t, time.Date(2024, 3, 15, 10, 20, 30, 500000000, time.UTC),
		decodeOne(t, Column{Type: TypeDatetime2, Meta: []byte{6}}, in6))
}

func TestDecodeOldDatetime(t *testing.T) {
	// stored as the decimal number 20240315102030
	var v uint64 = 20240315102030
	in := make([]byte, 8)
	for i := 0; i < 8; i++ {
		in[i] = byte(v >> (8 * i))
	}
	assert.Equal(t, time.Date(2024, 3, 15, 10, 20, 30, 0, time.UTC),
		decodeOne(t, Column{Type: TypeDatetime}, in))
}

func TestDecodeTimestamp(t *testing.T) {
	assert.Equal(t, time.Unix(1700000000, 0).UTC(),
		decodeOne(t, Column{Type: TypeTimestamp}, []byte{0x00, 0xf1, 0x53, 0x65}))
	// timestamp2 is big-endian, fsp 2 adds one fractional byte
	assert.Equal(t, time.Unix(1700000000, 120000000).UTC(),
		decodeOne(t, Column{Type: TypeTimestamp2, Meta: []byte{2}}, []byte{0x65, 0x53, 0xf1, 0x00, 12}))
}

func TestDecodeVarchar(t *testing.T) {
	assert.Equal(t, "hi", decodeOne(t, Column{Type: TypeVarchar, Meta: []byte{10, 0}},
		[]byte{2, 'h', 'i'}))
	// declared max over 255 bytes switches to a 2-byte length prefix
	assert.Equal(t, "hi", decodeOne(t, Column{Type: TypeVarchar, Meta: []byte{0x2c, 0x01}},
		[]byte{2, 0, 'h', 'i'}))
}

func TestDecodeStringMetaOverload(t *testing.T) {
	// a CHAR(4): real type in meta[0], length in meta[1]
	assert.Equal(t, "abcd", decodeOne(t, Column{Type: TypeString, Meta: []byte{byte(TypeString), 4}},
		[]byte{4, 'a', 'b', 'c', 'd'}))

	// ENUM hidden in the string metadata, 1-byte index
	assert.Equal(t, uint16(2), decodeOne(t, Column{Type: TypeString, Meta: []byte{byte(TypeEnum), 1}},
		[]byte{2}))

	// SET bitmask, 2 bytes
	assert.Equal(t, uint64(0x0102), decodeOne(t, Column{Type: TypeString, Meta: []byte{byte(TypeSet), 2}},
		[]byte{0x02, 0x01}))

	// CHAR(300): the length's high bits fold into the type byte
	meta0 := byte(TypeString)&^byte(0x30) | ^byte(300>>4)&0x30
	in := append([]byte{44, 1}, make([]byte, 300)...)
	v := decodeOne(t, Column{Type: TypeString, Meta: []byte{meta0, 300 & 0xff}}, in)
	assert.Len(t, v.(string), 300)
}

func TestDecodeBit(t *testing.T) {
	// BIT(12): meta = bits%8, bytes
	assert.Equal(t, uint64(0x0abc), decodeOne(t, Column{Type: TypeBit, Meta: []byte{4, 1}},
		[]byte{0x0a, 0xbc}))
}

func TestDecodeBlob(t *testing.T) {
	assert.Equal(t, []byte("blob"), decodeOne(t, Column{Type: TypeBlob, Meta: []byte{2}},
		[]byte{4, 0, 'b', 'l', 'o', 'b'}))
	assert.Equal(t, []byte{0x01}, decodeOne(t, Column{Type: TypeTinyBlob, Meta: []byte{1}},
		[]byte{1, 0x01}))
}

func TestDecodeValueUnknownType(t *testing.T) {
	c := newCursor([]byte{0x00})
	_, err := decodeValue(c, &Column{Type: ColumnType(0x7f)})
	var ue *UnknownColumnTypeError
	require.ErrorAs(t, err, &ue)
}

func TestDecodeValueIncomplete(t *testing.T) {
	c := newCursor([]byte{0x01})
	_, err := decodeValue(c, &Column{Type: TypeLong})
	assert.True(t, IsIncomplete(err))
}
