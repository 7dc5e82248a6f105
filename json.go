package binlog

import (
	"math"
	"time"
)

// The binary JSON format stored in JSON columns.
// https://dev.mysql.com/worklog/task/?id=8132#tabs-8132-4

const (
	jsonSmallObj byte = iota
	jsonLargeObj
	jsonSmallArr
	jsonLargeArr
	jsonLiteral
	jsonInt16
	jsonUInt16
	jsonInt32
	jsonUInt32
	jsonInt64
	jsonUInt64
	jsonDouble
	jsonString
	jsonCustom = 0x0f
)

// DecodeJSON decodes the binary JSON document a JSON column carries in
// a row image. Objects come back as map[string]interface{}, arrays as
// []interface{}; scalars keep their binary-json width. An empty
// document decodes to nil.
func DecodeJSON(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return jsonValue(data[0], data[1:])
}

func jsonValue(typ byte, data []byte) (interface{}, error) {
	c := newCursor(data)
	switch typ {
	case jsonSmallObj:
		return jsonComposite(data, true, true)
	case jsonLargeObj:
		return jsonComposite(data, false, true)
	case jsonSmallArr:
		return jsonComposite(data, true, false)
	case jsonLargeArr:
		return jsonComposite(data, false, false)
	case jsonLiteral:
		switch m := c.int1(); {
		case c.err != nil:
			return nil, c.err
		case m == 0x00:
			return nil, nil
		case m == 0x01:
			return true, nil
		case m == 0x02:
			return false, nil
		default:
			return nil, formatErrorf("invalid json literal 0x%02x", m)
		}
	case jsonInt16:
		return int16(c.int2()), c.err
	case jsonUInt16:
		return c.int2(), c.err
	case jsonInt32:
		return int32(c.int4()), c.err
	case jsonUInt32:
		return c.int4(), c.err
	case jsonInt64:
		return int64(c.int8()), c.err
	case jsonUInt64:
		return c.int8(), c.err
	case jsonDouble:
		return math.Float64frombits(c.int8()), c.err
	case jsonString:
		n, err := jsonVarLen(c)
		if err != nil {
			return nil, err
		}
		return c.string(n), c.err
	case jsonCustom:
		return jsonOpaque(c)
	}
	return nil, formatErrorf("invalid json value type 0x%02x", typ)
}

// jsonComposite decodes an object or array. Offsets in the value
// entries are relative to the start of data, which is why the raw
// slice travels alongside the cursor.
func jsonComposite(data []byte, small, obj bool) (interface{}, error) {
	c := newCursor(data)
	uint_ := func() uint32 {
		if small {
			return uint32(c.int2())
		}
		return c.int4()
	}
	count := uint_()
	uint_() // total document size, unused
	if c.err != nil {
		return nil, c.err
	}

	var keys []string
	if obj {
		keys = make([]string, count)
		for i := range keys {
			keyOff := uint_()
			keyLen := c.int2()
			if c.err != nil {
				return nil, c.err
			}
			if int(keyOff)+int(keyLen) > len(data) {
				return nil, formatErrorf("json key offset %d out of range", keyOff)
			}
			keys[i] = string(data[keyOff : keyOff+uint32(keyLen)])
		}
	}

	inline := func(typ byte) bool {
		switch typ {
		case jsonLiteral, jsonInt16, jsonUInt16:
			return true
		case jsonInt32, jsonUInt32:
			return !small
		}
		return false
	}
	vals := make([]interface{}, count)
	for i := range vals {
		typ := c.int1()
		if c.err != nil {
			return nil, c.err
		}
		if inline(typ) {
			entry := c.take(jsonEntrySize(small))
			if c.err != nil {
				return nil, c.err
			}
			v, err := jsonValue(typ, entry)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		} else {
			off := uint_()
			if c.err != nil {
				return nil, c.err
			}
			if int(off) >= len(data) {
				return nil, formatErrorf("json value offset %d out of range", off)
			}
			v, err := jsonValue(typ, data[off:])
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
	}

	if obj {
		m := make(map[string]interface{}, count)
		for i, key := range keys {
			m[key] = vals[i]
		}
		return m, nil
	}
	return vals, nil
}

func jsonEntrySize(small bool) int {
	if small {
		return 2
	}
	return 4
}

// jsonVarLen reads the variable-length size used by strings and opaque
// values: 7 bits per byte, high bit marks continuation.
func jsonVarLen(c *cursor) (int, error) {
	var size uint64
	for i := 0; i < 5; i++ {
		b := c.int1()
		if c.err != nil {
			return 0, c.err
		}
		size |= uint64(b&0x7f) << uint(7*i)
		if b&0x80 == 0 {
			return int(size), nil
		}
	}
	return 0, formatErrorf("json length does not terminate")
}

// jsonOpaque decodes a value stored with its column type: decimals and
// temporals inside json documents keep their SQL representation.
func jsonOpaque(c *cursor) (interface{}, error) {
	typ := ColumnType(c.int1())
	n, err := jsonVarLen(c)
	if err != nil {
		return nil, err
	}
	d := newCursor(c.take(n))
	if c.err != nil {
		return nil, c.err
	}
	switch typ {
	case TypeNewDecimal, TypeDecimal:
		precision := d.int1()
		scale := d.int1()
		if d.err != nil {
			return nil, d.err
		}
		return decodeDecimal(d, int(precision), int(scale))
	case TypeTime:
		v := int64(d.int8())
		if d.err != nil {
			return nil, d.err
		}
		sign := time.Duration(1)
		if v < 0 {
			v, sign = -v, -1
		}
		frac := v % (1 << 24)
		v >>= 24
		return sign * (time.Duration(v>>12&0x3ff)*time.Hour +
			time.Duration(v>>6&0x3f)*time.Minute +
			time.Duration(v&0x3f)*time.Second +
			time.Duration(frac)*time.Microsecond), nil
	case TypeDate, TypeDatetime, TypeTimestamp:
		v := d.int8()
		if d.err != nil {
			return nil, d.err
		}
		frac := v % (1 << 24)
		v >>= 24
		ymd := v >> 17
		ym := ymd >> 5
		hms := v & (1<<17 - 1)
		if v == 0 {
			return time.Time{}, nil
		}
		return time.Date(int(ym/13), time.Month(ym%13), int(ymd&0x1f),
			int(hms>>12), int(hms>>6&0x3f), int(hms&0x3f), int(frac)*1000, time.UTC), nil
	default:
		return d.bytesEOF(), d.err
	}
}
