package binlog

import (
	"time"
)

// https://dev.mysql.com/doc/internals/en/binary-protocol-value.html
// https://dev.mysql.com/doc/internals/en/date-and-time-data-type-representation.html

// decodeValue decodes one non-NULL column value from a row image.
//
// Integers come back signed unless the table map's signedness metadata
// marks the column unsigned. Temporal types come back as time.Time,
// except TIME which is a time.Duration. NEWDECIMAL comes back as its
// exact decimal string. BLOB, JSON and GEOMETRY stay raw bytes.
func decodeValue(c *cursor, col *Column) (interface{}, error) {
	switch col.Type {
	case TypeNull:
		return nil, nil
	case TypeTiny:
		v := c.int1()
		if col.Unsigned {
			return v, c.err
		}
		return int8(v), c.err
	case TypeShort:
		v := c.int2()
		if col.Unsigned {
			return v, c.err
		}
		return int16(v), c.err
	case TypeInt24:
		v := c.int3()
		if col.Unsigned {
			return v, c.err
		}
		if v&0x800000 != 0 {
			v |= 0xff000000
		}
		return int32(v), c.err
	case TypeLong:
		v := c.int4()
		if col.Unsigned {
			return v, c.err
		}
		return int32(v), c.err
	case TypeLongLong:
		v := c.int8()
		if col.Unsigned {
			return v, c.err
		}
		return int64(v), c.err
	case TypeFloat:
		return c.float4(), c.err
	case TypeDouble:
		return c.float8(), c.err
	case TypeYear:
		v := c.int1()
		if c.err != nil {
			return nil, c.err
		}
		if v == 0 {
			return 0, nil
		}
		return 1900 + int(v), nil

	case TypeDate, TypeNewDate:
		v := c.int3()
		if c.err != nil {
			return nil, c.err
		}
		day := int(v & 31)
		month := int(v >> 5 & 15)
		year := int(v >> 9)
		if year == 0 && month == 0 && day == 0 {
			return time.Time{}, nil
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
	case TypeTime:
		v := c.int3()
		if c.err != nil {
			return nil, c.err
		}
		h, m, s := v/10000, v/100%100, v%100
		return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second, nil
	case TypeTime2:
		return decodeTime2(c, fracDigits(col))
	case TypeDatetime:
		v := c.int8()
		if c.err != nil {
			return nil, c.err
		}
		d, t := v/1000000, v%1000000
		if v == 0 {
			return time.Time{}, nil
		}
		return time.Date(int(d/10000), time.Month(d/100%100), int(d%100),
			int(t/10000), int(t/100%100), int(t%100), 0, time.UTC), nil
	case TypeDatetime2:
		return decodeDatetime2(c, fracDigits(col))
	case TypeTimestamp:
		v := c.int4()
		if c.err != nil {
			return nil, c.err
		}
		return time.Unix(int64(v), 0).UTC(), nil
	case TypeTimestamp2:
		sec := c.beFixed(4)
		usec, err := decodeFrac(c, fracDigits(col))
		if err != nil {
			return nil, err
		}
		return time.Unix(int64(sec), int64(usec)*1000).UTC(), nil

	case TypeVarchar, TypeVarString:
		return c.string(varLen(c, col.Meta)), c.err
	case TypeString, TypeEnum, TypeSet:
		return decodeStringColumn(c, col)
	case TypeBit:
		if len(col.Meta) < 2 {
			return nil, formatErrorf("bit column without metadata")
		}
		n := bitmapSize(int(col.Meta[1])*8 + int(col.Meta[0]))
		return c.beFixed(n), c.err
	case TypeBlob, TypeTinyBlob, TypeMediumBlob, TypeLongBlob, TypeJSON, TypeGeometry:
		if len(col.Meta) < 1 {
			return nil, formatErrorf("%v column without metadata", col.Type)
		}
		size := c.intFixed(int(col.Meta[0]))
		if c.err != nil {
			return nil, c.err
		}
		return c.bytes(int(size)), c.err
	case TypeNewDecimal, TypeDecimal:
		if len(col.Meta) < 2 {
			return nil, formatErrorf("decimal column without metadata")
		}
		return decodeDecimal(c, int(col.Meta[0]), int(col.Meta[1]))
	}
	return nil, &UnknownColumnTypeError{Type: byte(col.Type)}
}

func fracDigits(col *Column) int {
	if len(col.Meta) > 0 {
		return int(col.Meta[0])
	}
	return 0
}

// varLen reads a VARCHAR length prefix: one byte for columns up to 255
// bytes, two for longer ones. The declared maximum lives in the
// metadata.
func varLen(c *cursor, meta []byte) int {
	max := 0
	if len(meta) >= 2 {
		max = int(meta[0]) | int(meta[1])<<8
	}
	if max > 255 {
		return int(c.int2())
	}
	return int(c.int1())
}

// decodeStringColumn handles the metadata overloading of
// MYSQL_TYPE_STRING: the real type (string, enum or set) hides in the
// high bits of the first metadata byte, folded together with the high
// bits of the length.
func decodeStringColumn(c *cursor, col *Column) (interface{}, error) {
	if len(col.Meta) < 2 {
		return nil, formatErrorf("string column without metadata")
	}
	typ := ColumnType(col.Meta[0])
	length := int(col.Meta[1])
	if byte(typ)&0x30 != 0x30 {
		length |= int((byte(typ)&0x30)^0x30) << 4
		typ |= 0x30
	}
	switch typ {
	case TypeEnum:
		switch length {
		case 1:
			return uint16(c.int1()), c.err
		case 2:
			return c.int2(), c.err
		}
		return nil, formatErrorf("enum of width %d", length)
	case TypeSet:
		return c.intFixed(length), c.err
	case TypeString:
		if length > 255 {
			return c.string(int(c.int2())), c.err
		}
		return c.string(int(c.int1())), c.err
	}
	return nil, &UnknownColumnTypeError{Type: byte(typ)}
}

// decodeFrac reads the fractional-second suffix of the packed temporal
// types and returns microseconds. digits is the column's fsp; two
// digits pack per byte, big-endian.
func decodeFrac(c *cursor, digits int) (int, error) {
	n := (digits + 1) / 2
	if n == 0 {
		return 0, nil
	}
	v := int(c.beFixed(n))
	if c.err != nil {
		return 0, c.err
	}
	switch n {
	case 1:
		return v * 10000, nil
	case 2:
		return v * 100, nil
	}
	return v, nil
}

// decodeDatetime2 unpacks the 5-byte big-endian DATETIME2 layout:
// 1 sign bit, 17 bits year*13+month, 5 day, 5 hour, 6 minute,
// 6 second, then the fractional suffix.
func decodeDatetime2(c *cursor, digits int) (interface{}, error) {
	v := c.beFixed(5)
	usec, err := decodeFrac(c, digits)
	if err != nil {
		return nil, err
	}
	slice := func(off, bits int) int {
		return int(v >> (40 - (off + bits)) & (1<<bits - 1))
	}
	yearMonth := slice(1, 17)
	year, month := yearMonth/13, yearMonth%13
	day := slice(18, 5)
	hour := slice(23, 5)
	minute := slice(28, 6)
	second := slice(34, 6)
	if year == 0 && month == 0 && day == 0 {
		return time.Time{}, nil
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, usec*1000, time.UTC), nil
}

// decodeTime2 unpacks the 3-byte big-endian TIME2 layout. The whole
// packed value, fraction included, is one signed number offset by the
// sign bit, so negative times invert the fraction bytes too.
func decodeTime2(c *cursor, digits int) (interface{}, error) {
	n := (digits + 1) / 2
	u := c.beFixed(3 + n)
	if c.err != nil {
		return nil, c.err
	}
	packed := int64(u) - 0x800000<<(8*n)
	neg := packed < 0
	if neg {
		packed = -packed
	}
	frac := packed & (1<<(8*n) - 1)
	var usec int64
	switch n {
	case 1:
		usec = frac * 10000
	case 2:
		usec = frac * 100
	case 3:
		usec = frac
	}
	v := packed >> (8 * n)
	hour := v >> 12 & 0x3ff
	minute := v >> 6 & 0x3f
	second := v & 0x3f
	d := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second + time.Duration(usec)*time.Microsecond
	if neg {
		d = -d
	}
	return d, nil
}
