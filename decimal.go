package binlog

import "strings"

// https://github.com/mysql/mysql-server/blob/5.7/strings/decimal.c

// digitsPerGroup full decimal digits pack into groupBytes on the wire;
// a partial group of d digits takes digitBytes[d].
const (
	digitsPerGroup = 9
	groupBytes     = 4
)

var digitBytes = [digitsPerGroup + 1]int{0, 1, 1, 2, 2, 3, 3, 4, 4, 4}

// decimalSize returns how many bytes a NEWDECIMAL of the given
// precision and scale occupies.
func decimalSize(precision, scale int) int {
	intg := precision - scale
	return intg/digitsPerGroup*groupBytes + digitBytes[intg%digitsPerGroup] +
		scale/digitsPerGroup*groupBytes + digitBytes[scale%digitsPerGroup]
}

// decodeDecimal decodes a NEWDECIMAL value into its exact decimal
// string. The wire form is groups of 9 digits as 4-byte big-endian
// integers, partial groups first, with the sign folded into the top
// bit of the first byte and negative values stored bit-inverted.
func decodeDecimal(c *cursor, precision, scale int) (string, error) {
	raw := c.take(decimalSize(precision, scale))
	if c.err != nil {
		return "", c.err
	}
	b := make([]byte, len(raw))
	copy(b, raw)

	negative := b[0]&0x80 == 0
	b[0] ^= 0x80
	if negative {
		for i := range b {
			b[i] = ^b[i]
		}
	}

	intg := precision - scale
	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
	}
	d := newCursor(b)
	writeGroups(&sb, d, intg, true)
	if scale > 0 {
		sb.WriteByte('.')
		writeGroups(&sb, d, scale, false)
	}
	if d.err != nil {
		return "", d.err
	}
	return sb.String(), nil
}

// writeGroups renders digits decimal digits from d. The integer part
// puts its partial group first and drops leading zeros; the fraction
// part puts its partial group last and keeps full width.
func writeGroups(sb *strings.Builder, d *cursor, digits int, integer bool) {
	full, part := digits/digitsPerGroup, digits%digitsPerGroup
	if integer {
		first := true
		if part > 0 {
			first = !writeGroup(sb, d, part, true)
		}
		for i := 0; i < full; i++ {
			wrote := writeGroup(sb, d, digitsPerGroup, first)
			first = first && !wrote
		}
		if first {
			sb.WriteByte('0')
		}
	} else {
		for i := 0; i < full; i++ {
			writeGroup(sb, d, digitsPerGroup, false)
		}
		if part > 0 {
			writeGroup(sb, d, part, false)
		}
	}
}

// writeGroup renders one group of up to 9 digits and reports whether
// it wrote anything. trim drops leading zeros, suppressing an all-zero
// group entirely.
func writeGroup(sb *strings.Builder, d *cursor, digits int, trim bool) bool {
	v := d.beFixed(digitBytes[digits])
	if d.err != nil {
		return false
	}
	buf := make([]byte, digits)
	for i := digits - 1; i >= 0; i-- {
		buf[i] = '0' + byte(v%10)
		v /= 10
	}
	out := buf
	if trim {
		i := 0
		for i < len(out)-1 && out[i] == '0' {
			i++
		}
		out = out[i:]
		if len(out) == 1 && out[0] == '0' {
			return false
		}
	}
	sb.Write(out)
	return true
}
