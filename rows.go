package binlog

// https://dev.mysql.com/doc/internals/en/rows-event.html

func bitmapSize(bits int) int { return (bits + 7) / 8 }

// bitmapGet reads bit i with mysql's little-endian bit order: bit 0 is
// the low bit of the first byte.
func bitmapGet(bm []byte, i int) bool {
	return bm[i/8]&(1<<uint(i%8)) != 0
}

// bitmapGetBE reads bit i with big-endian bit order: bit 0 is the high
// bit of the first byte. Used by the signedness metadata.
func bitmapGetBE(bm []byte, i int) bool {
	return bm[i/8]&(0x80>>uint(i%8)) != 0
}

// Row is one row image. Values is indexed by table column; columns
// absent from the image or NULL in the row are nil. OldValues is the
// before image and set only for update events.
type Row struct {
	Values    []interface{}
	OldValues []interface{}
}

// RowsEvent is a write, update or delete under row based logging.
// Present and, for updates, PresentOld say which table columns the row
// images carry.
type RowsEvent struct {
	Type       EventType
	TableID    uint64
	Flags      uint16
	ExtraData  []byte
	Table      *TableMapEvent
	Present    []bool
	PresentOld []bool
	Rows       []Row
}

func (e *RowsEvent) decode(c *cursor, t EventType, fm *Format, reg *SchemaRegistry) error {
	e.Type = t
	if fm.postHeaderLength(t, 8) == 6 {
		e.TableID = uint64(c.int4())
	} else {
		e.TableID = c.int6()
	}
	e.Flags = c.int2()
	if t >= WRITE_ROWS_EVENTv2 {
		extraLen := c.int2()
		if c.err != nil {
			return c.err
		}
		if extraLen < 2 {
			return formatErrorf("rows event extra data length %d", extraLen)
		}
		e.ExtraData = c.bytes(int(extraLen) - 2)
	}
	numCol, _ := c.intN()
	if c.err != nil {
		return c.err
	}

	bm1 := c.take(bitmapSize(int(numCol)))
	if c.err != nil {
		return c.err
	}
	present := decodeBitmap(bm1, int(numCol))
	var presentAfter []bool
	if t.IsUpdateRows() {
		bm2 := c.take(bitmapSize(int(numCol)))
		if c.err != nil {
			return c.err
		}
		e.PresentOld = present
		presentAfter = decodeBitmap(bm2, int(numCol))
		e.Present = presentAfter
	} else {
		e.Present = present
	}

	if reg == nil {
		return &MissingTableMapError{TableID: e.TableID}
	}
	var ok bool
	if e.Table, ok = reg.Get(e.TableID); !ok {
		return &MissingTableMapError{TableID: e.TableID}
	}
	if len(e.Table.Columns) != int(numCol) {
		return formatErrorf("rows event has %d columns, table map for %s.%s has %d",
			numCol, e.Table.SchemaName, e.Table.TableName, len(e.Table.Columns))
	}

	for c.more() {
		off := c.off
		var row Row
		var err error
		if t.IsUpdateRows() {
			if row.OldValues, err = decodeImage(c, e.Table, e.PresentOld); err != nil {
				return err
			}
			if row.Values, err = decodeImage(c, e.Table, presentAfter); err != nil {
				return err
			}
		} else {
			if row.Values, err = decodeImage(c, e.Table, e.Present); err != nil {
				return err
			}
		}
		if c.off == off {
			return formatErrorf("rows event row image with no columns")
		}
		e.Rows = append(e.Rows, row)
	}
	return c.err
}

func decodeBitmap(bm []byte, bits int) []bool {
	out := make([]bool, bits)
	for i := range out {
		out[i] = bitmapGet(bm, i)
	}
	return out
}

// decodeImage decodes one row image. The null bitmap covers only the
// columns the image carries, so its bit index runs over present
// columns, not table columns.
func decodeImage(c *cursor, table *TableMapEvent, present []bool) ([]interface{}, error) {
	count := 0
	for _, p := range present {
		if p {
			count++
		}
	}
	nullBitmap := c.take(bitmapSize(count))
	if c.err != nil {
		return nil, c.err
	}
	values := make([]interface{}, len(table.Columns))
	j := 0
	for i := range table.Columns {
		if !present[i] {
			continue
		}
		if !bitmapGet(nullBitmap, j) {
			v, err := decodeValue(c, &table.Columns[i])
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		j++
	}
	return values, nil
}
