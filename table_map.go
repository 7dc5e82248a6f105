package binlog

// ColumnType is the on-wire MySQL column type.
//
// https://dev.mysql.com/doc/internals/en/com-query-response.html#column-type
type ColumnType byte

const (
	TypeDecimal    ColumnType = 0x00
	TypeTiny       ColumnType = 0x01
	TypeShort      ColumnType = 0x02
	TypeLong       ColumnType = 0x03
	TypeFloat      ColumnType = 0x04
	TypeDouble     ColumnType = 0x05
	TypeNull       ColumnType = 0x06
	TypeTimestamp  ColumnType = 0x07
	TypeLongLong   ColumnType = 0x08
	TypeInt24      ColumnType = 0x09
	TypeDate       ColumnType = 0x0a
	TypeTime       ColumnType = 0x0b
	TypeDatetime   ColumnType = 0x0c
	TypeYear       ColumnType = 0x0d
	TypeNewDate    ColumnType = 0x0e
	TypeVarchar    ColumnType = 0x0f
	TypeBit        ColumnType = 0x10
	TypeTimestamp2 ColumnType = 0x11
	TypeDatetime2  ColumnType = 0x12
	TypeTime2      ColumnType = 0x13
	TypeJSON       ColumnType = 0xf5
	TypeNewDecimal ColumnType = 0xf6
	TypeEnum       ColumnType = 0xf7
	TypeSet        ColumnType = 0xf8
	TypeTinyBlob   ColumnType = 0xf9
	TypeMediumBlob ColumnType = 0xfa
	TypeLongBlob   ColumnType = 0xfb
	TypeBlob       ColumnType = 0xfc
	TypeVarString  ColumnType = 0xfd
	TypeString     ColumnType = 0xfe
	TypeGeometry   ColumnType = 0xff
)

// metaWidth returns how many metadata bytes the table map carries for
// the type.
func (t ColumnType) metaWidth() (int, error) {
	switch t {
	case TypeTiny, TypeShort, TypeInt24, TypeLong, TypeLongLong,
		TypeNull, TypeTimestamp, TypeDate, TypeTime, TypeDatetime,
		TypeYear, TypeNewDate:
		return 0, nil
	case TypeFloat, TypeDouble, TypeTimestamp2, TypeDatetime2, TypeTime2,
		TypeBlob, TypeTinyBlob, TypeMediumBlob, TypeLongBlob,
		TypeJSON, TypeGeometry:
		return 1, nil
	case TypeVarchar, TypeVarString, TypeString, TypeBit,
		TypeDecimal, TypeNewDecimal, TypeEnum, TypeSet:
		return 2, nil
	}
	return 0, &UnknownColumnTypeError{Type: byte(t)}
}

func (t ColumnType) isNumeric() bool {
	switch t {
	case TypeTiny, TypeShort, TypeInt24, TypeLong, TypeLongLong,
		TypeFloat, TypeDouble, TypeDecimal, TypeNewDecimal:
		return true
	}
	return false
}

func (t ColumnType) isCharacter() bool {
	switch t {
	case TypeVarchar, TypeVarString, TypeString,
		TypeBlob, TypeTinyBlob, TypeMediumBlob, TypeLongBlob:
		return true
	}
	return false
}

// Column describes one column of a mapped table. Name, Charset,
// Unsigned and PrimaryKey are filled only when the server writes the
// optional metadata (binlog_row_metadata=FULL for names and keys).
type Column struct {
	Type       ColumnType
	Meta       []byte // raw metadata bytes, layout depends on Type
	Nullable   bool
	Unsigned   bool
	Charset    uint64
	Name       string
	PrimaryKey bool
}

// optional metadata block types
const (
	metaSignedness       = 1
	metaDefaultCharset   = 2
	metaColumnCharset    = 3
	metaColumnName       = 4
	metaSimplePrimaryKey = 8
)

// TableMapEvent maps a table id to the table's schema, preceding every
// rows event that refers to it.
//
// https://dev.mysql.com/doc/internals/en/table-map-event.html
type TableMapEvent struct {
	TableID    uint64
	Flags      uint16
	SchemaName string
	TableName  string
	Columns    []Column
}

func (e *TableMapEvent) decode(c *cursor, fm *Format) error {
	if fm.postHeaderLength(TABLE_MAP_EVENT, 8) == 6 {
		e.TableID = uint64(c.int4())
	} else {
		e.TableID = c.int6()
	}
	e.Flags = c.int2()
	schemaLen := c.int1()
	e.SchemaName = c.string(int(schemaLen))
	c.skip(1) // NUL
	tableLen := c.int1()
	e.TableName = c.string(int(tableLen))
	c.skip(1) // NUL
	numCol, _ := c.intN()
	if c.err != nil {
		return c.err
	}
	types := c.take(int(numCol))
	metaBlock, _ := c.bytesN()
	if c.err != nil {
		return c.err
	}
	e.Columns = make([]Column, numCol)
	mc := newCursor(metaBlock)
	for i := range e.Columns {
		col := &e.Columns[i]
		col.Type = ColumnType(types[i])
		n, err := col.Type.metaWidth()
		if err != nil {
			return err
		}
		col.Meta = mc.bytes(n)
	}
	if mc.err != nil {
		return mc.err
	}
	if mc.more() {
		return formatErrorf("table map for %s.%s has %d excess metadata bytes", e.SchemaName, e.TableName, mc.remaining())
	}
	nullBitmap := c.take(bitmapSize(int(numCol)))
	if c.err != nil {
		return c.err
	}
	for i := range e.Columns {
		e.Columns[i].Nullable = bitmapGet(nullBitmap, i)
	}
	return e.decodeOptionalMeta(c)
}

// decodeOptionalMeta reads the type-length-value blocks mysql 8.0
// appends after the null bitmap. Unknown block types are skipped.
func (e *TableMapEvent) decodeOptionalMeta(c *cursor) error {
	for c.more() {
		typ := c.int1()
		length, _ := c.intN()
		if c.err != nil {
			return c.err
		}
		block := newCursor(c.take(int(length)))
		if c.err != nil {
			return c.err
		}
		switch typ {
		case metaSignedness:
			bm := block.bytesEOF()
			j := 0
			for i := range e.Columns {
				if e.Columns[i].Type.isNumeric() {
					e.Columns[i].Unsigned = bitmapGetBE(bm, j)
					j++
				}
			}
		case metaDefaultCharset:
			def, _ := block.intN()
			override := make(map[uint64]uint64)
			for block.more() {
				idx, _ := block.intN()
				cs, _ := block.intN()
				override[idx] = cs
			}
			if block.err != nil {
				return block.err
			}
			for i := range e.Columns {
				if !e.Columns[i].Type.isCharacter() {
					continue
				}
				if cs, ok := override[uint64(i)]; ok {
					e.Columns[i].Charset = cs
				} else {
					e.Columns[i].Charset = def
				}
			}
		case metaColumnCharset:
			for i := range e.Columns {
				if !e.Columns[i].Type.isCharacter() {
					continue
				}
				cs, _ := block.intN()
				if block.err != nil {
					return block.err
				}
				e.Columns[i].Charset = cs
			}
		case metaColumnName:
			for i := 0; block.more() && i < len(e.Columns); i++ {
				e.Columns[i].Name = block.stringN()
			}
			if block.err != nil {
				return block.err
			}
		case metaSimplePrimaryKey:
			for block.more() {
				idx, _ := block.intN()
				if block.err != nil {
					return block.err
				}
				if idx < uint64(len(e.Columns)) {
					e.Columns[idx].PrimaryKey = true
				}
			}
		}
	}
	return c.err
}

// SchemaRegistry resolves the table ids carried by rows events to the
// schemas announced by earlier table map events. The zero value is
// ready to use. It is not safe for concurrent use.
type SchemaRegistry struct {
	tables map[uint64]*TableMapEvent
}

// Get returns the mapping for id, if one has been seen since the last
// rotate.
func (r *SchemaRegistry) Get(id uint64) (*TableMapEvent, bool) {
	t, ok := r.tables[id]
	return t, ok
}

// Len reports how many tables are currently mapped.
func (r *SchemaRegistry) Len() int { return len(r.tables) }

// Reset forgets all mappings. The decoder calls it on rotate events,
// since table ids are only stable within one binlog file.
func (r *SchemaRegistry) Reset() {
	r.tables = nil
}

func (r *SchemaRegistry) put(t *TableMapEvent) {
	if r.tables == nil {
		r.tables = make(map[uint64]*TableMapEvent)
	}
	r.tables[t.TableID] = t
}
