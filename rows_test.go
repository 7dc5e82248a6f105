package binlog

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsHeader(tableID uint64, extra bool) []byte {
	b := binary.LittleEndian.AppendUint64(nil, tableID)[:6]
	b = binary.LittleEndian.AppendUint16(b, 0) // flags
	if extra {
		b = binary.LittleEndian.AppendUint16(b, 2) // extra data length, none
	}
	return b
}

func registryWith(t *testing.T, fm *Format, payload []byte) *SchemaRegistry {
	t.Helper()
	var e TableMapEvent
	require.NoError(t, e.decode(newCursor(payload), fm))
	reg := new(SchemaRegistry)
	reg.put(&e)
	return reg
}

func TestWriteRowsV2(t *testing.T) {
	fm := testFormat(t)
	reg := registryWith(t, fm, encodeTableMap(7, "shop", "orders",
		[]byte{byte(TypeLong), byte(TypeVarchar)},
		[]byte{10, 0},
		[]byte{0x02},
		nil))

	payload := rowsHeader(7, true)
	payload = append(payload, 2)    // column count
	payload = append(payload, 0x03) // both columns present
	// row 1: (5, "hi")
	payload = append(payload, 0x00) // null bitmap
	payload = binary.LittleEndian.AppendUint32(payload, 5)
	payload = append(payload, 2)
	payload = append(payload, "hi"...)
	// row 2: (6, NULL)
	payload = append(payload, 0x02)
	payload = binary.LittleEndian.AppendUint32(payload, 6)

	var e RowsEvent
	require.NoError(t, e.decode(newCursor(payload), WRITE_ROWS_EVENTv2, fm, reg))
	assert.Equal(t, uint64(7), e.TableID)
	assert.Equal(t, "orders", e.Table.TableName)
	assert.Equal(t, []bool{true, true}, e.Present)
	require.Len(t, e.Rows, 2)
	assert.Equal(t, []interface{}{int32(5), "hi"}, e.Rows[0].Values)
	assert.Equal(t, []interface{}{int32(6), nil}, e.Rows[1].Values)
	assert.Nil(t, e.Rows[0].OldValues)
}

func TestUpdateRowsV2(t *testing.T) {
	fm := testFormat(t)
	reg := registryWith(t, fm, encodeTableMap(3, "shop", "stock",
		[]byte{byte(TypeLong), byte(TypeLong)},
		nil,
		[]byte{0x00},
		nil))

	payload := rowsHeader(3, true)
	payload = append(payload, 2)
	payload = append(payload, 0x03) // before image columns
	payload = append(payload, 0x03) // after image columns
	// before (1, 2), after (1, 3)
	payload = append(payload, 0x00)
	payload = binary.LittleEndian.AppendUint32(payload, 1)
	payload = binary.LittleEndian.AppendUint32(payload, 2)
	payload = append(payload, 0x00)
	payload = binary.LittleEndian.AppendUint32(payload, 1)
	payload = binary.LittleEndian.AppendUint32(payload, 3)

	var e RowsEvent
	require.NoError(t, e.decode(newCursor(payload), UPDATE_ROWS_EVENTv2, fm, reg))
	require.Len(t, e.Rows, 1)
	assert.Equal(t, []interface{}{int32(1), int32(2)}, e.Rows[0].OldValues)
	assert.Equal(t, []interface{}{int32(1), int32(3)}, e.Rows[0].Values)
}

func TestRowsPartialImage(t *testing.T) {
	// binlog_row_image=MINIMAL: the image carries a subset of columns
	// and the null bitmap runs over that subset only
	fm := testFormat(t)
	reg := registryWith(t, fm, encodeTableMap(4, "shop", "log",
		[]byte{byte(TypeLong), byte(TypeVarchar), byte(TypeLong)},
		[]byte{10, 0},
		[]byte{0x02},
		nil))

	payload := rowsHeader(4, true)
	payload = append(payload, 3)
	payload = append(payload, 0x05) // columns 0 and 2 present
	payload = append(payload, 0x02) // second present column is NULL
	payload = binary.LittleEndian.AppendUint32(payload, 9)

	var e RowsEvent
	require.NoError(t, e.decode(newCursor(payload), WRITE_ROWS_EVENTv2, fm, reg))
	assert.Equal(t, []bool{true, false, true}, e.Present)
	require.Len(t, e.Rows, 1)
	assert.Equal(t, []interface{}{int32(9), nil, nil}, e.Rows[0].Values)
}

func TestRowsV1HasNoExtraData(t *testing.T) {
	fm := testFormat(t)
	reg := registryWith(t, fm, encodeTableMap(2, "s", "t",
		[]byte{byte(TypeLong)}, nil, []byte{0x00}, nil))

	payload := rowsHeader(2, false)
	payload = append(payload, 1)
	payload = append(payload, 0x01)
	payload = append(payload, 0x00)
	payload = binary.LittleEndian.AppendUint32(payload, 42)

	var e RowsEvent
	require.NoError(t, e.decode(newCursor(payload), WRITE_ROWS_EVENTv1, fm, reg))
	require.Len(t, e.Rows, 1)
	assert.Equal(t, []interface{}{int32(42)}, e.Rows[0].Values)
	assert.Nil(t, e.ExtraData)
}

func TestRowsMissingTableMap(t *testing.T) {
	fm := testFormat(t)
	payload := rowsHeader(99, true)
	payload = append(payload, 1, 0x01)

	var e RowsEvent
	err := e.decode(newCursor(payload), WRITE_ROWS_EVENTv2, fm, new(SchemaRegistry))
	var me *MissingTableMapError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, uint64(99), me.TableID)
}

func TestRowsEmptyImage(t *testing.T) {
	// an image with no present columns consumes nothing; trailing
	// bytes must fail instead of looping
	fm := testFormat(t)
	reg := registryWith(t, fm, encodeTableMap(6, "s", "t",
		[]byte{byte(TypeLong)}, nil, []byte{0x00}, nil))

	payload := rowsHeader(6, true)
	payload = append(payload, 1, 0x00) // no columns present
	payload = append(payload, 0xaa)    // stray byte

	var e RowsEvent
	err := e.decode(newCursor(payload), WRITE_ROWS_EVENTv2, fm, reg)
	require.Error(t, err)
	assert.IsType(t, FormatError(""), err)
}

func TestRowsColumnCountMismatch(t *testing.T) {
	fm := testFormat(t)
	reg := registryWith(t, fm, encodeTableMap(5, "s", "t",
		[]byte{byte(TypeLong)}, nil, []byte{0x00}, nil))

	payload := rowsHeader(5, true)
	payload = append(payload, 2, 0x03)

	var e RowsEvent
	err := e.decode(newCursor(payload), WRITE_ROWS_EVENTv2, fm, reg)
	require.Error(t, err)
	assert.False(t, IsIncomplete(err))
}
