package binlog

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBinlogFile(t *testing.T, mode ChecksumMode) []byte {
	t.Helper()
	crc := mode == ChecksumCRC32

	tm := encodeTableMap(7, "shop", "orders",
		[]byte{byte(TypeLong), byte(TypeVarchar)},
		[]byte{10, 0},
		[]byte{0x02},
		nil)

	rows := rowsHeader(7, true)
	rows = append(rows, 2, 0x03)
	rows = append(rows, 0x00)
	rows = binary.LittleEndian.AppendUint32(rows, 5)
	rows = append(rows, 2)
	rows = append(rows, "hi"...)

	buf := append([]byte{}, fileMagic...)
	buf = append(buf, encodeFDE(mode)...)
	buf = append(buf, encodeEvent(TABLE_MAP_EVENT, tm, crc)...)
	buf = append(buf, encodeEvent(WRITE_ROWS_EVENTv2, rows, crc)...)
	buf = append(buf, encodeXid(3, crc)...)
	return buf
}

func TestFile(t *testing.T) {
	for _, mode := range []ChecksumMode{ChecksumNone, ChecksumCRC32} {
		t.Run(mode.String(), func(t *testing.T) {
			f, err := NewFile(testBinlogFile(t, mode))
			require.NoError(t, err)
			assert.Equal(t, V4, f.Version())

			var types []EventType
			var rows *RowsEvent
			for {
				e, err := f.Next()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				types = append(types, e.Header.EventType)
				if re, ok := e.Data.(*RowsEvent); ok {
					rows = re
				}
			}
			assert.Equal(t, []EventType{
				FORMAT_DESCRIPTION_EVENT, TABLE_MAP_EVENT, WRITE_ROWS_EVENTv2, XID_EVENT,
			}, types)
			require.NotNil(t, rows)
			require.Len(t, rows.Rows, 1)
			assert.Equal(t, []interface{}{int32(5), "hi"}, rows.Rows[0].Values)
			assert.Equal(t, "orders", rows.Table.TableName)
		})
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binlog.000001")
	require.NoError(t, os.WriteFile(path, testBinlogFile(t, ChecksumCRC32), 0o600))

	f, err := Open(path)
	require.NoError(t, err)
	n := 0
	for {
		if _, err := f.Next(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
		n++
	}
	assert.Equal(t, 4, n)
}

func TestFileTruncated(t *testing.T) {
	buf := testBinlogFile(t, ChecksumNone)
	f, err := NewFile(buf[:len(buf)-5])
	require.NoError(t, err)
	for {
		_, err = f.Next()
		if err != nil {
			break
		}
	}
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestFileBadMagic(t *testing.T) {
	_, err := NewFile([]byte("not a binlog at all, sorry"))
	require.Error(t, err)
	assert.False(t, IsIncomplete(err))
}
