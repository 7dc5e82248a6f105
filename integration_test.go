package binlog

import (
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAgainstServer runs statements on a real server and decodes the
// binlog file it produces. It needs a server with binlog_format=ROW
// and direct access to its log directory:
//
//	BINLOG_DSN="root:secret@tcp(localhost:3306)/test" \
//	BINLOG_DIR=/var/lib/mysql go test -run TestAgainstServer
func TestAgainstServer(t *testing.T) {
	dsn, dir := os.Getenv("BINLOG_DSN"), os.Getenv("BINLOG_DIR")
	if dsn == "" || dir == "" {
		t.Skip("BINLOG_DSN and BINLOG_DIR not set")
	}

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())

	_, err = db.Exec("CREATE TABLE IF NOT EXISTS binlog_it (id INT PRIMARY KEY, name VARCHAR(10))")
	require.NoError(t, err)
	defer db.Exec("DROP TABLE binlog_it")

	_, err = db.Exec("FLUSH LOGS")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO binlog_it VALUES (1, 'one'), (2, NULL)")
	require.NoError(t, err)
	_, err = db.Exec("UPDATE binlog_it SET name = 'two' WHERE id = 2")
	require.NoError(t, err)

	var logName string
	var pos uint64
	var rest [3]sql.RawBytes
	row := db.QueryRow("SHOW MASTER STATUS")
	require.NoError(t, row.Scan(&logName, &pos, &rest[0], &rest[1], &rest[2]))

	f, err := Open(filepath.Join(dir, logName))
	require.NoError(t, err)

	var writes, updates int
	var insert *RowsEvent
	for {
		e, err := f.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		re, ok := e.Data.(*RowsEvent)
		if !ok || re.Table.TableName != "binlog_it" {
			continue
		}
		switch {
		case e.Header.EventType.IsWriteRows():
			writes++
			insert = re
		case e.Header.EventType.IsUpdateRows():
			updates++
		}
	}
	assert.Equal(t, 1, writes)
	assert.Equal(t, 1, updates)
	require.NotNil(t, insert)
	require.Len(t, insert.Rows, 2)
	assert.Equal(t, int32(1), insert.Rows[0].Values[0])
	assert.Equal(t, "one", insert.Rows[0].Values[1])
	assert.Nil(t, insert.Rows[1].Values[1])
}
