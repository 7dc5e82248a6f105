/*
Package binlog decodes the mysql binary log wire format.

This library is mainly aimed at row based replication: it reassembles
the server's packet stream, decodes every event type of binlog format
v1/v3/v4 and resolves row images to typed column values through the
table map events that precede them.

to decode a binlog file:

	f, err := binlog.Open("binlog.000001")
	if err != nil {
		return err
	}
	for {
		e, err := f.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		fmt.Println(e.Header.EventType, e.Data)
	}

to decode the events a server streams after a dump command, wrap the
connection:

	s := binlog.NewStream(conn, binlog.ChecksumCRC32)
	for {
		e, err := s.Next()
		...
	}

incremental use feeds raw bytes directly: DecodeEvent returns an
*IncompleteError saying how many more bytes it needs, so a caller can
buffer and retry without losing position. Reassembler does the same at
the packet layer.
*/
package binlog
