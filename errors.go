package binlog

import (
	"errors"
	"fmt"
)

// NeededUnknown is reported by IncompleteError when the number of
// missing bytes cannot be determined, for example while scanning
// for a terminator that has not arrived yet.
const NeededUnknown = -1

// IncompleteError says the buffer ended before the current read could
// complete. It is the only retryable error in this package: the caller
// should supply more bytes and repeat the same logical read. It is
// never a protocol violation.
type IncompleteError struct {
	// Needed is the exact number of additional bytes required,
	// or NeededUnknown.
	Needed int
}

func (e *IncompleteError) Error() string {
	if e.Needed == NeededUnknown {
		return "binlog: incomplete input"
	}
	return fmt.Sprintf("binlog: incomplete input: %d more bytes needed", e.Needed)
}

// IsIncomplete reports whether err is an IncompleteError.
func IsIncomplete(err error) bool {
	var ie *IncompleteError
	return errors.As(err, &ie)
}

// FormatError is a structural violation of the wire format: bad magic,
// wrong event type at stream start, FDE length arithmetic that does not
// add up, an invalid enum byte. It is fatal for the current decode; the
// only resynchronization possible is skipping by the header's EventSize.
type FormatError string

func (e FormatError) Error() string { return "binlog: " + string(e) }

func formatErrorf(format string, args ...interface{}) error {
	return FormatError(fmt.Sprintf(format, args...))
}

// ChecksumError reports a CRC32 mismatch on one event. The header it
// carries was read before the mismatch and its EventSize remains
// trustworthy, so a caller may skip to the next event boundary.
type ChecksumError struct {
	Header   EventHeader
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("binlog: checksum mismatch on %s event: expected %08x, actual %08x",
		e.Header.EventType, e.Expected, e.Actual)
}

// UnknownColumnTypeError is raised while resolving a table map's column
// metadata against a type code this package does not know. Rows of that
// table cannot be decoded until a corrected table map supersedes it.
type UnknownColumnTypeError struct {
	Type byte
}

func (e *UnknownColumnTypeError) Error() string {
	return fmt.Sprintf("binlog: unknown column type 0x%02x", e.Type)
}

// MissingTableMapError says a rows event referenced a table id for
// which no TableMapEvent has been seen, typically because the consumer
// started mid-stream. It is an ordering problem, not malformed bytes.
type MissingTableMapError struct {
	TableID uint64
}

func (e *MissingTableMapError) Error() string {
	return fmt.Sprintf("binlog: no table map for table id %d", e.TableID)
}
