package numidx

import (
	"errors"
	"fmt"

	"github.com/hupe1980/numidx/internal/page"
)

var (
	// ErrOpen matches every *OpenError.
	ErrOpen = errors.New("numidx: open failed")
	// ErrCorrupt is returned when index data fails a structural check.
	ErrCorrupt = page.ErrCorrupt
	// ErrClosed is returned when an Index is used after Close.
	ErrClosed = errors.New("numidx: index closed")
	// ErrNotFound is returned by Fetch callers asking for one specific id.
	ErrNotFound = errors.New("numidx: id not found")
	// ErrInvalidLevelSize is returned when a builder's level size is below 2.
	ErrInvalidLevelSize = errors.New("numidx: level size must be at least 2")
	// ErrCountMismatch matches every *CountMismatchError.
	ErrCountMismatch = errors.New("numidx: record count changed between passes")
	// ErrNonMonotonic matches every *NonMonotonicError.
	ErrNonMonotonic = errors.New("numidx: records not strictly increasing")
)

// OpenError reports a data source, index blob or destination that could not be opened.
//
// The original underlying error can be accessed via errors.Unwrap.
type OpenError struct {
	Op   string
	Name string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("numidx: %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Is reports whether target is ErrOpen.
func (e *OpenError) Is(target error) bool { return target == ErrOpen }

// CountMismatchError indicates that the two builder passes saw different record counts.
type CountMismatchError struct {
	Counted uint64
	Indexed uint64
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("numidx: counted %d records but indexed %d", e.Counted, e.Indexed)
}

// Is reports whether target is ErrCountMismatch.
func (e *CountMismatchError) Is(target error) bool { return target == ErrCountMismatch }

// NonMonotonicError indicates a record whose id or offset does not exceed its predecessor's.
type NonMonotonicError struct {
	// Position is the zero-based position of the offending record.
	Position   uint64
	PrevID     uint64
	ID         uint64
	PrevOffset int64
	Offset     int64
}

func (e *NonMonotonicError) Error() string {
	if e.ID <= e.PrevID {
		return fmt.Sprintf("numidx: record %d: id %d does not exceed previous id %d", e.Position, e.ID, e.PrevID)
	}
	return fmt.Sprintf("numidx: record %d (id %d): offset %d does not exceed previous offset %d",
		e.Position, e.ID, e.Offset, e.PrevOffset)
}

// Is reports whether target is ErrNonMonotonic.
func (e *NonMonotonicError) Is(target error) bool { return target == ErrNonMonotonic }

// isAbort reports whether err must stop a whole batch rather than a single id.
func isAbort(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrClosed)
}
