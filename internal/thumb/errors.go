package thumb

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when a branch offset cannot be encoded.
	ErrOutOfRange = errors.New("branch offset out of range")
	// ErrUnsupportedMode is returned for ARM-mode (even) source addresses.
	ErrUnsupportedMode = errors.New("ARM instruction mode is not supported")
)

// RangeError reports a branch whose offset is outside
// [MinBranchOffset, MaxBranchOffset].
type RangeError struct {
	Source uint32
	Target uint32
	Offset int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("branch 0x%08x -> 0x%08x: offset %d outside [%d, %d]",
		e.Source, e.Target, e.Offset, MinBranchOffset, MaxBranchOffset)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}
