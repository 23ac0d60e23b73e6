package hotpatch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRecords is returned when no patch function could be assembled.
	ErrNoRecords = errors.New("no hotpatch records produced")
	// ErrTruncatedBlob is returned by ParseBlob for short input.
	ErrTruncatedBlob = errors.New("truncated hotpatch blob")

	// ErrUnclassifiedType is returned for functions whose type tag is not
	// redirect or replacement.
	ErrUnclassifiedType = errors.New("patch type is not redirect or replacement")
	// ErrShortReplacement is returned when replacement code is under 8 bytes.
	ErrShortReplacement = errors.New("replacement code is shorter than 8 bytes")
	// ErrWriteOutOfBounds is returned when a substitution falls outside the
	// code buffer.
	ErrWriteOutOfBounds = errors.New("write outside code buffer")
	// ErrMissingReturnOffset is returned when a branch-back marker exists but
	// the section name carries no return offset.
	ErrMissingReturnOffset = errors.New("branch-back marker without return offset")
	// ErrCodeTooLarge is returned when a record exceeds Options.MaxCodeSize.
	ErrCodeTooLarge = errors.New("record code exceeds slot capacity")
)

// AssemblyError reports a patch function that could not be assembled.
type AssemblyError struct {
	// Function is the firmware function name
	Function string
	// Step names the assembly step that failed
	Step string
	// Offset is the code offset involved, if any
	Offset uint32
	// Underlying error
	Err error
}

func (e *AssemblyError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("assemble %q: %v", e.Function, e.Err)
	}
	return fmt.Sprintf("assemble %q: %s at 0x%x: %v", e.Function, e.Step, e.Offset, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// PartialError is returned in strict mode when some functions were skipped.
type PartialError struct {
	// Emitted is the number of records that were assembled
	Emitted int
	// Skipped holds one error per skipped function
	Skipped []error
}

func (e *PartialError) Error() string {
	msgs := make([]string, len(e.Skipped))
	for i, err := range e.Skipped {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d of %d patch functions skipped: %s",
		len(e.Skipped), len(e.Skipped)+e.Emitted, strings.Join(msgs, "; "))
}

func (e *PartialError) Unwrap() []error {
	return e.Skipped
}
