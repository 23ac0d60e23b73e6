package analyzer

import (
	"errors"
	"fmt"
)

// ErrNoPatchFunctions is returned when the patch object has no
// patch-function sections at all.
var ErrNoPatchFunctions = errors.New("no hotpatch function sections in patch object")

// FailureKind classifies why a patch function was skipped.
type FailureKind int

const (
	// MissingSymbol means the function name has no firmware symbol.
	MissingSymbol FailureKind = iota + 1
	// MissingSection means a section the function needs is absent.
	MissingSection
	// UnreadableOriginalCode means the 8-byte snapshot could not be read
	// from firmware.
	UnreadableOriginalCode
	// MalformedHeader means the section name carried an unparseable field.
	MalformedHeader
)

func (k FailureKind) String() string {
	switch k {
	case MissingSymbol:
		return "missing symbol"
	case MissingSection:
		return "missing section"
	case UnreadableOriginalCode:
		return "unreadable original code"
	case MalformedHeader:
		return "malformed header"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// FunctionError reports a patch function the analyzer had to skip.
type FunctionError struct {
	// Section is the patch-object section name
	Section string
	// Function is the parsed function name, if known
	Function string
	Kind     FailureKind
	// Underlying error, if any
	Err error
}

func (e *FunctionError) Error() string {
	name := e.Function
	if name == "" {
		name = e.Section
	}
	if e.Err != nil {
		return fmt.Sprintf("patch function %q: %s: %v", name, e.Kind, e.Err)
	}
	return fmt.Sprintf("patch function %q: %s", name, e.Kind)
}

func (e *FunctionError) Unwrap() error {
	return e.Err
}

// HeaderError represents a malformed hex field in a section name.
type HeaderError struct {
	// Section is the full section name
	Section string
	// Field is "offset" or "return offset"
	Field string
	// Value is the text that failed to parse
	Value string
	// Underlying error
	Err error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("section %q: invalid %s %q: %v", e.Section, e.Field, e.Value, e.Err)
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}
