package hotpatch

import "fmt"

// WarningKind classifies non-fatal assembly problems.
type WarningKind int

const (
	// UnresolvedRelocation is an address relocation with no firmware symbol.
	UnresolvedRelocation WarningKind = iota + 1
	// IncompleteCallEntry is a call missing its local or external site.
	IncompleteCallEntry
)

func (k WarningKind) String() string {
	switch k {
	case UnresolvedRelocation:
		return "unresolved_relocation"
	case IncompleteCallEntry:
		return "incomplete_call_entry"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a problem that left a record in place but may need attention.
type Warning struct {
	Function string
	Kind     WarningKind
	Symbol   string
	Message  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s %q: %s", w.Function, w.Kind, w.Symbol, w.Message)
}
