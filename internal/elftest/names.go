package elftest

import "fmt"

// FunctionSection returns the section name the patch build macros emit for
// a patch function with full metadata.
func FunctionSection(name string, offset uint32, kind string, returnOffset uint32) string {
	return fmt.Sprintf(".text.hotpatch_function_%s_hotpatch_offset_%x_hotpatch_type_%s_hotpatch_return_offset_%x_hotpatch_end",
		name, offset, kind, returnOffset)
}

// ExtraFunctionSection returns the section name of a patch function built
// without metadata.
func ExtraFunctionSection(name string) string {
	return fmt.Sprintf(".text.hotpatch_function_%s_hotpatch_end", name)
}

// Filler returns n bytes where byte i is a simple function of i, so reads at
// different offsets are distinguishable.
func Filler(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i>>8)
	}
	return b
}
