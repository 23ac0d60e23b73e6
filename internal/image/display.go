package image

import (
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// DisplayName returns a human-readable form of a symbol or section name.
// C++ and Rust mangled names are demangled; a ".text." prefix is kept.
// Names that are not mangled are returned unchanged.
func DisplayName(name string) string {
	if strings.HasPrefix(name, TextPrefix) {
		return TextPrefix + demangle.Filter(strings.TrimPrefix(name, TextPrefix), demangle.NoParams)
	}
	return demangle.Filter(name, demangle.NoParams)
}
