package analyzer

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the patch type encoded in a section name. Its numeric value is
// the type field written into a hotpatch record.
type Kind uint32

const (
	// Replacement overwrites the first 8 bytes of a function in place.
	Replacement Kind = 0
	// Redirect reroutes execution to the patch code.
	Redirect Kind = 1
)

func (k Kind) String() string {
	switch k {
	case Replacement:
		return "replacement"
	case Redirect:
		return "redirect"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// ParseKind maps a type tag onto a Kind.
func ParseKind(tag string) (Kind, bool) {
	switch tag {
	case "replacement":
		return Replacement, true
	case "redirect":
		return Redirect, true
	default:
		return 0, false
	}
}

// Delimiter tokens of the section-name grammar:
//
//	hotpatch_function_<name>_hotpatch_offset_<hex>_hotpatch_type_<tag>
//	    _hotpatch_return_offset_<hex>_hotpatch_end
const (
	tokenFunction     = "hotpatch_function_"
	tokenOffset       = "_hotpatch_offset_"
	tokenType         = "_hotpatch_type_"
	tokenReturnOffset = "_hotpatch_return_offset_"
	tokenEnd          = "_hotpatch_end"
)

// Header holds the metadata parsed from a patch-function section name.
// Fields whose delimiters were not found are nil.
type Header struct {
	// Raw is the section name with its ".text." prefix stripped.
	Raw string
	// Name is the firmware function the patch applies to.
	Name         string
	Offset       *uint32
	Kind         *Kind
	ReturnOffset *uint32
	// Tag is the raw type text, kept even when it is not a known Kind.
	Tag string
}

// PatchOffset returns the patch offset, or 0 when none was encoded.
func (h Header) PatchOffset() uint32 {
	if h.Offset == nil {
		return 0
	}
	return *h.Offset
}

// ReturnOffsetOr returns the return offset, or def when none was encoded.
func (h Header) ReturnOffsetOr(def uint32) uint32 {
	if h.ReturnOffset == nil {
		return def
	}
	return *h.ReturnOffset
}

// Classified reports whether the type tag named a known Kind.
func (h Header) Classified() bool {
	return h.Kind != nil
}

// ParseHeader decodes the naming grammar of a patch-function section. A
// missing delimiter leaves the field unset. A present but malformed hex field
// returns a *HeaderError.
func ParseHeader(sectionName string) (Header, error) {
	stripped := sectionName
	if i := strings.LastIndex(stripped, ".text."); i >= 0 {
		stripped = stripped[i+len(".text."):]
	}
	h := Header{Raw: stripped}

	if s := between(stripped, tokenOffset, tokenType); s != "" {
		v, err := parseHex(s)
		if err != nil {
			return Header{}, &HeaderError{Section: sectionName, Field: "offset", Value: s, Err: err}
		}
		h.Offset = &v
	}

	if s := between(stripped, tokenType, tokenReturnOffset); s != "" {
		h.Tag = s
		if k, ok := ParseKind(s); ok {
			h.Kind = &k
		}
	}

	if h.Offset != nil && h.Tag != "" {
		h.Name = between(stripped, tokenFunction, tokenOffset)
	} else {
		h.Name = stripped
	}

	if s := between(stripped, tokenReturnOffset, tokenEnd); s != "" {
		v, err := parseHex(s)
		if err != nil {
			return Header{}, &HeaderError{Section: sectionName, Field: "return offset", Value: s, Err: err}
		}
		h.ReturnOffset = &v
	}

	return h, nil
}

// between returns the text between the first start and the next end after
// it, or "" when either token is missing.
func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

func parseHex(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
