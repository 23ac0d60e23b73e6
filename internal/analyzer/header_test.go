package analyzer

import (
	"errors"
	"testing"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name       string
		section    string
		wantName   string
		wantOffset *uint32
		wantKind   *Kind
		wantTag    string
		wantReturn *uint32
	}{
		{
			name:       "redirect",
			section:    ".text.hotpatch_function_foo_hotpatch_offset_4_hotpatch_type_redirect_hotpatch_return_offset_10_hotpatch_end",
			wantName:   "foo",
			wantOffset: u32(0x4),
			wantKind:   kind(Redirect),
			wantTag:    "redirect",
			wantReturn: u32(0x10),
		},
		{
			name:       "replacement with 0x prefix",
			section:    ".text.hotpatch_function_k_mutex_lock_hotpatch_offset_0x1a_hotpatch_type_replacement_hotpatch_return_offset_0x0_hotpatch_end",
			wantName:   "k_mutex_lock",
			wantOffset: u32(0x1a),
			wantKind:   kind(Replacement),
			wantTag:    "replacement",
			wantReturn: u32(0),
		},
		{
			name:       "unknown type",
			section:    ".text.hotpatch_function_foo_hotpatch_offset_0_hotpatch_type_inline_hotpatch_return_offset_8_hotpatch_end",
			wantName:   "foo",
			wantOffset: u32(0),
			wantTag:    "inline",
			wantReturn: u32(8),
		},
		{
			name:     "no metadata",
			section:  ".text.hotpatch_function_helper_hotpatch_end",
			wantName: "hotpatch_function_helper_hotpatch_end",
		},
		{
			name:       "offset without type keeps full name",
			section:    ".text.hotpatch_function_foo_hotpatch_offset_4_hotpatch_end",
			wantName:   "hotpatch_function_foo_hotpatch_offset_4_hotpatch_end",
			wantOffset: nil,
		},
		{
			// The type tag is bounded by the return offset token, so without
			// it the type is unset and the name falls back to the section.
			name:       "missing return offset",
			section:    ".text.hotpatch_function_foo_hotpatch_offset_4_hotpatch_type_redirect_hotpatch_end",
			wantName:   "hotpatch_function_foo_hotpatch_offset_4_hotpatch_type_redirect_hotpatch_end",
			wantOffset: u32(4),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHeader(tt.section)
			if err != nil {
				t.Fatalf("ParseHeader() error = %v", err)
			}
			if h.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", h.Name, tt.wantName)
			}
			if !equalU32(h.Offset, tt.wantOffset) {
				t.Errorf("Offset = %v, want %v", deref(h.Offset), deref(tt.wantOffset))
			}
			if !equalU32(h.ReturnOffset, tt.wantReturn) {
				t.Errorf("ReturnOffset = %v, want %v", deref(h.ReturnOffset), deref(tt.wantReturn))
			}
			if (h.Kind == nil) != (tt.wantKind == nil) || (h.Kind != nil && *h.Kind != *tt.wantKind) {
				t.Errorf("Kind = %v, want %v", h.Kind, tt.wantKind)
			}
			if h.Tag != tt.wantTag {
				t.Errorf("Tag = %q, want %q", h.Tag, tt.wantTag)
			}
		})
	}
}

func TestParseHeader_MalformedHex(t *testing.T) {
	_, err := ParseHeader(".text.hotpatch_function_foo_hotpatch_offset_zz_hotpatch_type_redirect_hotpatch_return_offset_10_hotpatch_end")
	var he *HeaderError
	if !errors.As(err, &he) {
		t.Fatalf("error = %v, want *HeaderError", err)
	}
	if he.Field != "offset" || he.Value != "zz" {
		t.Errorf("HeaderError = %+v", he)
	}

	_, err = ParseHeader(".text.hotpatch_function_foo_hotpatch_offset_4_hotpatch_type_redirect_hotpatch_return_offset_1g_hotpatch_end")
	if !errors.As(err, &he) || he.Field != "return offset" {
		t.Errorf("error = %v, want return offset *HeaderError", err)
	}
}

func TestHeader_Defaults(t *testing.T) {
	var h Header
	if h.PatchOffset() != 0 {
		t.Errorf("PatchOffset() = %d, want 0", h.PatchOffset())
	}
	if h.ReturnOffsetOr(7) != 7 {
		t.Errorf("ReturnOffsetOr(7) = %d, want 7", h.ReturnOffsetOr(7))
	}
	if h.Classified() {
		t.Error("zero Header should not be classified")
	}
}

func TestKind_String(t *testing.T) {
	if Redirect.String() != "redirect" || Replacement.String() != "replacement" {
		t.Errorf("String() = %q, %q", Redirect, Replacement)
	}
	if Kind(9).String() != "Kind(9)" {
		t.Errorf("Kind(9).String() = %q", Kind(9).String())
	}
	if _, ok := ParseKind("bogus"); ok {
		t.Error("ParseKind(bogus) should fail")
	}
}

func u32(v uint32) *uint32 { return &v }
func kind(k Kind) *Kind    { return &k }

func equalU32(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *uint32) any {
	if p == nil {
		return nil
	}
	return *p
}
