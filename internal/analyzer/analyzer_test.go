package analyzer

import (
	"bytes"
	"debug/elf"
	"errors"
	"testing"

	"github.com/muurk/hpgen/internal/elftest"
	"github.com/muurk/hpgen/internal/image"
)

const firmwareBase = 0x08000000

var firmwareCode = elftest.Filler(0x4000)

func newFirmware(t *testing.T) image.Reader {
	t.Helper()
	b := elftest.NewExecutable()
	text := b.AddTextAt(".text", firmwareBase, firmwareCode)
	b.AddSymbol(elftest.Symbol{Name: "foo", Value: 0x08001001, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: text})
	b.AddSymbol(elftest.Symbol{Name: "bar", Value: 0x08002001, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: text})
	b.AddSymbol(elftest.Symbol{Name: "edge", Value: 0x08003FFD, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: text})
	b.AddSymbol(elftest.Symbol{Name: "counter", Value: 0x20000100, Type: elf.STT_OBJECT, Bind: elf.STB_GLOBAL, Section: elftest.Absolute})

	img, err := image.NewELFFile(b.Reader(), "firmware.elf")
	if err != nil {
		t.Fatalf("NewELFFile(firmware) error = %v", err)
	}
	return img
}

// newPatch builds a patch object with one fully featured redirect function
// for foo, plus whatever extra sections add registers.
func newPatch(t *testing.T, add func(b *elftest.Builder)) image.Reader {
	t.Helper()
	b := elftest.NewObject()
	text := b.AddText(elftest.FunctionSection("foo", 4, "redirect", 0x10), make([]byte, 64))
	addr := b.AddSection(elftest.Section{Name: ".bss.hotpatch_address_bar", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Size: 4})
	rodata := b.AddSection(elftest.Section{Name: ".rodata.str1.1", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC, Data: []byte("hi!\x00")})
	fail := b.AddSection(elftest.Section{Name: ".bss.hotpatch_address_return_fail", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Size: 4})

	addrSym := b.AddSectionSymbol(addr)
	roSym := b.AddSectionSymbol(rodata)
	failSym := b.AddSectionSymbol(fail)
	b.AddSymbol(elftest.Symbol{Name: "hotpatch_original_code_foo", Value: 0x10, Bind: elf.STB_LOCAL, Section: text})
	b.AddSymbol(elftest.Symbol{Name: "hotpatch_branch_to_orig_foo", Value: 0x20, Bind: elf.STB_LOCAL, Section: text})
	b.AddSymbol(elftest.Symbol{Name: "hotpatch_external_function_call_foo", Value: 0x30, Bind: elf.STB_LOCAL, Section: text})
	bar := b.AddSymbol(elftest.Symbol{Name: "bar", Bind: elf.STB_GLOBAL, Section: elftest.Undefined})
	helper := b.AddSymbol(elftest.Symbol{Name: "local_helper", Bind: elf.STB_GLOBAL, Section: elftest.Undefined})

	b.AddRelocations(text,
		elftest.Rel{Offset: 0x08, Symbol: addrSym, Type: elf.R_ARM_ABS32},
		elftest.Rel{Offset: 0x0C, Symbol: roSym, Type: elf.R_ARM_ABS32},
		elftest.Rel{Offset: 0x18, Symbol: bar, Type: elf.R_ARM_THM_PC22},
		elftest.Rel{Offset: 0x1C, Symbol: helper, Type: elf.R_ARM_THM_PC22},
		elftest.Rel{Offset: 0x34, Symbol: bar, Type: elf.R_ARM_ABS32},
		elftest.Rel{Offset: 0x3C, Symbol: failSym, Type: elf.R_ARM_ABS32},
	)
	if add != nil {
		add(b)
	}

	img, err := image.NewELFFile(b.Reader(), "patch.o")
	if err != nil {
		t.Fatalf("NewELFFile(patch) error = %v", err)
	}
	return img
}

func TestAnalyzer_Analyze(t *testing.T) {
	a := New(newPatch(t, nil), newFirmware(t), DefaultMarkers())
	res, err := a.Analyze()
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("Failures = %v", res.Failures)
	}
	if len(res.Descriptors) != 1 {
		t.Fatalf("got %d descriptors, want 1", len(res.Descriptors))
	}
	d := res.Descriptors[0]

	if d.Name != "foo" {
		t.Errorf("Name = %q, want foo", d.Name)
	}
	if d.FunctionAddress != 0x08001000 {
		t.Errorf("FunctionAddress = 0x%x, want 0x08001000", d.FunctionAddress)
	}
	if d.TargetAddress() != 0x08001004 {
		t.Errorf("TargetAddress() = 0x%x, want 0x08001004", d.TargetAddress())
	}
	if d.Kind == nil || *d.Kind != Redirect {
		t.Errorf("Kind = %v, want redirect", d.Kind)
	}
	if len(d.Code) != 64 {
		t.Errorf("len(Code) = %d, want 64", len(d.Code))
	}

	// The snapshot comes from firmware, not from the patch object.
	want := firmwareCode[0x1004:0x100C]
	if !bytes.Equal(d.OriginalCode, want) {
		t.Errorf("OriginalCode = % x, want % x", d.OriginalCode, want)
	}
}

func TestAnalyzer_ClassifyRelocations(t *testing.T) {
	a := New(newPatch(t, nil), newFirmware(t), DefaultMarkers())
	res, err := a.Analyze()
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	d := res.Descriptors[0]

	// Address relocations: bar, then return_fail (unresolved).
	if len(d.AddressRelocations) != 2 {
		t.Fatalf("got %d address relocations, want 2", len(d.AddressRelocations))
	}
	ar := d.AddressRelocations[0]
	if ar.Name != "bar" || !ar.Resolved || ar.Address != 0x08002001 || ar.Offset() != 0x08 {
		t.Errorf("address relocation = %+v", ar)
	}
	if d.AddressRelocations[1].Name != "return_fail" || d.AddressRelocations[1].Resolved {
		t.Errorf("second address relocation = %+v", d.AddressRelocations[1])
	}

	if len(d.DataRelocations) != 1 {
		t.Fatalf("got %d data relocations, want 1", len(d.DataRelocations))
	}
	if !bytes.Equal(d.DataRelocations[0].Data, []byte("hi!\x00")) {
		t.Errorf("data relocation bytes = %q", d.DataRelocations[0].Data)
	}

	if len(d.CallRelocations) != 3 {
		t.Fatalf("got %d call relocations, want 3", len(d.CallRelocations))
	}
	wantCalls := []struct {
		name     string
		offset   uint32
		resolved bool
	}{
		{"bar", 0x18, true},
		{"local_helper", 0x1C, false},
		{"bar", 0x34, true},
	}
	for i, w := range wantCalls {
		c := d.CallRelocations[i]
		if c.Name != w.name || c.Offset() != w.offset || c.Resolved != w.resolved {
			t.Errorf("call %d = %s@0x%x resolved=%v, want %s@0x%x resolved=%v",
				i, c.Name, c.Offset(), c.Resolved, w.name, w.offset, w.resolved)
		}
	}

	// Nothing is dropped: every reference is either resolved or unresolved.
	if got := len(d.Resolved()) + len(d.Unresolved()); got != 5 {
		t.Errorf("resolved+unresolved = %d, want 5", got)
	}
	unresolved := d.Unresolved()
	if len(unresolved) != 2 || unresolved[0].Name != "return_fail" || unresolved[1].Name != "local_helper" {
		t.Errorf("Unresolved() = %+v", unresolved)
	}

	if d.ReturnFail == nil || d.ReturnFail.Offset != 0x3C {
		t.Errorf("ReturnFail = %+v, want offset 0x3c", d.ReturnFail)
	}
}

func TestAnalyzer_Markers(t *testing.T) {
	patch := newPatch(t, func(b *elftest.Builder) {
		// Markers in another function's section are not picked up for foo.
		other := b.AddText(elftest.FunctionSection("bar", 0, "redirect", 8), make([]byte, 32))
		b.AddSymbol(elftest.Symbol{Name: "hotpatch_branch_to_orig_bar", Value: 0x08, Bind: elf.STB_LOCAL, Section: other})
		b.AddSymbol(elftest.Symbol{Name: "hotpatch_original_code_bar", Value: 0x00, Bind: elf.STB_LOCAL, Section: other})
	})
	res, err := New(patch, newFirmware(t), DefaultMarkers()).Analyze()
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(res.Descriptors) != 2 {
		t.Fatalf("got %d descriptors, want 2", len(res.Descriptors))
	}

	foo := res.Descriptors[0]
	if len(foo.BranchBackMarkers) != 1 || foo.BranchBackMarkers[0].Value != 0x20 {
		t.Errorf("foo BranchBackMarkers = %+v", foo.BranchBackMarkers)
	}
	if len(foo.ExternalCallMarkers) != 1 || foo.ExternalCallMarkers[0].Value != 0x30 {
		t.Errorf("foo ExternalCallMarkers = %+v", foo.ExternalCallMarkers)
	}
	if foo.OriginalCodeMarker == nil || foo.OriginalCodeMarker.Name != "hotpatch_original_code_foo" {
		t.Errorf("foo OriginalCodeMarker = %+v", foo.OriginalCodeMarker)
	}

	bar := res.Descriptors[1]
	if bar.Name != "bar" {
		t.Errorf("second descriptor = %q, want bar (discovery order)", bar.Name)
	}
	if len(bar.BranchBackMarkers) != 1 || bar.BranchBackMarkers[0].Value != 0x08 {
		t.Errorf("bar BranchBackMarkers = %+v", bar.BranchBackMarkers)
	}
	if len(bar.ExternalCallMarkers) != 0 {
		t.Errorf("bar ExternalCallMarkers = %+v, want none", bar.ExternalCallMarkers)
	}
	if len(bar.CallRelocations) != 0 {
		t.Errorf("bar CallRelocations = %+v, want none", bar.CallRelocations)
	}
}

func TestAnalyzer_MissingSymbolSkipsFunction(t *testing.T) {
	patch := newPatch(t, func(b *elftest.Builder) {
		b.AddText(elftest.FunctionSection("nosuch", 0, "replacement", 0), make([]byte, 16))
	})
	res, err := New(patch, newFirmware(t), DefaultMarkers()).Analyze()
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(res.Descriptors) != 1 || res.Descriptors[0].Name != "foo" {
		t.Fatalf("Descriptors = %+v, want only foo", res.Descriptors)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(res.Failures))
	}
	fe := res.Failures[0]
	if fe.Kind != MissingSymbol || fe.Function != "nosuch" {
		t.Errorf("failure = %v", fe)
	}
}

func TestAnalyzer_UnreadableOriginalCode(t *testing.T) {
	patch := newPatch(t, func(b *elftest.Builder) {
		// edge is 3 bytes before the end of firmware .text.
		b.AddText(elftest.FunctionSection("edge", 0, "replacement", 0), make([]byte, 16))
		// counter lives outside every firmware section.
		b.AddText(elftest.FunctionSection("counter", 0, "replacement", 0), make([]byte, 16))
	})
	res, err := New(patch, newFirmware(t), DefaultMarkers()).Analyze()
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(res.Failures) != 2 {
		t.Fatalf("got %d failures, want 2", len(res.Failures))
	}
	for _, fe := range res.Failures {
		if fe.Kind != UnreadableOriginalCode {
			t.Errorf("%s: Kind = %v, want unreadable original code", fe.Function, fe.Kind)
		}
	}
}

func TestAnalyzer_MalformedHeader(t *testing.T) {
	patch := newPatch(t, func(b *elftest.Builder) {
		b.AddText(".text.hotpatch_function_foo_hotpatch_offset_xyz_hotpatch_type_redirect_hotpatch_return_offset_0_hotpatch_end", make([]byte, 16))
	})
	res, err := New(patch, newFirmware(t), DefaultMarkers()).Analyze()
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(res.Failures) != 1 || res.Failures[0].Kind != MalformedHeader {
		t.Fatalf("Failures = %v, want one malformed header", res.Failures)
	}
	var he *HeaderError
	if !errors.As(res.Failures[0], &he) {
		t.Error("failure should wrap *HeaderError")
	}
}

func TestAnalyzer_NoPatchFunctions(t *testing.T) {
	b := elftest.NewObject()
	b.AddText(".text.main", make([]byte, 8))
	b.AddSymbol(elftest.Symbol{Name: "main", Bind: elf.STB_GLOBAL, Section: 1})
	patch, err := image.NewELFFile(b.Reader(), "plain.o")
	if err != nil {
		t.Fatalf("NewELFFile() error = %v", err)
	}

	_, err = New(patch, newFirmware(t), DefaultMarkers()).Analyze()
	if !errors.Is(err, ErrNoPatchFunctions) {
		t.Errorf("Analyze() error = %v, want ErrNoPatchFunctions", err)
	}
}

func TestMarkers_WithDefaults(t *testing.T) {
	m := Markers{ExternalCall: "ext_call"}.withDefaults()
	if m.ExternalCall != "ext_call" {
		t.Errorf("ExternalCall = %q, want ext_call", m.ExternalCall)
	}
	if m.FunctionPrefix != DefaultMarkers().FunctionPrefix {
		t.Errorf("FunctionPrefix = %q, want default", m.FunctionPrefix)
	}
}
