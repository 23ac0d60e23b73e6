package main

import (
	"debug/elf"
	"testing"

	"github.com/muurk/hpgen/internal/elftest"
	"github.com/muurk/hpgen/internal/hotpatch"
	"github.com/muurk/hpgen/internal/image"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"0x08001004", 0x08001004, false},
		{"4096", 4096, false},
		{"0b101", 5, false},
		{"0x100000000", 0, true},
		{"foo", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAddress(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAddress(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAddress(%q) = 0x%x, want 0x%x", tt.in, got, tt.want)
		}
	}
}

func TestSymbolFor(t *testing.T) {
	b := elftest.NewExecutable()
	text := b.AddTextAt(".text", 0x08000000, elftest.Filler(0x100))
	b.AddSymbol(elftest.Symbol{Name: "foo", Value: 0x08000011, Size: 0x20, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: text})
	b.AddSymbol(elftest.Symbol{Name: "_ZN3app4tickEv", Value: 0x08000041, Size: 0x10, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: text})
	b.AddSymbol(elftest.Symbol{Name: "data", Value: 0x08000080, Size: 0x10, Type: elf.STT_OBJECT, Bind: elf.STB_GLOBAL, Section: text})

	fw, err := image.NewELFFile(b.Reader(), "fw.elf")
	if err != nil {
		t.Fatalf("NewELFFile() error = %v", err)
	}

	tests := []struct {
		addr uint32
		want string
		ok   bool
	}{
		{0x08000010, "foo", true},
		{0x08000014, "foo+0x4", true},
		{0x08000044, "app::tick+0x4", true},
		{0x08000030, "", false}, // past foo's size
		{0x08000084, "", false}, // data object
	}
	for _, tt := range tests {
		got, ok := symbolFor(fw, tt.addr)
		if ok != tt.ok || got != tt.want {
			t.Errorf("symbolFor(0x%x) = %q, %v, want %q, %v", tt.addr, got, ok, tt.want, tt.ok)
		}
	}
}

func TestGenerateOutcome(t *testing.T) {
	res := &hotpatch.Result{
		Blob:     make([]byte, 24),
		Records:  []*hotpatch.Record{{Function: "foo", TargetAddress: 0x08001004, Code: make([]byte, 8)}},
		Warnings: []hotpatch.Warning{{Function: "foo", Kind: hotpatch.UnresolvedRelocation, Symbol: "bar"}},
	}
	o := generateOutcome(res)
	if !o.Warn {
		t.Error("Warn = false with warnings present")
	}
	if len(o.Dumps) != 1 {
		t.Errorf("got %d dumps, want 1", len(o.Dumps))
	}
	if len(o.Lists) != 2 || len(o.Lists[0].Items) != 1 || len(o.Lists[1].Items) != 0 {
		t.Errorf("Lists = %+v", o.Lists)
	}
	if generateOutcome(nil) != nil {
		t.Error("generateOutcome(nil) should be nil")
	}
}
