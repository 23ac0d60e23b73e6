package image

import (
	"debug/elf"
	"strings"
)

// Section index values for symbols that are not defined in a real section.
const (
	SectionUndefined = -1 // defined in another image
	SectionSpecial   = -2 // SHN_ABS, SHN_COMMON and other reserved indices
)

// TextPrefix is the structural prefix of per-function code sections.
const TextPrefix = ".text."

// SectionFlags summarizes the section attributes the generator cares about.
type SectionFlags uint8

const (
	FlagAlloc SectionFlags = 1 << iota
	FlagWrite
	FlagExec
	FlagNoBits
)

// Section is a named region of an image.
type Section struct {
	Index  int
	Name   string
	Type   elf.SectionType
	Addr   uint32
	Offset uint32
	Size   uint32
	Flags  SectionFlags
}

// Contains reports whether addr lies in [Addr, Addr+Size).
func (s Section) Contains(addr uint32) bool {
	return addr >= s.Addr && uint64(addr) < uint64(s.Addr)+uint64(s.Size)
}

// IsExecutable reports whether the section holds instructions with file data.
func (s Section) IsExecutable() bool {
	return s.Type == elf.SHT_PROGBITS && s.Flags&FlagExec != 0
}

// IsCode reports whether the section name marks it as a code section.
func (s Section) IsCode() bool {
	return strings.HasPrefix(s.Name, ".text")
}

// IsReadOnlyData reports whether the section name marks it as rodata.
func (s Section) IsReadOnlyData() bool {
	return strings.Contains(s.Name, ".rodata")
}

// ShortName strips the ".text." prefix from a code section name.
func (s Section) ShortName() string {
	return ShortName(s.Name)
}

// ShortName strips the ".text." prefix from name, if present.
func ShortName(name string) string {
	return strings.TrimPrefix(name, TextPrefix)
}

// Symbol is a named address binding.
type Symbol struct {
	Index   int // index in the symbol table, including the null entry
	Name    string
	Value   uint32
	Size    uint32
	Type    elf.SymType
	Bind    elf.SymBind
	Section int // section index, SectionUndefined or SectionSpecial
}

// HasSection reports whether the symbol is defined in a real section.
func (s Symbol) HasSection() bool {
	return s.Section >= 0
}

// IsUndefined reports whether the symbol is defined in another image.
func (s Symbol) IsUndefined() bool {
	return s.Section == SectionUndefined
}

// Relocation means "at Offset in the code section, patch in the address of
// Symbol".
type Relocation struct {
	SectionIndex  int // code section the relocation applies to
	Offset        uint32
	Type          elf.R_ARM
	Symbol        Symbol
	SymbolSection *Section // nil for undefined and special symbols
}

// Name returns the symbol name, or the owning section name for unnamed
// section symbols.
func (r Relocation) Name() string {
	if r.Symbol.Name != "" {
		return r.Symbol.Name
	}
	if r.SymbolSection != nil {
		return r.SymbolSection.Name
	}
	return ""
}

// Reader is the read-only capability the generator needs from an image.
type Reader interface {
	// Path returns the file path or name the image was opened from.
	Path() string

	Sections() []Section
	SectionByIndex(index int) (Section, bool)
	SectionByName(name string) (Section, bool)
	SectionIndex(name string) (int, bool)
	SectionContaining(addr uint32) (Section, bool)
	ExecutableSectionsWithPrefix(prefix string) []Section

	Symbols() []Symbol
	SymbolByName(name string) (Symbol, bool)
	SymbolsWithPrefix(prefix string) []Symbol
	SymbolsInSection(index int) []Symbol

	// ReadAt reads length bytes at a raw file offset.
	ReadAt(offset int64, length int) ([]byte, error)
	SectionData(s Section) ([]byte, error)
	ReadFromSection(s Section, addr uint32, length int) ([]byte, bool)

	Relocations() *RelocationIndex
	RelocationsWithPrefix(prefix string) []Relocation
	RelocationWithName(name string) (Relocation, bool)

	Close() error
}
