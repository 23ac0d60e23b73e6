package image

import (
	"debug/elf"
	"errors"
	"io"
	"os"
	"strings"
)

// ELFFile is a Reader over a 32-bit little-endian ARM ELF image.
type ELFFile struct {
	path     string
	file     *elf.File
	raw      io.ReaderAt
	size     int64 // -1 when the source size is unknown
	closer   io.Closer
	sections []Section
	symbols  []Symbol
	relocs   *RelocationIndex
}

var _ Reader = (*ELFFile)(nil)

// Open opens an ELF image from disk and builds its relocation index.
func Open(path string) (*ELFFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImageError{Path: path, Op: "open", Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &ImageError{Path: path, Op: "stat", Err: err}
	}
	img, err := newELFFile(f, info.Size(), path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return img, nil
}

type sizer interface {
	Size() int64
}

// NewELFFile parses an ELF image from an in-memory or otherwise opened
// source. The caller keeps ownership of r.
func NewELFFile(r io.ReaderAt, name string) (*ELFFile, error) {
	size := int64(-1)
	if s, ok := r.(sizer); ok {
		size = s.Size()
	}
	return newELFFile(r, size, name, nil)
}

func newELFFile(r io.ReaderAt, size int64, name string, closer io.Closer) (*ELFFile, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return nil, &ImageError{Path: name, Op: "parse", Err: errors.Join(ErrNotELF, err)}
	}
	if ef.Class != elf.ELFCLASS32 {
		return nil, &ImageError{Path: name, Op: ef.Class.String(), Err: ErrUnsupportedClass}
	}
	if ef.Data != elf.ELFDATA2LSB {
		return nil, &ImageError{Path: name, Op: ef.Data.String(), Err: ErrUnsupportedEncoding}
	}
	if ef.Machine != elf.EM_ARM {
		return nil, &ImageError{Path: name, Op: ef.Machine.String(), Err: ErrUnsupportedMachine}
	}

	img := &ELFFile{
		path:   name,
		file:   ef,
		raw:    r,
		size:   size,
		closer: closer,
	}
	img.sections = readSections(ef)

	syms, err := ef.Symbols()
	if err != nil {
		if errors.Is(err, elf.ErrNoSymbols) {
			return nil, &ImageError{Path: name, Op: "symbols", Err: ErrNoSymbolTable}
		}
		return nil, &ImageError{Path: name, Op: "symbols", Err: err}
	}
	img.symbols = convertSymbols(syms)

	img.relocs, err = buildRelocationIndex(ef, img.sections, img.symbols)
	if err != nil {
		return nil, &ImageError{Path: name, Op: "relocations", Err: err}
	}
	return img, nil
}

func readSections(ef *elf.File) []Section {
	sections := make([]Section, len(ef.Sections))
	for i, s := range ef.Sections {
		var flags SectionFlags
		if s.Flags&elf.SHF_ALLOC != 0 {
			flags |= FlagAlloc
		}
		if s.Flags&elf.SHF_WRITE != 0 {
			flags |= FlagWrite
		}
		if s.Flags&elf.SHF_EXECINSTR != 0 {
			flags |= FlagExec
		}
		if s.Type == elf.SHT_NOBITS {
			flags |= FlagNoBits
		}
		sections[i] = Section{
			Index:  i,
			Name:   s.Name,
			Type:   s.Type,
			Addr:   uint32(s.Addr),
			Offset: uint32(s.Offset),
			Size:   uint32(s.Size),
			Flags:  flags,
		}
	}
	return sections
}

// convertSymbols keeps table order. debug/elf drops the null entry, so the
// symbol at position i has table index i+1.
func convertSymbols(syms []elf.Symbol) []Symbol {
	out := make([]Symbol, len(syms))
	for i, s := range syms {
		section := int(s.Section)
		switch {
		case s.Section == elf.SHN_UNDEF:
			section = SectionUndefined
		case s.Section >= elf.SHN_LORESERVE:
			section = SectionSpecial
		}
		out[i] = Symbol{
			Index:   i + 1,
			Name:    s.Name,
			Value:   uint32(s.Value),
			Size:    uint32(s.Size),
			Type:    elf.ST_TYPE(s.Info),
			Bind:    elf.ST_BIND(s.Info),
			Section: section,
		}
	}
	return out
}

// Path returns the path or name the image was opened from.
func (f *ELFFile) Path() string { return f.path }

// Type returns the ELF file type (ET_REL for patch objects, ET_EXEC for
// firmware).
func (f *ELFFile) Type() elf.Type { return f.file.Type }

// Close releases the underlying file, if Open created it.
func (f *ELFFile) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// Sections returns all sections in header order, including the null section.
func (f *ELFFile) Sections() []Section {
	return f.sections
}

// SectionByIndex returns the section with the given header index.
func (f *ELFFile) SectionByIndex(index int) (Section, bool) {
	if index < 0 || index >= len(f.sections) {
		return Section{}, false
	}
	return f.sections[index], true
}

// SectionByName returns the first section with an exact name match.
func (f *ELFFile) SectionByName(name string) (Section, bool) {
	for _, s := range f.sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// SectionIndex returns the header index of the named section.
func (f *ELFFile) SectionIndex(name string) (int, bool) {
	s, ok := f.SectionByName(name)
	return s.Index, ok
}

// SectionContaining returns the first allocated section whose address range
// contains addr.
func (f *ELFFile) SectionContaining(addr uint32) (Section, bool) {
	for _, s := range f.sections {
		if s.Flags&FlagAlloc == 0 {
			continue
		}
		if s.Contains(addr) {
			return s, true
		}
	}
	return Section{}, false
}

// ExecutableSectionsWithPrefix returns executable PROGBITS sections whose
// name starts with prefix.
func (f *ELFFile) ExecutableSectionsWithPrefix(prefix string) []Section {
	var out []Section
	for _, s := range f.sections {
		if s.IsExecutable() && strings.HasPrefix(s.Name, prefix) {
			out = append(out, s)
		}
	}
	return out
}

// Symbols returns the symbol table without the null entry.
func (f *ELFFile) Symbols() []Symbol {
	return f.symbols
}

// SymbolByName returns the first symbol whose name equals name.
func (f *ELFFile) SymbolByName(name string) (Symbol, bool) {
	for _, s := range f.symbols {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// SymbolsWithPrefix returns symbols whose name starts with prefix, in table
// order.
func (f *ELFFile) SymbolsWithPrefix(prefix string) []Symbol {
	var out []Symbol
	for _, s := range f.symbols {
		if strings.HasPrefix(s.Name, prefix) {
			out = append(out, s)
		}
	}
	return out
}

// SymbolsInSection returns the symbols defined in the given section.
func (f *ELFFile) SymbolsInSection(index int) []Symbol {
	var out []Symbol
	for _, s := range f.symbols {
		if s.Section == index {
			out = append(out, s)
		}
	}
	return out
}

// ReadAt reads length bytes at a raw file offset.
func (f *ELFFile) ReadAt(offset int64, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, ErrReadOutOfRange
	}
	if f.size >= 0 && offset+int64(length) > f.size {
		return nil, ErrReadOutOfRange
	}
	buf := make([]byte, length)
	n, err := f.raw.ReadAt(buf, offset)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if n == length {
				return buf, nil
			}
			return nil, ErrReadOutOfRange
		}
		return nil, err
	}
	return buf, nil
}

// SectionData returns the file contents of a section. NOBITS sections have
// no contents.
func (f *ELFFile) SectionData(s Section) ([]byte, error) {
	if s.Flags&FlagNoBits != 0 || s.Size == 0 {
		return nil, nil
	}
	return f.ReadAt(int64(s.Offset), int(s.Size))
}

// ReadFromSection reads up to length bytes at virtual address addr inside s.
// It reports false when addr is outside the section or the section has no
// file contents. The result is shorter than length when the read runs off
// the end of the section.
func (f *ELFFile) ReadFromSection(s Section, addr uint32, length int) ([]byte, bool) {
	if !s.Contains(addr) || s.Flags&FlagNoBits != 0 {
		return nil, false
	}
	off := addr - s.Addr
	n := length
	if avail := int(s.Size - off); n > avail {
		n = avail
	}
	data, err := f.ReadAt(int64(s.Offset)+int64(off), n)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Relocations returns the relocation index built at open time.
func (f *ELFFile) Relocations() *RelocationIndex {
	return f.relocs
}

// RelocationsWithPrefix returns relocations whose symbol name starts with
// prefix.
func (f *ELFFile) RelocationsWithPrefix(prefix string) []Relocation {
	var out []Relocation
	for _, r := range f.relocs.All() {
		if strings.HasPrefix(r.Symbol.Name, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// RelocationWithName returns the first relocation whose symbol name, or
// owning section name, contains name.
func (f *ELFFile) RelocationWithName(name string) (Relocation, bool) {
	for _, r := range f.relocs.All() {
		if strings.Contains(r.Symbol.Name, name) {
			return r, true
		}
		if r.SymbolSection != nil && strings.Contains(r.SymbolSection.Name, name) {
			return r, true
		}
	}
	return Relocation{}, false
}
