package image

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"strings"
)

// RelocationIndex groups relocation entries by the short name of the code
// section they patch. Order within each group is file order.
type RelocationIndex struct {
	entries map[string][]Relocation
	keys    []string
}

func newRelocationIndex() *RelocationIndex {
	return &RelocationIndex{entries: make(map[string][]Relocation)}
}

func (x *RelocationIndex) add(key string, r Relocation) {
	if _, ok := x.entries[key]; !ok {
		x.keys = append(x.keys, key)
	}
	x.entries[key] = append(x.entries[key], r)
}

// ForSection returns the relocations patching the named code section.
// Both the full section name and its short name are accepted.
func (x *RelocationIndex) ForSection(name string) []Relocation {
	return x.entries[ShortName(name)]
}

// At returns the relocation at offset inside the named code section.
func (x *RelocationIndex) At(name string, offset uint32) (Relocation, bool) {
	for _, r := range x.ForSection(name) {
		if r.Offset == offset {
			return r, true
		}
	}
	return Relocation{}, false
}

// Keys returns the indexed section short names in first-seen order.
func (x *RelocationIndex) Keys() []string {
	return x.keys
}

// All returns every indexed relocation, grouped by section in key order.
func (x *RelocationIndex) All() []Relocation {
	var all []Relocation
	for _, k := range x.keys {
		all = append(all, x.entries[k]...)
	}
	return all
}

// Len returns the total number of indexed relocations.
func (x *RelocationIndex) Len() int {
	n := 0
	for _, rs := range x.entries {
		n += len(rs)
	}
	return n
}

type rawRelocation struct {
	off  uint32
	info uint32
}

// buildRelocationIndex walks every SHT_REL/SHT_RELA section whose target is
// a code section. Relocation sections for non-code targets are skipped.
func buildRelocationIndex(f *elf.File, sections []Section, symbols []Symbol) (*RelocationIndex, error) {
	idx := newRelocationIndex()
	for i, s := range f.Sections {
		if s.Type != elf.SHT_REL && s.Type != elf.SHT_RELA {
			continue
		}
		target, ok := relocationTarget(sections, s)
		if !ok || !target.IsCode() {
			continue
		}
		raw, err := readRelocations(s)
		if err != nil {
			return nil, fmt.Errorf("section %d %q: %w", i, s.Name, err)
		}
		key := target.ShortName()
		for _, rr := range raw {
			sym, err := symbolAt(symbols, int(elf.R_SYM32(rr.info)))
			if err != nil {
				return nil, fmt.Errorf("section %d %q: relocation at 0x%x: %w", i, s.Name, rr.off, err)
			}
			r := Relocation{
				SectionIndex: target.Index,
				Offset:       rr.off,
				Type:         elf.R_ARM(elf.R_TYPE32(rr.info)),
				Symbol:       sym,
			}
			if sym.HasSection() && sym.Section < len(sections) {
				owner := sections[sym.Section]
				r.SymbolSection = &owner
			}
			idx.add(key, r)
		}
	}
	return idx, nil
}

// relocationTarget finds the section a relocation section modifies, first by
// sh_info and then by name correspondence (".rel<name>", ".rela<name>").
func relocationTarget(sections []Section, s *elf.Section) (Section, bool) {
	if s.Info > 0 && int(s.Info) < len(sections) {
		return sections[s.Info], true
	}
	var name string
	switch {
	case strings.HasPrefix(s.Name, ".rela"):
		name = strings.TrimPrefix(s.Name, ".rela")
	case strings.HasPrefix(s.Name, ".rel"):
		name = strings.TrimPrefix(s.Name, ".rel")
	default:
		return Section{}, false
	}
	for _, sec := range sections {
		if sec.Name == name {
			return sec, true
		}
	}
	return Section{}, false
}

func readRelocations(s *elf.Section) ([]rawRelocation, error) {
	data, err := s.Data()
	if err != nil {
		return nil, err
	}
	entsize := 8
	if s.Type == elf.SHT_RELA {
		entsize = 12
	}
	if len(data)%entsize != 0 {
		return nil, fmt.Errorf("relocation section length %d is not a multiple of %d", len(data), entsize)
	}
	out := make([]rawRelocation, 0, len(data)/entsize)
	for off := 0; off < len(data); off += entsize {
		out = append(out, rawRelocation{
			off:  binary.LittleEndian.Uint32(data[off:]),
			info: binary.LittleEndian.Uint32(data[off+4:]),
		})
	}
	return out, nil
}

// symbolAt maps a relocation symbol index onto the parsed symbol table.
// Index 0 is the null symbol.
func symbolAt(symbols []Symbol, index int) (Symbol, error) {
	if index == 0 {
		return Symbol{Section: SectionSpecial}, nil
	}
	if index < 0 || index > len(symbols) {
		return Symbol{}, fmt.Errorf("symbol reference %d out of bounds", index)
	}
	return symbols[index-1], nil
}
