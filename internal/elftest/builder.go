// Package elftest builds small ELF32 ARM images in memory.
//
// Tests across the module use it to produce patch objects and firmware
// executables that go through the real debug/elf parser, so fixtures never
// need to be checked in as binaries.
//
// # Usage
//
//	b := elftest.NewObject()
//	text := b.AddText(".text.hotpatch_function_foo", code)
//	sym := b.AddSymbol(elftest.Symbol{Name: "bar", Bind: elf.STB_GLOBAL})
//	b.AddRelocations(text, elftest.Rel{Offset: 8, Symbol: sym, Type: elf.R_ARM_ABS32})
//	data := b.Bytes()
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Undefined is the section index of symbols defined in another image.
const Undefined = int(elf.SHN_UNDEF)

// Absolute is the section index of absolute symbols.
const Absolute = int(elf.SHN_ABS)

// Section describes one section to emit.
type Section struct {
	Name  string
	Type  elf.SectionType
	Flags elf.SectionFlag
	Addr  uint32
	Data  []byte
	Size  uint32 // only used for SHT_NOBITS
}

// Symbol describes one symbol table entry.
type Symbol struct {
	Name    string
	Value   uint32
	Size    uint32
	Type    elf.SymType
	Bind    elf.SymBind
	Section int // section index returned by AddSection, or Undefined/Absolute
}

// Rel is a single SHT_REL entry.
type Rel struct {
	Offset uint32
	Symbol int // symbol index returned by AddSymbol
	Type   elf.R_ARM
}

// Builder accumulates sections, symbols and relocations and serializes them
// as a little-endian ELF32 image.
type Builder struct {
	Type    elf.Type
	Machine elf.Machine
	Class   elf.Class

	// NoSymtab omits .symtab and .strtab from the output.
	NoSymtab bool
	// RelA emits SHT_RELA sections with zero addends instead of SHT_REL.
	RelA bool
	// NoRelInfo leaves sh_info of relocation sections at zero so the target
	// can only be found by name.
	NoRelInfo bool

	sections []Section
	symbols  []Symbol
	rels     map[int][]Rel
	relOrder []int
}

// NewObject returns a builder for a relocatable ARM object.
func NewObject() *Builder {
	return &Builder{Type: elf.ET_REL, Machine: elf.EM_ARM, Class: elf.ELFCLASS32}
}

// NewExecutable returns a builder for a linked ARM executable.
func NewExecutable() *Builder {
	return &Builder{Type: elf.ET_EXEC, Machine: elf.EM_ARM, Class: elf.ELFCLASS32}
}

// AddSection appends a section and returns its section header index.
func (b *Builder) AddSection(s Section) int {
	b.sections = append(b.sections, s)
	return len(b.sections)
}

// AddText appends an executable PROGBITS section.
func (b *Builder) AddText(name string, code []byte) int {
	return b.AddSection(Section{
		Name:  name,
		Type:  elf.SHT_PROGBITS,
		Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
		Data:  code,
	})
}

// AddTextAt appends an executable PROGBITS section loaded at addr.
func (b *Builder) AddTextAt(name string, addr uint32, code []byte) int {
	return b.AddSection(Section{
		Name:  name,
		Type:  elf.SHT_PROGBITS,
		Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
		Addr:  addr,
		Data:  code,
	})
}

// AddSymbol appends a symbol and returns its symbol table index.
// Index 0 is the reserved null symbol, so the first call returns 1.
func (b *Builder) AddSymbol(s Symbol) int {
	b.symbols = append(b.symbols, s)
	return len(b.symbols)
}

// AddSectionSymbol appends an unnamed STT_SECTION symbol for section.
func (b *Builder) AddSectionSymbol(section int) int {
	return b.AddSymbol(Symbol{Type: elf.STT_SECTION, Bind: elf.STB_LOCAL, Section: section})
}

// AddRelocations appends relocations that apply to section.
func (b *Builder) AddRelocations(section int, rels ...Rel) {
	if b.rels == nil {
		b.rels = make(map[int][]Rel)
	}
	if _, ok := b.rels[section]; !ok {
		b.relOrder = append(b.relOrder, section)
	}
	b.rels[section] = append(b.rels[section], rels...)
}

// Reader returns the serialized image as an io.ReaderAt.
func (b *Builder) Reader() *bytes.Reader {
	return bytes.NewReader(b.Bytes())
}

type stringTable struct {
	buf bytes.Buffer
}

func newStringTable() *stringTable {
	t := &stringTable{}
	t.buf.WriteByte(0)
	return t
}

func (t *stringTable) add(s string) uint32 {
	if s == "" {
		return 0
	}
	off := uint32(t.buf.Len())
	t.buf.WriteString(s)
	t.buf.WriteByte(0)
	return off
}

// Bytes serializes the image.
func (b *Builder) Bytes() []byte {
	const (
		headerSize  = 52
		sectionSize = 40
		symSize     = 16
		relSize     = 8
		relaSize    = 12
	)

	shstr := newStringTable()
	var headers []elf.Section32
	var bodies [][]byte

	// Section indices: null, user sections, relocation sections, then the
	// symbol/string tables.
	userCount := len(b.sections)
	symtabIndex := 0
	strtabIndex := 0
	next := userCount + len(b.relOrder) + 1
	if !b.NoSymtab {
		symtabIndex = next
		strtabIndex = next + 1
		next += 2
	}
	shstrIndex := next

	headers = append(headers, elf.Section32{})
	bodies = append(bodies, nil)

	for _, s := range b.sections {
		h := elf.Section32{
			Name:      shstr.add(s.Name),
			Type:      uint32(s.Type),
			Flags:     uint32(s.Flags),
			Addr:      s.Addr,
			Size:      uint32(len(s.Data)),
			Addralign: 4,
		}
		if s.Type == elf.SHT_NOBITS {
			h.Size = s.Size
		}
		headers = append(headers, h)
		if s.Type == elf.SHT_NOBITS {
			bodies = append(bodies, nil)
		} else {
			bodies = append(bodies, s.Data)
		}
	}

	for _, target := range b.relOrder {
		var body bytes.Buffer
		for _, r := range b.rels[target] {
			info := elf.R_INFO32(uint32(r.Symbol), uint32(r.Type))
			if b.RelA {
				binary.Write(&body, binary.LittleEndian, elf.Rela32{Off: r.Offset, Info: info})
			} else {
				binary.Write(&body, binary.LittleEndian, elf.Rel32{Off: r.Offset, Info: info})
			}
		}
		prefix := ".rel"
		if b.RelA {
			prefix = ".rela"
		}
		h := elf.Section32{
			Name:      shstr.add(prefix + b.sections[target-1].Name),
			Type:      uint32(elf.SHT_REL),
			Flags:     uint32(elf.SHF_INFO_LINK),
			Size:      uint32(body.Len()),
			Link:      uint32(symtabIndex),
			Info:      uint32(target),
			Addralign: 4,
			Entsize:   relSize,
		}
		if b.RelA {
			h.Type = uint32(elf.SHT_RELA)
			h.Entsize = relaSize
		}
		if b.NoRelInfo {
			h.Flags = 0
			h.Info = 0
		}
		headers = append(headers, h)
		bodies = append(bodies, body.Bytes())
	}

	if !b.NoSymtab {
		str := newStringTable()
		var body bytes.Buffer
		binary.Write(&body, binary.LittleEndian, elf.Sym32{})
		for _, s := range b.symbols {
			binary.Write(&body, binary.LittleEndian, elf.Sym32{
				Name:  str.add(s.Name),
				Value: s.Value,
				Size:  s.Size,
				Info:  elf.ST_INFO(s.Bind, s.Type),
				Shndx: uint16(s.Section),
			})
		}
		headers = append(headers, elf.Section32{
			Name:      shstr.add(".symtab"),
			Type:      uint32(elf.SHT_SYMTAB),
			Size:      uint32(body.Len()),
			Link:      uint32(strtabIndex),
			Info:      uint32(len(b.symbols) + 1),
			Addralign: 4,
			Entsize:   symSize,
		})
		bodies = append(bodies, body.Bytes())
		headers = append(headers, elf.Section32{
			Name:      shstr.add(".strtab"),
			Type:      uint32(elf.SHT_STRTAB),
			Size:      uint32(str.buf.Len()),
			Addralign: 1,
		})
		bodies = append(bodies, str.buf.Bytes())
	}

	shstrName := shstr.add(".shstrtab")
	headers = append(headers, elf.Section32{
		Name:      shstrName,
		Type:      uint32(elf.SHT_STRTAB),
		Size:      uint32(shstr.buf.Len()),
		Addralign: 1,
	})
	bodies = append(bodies, shstr.buf.Bytes())

	// Section contents follow the file header, each 4-byte aligned.
	var out bytes.Buffer
	out.Write(make([]byte, headerSize))
	for i := range headers {
		if i == 0 {
			continue
		}
		for out.Len()%4 != 0 {
			out.WriteByte(0)
		}
		headers[i].Off = uint32(out.Len())
		out.Write(bodies[i])
	}
	for out.Len()%4 != 0 {
		out.WriteByte(0)
	}
	shoff := uint32(out.Len())
	for _, h := range headers {
		binary.Write(&out, binary.LittleEndian, h)
	}

	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(b.Class)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var hdr bytes.Buffer
	binary.Write(&hdr, binary.LittleEndian, elf.Header32{
		Ident:     ident,
		Type:      uint16(b.Type),
		Machine:   uint16(b.Machine),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Ehsize:    headerSize,
		Shentsize: sectionSize,
		Shnum:     uint16(len(headers)),
		Shstrndx:  uint16(shstrIndex),
	})

	data := out.Bytes()
	copy(data, hdr.Bytes())
	return data
}
