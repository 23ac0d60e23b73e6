// Package image provides read-only introspection of executable images.
//
// A hotpatch is generated from two images: the relocatable patch object
// that holds the patch functions and the linked firmware executable that is
// currently running on the device. Both are opened through the Reader
// interface so the analyzer and assembler never depend on a concrete binary
// format. ELFFile is the implementation for 32-bit little-endian ARM ELF.
//
// # Sections, Symbols and Relocations
//
// Sections and symbols are parsed once at open time and exposed as plain
// values with stable indices:
//
//	img, err := image.Open("patch.o")
//	if err != nil {
//	    return err
//	}
//	defer img.Close()
//
//	for _, s := range img.ExecutableSectionsWithPrefix(".text.hotpatch_function") {
//	    code, _ := img.SectionData(s)
//	    relocs := img.Relocations().ForSection(s.Name)
//	}
//
// Relocation entries are grouped by the short name of the code section they
// patch (the section name without its ".text." prefix) in a RelocationIndex
// that is built eagerly on open.
//
// # Reads
//
// All byte reads go through io.ReaderAt with explicit offsets. There is no
// shared read cursor, so reads are safe from any number of call sites.
// Probing an address outside a section is normal use and reports absence
// instead of failing.
package image
