package analyzer

import (
	"github.com/muurk/hpgen/internal/image"
)

// Markers are the reserved names a patch object uses to tag sections,
// symbols and relocations.
type Markers struct {
	// FunctionPrefix selects patch-function code sections.
	FunctionPrefix string
	// AddressSection marks sections standing in for firmware symbol
	// addresses; the firmware symbol name follows the marker.
	AddressSection string
	// BranchToOrig prefixes symbols where a trampoline back into the
	// original function is written.
	BranchToOrig string
	// ExternalCall prefixes symbols that open the external call area.
	ExternalCall string
	// OriginalCode is contained in the symbol where the firmware snapshot
	// is written.
	OriginalCode string
	// ReturnFail names the relocation used to signal a failed return.
	ReturnFail string
}

// DefaultMarkers returns the marker names emitted by the patch build macros.
func DefaultMarkers() Markers {
	return Markers{
		FunctionPrefix: ".text.hotpatch_function",
		AddressSection: ".hotpatch_address_",
		BranchToOrig:   "hotpatch_branch_to_orig",
		ExternalCall:   "hotpatch_external_function_call",
		OriginalCode:   "hotpatch_original_code",
		ReturnFail:     "hotpatch_address_return_fail",
	}
}

// withDefaults fills empty fields from DefaultMarkers.
func (m Markers) withDefaults() Markers {
	d := DefaultMarkers()
	if m.FunctionPrefix == "" {
		m.FunctionPrefix = d.FunctionPrefix
	}
	if m.AddressSection == "" {
		m.AddressSection = d.AddressSection
	}
	if m.BranchToOrig == "" {
		m.BranchToOrig = d.BranchToOrig
	}
	if m.ExternalCall == "" {
		m.ExternalCall = d.ExternalCall
	}
	if m.OriginalCode == "" {
		m.OriginalCode = d.OriginalCode
	}
	if m.ReturnFail == "" {
		m.ReturnFail = d.ReturnFail
	}
	return m
}

// Reference is an address or call relocation together with its firmware
// resolution.
type Reference struct {
	// Name is the firmware symbol the relocation refers to.
	Name       string
	Relocation image.Relocation
	// Address is the firmware symbol value; only set when Resolved.
	Address  uint32
	Resolved bool
}

// Offset returns the relocation offset inside the patch code.
func (r Reference) Offset() uint32 {
	return r.Relocation.Offset
}

// DataReference is a relocation against read-only data in the patch object.
type DataReference struct {
	Relocation image.Relocation
	Section    string
	Data       []byte
}

// Descriptor is everything the assembler needs to build one record.
type Descriptor struct {
	Header

	Section         image.Section
	FunctionAddress uint32 // Thumb bit cleared
	Code            []byte

	AddressRelocations []Reference
	DataRelocations    []DataReference
	CallRelocations    []Reference
	// Unclassified holds relocations that matched no class.
	Unclassified []image.Relocation

	BranchBackMarkers   []image.Symbol
	ExternalCallMarkers []image.Symbol
	OriginalCodeMarker  *image.Symbol
	// OriginalCode is the 8-byte firmware snapshot at TargetAddress.
	OriginalCode []byte
	ReturnFail   *image.Relocation
}

// TargetAddress returns the patched firmware address.
func (d *Descriptor) TargetAddress() uint32 {
	return d.FunctionAddress + d.PatchOffset()
}

// Resolved returns the address and call references found in firmware, in
// that order.
func (d *Descriptor) Resolved() []Reference {
	return d.filter(true)
}

// Unresolved returns the address and call references with no firmware
// symbol. Local call targets legitimately end up here.
func (d *Descriptor) Unresolved() []Reference {
	return d.filter(false)
}

func (d *Descriptor) filter(resolved bool) []Reference {
	var out []Reference
	for _, r := range d.AddressRelocations {
		if r.Resolved == resolved {
			out = append(out, r)
		}
	}
	for _, r := range d.CallRelocations {
		if r.Resolved == resolved {
			out = append(out, r)
		}
	}
	return out
}
