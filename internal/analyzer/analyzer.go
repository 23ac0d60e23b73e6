package analyzer

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/hpgen/internal/image"
	"github.com/muurk/hpgen/internal/logging"
)

// snapshotSize is the number of firmware bytes captured at the patch site.
const snapshotSize = 8

// Relocation classes, as logged.
const (
	ClassAddress = "address"
	ClassData    = "data"
	ClassCall    = "call"
)

// Analyzer extracts patch-function descriptors from a patch object.
type Analyzer struct {
	patch    image.Reader
	firmware image.Reader
	markers  Markers
}

// Result is the outcome of analyzing a patch object.
type Result struct {
	// Descriptors are in section discovery order.
	Descriptors []*Descriptor
	// Failures lists the functions that were skipped.
	Failures []*FunctionError
}

// New creates an Analyzer. Empty marker fields take their default values.
func New(patch, firmware image.Reader, markers Markers) *Analyzer {
	return &Analyzer{
		patch:    patch,
		firmware: firmware,
		markers:  markers.withDefaults(),
	}
}

// Markers returns the markers in effect.
func (a *Analyzer) Markers() Markers {
	return a.markers
}

// Sections returns the patch-function sections in discovery order.
func (a *Analyzer) Sections() []image.Section {
	return a.patch.ExecutableSectionsWithPrefix(a.markers.FunctionPrefix)
}

// Analyze builds a descriptor for every patch-function section. Functions
// that cannot be resolved are reported in Result.Failures and skipped. It
// returns ErrNoPatchFunctions when the object has no patch-function
// sections.
func (a *Analyzer) Analyze() (*Result, error) {
	sections := a.Sections()
	if len(sections) == 0 {
		return nil, fmt.Errorf("%s: %w", a.patch.Path(), ErrNoPatchFunctions)
	}

	res := &Result{}
	for _, s := range sections {
		d, err := a.AnalyzeSection(s)
		if err != nil {
			var fe *FunctionError
			if !errors.As(err, &fe) {
				fe = &FunctionError{Section: s.Name, Err: err}
			}
			logging.Warn("Skipping patch function",
				zap.String("section", s.Name),
				zap.String("function", fe.Function),
				zap.Stringer("reason", fe.Kind),
				zap.Error(fe.Err),
			)
			res.Failures = append(res.Failures, fe)
			continue
		}
		res.Descriptors = append(res.Descriptors, d)
	}
	return res, nil
}

// AnalyzeSection builds the descriptor for one patch-function section.
// Failures are returned as *FunctionError.
func (a *Analyzer) AnalyzeSection(s image.Section) (*Descriptor, error) {
	h, err := ParseHeader(s.Name)
	if err != nil {
		return nil, &FunctionError{Section: s.Name, Kind: MalformedHeader, Err: err}
	}
	logging.LogSection(s.Name, image.DisplayName(h.Name), s.Size)

	sym, ok := a.firmware.SymbolByName(h.Name)
	if !ok {
		return nil, &FunctionError{
			Section:  s.Name,
			Function: h.Name,
			Kind:     MissingSymbol,
			Err:      fmt.Errorf("no symbol %q in %s", h.Name, a.firmware.Path()),
		}
	}

	d := &Descriptor{
		Header:          h,
		Section:         s,
		FunctionAddress: sym.Value &^ 1,
	}

	a.classifyRelocations(d)
	a.findMarkers(d)

	if err := a.snapshot(d); err != nil {
		return nil, err
	}

	d.Code, err = a.patch.SectionData(s)
	if err != nil {
		return nil, &FunctionError{Section: s.Name, Function: h.Name, Kind: MissingSection, Err: err}
	}

	d.ReturnFail = a.returnFail(s)
	if d.ReturnFail != nil {
		logging.Debug("Return-fail relocation",
			zap.String("function", h.Name),
			logging.Hex("offset", d.ReturnFail.Offset),
		)
	}

	logging.Debug("Analyzed patch function",
		zap.String("function", h.Name),
		zap.String("type", h.Tag),
		logging.Hex("function_address", d.FunctionAddress),
		logging.Hex("target_address", d.TargetAddress()),
		zap.Int("code_length", len(d.Code)),
		zap.Int("address_relocations", len(d.AddressRelocations)),
		zap.Int("data_relocations", len(d.DataRelocations)),
		zap.Int("call_relocations", len(d.CallRelocations)),
		zap.Int("unresolved", len(d.Unresolved())),
	)
	return d, nil
}

// classifyRelocations sorts the relocations patching d.Section into
// address, data and call references and resolves names against firmware.
func (a *Analyzer) classifyRelocations(d *Descriptor) {
	for _, r := range a.patch.Relocations().ForSection(d.Section.Name) {
		owner := r.SymbolSection
		switch {
		case owner != nil && strings.Contains(owner.Name, a.markers.AddressSection):
			i := strings.LastIndex(owner.Name, a.markers.AddressSection)
			ref := a.resolve(owner.Name[i+len(a.markers.AddressSection):], r)
			logging.LogRelocation(ClassAddress, ref.Name, r.Offset, ref.Address, ref.Resolved)
			d.AddressRelocations = append(d.AddressRelocations, ref)

		case owner != nil && owner.IsReadOnlyData():
			data, err := a.patch.SectionData(*owner)
			if err != nil {
				logging.Warn("Unreadable rodata section",
					zap.String("section", owner.Name),
					zap.Error(err),
				)
			}
			logging.LogRelocation(ClassData, owner.Name, r.Offset, 0, false)
			d.DataRelocations = append(d.DataRelocations, DataReference{
				Relocation: r,
				Section:    owner.Name,
				Data:       data,
			})

		case (owner != nil && owner.IsCode()) || r.Symbol.Name != "":
			ref := a.resolve(r.Name(), r)
			logging.LogRelocation(ClassCall, ref.Name, r.Offset, ref.Address, ref.Resolved)
			d.CallRelocations = append(d.CallRelocations, ref)

		default:
			logging.Debug("Unclassified relocation",
				zap.String("function", d.Name),
				zap.String("symbol", r.Name()),
				logging.Hex("offset", r.Offset),
			)
			d.Unclassified = append(d.Unclassified, r)
		}
	}
}

func (a *Analyzer) resolve(name string, r image.Relocation) Reference {
	ref := Reference{Name: name, Relocation: r}
	if sym, ok := a.firmware.SymbolByName(name); ok {
		ref.Address = sym.Value
		ref.Resolved = true
	}
	return ref
}

// findMarkers collects the marker symbols defined in d.Section.
func (a *Analyzer) findMarkers(d *Descriptor) {
	for _, sym := range a.patch.SymbolsWithPrefix(a.markers.BranchToOrig) {
		if sym.Section == d.Section.Index {
			d.BranchBackMarkers = append(d.BranchBackMarkers, sym)
		}
	}
	for _, sym := range a.patch.SymbolsWithPrefix(a.markers.ExternalCall) {
		if sym.Section == d.Section.Index {
			d.ExternalCallMarkers = append(d.ExternalCallMarkers, sym)
		}
	}
	for _, sym := range a.patch.SymbolsInSection(d.Section.Index) {
		if strings.Contains(sym.Name, a.markers.OriginalCode) {
			marker := sym
			d.OriginalCodeMarker = &marker
			break
		}
	}
}

// snapshot reads the firmware bytes at the patch site.
func (a *Analyzer) snapshot(d *Descriptor) error {
	addr := d.TargetAddress()
	fs, ok := a.firmware.SectionContaining(addr)
	if !ok {
		return &FunctionError{
			Section:  d.Section.Name,
			Function: d.Name,
			Kind:     UnreadableOriginalCode,
			Err:      fmt.Errorf("no firmware section contains 0x%08x", addr),
		}
	}
	data, ok := a.firmware.ReadFromSection(fs, addr, snapshotSize)
	if !ok || len(data) < snapshotSize {
		return &FunctionError{
			Section:  d.Section.Name,
			Function: d.Name,
			Kind:     UnreadableOriginalCode,
			Err:      fmt.Errorf("short read of %d bytes at 0x%08x in %s", len(data), addr, fs.Name),
		}
	}
	d.OriginalCode = data
	logging.LogRawBytes("Original code", data)
	return nil
}

// returnFail finds the return-fail relocation patching s, if any.
func (a *Analyzer) returnFail(s image.Section) *image.Relocation {
	for _, r := range a.patch.Relocations().ForSection(s.Name) {
		match := strings.Contains(r.Symbol.Name, a.markers.ReturnFail) ||
			(r.SymbolSection != nil && strings.Contains(r.SymbolSection.Name, a.markers.ReturnFail))
		if match {
			rel := r
			return &rel
		}
	}
	return nil
}
