package hotpatch

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/hpgen/internal/analyzer"
	"github.com/muurk/hpgen/internal/logging"
	"github.com/muurk/hpgen/internal/thumb"
)

// replacementSize is the number of bytes a replacement patch overwrites.
const replacementSize = 8

// Options control generation policy.
type Options struct {
	// Strict fails generation when any patch function is skipped.
	Strict bool
	// MaxCodeSize rejects records with more code bytes. 0 means unlimited.
	MaxCodeSize int
}

// DefaultOptions returns lenient options: partial blobs are emitted and code
// size is unlimited.
func DefaultOptions() Options {
	return Options{}
}

// Result is the outcome of a generation run.
type Result struct {
	Blob     []byte
	Records  []*Record
	Warnings []Warning
	// Skipped holds one error per function that produced no record.
	Skipped []error
}

// Generator assembles hotpatch records from patch-function descriptors.
type Generator struct {
	options Options
}

// NewGenerator creates a Generator with the given options.
func NewGenerator(options Options) *Generator {
	return &Generator{options: options}
}

// GenerateFrom assembles every descriptor of an analysis. Functions the
// analyzer already skipped count as skipped here too.
func (g *Generator) GenerateFrom(res *analyzer.Result) (*Result, error) {
	var skipped []error
	for _, fe := range res.Failures {
		skipped = append(skipped, fe)
	}
	return g.generate(res.Descriptors, skipped)
}

// Generate assembles one record per descriptor, in order, and concatenates
// them into a blob. A function that fails to assemble is logged and skipped.
//
// The Result is returned alongside ErrNoRecords and *PartialError so callers
// can report what was skipped.
func (g *Generator) Generate(descriptors []*analyzer.Descriptor) (*Result, error) {
	return g.generate(descriptors, nil)
}

func (g *Generator) generate(descriptors []*analyzer.Descriptor, skipped []error) (*Result, error) {
	res := &Result{Skipped: skipped}

	for _, d := range descriptors {
		rec, warnings, err := g.assemble(d)
		for _, w := range warnings {
			logging.LogWarning(w.Function, w.Kind.String(), w.Symbol, w.Message)
		}
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			logging.Warn("Skipping patch function",
				zap.String("function", d.Name),
				zap.Error(err),
			)
			res.Skipped = append(res.Skipped, err)
			continue
		}

		logging.LogRecord(rec.Function, rec.Type.String(), rec.TargetAddress, len(rec.Code), rec.ReturnOffset)
		logging.LogRawBytes("Record code", rec.Code)

		res.Blob, _ = rec.AppendBinary(res.Blob)
		res.Records = append(res.Records, rec)
	}

	if len(res.Records) == 0 {
		return res, ErrNoRecords
	}
	if g.options.Strict && len(res.Skipped) > 0 {
		return res, &PartialError{Emitted: len(res.Records), Skipped: res.Skipped}
	}
	return res, nil
}

// assemble builds the record for one descriptor. The descriptor is not
// modified.
func (g *Generator) assemble(d *analyzer.Descriptor) (*Record, []Warning, error) {
	if !d.Classified() {
		return nil, nil, &AssemblyError{Function: d.Name, Err: fmt.Errorf("type %q: %w", d.Tag, ErrUnclassifiedType)}
	}

	a := &assembly{
		d:    d,
		code: append([]byte(nil), d.Code...),
	}

	var err error
	switch *d.Kind {
	case analyzer.Replacement:
		err = a.replacement()
	case analyzer.Redirect:
		err = a.redirect()
	}
	if err != nil {
		return nil, a.warnings, err
	}

	if g.options.MaxCodeSize > 0 && len(a.code) > g.options.MaxCodeSize {
		return nil, a.warnings, &AssemblyError{
			Function: d.Name,
			Err:      fmt.Errorf("%d bytes, limit %d: %w", len(a.code), g.options.MaxCodeSize, ErrCodeTooLarge),
		}
	}

	return &Record{
		Type:            *d.Kind,
		TargetAddress:   d.TargetAddress(),
		Code:            a.code,
		Function:        d.Name,
		ReturnOffset:    d.ReturnOffsetOr(0),
		CallRelocations: a.calls,
	}, a.warnings, nil
}

// assembly owns the code buffer of one function while it is patched.
type assembly struct {
	d        *analyzer.Descriptor
	code     []byte
	calls    []CallRelocation
	warnings []Warning
}

func (a *assembly) warn(kind WarningKind, symbol, msg string) {
	a.warnings = append(a.warnings, Warning{
		Function: a.d.Name,
		Kind:     kind,
		Symbol:   symbol,
		Message:  msg,
	})
}

// write copies data into the code buffer at offset.
func (a *assembly) write(step string, offset uint32, data []byte) error {
	if uint64(offset)+uint64(len(data)) > uint64(len(a.code)) {
		return &AssemblyError{
			Function: a.d.Name,
			Step:     step,
			Offset:   offset,
			Err:      fmt.Errorf("%d bytes into %d-byte buffer: %w", len(data), len(a.code), ErrWriteOutOfBounds),
		}
	}
	copy(a.code[offset:], data)
	return nil
}

func (a *assembly) writeU32(step string, offset, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return a.write(step, offset, b[:])
}

func (a *assembly) replacement() error {
	if len(a.code) < replacementSize {
		return &AssemblyError{
			Function: a.d.Name,
			Err:      fmt.Errorf("%d bytes: %w", len(a.code), ErrShortReplacement),
		}
	}
	a.code = a.code[:replacementSize]
	return nil
}

// redirect applies the substitutions in order: addresses, original code,
// external calls, call table, branch-back trampolines.
func (a *assembly) redirect() error {
	steps := []func() error{
		a.substituteAddresses,
		a.substituteOriginalCode,
		a.patchCalls,
		a.buildCallTable,
		a.patchBranchBack,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembly) substituteAddresses() error {
	for _, ref := range a.d.AddressRelocations {
		if !ref.Resolved {
			a.warn(UnresolvedRelocation, ref.Name, "address relocation has no firmware symbol")
			continue
		}
		if err := a.writeU32("address relocation", ref.Offset(), ref.Address); err != nil {
			return err
		}
		logging.Debug("Address relocation",
			zap.String("function", a.d.Name),
			zap.String("symbol", ref.Name),
			logging.Hex("address", ref.Address),
			logging.Hex("offset", ref.Offset()),
		)
	}
	return nil
}

func (a *assembly) substituteOriginalCode() error {
	m := a.d.OriginalCodeMarker
	if m == nil {
		return nil
	}
	if err := a.write("original code", m.Value, a.d.OriginalCode); err != nil {
		return err
	}
	logging.Debug("Original code",
		zap.String("function", a.d.Name),
		logging.Hex("offset", m.Value),
		zap.String("bytes", logging.HexDump(a.d.OriginalCode)),
	)
	return nil
}

func (a *assembly) patchCalls() error {
	markers := make([]uint32, len(a.d.ExternalCallMarkers))
	for i, m := range a.d.ExternalCallMarkers {
		markers[i] = m.Value
	}

	b := newCallBuilder(markers)
	for _, ref := range a.d.CallRelocations {
		if !ref.Resolved {
			logging.Debug("Local call relocation",
				zap.String("function", a.d.Name),
				zap.String("symbol", ref.Name),
				logging.Hex("offset", ref.Offset()),
			)
			continue
		}
		b.add(ref.Name, ref.Address, ref.Offset())
	}

	for _, e := range b.build() {
		if !e.complete() {
			a.warn(IncompleteCallEntry, e.name, "call entry missing "+e.missing())
			continue
		}
		if err := a.patchCall(e); err != nil {
			return err
		}
	}
	return nil
}

// patchCall writes the BL at the local site, the PC-relative load before the
// external site and the firmware address at the external site.
func (a *assembly) patchCall(e *callEntry) error {
	local, external := *e.local, *e.external

	bl, err := thumb.EncodeLongBranch(local|1, external|1)
	if err != nil {
		return &AssemblyError{Function: a.d.Name, Step: "call " + e.name, Offset: local, Err: err}
	}
	if external < 4 {
		return &AssemblyError{
			Function: a.d.Name,
			Step:     "call " + e.name,
			Offset:   external,
			Err:      fmt.Errorf("no room for load before external site: %w", ErrWriteOutOfBounds),
		}
	}

	if err := a.writeU32("call branch", local, bl); err != nil {
		return err
	}
	if err := a.writeU32("call load", external-4, thumb.PCRelativeLoad(external)); err != nil {
		return err
	}
	if err := a.writeU32("call address", external, e.address); err != nil {
		return err
	}

	logging.Debug("Patched call",
		zap.String("function", a.d.Name),
		zap.String("symbol", e.name),
		logging.Hex("address", e.address),
		logging.Hex("local", local),
		logging.Hex("external", external),
	)
	return nil
}

func (a *assembly) buildCallTable() error {
	for _, ref := range a.d.CallRelocations {
		if !ref.Resolved {
			continue
		}
		a.calls = append(a.calls, CallRelocation{Offset: ref.Offset(), Address: ref.Address})
	}
	return nil
}

func (a *assembly) patchBranchBack() error {
	if len(a.d.BranchBackMarkers) == 0 {
		return nil
	}
	if a.d.ReturnOffset == nil {
		return &AssemblyError{Function: a.d.Name, Step: "branch back", Err: ErrMissingReturnOffset}
	}

	ret := (a.d.TargetAddress() + *a.d.ReturnOffset) | 1
	for _, m := range a.d.BranchBackMarkers {
		var b [8]byte
		binary.LittleEndian.PutUint32(b[0:], thumb.PCRelativeLoad(m.Value))
		binary.LittleEndian.PutUint32(b[4:], ret)
		if err := a.write("branch back", m.Value, b[:]); err != nil {
			return err
		}
		logging.Debug("Branch back to original",
			zap.String("function", a.d.Name),
			zap.String("marker", m.Name),
			logging.Hex("offset", m.Value),
			logging.Hex("return_address", ret),
		)
	}
	return nil
}
