package config

import (
	"github.com/muurk/hpgen/internal/analyzer"
	"github.com/muurk/hpgen/internal/hotpatch"
)

// CurrentVersion is the only profile version this build understands.
const CurrentVersion = 1

// Profile is a generation profile: the marker names a patch toolchain emits
// and the policy applied when assembling records.
type Profile struct {
	Version     int          `yaml:"version"`
	MarkerNames *MarkerNames `yaml:"markers,omitempty"`
	Generation  *Generation  `yaml:"generation,omitempty"`
}

// MarkerNames overrides the reserved names used to tag patch sections and
// symbols. Empty fields keep the built-in names.
type MarkerNames struct {
	FunctionPrefix string `yaml:"function_prefix,omitempty"` // e.g. ".text.hotpatch_function"
	AddressSection string `yaml:"address_section,omitempty"` // e.g. ".hotpatch_address_"
	BranchToOrig   string `yaml:"branch_to_orig,omitempty"`
	ExternalCall   string `yaml:"external_call,omitempty"`
	OriginalCode   string `yaml:"original_code,omitempty"`
	ReturnFail     string `yaml:"return_fail,omitempty"`
}

// Generation holds assembly policy.
type Generation struct {
	Strict      bool `yaml:"strict"`        // fail when any function is skipped
	MaxCodeSize int  `yaml:"max_code_size"` // device slot capacity in bytes, 0 = unlimited
}

// NewProfile creates a Profile with default values.
func NewProfile() *Profile {
	d := analyzer.DefaultMarkers()
	return &Profile{
		Version:     CurrentVersion,
		MarkerNames: &MarkerNames{
			FunctionPrefix: d.FunctionPrefix,
			AddressSection: d.AddressSection,
			BranchToOrig:   d.BranchToOrig,
			ExternalCall:   d.ExternalCall,
			OriginalCode:   d.OriginalCode,
			ReturnFail:     d.ReturnFail,
		},
		Generation: &Generation{},
	}
}

// Validate checks the profile for values the generator cannot use.
func (p *Profile) Validate() error {
	if p.Version != CurrentVersion {
		return &ValidationError{
			Field:   "version",
			Message: "unsupported profile version",
			Value:   p.Version,
		}
	}
	if p.Generation != nil && p.Generation.MaxCodeSize < 0 {
		return &ValidationError{
			Field:   "generation.max_code_size",
			Message: "must not be negative",
			Value:   p.Generation.MaxCodeSize,
		}
	}
	if p.Generation != nil && p.Generation.MaxCodeSize > 0 && p.Generation.MaxCodeSize < 8 {
		return &ValidationError{
			Field:   "generation.max_code_size",
			Message: "smaller than a replacement record",
			Value:   p.Generation.MaxCodeSize,
		}
	}
	return nil
}

// Markers returns the analyzer markers, falling back to the built-in names
// for anything the profile leaves empty.
func (p *Profile) Markers() analyzer.Markers {
	d := analyzer.DefaultMarkers()
	if p.MarkerNames == nil {
		return d
	}
	m := p.MarkerNames
	return analyzer.Markers{
		FunctionPrefix: orDefault(m.FunctionPrefix, d.FunctionPrefix),
		AddressSection: orDefault(m.AddressSection, d.AddressSection),
		BranchToOrig:   orDefault(m.BranchToOrig, d.BranchToOrig),
		ExternalCall:   orDefault(m.ExternalCall, d.ExternalCall),
		OriginalCode:   orDefault(m.OriginalCode, d.OriginalCode),
		ReturnFail:     orDefault(m.ReturnFail, d.ReturnFail),
	}
}

// Options returns the generator options described by the profile.
func (p *Profile) Options() hotpatch.Options {
	opts := hotpatch.DefaultOptions()
	if p.Generation != nil {
		opts.Strict = p.Generation.Strict
		opts.MaxCodeSize = p.Generation.MaxCodeSize
	}
	return opts
}

// Effective returns a copy of the profile with every default filled in.
func (p *Profile) Effective() *Profile {
	m := p.Markers()
	opts := p.Options()
	return &Profile{
		Version:     p.Version,
		MarkerNames: &MarkerNames{
			FunctionPrefix: m.FunctionPrefix,
			AddressSection: m.AddressSection,
			BranchToOrig:   m.BranchToOrig,
			ExternalCall:   m.ExternalCall,
			OriginalCode:   m.OriginalCode,
			ReturnFail:     m.ReturnFail,
		},
		Generation: &Generation{
			Strict:      opts.Strict,
			MaxCodeSize: opts.MaxCodeSize,
		},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
