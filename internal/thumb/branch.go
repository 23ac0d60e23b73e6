// Package thumb encodes the two Thumb-2 instruction forms a hotpatch needs:
// the 32-bit long branch (BL) used to redirect a call site to its literal
// pool trampoline, and the PC-relative load that jumps through that pool.
//
// Encoding T1 of BL, as laid out by the device runtime:
//
//	first halfword:  1 1 1 1 0 S imm10
//	second halfword: 1 1 J1 J2 1 imm11
//
//	J1 = NOT(I1) EOR S
//	J2 = NOT(I2) EOR S
//
// The branch offset is computed from the source address with its Thumb bit
// cleared plus the 8-byte pipeline adjustment used by the runtime, masked to
// 24 bits, with S = bit 23, I1 = bit 22, I2 = bit 21, imm10 = bits 21..12 and
// imm11 = bits 11..1. The encoded word holds the second halfword in the high
// 16 bits so that writing it little-endian emits the first halfword first.
package thumb

import "fmt"

const (
	// MinBranchOffset is the most negative encodable branch offset.
	MinBranchOffset = -16_777_216
	// MaxBranchOffset is the most positive encodable branch offset.
	MaxBranchOffset = 16_777_214

	// pipelineAdjust is added to the source address before computing the
	// branch offset.
	pipelineAdjust = 8

	blFirstOpcode  = 0b11110 << 11
	blSecondOpcode = 0b11<<14 | 1<<11

	// PCRelativeLoadOpcode is LDR.W PC, [PC, #0] in halfword-swapped form.
	PCRelativeLoadOpcode = 0xF000F8DF
)

// BranchOffset returns the pipeline-adjusted offset a long branch from
// source to target must encode. It does not check the range.
func BranchOffset(source, target uint32) int64 {
	return int64(target) - (int64(source&^1) + pipelineAdjust)
}

// EncodeLongBranch encodes a BL from source to target. source must carry the
// Thumb bit; ARM-mode sources fail with ErrUnsupportedMode.
func EncodeLongBranch(source, target uint32) (uint32, error) {
	if source&1 == 0 {
		return 0, fmt.Errorf("source 0x%08x: %w", source, ErrUnsupportedMode)
	}

	offset := BranchOffset(source, target)
	if offset < MinBranchOffset || offset > MaxBranchOffset {
		return 0, &RangeError{Source: source, Target: target, Offset: offset}
	}

	off := uint32(offset) & 0xFFFFFF
	s := (off >> 23) & 1
	i1 := (off >> 22) & 1
	i2 := (off >> 21) & 1
	j1 := (^i1 ^ s) & 1
	j2 := (^i2 ^ s) & 1
	imm10 := (off >> 12) & 0x3FF
	imm11 := (off >> 1) & 0x7FF

	first := uint32(blFirstOpcode) | s<<10 | imm10
	second := uint32(blSecondOpcode) | j1<<13 | j2<<12 | imm11
	return second<<16 | first, nil
}

// DecodeLongBranch recovers the 24-bit branch offset from an encoded BL.
// ok is false when word does not carry the BL opcode bits.
func DecodeLongBranch(word uint32) (offset int32, ok bool) {
	first := word & 0xFFFF
	second := word >> 16
	if first&0xF800 != blFirstOpcode || second&0xC800 != blSecondOpcode {
		return 0, false
	}

	s := (first >> 10) & 1
	imm10 := first & 0x3FF
	j1 := (second >> 13) & 1
	j2 := (second >> 12) & 1
	imm11 := second & 0x7FF
	i1 := (^(j1 ^ s)) & 1
	i2 := (^(j2 ^ s)) & 1

	off := s<<23 | i1<<22 | i2<<21 | imm10<<12 | imm11<<1
	// imm10 bit 9 and I2 both hold bit 21; they must agree.
	if (imm10>>9)&1 != i2 {
		return 0, false
	}
	return int32(off<<8) >> 8, true
}

// PCRelativeLoad returns the LDR.W PC opcode for a literal placed at offset.
// The low two bits of offset select the alignment correction.
func PCRelativeLoad(offset uint32) uint32 {
	return PCRelativeLoadOpcode | (offset&0b11)<<16
}
