// Package hotpatch assembles patch-function descriptors into hotpatch
// records and serializes them as a blob.
//
// # Records
//
// Each record is a 16-byte little-endian header followed by the function's
// code:
//
//	u32 type            0 = replacement, 1 = redirect
//	u32 target address  firmware function address plus patch offset
//	u32 code length
//	u32 reserved        always 0
//	    code            code-length bytes
//
// Records are concatenated with no padding. The per-record call-relocation
// table is kept on Record for inspection but is not written to the blob.
//
// # Assembly
//
// A replacement record keeps the first 8 bytes of the patch code. A redirect
// record is patched in place, in order: resolved address relocations, the
// original-code snapshot, external calls, and branch-back trampolines.
// Writes outside the code buffer fail the function rather than growing it.
//
// Failures are per function. Generate skips a function that cannot be
// assembled and keeps going; Options.Strict turns any skip into a
// *PartialError.
package hotpatch
