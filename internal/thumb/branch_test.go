package thumb

import (
	"errors"
	"testing"
)

func TestEncodeLongBranch_Known(t *testing.T) {
	tests := []struct {
		name           string
		source, target uint32
		want           uint32
	}{
		{"forward", 0x101, 0x201, 0xF87CF000},
		{"backward", 0x201, 0x101, 0xFF7CF7FF},
		{"zero offset", 0x1, 0x8, 0xF800F000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeLongBranch(tt.source, tt.target)
			if err != nil {
				t.Fatalf("EncodeLongBranch() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EncodeLongBranch(0x%x, 0x%x) = 0x%08x, want 0x%08x", tt.source, tt.target, got, tt.want)
			}
		})
	}
}

func TestEncodeLongBranch_Deterministic(t *testing.T) {
	a, errA := EncodeLongBranch(0x08001235, 0x08004001)
	b, errB := EncodeLongBranch(0x08001235, 0x08004001)
	if errA != nil || errB != nil {
		t.Fatalf("EncodeLongBranch() errors = %v, %v", errA, errB)
	}
	if a != b {
		t.Errorf("EncodeLongBranch() not deterministic: 0x%08x != 0x%08x", a, b)
	}
}

func TestEncodeLongBranch_RoundTrip(t *testing.T) {
	pairs := []struct{ source, target uint32 }{
		{0x101, 0x201},
		{0x201, 0x101},
		{0x08000001, 0x08123457},
		{0x08123457, 0x08000001},
		{0x1001, 0x1001},
		{0x8001, 0x7FF001},
	}
	for _, p := range pairs {
		word, err := EncodeLongBranch(p.source, p.target)
		if err != nil {
			t.Fatalf("EncodeLongBranch(0x%x, 0x%x) error = %v", p.source, p.target, err)
		}
		got, ok := DecodeLongBranch(word)
		if !ok {
			t.Fatalf("DecodeLongBranch(0x%08x) not a BL", word)
		}
		want := int32(BranchOffset(p.source, p.target)) &^ 1
		if got != want {
			t.Errorf("decode(encode(0x%x, 0x%x)) = %d, want %d", p.source, p.target, got, want)
		}
	}
}

func TestEncodeLongBranch_RoundTripSweep(t *testing.T) {
	const (
		source = uint32(0x08400001)
		// Odd and not a multiple of 4, so both halfword and byte parity vary.
		stride = 0x1235
	)
	base := int64(source&^1) + pipelineAdjust
	for off := int64(-1 << 23); off < 1<<23; off += stride {
		target := uint32(base + off)
		word, err := EncodeLongBranch(source, target)
		if err != nil {
			t.Fatalf("EncodeLongBranch(0x%x, 0x%x) error = %v", source, target, err)
		}
		got, ok := DecodeLongBranch(word)
		if !ok {
			t.Fatalf("DecodeLongBranch(0x%08x) not a BL (offset %d)", word, off)
		}
		if want := int32(off) &^ 1; got != want {
			t.Fatalf("decode(encode(offset %d)) = %d, want %d", off, got, want)
		}
	}
}

func TestEncodeLongBranch_WideOffsetKeepsLow24Bits(t *testing.T) {
	// Offsets beyond 23 bits are accepted but only the low 24 bits are encoded.
	source := uint32(0x1)
	target := uint32(0x8 + 0xC00000)
	word, err := EncodeLongBranch(source, target)
	if err != nil {
		t.Fatalf("EncodeLongBranch() error = %v", err)
	}
	got, ok := DecodeLongBranch(word)
	if !ok {
		t.Fatal("DecodeLongBranch() not a BL")
	}
	low24 := uint32(0xC00000)
	want := int32(low24<<8) >> 8
	if got != want {
		t.Errorf("DecodeLongBranch() = %d, want %d", got, want)
	}
}

func TestEncodeLongBranch_Range(t *testing.T) {
	tests := []struct {
		name           string
		source, target uint32
		wantErr        bool
	}{
		{"max", 0x1, 0x8 + MaxBranchOffset, false},
		{"max+1", 0x1, 0x8 + MaxBranchOffset + 1, true},
		{"min", 0x01000009, 0x01000010 - 16_777_216, false},
		{"min-1", 0x01000009, 0x01000010 - 16_777_216 - 1, true},
		{"far", 0x08000001, 0x20000000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeLongBranch(tt.source, tt.target)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("EncodeLongBranch() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("EncodeLongBranch() error = %v, want ErrOutOfRange", err)
			}
			var re *RangeError
			if !errors.As(err, &re) {
				t.Fatalf("error should be *RangeError, got %T", err)
			}
			if re.Offset != BranchOffset(tt.source, tt.target) {
				t.Errorf("RangeError.Offset = %d, want %d", re.Offset, BranchOffset(tt.source, tt.target))
			}
		})
	}
}

func TestEncodeLongBranch_ARMMode(t *testing.T) {
	_, err := EncodeLongBranch(0x100, 0x200)
	if !errors.Is(err, ErrUnsupportedMode) {
		t.Fatalf("EncodeLongBranch() error = %v, want ErrUnsupportedMode", err)
	}
	if errors.Is(err, ErrOutOfRange) {
		t.Error("ARM mode failure must be distinct from a range failure")
	}

	// Mode is checked before range.
	_, err = EncodeLongBranch(0x100, 0x20000000)
	if !errors.Is(err, ErrUnsupportedMode) {
		t.Errorf("EncodeLongBranch() error = %v, want ErrUnsupportedMode", err)
	}
}

func TestDecodeLongBranch_NotBL(t *testing.T) {
	for _, word := range []uint32{0, 0xFFFFFFFF, PCRelativeLoadOpcode, 0x4770BF00} {
		if _, ok := DecodeLongBranch(word); ok {
			t.Errorf("DecodeLongBranch(0x%08x) should not decode", word)
		}
	}
}

func TestPCRelativeLoad(t *testing.T) {
	tests := []struct {
		offset uint32
		want   uint32
	}{
		{0x10, 0xF000F8DF},
		{0x11, 0xF001F8DF},
		{0x12, 0xF002F8DF},
		{0x13, 0xF003F8DF},
		{0x26, 0xF002F8DF},
	}
	for _, tt := range tests {
		if got := PCRelativeLoad(tt.offset); got != tt.want {
			t.Errorf("PCRelativeLoad(0x%x) = 0x%08x, want 0x%08x", tt.offset, got, tt.want)
		}
	}
}
