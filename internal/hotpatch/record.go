package hotpatch

import (
	"encoding/binary"
	"fmt"

	"github.com/muurk/hpgen/internal/analyzer"
)

// HeaderSize is the size of the fixed record header.
const HeaderSize = 16

// CallRelocation is one entry of a record's call-relocation table.
type CallRelocation struct {
	Offset  uint32
	Address uint32
}

// Record is one assembled patch unit.
type Record struct {
	Type          analyzer.Kind
	TargetAddress uint32
	Code          []byte
	Reserved      uint32

	// The fields below are not part of the wire format.

	Function        string
	ReturnOffset    uint32
	CallRelocations []CallRelocation
}

// Size returns the encoded size of the record.
func (r *Record) Size() int {
	return HeaderSize + len(r.Code)
}

// AppendBinary appends the encoded record to b.
func (r *Record) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, uint32(r.Type))
	b = binary.LittleEndian.AppendUint32(b, r.TargetAddress)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(r.Code)))
	b = binary.LittleEndian.AppendUint32(b, r.Reserved)
	return append(b, r.Code...), nil
}

// MarshalBinary encodes the record header followed by its code.
func (r *Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, r.Size()))
}

// CallTable encodes the call-relocation table as (offset, address) pairs of
// little-endian u32. The table is not part of the emitted record.
func (r *Record) CallTable() []byte {
	b := make([]byte, 0, 8*len(r.CallRelocations))
	for _, c := range r.CallRelocations {
		b = binary.LittleEndian.AppendUint32(b, c.Offset)
		b = binary.LittleEndian.AppendUint32(b, c.Address)
	}
	return b
}

// ParseBlob decodes a concatenation of records.
func ParseBlob(data []byte) ([]Record, error) {
	var records []Record
	for off := 0; off < len(data); {
		if len(data)-off < HeaderSize {
			return records, fmt.Errorf("record %d at offset %d: header needs %d bytes, have %d: %w",
				len(records), off, HeaderSize, len(data)-off, ErrTruncatedBlob)
		}
		h := data[off : off+HeaderSize]
		r := Record{
			Type:          analyzer.Kind(binary.LittleEndian.Uint32(h[0:])),
			TargetAddress: binary.LittleEndian.Uint32(h[4:]),
			Reserved:      binary.LittleEndian.Uint32(h[12:]),
		}
		n := int(binary.LittleEndian.Uint32(h[8:]))
		off += HeaderSize
		if n > len(data)-off {
			return records, fmt.Errorf("record %d at offset %d: code needs %d bytes, have %d: %w",
				len(records), off-HeaderSize, n, len(data)-off, ErrTruncatedBlob)
		}
		r.Code = append([]byte(nil), data[off:off+n]...)
		off += n
		records = append(records, r)
	}
	return records, nil
}
