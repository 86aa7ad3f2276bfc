package dwarf

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

// AddrTable resolves DW_FORM_addrx* indices against a unit's
// .debug_addr base (DW_AT_addr_base), and StrOffsetsTable resolves
// DW_FORM_strx* indices against DW_AT_str_offsets_base, per DWARF5
// sections 7.27 and 7.26.
//
// Both tables are organized the same way on disk: an optional header
// (DWARF5 units; GNU DebugFission producers sometimes omit it) followed
// by a flat array of address-sized or offset-sized entries. The base
// attribute points past the header, directly at index 0.
type AddrTable struct {
	data       []byte
	addrSize   int
	order      binary.ByteOrder
	base       int
	hasBase    bool
}

// NewAddrTable builds a resolver over .debug_addr. base is the unit's
// DW_AT_addr_base value if present (hasBase == true); when absent,
// AddrAt does not guess a base: it returns the index unresolved with
// available == false, matching DESIGN.md's Open Question decision for an
// absent base.
func NewAddrTable(debugAddr []byte, addrSize int, order binary.ByteOrder, base int, hasBase bool) *AddrTable {
	return &AddrTable{data: debugAddr, addrSize: addrSize, order: order, base: base, hasBase: hasBase}
}

// AddrAt resolves index (from a DW_FORM_addrx* value) to the address it
// names. When the unit carries no DW_AT_addr_base, this is not an error:
// it reports available == false and returns index back unresolved, per
// SPEC_FULL.md section 9's soft-fail decision for a missing base — the
// caller decides whether an unresolved index is fatal in its context.
func (t *AddrTable) AddrAt(index uint64) (addr uint64, available bool, err error) {
	if !t.hasBase {
		return index, false, nil
	}
	off := t.base + int(index)*t.addrSize
	if off < 0 || off+t.addrSize > len(t.data) {
		return 0, false, errs.New(errs.AddrIndexOutOfRange, "dwarf: address index %d (offset %#x) out of range of .debug_addr", index, off)
	}
	switch t.addrSize {
	case 4:
		return uint64(t.order.Uint32(t.data[off:])), true, nil
	case 8:
		return t.order.Uint64(t.data[off:]), true, nil
	default:
		return 0, false, errs.New(errs.OffsetSize, "dwarf: unsupported address size %d in .debug_addr", t.addrSize)
	}
}

// StrOffsetsTable resolves DW_FORM_strx* indices to byte offsets within
// .debug_str, by way of the flat index->offset array in
// .debug_str_offsets.
type StrOffsetsTable struct {
	offsets  []byte
	debugStr []byte
	offSize  int
	order    binary.ByteOrder
	base     int
	hasBase  bool
}

// NewStrOffsetsTable builds a resolver over .debug_str_offsets and
// .debug_str. When a unit carries no DW_AT_str_offsets_base, the table
// falls back to a base immediately past the DWARF5 header (8 for 32-bit
// DWARF, 16 for 64-bit DWARF) only if the section is shaped like a single
// DWARF5 header followed by one contribution; SPEC_FULL.md's supplemented
// "debug_str_offsets base fallback" feature documents this heuristic.
func NewStrOffsetsTable(debugStrOffsets, debugStr []byte, offSize int, order binary.ByteOrder, base int, hasBase bool) *StrOffsetsTable {
	t := &StrOffsetsTable{offsets: debugStrOffsets, debugStr: debugStr, offSize: offSize, order: order, base: base, hasBase: hasBase}
	if !t.hasBase && looksLikeDWARF5StrOffsetsHeader(debugStrOffsets, offSize, order) {
		t.base = offSize * 2 // unit_length + version + padding, in offSize units
		t.hasBase = true
	}
	return t
}

// looksLikeDWARF5StrOffsetsHeader reports whether the section begins
// with a plausible DWARF5 str_offsets header: a unit_length matching
// (section size - initial length field), followed by version 5 and a
// two-byte padding field of zero.
func looksLikeDWARF5StrOffsetsHeader(data []byte, offSize int, order binary.ByteOrder) bool {
	if offSize == 4 {
		if len(data) < 8 {
			return false
		}
		length := order.Uint32(data[0:4])
		version := order.Uint16(data[4:6])
		padding := order.Uint16(data[6:8])
		return uint64(length) == uint64(len(data)-4) && version == 5 && padding == 0
	}
	if len(data) < 16 {
		return false
	}
	length := order.Uint64(data[4:12])
	version := order.Uint16(data[12:14])
	padding := order.Uint16(data[14:16])
	return length == uint64(len(data)-12) && version == 5 && padding == 0
}

// StrAt resolves index (from a DW_FORM_strx* value) to the NUL-terminated
// string it names in .debug_str. When the unit carries no
// DW_AT_str_offsets_base (and the DWARF5-header fallback heuristic did
// not kick in either), this is not an error: it reports available ==
// false, per SPEC_FULL.md section 9's soft-fail decision for a missing
// base.
func (t *StrOffsetsTable) StrAt(index uint64) (s string, available bool, err error) {
	if !t.hasBase {
		return "", false, nil
	}
	entryOff := t.base + int(index)*t.offSize
	if entryOff < 0 || entryOff+t.offSize > len(t.offsets) {
		return "", false, errs.New(errs.AddrIndexOutOfRange, "dwarf: string index %d out of range of .debug_str_offsets", index)
	}
	var strOff uint64
	switch t.offSize {
	case 4:
		strOff = uint64(t.order.Uint32(t.offsets[entryOff:]))
	case 8:
		strOff = t.order.Uint64(t.offsets[entryOff:])
	default:
		return "", false, errs.New(errs.OffsetSize, "dwarf: unsupported offset size %d in .debug_str_offsets", t.offSize)
	}
	str, err := cStringAt(t.debugStr, int(strOff))
	if err != nil {
		return "", false, err
	}
	return str, true, nil
}

// cStringAt reads a NUL-terminated string at byte offset off within data,
// used for both .debug_str and .debug_line_str lookups (DW_FORM_strp and
// DW_FORM_line_strp share this exact shape).
func cStringAt(data []byte, off int) (string, error) {
	if off < 0 || off > len(data) {
		return "", errs.New(errs.SectionStringOffsetBad, "dwarf: string offset %#x beyond section of size %#x", off, len(data))
	}
	end := off
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end >= len(data) {
		return "", errs.New(errs.SectionStringOffsetBad, "dwarf: unterminated string at offset %#x", off)
	}
	return string(data[off:end]), nil
}
