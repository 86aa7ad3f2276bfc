package dwarf

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

// RangeEntry is one [start, end) address range contributed by a
// DW_AT_ranges attribute.
type RangeEntry struct {
	Start uint64
	End   uint64
}

// ParseRanges2to4 decodes a DWARF2-4 .debug_ranges range list starting at
// byte offset off: (start, end) pairs terminated by (0, 0), with the
// same base-address-selection sentinel convention as .debug_loc.
func ParseRanges2to4(debugRanges []byte, off int, order binary.ByteOrder, addressSize int, baseAddress uint64) ([]RangeEntry, error) {
	c := newCursorAt(debugRanges, off, order)
	sentinel := maxAddressSentinel(addressSize)
	base := baseAddress

	var entries []RangeEntry
	for {
		start, err := c.readAddr(addressSize)
		if err != nil {
			return nil, err
		}
		end, err := c.readAddr(addressSize)
		if err != nil {
			return nil, err
		}
		if start == 0 && end == 0 {
			break
		}
		if start == sentinel {
			base = end
			continue
		}
		entries = append(entries, RangeEntry{Start: base + start, End: base + end})
	}
	return entries, nil
}

// DWARF5 .debug_rnglists entry kinds (DW_RLE_*), structurally identical
// in shape to .debug_loclists' DW_LLE_* kinds minus the trailing
// expression each loclist entry carries.
const (
	rleEndOfList    = 0x00
	rleBaseAddressx = 0x01
	rleStartxEndx   = 0x02
	rleStartxLength = 0x03
	rleOffsetPair   = 0x04
	rleBaseAddress  = 0x05
	rleStartEnd     = 0x06
	rleStartLength  = 0x07
)

// ParseRnglist5 decodes a DWARF5 .debug_rnglists range list per DWARF5
// section 7.7.3 (ranges variant).
func ParseRnglist5(debugRnglists []byte, off int, order binary.ByteOrder, addressSize int, baseAddress uint64, addrTable *AddrTable) ([]RangeEntry, error) {
	c := newCursorAt(debugRnglists, off, order)
	base := baseAddress

	var entries []RangeEntry
	for {
		kind, err := c.readU8()
		if err != nil {
			return nil, err
		}
		switch kind {
		case rleEndOfList:
			return entries, nil

		case rleBaseAddressx:
			idx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			if addrTable == nil {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_RLE_base_addressx with no address table")
			}
			resolved, available, err := addrTable.AddrAt(idx)
			if err != nil {
				return nil, err
			}
			if !available {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_RLE_base_addressx on a unit with no DW_AT_addr_base")
			}
			base = resolved

		case rleStartxEndx:
			startIdx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			endIdx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			if addrTable == nil {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_RLE_startx_endx with no address table")
			}
			start, startAvail, err := addrTable.AddrAt(startIdx)
			if err != nil {
				return nil, err
			}
			end, endAvail, err := addrTable.AddrAt(endIdx)
			if err != nil {
				return nil, err
			}
			if !startAvail || !endAvail {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_RLE_startx_endx on a unit with no DW_AT_addr_base")
			}
			entries = append(entries, RangeEntry{Start: start, End: end})

		case rleStartxLength:
			startIdx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			length, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			if addrTable == nil {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_RLE_startx_length with no address table")
			}
			start, available, err := addrTable.AddrAt(startIdx)
			if err != nil {
				return nil, err
			}
			if !available {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_RLE_startx_length on a unit with no DW_AT_addr_base")
			}
			entries = append(entries, RangeEntry{Start: start, End: start + length})

		case rleOffsetPair:
			startOff, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			endOff, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			entries = append(entries, RangeEntry{Start: base + startOff, End: base + endOff})

		case rleBaseAddress:
			addr, err := c.readAddr(addressSize)
			if err != nil {
				return nil, err
			}
			base = addr

		case rleStartEnd:
			start, err := c.readAddr(addressSize)
			if err != nil {
				return nil, err
			}
			end, err := c.readAddr(addressSize)
			if err != nil {
				return nil, err
			}
			entries = append(entries, RangeEntry{Start: start, End: end})

		case rleStartLength:
			start, err := c.readAddr(addressSize)
			if err != nil {
				return nil, err
			}
			length, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			entries = append(entries, RangeEntry{Start: start, End: start + length})

		default:
			return nil, errs.New(errs.UnknownOpcode, "dwarf: unknown DW_RLE kind %#x", kind)
		}
	}
}
