package dwarf

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

// LocListEntry is one [start, end) address range and the location
// expression active across it, the reader-library equivalent of the
// teacher's loclist type — which additionally carried a live coprocessor
// reference (loclistSection.coproc) and an operator interpreter, because
// the teacher ultimately needed to evaluate expressions against running
// register values. This package stops at the decoded expression bytes;
// evaluating a DW_OP_* expression against a concrete register file is the
// caller's concern, grounded in dwarf/op.go's opcode table.
type LocListEntry struct {
	Start uint64
	End   uint64
	Expr  []byte

	// DefaultEntry is true for a DWARF5 DW_LLE_default_location entry,
	// which has no address range and applies whenever no other entry in
	// the list matches.
	DefaultEntry bool
}

// maxAddressSentinel is the base-address-selection marker value for a
// loclist/rnglist entry of addressSize bytes, per DWARF4 section
// 2.6.2: "the largest representable address offset".
func maxAddressSentinel(addressSize int) uint64 {
	if addressSize == 4 {
		return 0xffffffff
	}
	return 0xffffffffffffffff
}

// ParseLocList2to4 decodes a DWARF2-4 .debug_loc location list starting
// at byte offset off, following the (start, end, expr) triples terminated
// by a (0, 0) end-of-list entry, grounded directly on the teacher's
// newLoclist. baseAddress is the compile unit's base address (normally
// its DW_AT_low_pc), used until a base-address-selection entry overrides
// it.
func ParseLocList2to4(debugLoc []byte, off int, order binary.ByteOrder, addressSize int, baseAddress uint64) ([]LocListEntry, error) {
	c := newCursorAt(debugLoc, off, order)
	sentinel := maxAddressSentinel(addressSize)
	base := baseAddress

	var entries []LocListEntry
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
		exprLen, err := c.readU16()
		if err != nil {
			return nil, err
		}
		expr, err := c.readBytes(int(exprLen))
		if err != nil {
			return nil, err
		}
		entries = append(entries, LocListEntry{Start: base + start, End: base + end, Expr: expr})
	}
	return entries, nil
}

// DWARF5 .debug_loclists entry kinds (DW_LLE_*).
const (
	lleEndOfList       = 0x00
	lleBaseAddressx    = 0x01
	lleStartxEndx      = 0x02
	lleStartxLength    = 0x03
	lleOffsetPair      = 0x04
	lleDefaultLocation = 0x05
	lleBaseAddress     = 0x06
	lleStartEnd        = 0x07
	lleStartLength     = 0x08
)

// ParseLocList5 decodes a DWARF5 .debug_loclists location list starting
// at byte offset off, per DWARF5 section 7.7.3. addrTable resolves the
// addrx-indexed forms (lleBaseAddressx, lleStartxEndx, lleStartxLength)
// against the unit's .debug_addr base; it may be nil if the list is known
// not to use any indexed entry kinds, in which case those kinds return
// MissingBase.
func ParseLocList5(debugLoclists []byte, off int, order binary.ByteOrder, addressSize int, baseAddress uint64, addrTable *AddrTable) ([]LocListEntry, error) {
	c := newCursorAt(debugLoclists, off, order)
	base := baseAddress

	var entries []LocListEntry
	for {
		kind, err := c.readU8()
		if err != nil {
			return nil, err
		}
		switch kind {
		case lleEndOfList:
			return entries, nil

		case lleBaseAddressx:
			idx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			if addrTable == nil {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_LLE_base_addressx with no address table")
			}
			resolved, available, err := addrTable.AddrAt(idx)
			if err != nil {
				return nil, err
			}
			if !available {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_LLE_base_addressx on a unit with no DW_AT_addr_base")
			}
			base = resolved

		case lleStartxEndx:
			startIdx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			endIdx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			expr, err := readLocListExpr(c)
			if err != nil {
				return nil, err
			}
			if addrTable == nil {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_LLE_startx_endx with no address table")
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
				return nil, errs.New(errs.MissingBase, "dwarf: DW_LLE_startx_endx on a unit with no DW_AT_addr_base")
			}
			entries = append(entries, LocListEntry{Start: start, End: end, Expr: expr})

		case lleStartxLength:
			startIdx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			length, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			expr, err := readLocListExpr(c)
			if err != nil {
				return nil, err
			}
			if addrTable == nil {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_LLE_startx_length with no address table")
			}
			start, available, err := addrTable.AddrAt(startIdx)
			if err != nil {
				return nil, err
			}
			if !available {
				return nil, errs.New(errs.MissingBase, "dwarf: DW_LLE_startx_length on a unit with no DW_AT_addr_base")
			}
			entries = append(entries, LocListEntry{Start: start, End: start + length, Expr: expr})

		case lleOffsetPair:
			startOff, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			endOff, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			expr, err := readLocListExpr(c)
			if err != nil {
				return nil, err
			}
			entries = append(entries, LocListEntry{Start: base + startOff, End: base + endOff, Expr: expr})

		case lleDefaultLocation:
			expr, err := readLocListExpr(c)
			if err != nil {
				return nil, err
			}
			entries = append(entries, LocListEntry{Expr: expr, DefaultEntry: true})

		case lleBaseAddress:
			addr, err := c.readAddr(addressSize)
			if err != nil {
				return nil, err
			}
			base = addr

		case lleStartEnd:
			start, err := c.readAddr(addressSize)
			if err != nil {
				return nil, err
			}
			end, err := c.readAddr(addressSize)
			if err != nil {
				return nil, err
			}
			expr, err := readLocListExpr(c)
			if err != nil {
				return nil, err
			}
			entries = append(entries, LocListEntry{Start: start, End: end, Expr: expr})

		case lleStartLength:
			start, err := c.readAddr(addressSize)
			if err != nil {
				return nil, err
			}
			length, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			expr, err := readLocListExpr(c)
			if err != nil {
				return nil, err
			}
			entries = append(entries, LocListEntry{Start: start, End: start + length, Expr: expr})

		default:
			return nil, errs.New(errs.UnknownOpcode, "dwarf: unknown DW_LLE kind %#x", kind)
		}
	}
}

func readLocListExpr(c *cursor) ([]byte, error) {
	n, err := c.readULEB()
	if err != nil {
		return nil, err
	}
	return c.readBytes(int(n))
}
