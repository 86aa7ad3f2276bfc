package dwarf

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

// This file hosts the session-level cross-section queries: everything
// that needs more than one resolved section at once (a unit's bases plus
// .debug_addr, a DW_AT_stmt_list offset plus .debug_line/.debug_str) to
// turn a decoded attribute value into the thing it actually names. The
// section-local decoders (line.go, loclist.go, rnglist.go, addr.go, ...)
// stay ignorant of Session on purpose, the way the teacher keeps its
// section-shaped types (frameSectionCIE, dwarf_loclist_operations' table)
// ignorant of Source.

// addrTableForUnit builds an AddrTable over the session's .debug_addr
// using u's own DW_AT_addr_base, so that DW_FORM_addrx* values on DIEs in
// u resolve correctly even when the session's tied companion carries a
// different .debug_addr (split-DWARF units only ever index their own
// skeleton's base into the base session's section, per DWARF5 section
// 7.27).
func (s *Session) addrTableForUnit(u *unit) *AddrTable {
	return NewAddrTable(s.debugAddr, u.addrSize, s.order, u.addrBase, u.hasAddrBase)
}

func (s *Session) strOffsetsTableForUnit(u *unit) *StrOffsetsTable {
	return NewStrOffsetsTable(s.debugStrOffsets, s.debugStr, u.offsetSize, s.order, u.strOffsetsBase, u.hasStrOffsetsBase)
}

// ResolveAddr resolves an attribute value decoded with Class ==
// ClassAddress to the address it names: direct (FormAddr) values are
// already resolved at decode time, and indexed (addrx*) values are
// looked up against u's .debug_addr base. Per spec.md section 4.10 and
// scenario S2, when that lookup fails or is unavailable in this session's
// .debug_addr (for example because the section lives only in the split
// object), the lookup falls through to the attached tied session's
// .debug_addr, still using u's base; if u has no DW_AT_addr_base at all,
// both lookups are unavailable and a MissingBase error results — split-compile
// units and their skeletons are required to agree on addr_base when both
// are present, so this is exact for the common case of a skeleton
// delegating entirely to its split unit, and only approximate for the
// rarer case of the two disagreeing on base while both resolve
// successfully.
func (s *Session) ResolveAddr(u *unit, v Value) (uint64, error) {
	if !v.Indexed {
		return v.Addr, nil
	}
	if addr, available, err := s.addrTableForUnit(u).AddrAt(v.U); err == nil && available {
		return addr, nil
	}
	if s.tied != nil {
		if addr, available, err := s.tied.addrTableForUnit(u).AddrAt(v.U); err == nil && available {
			return addr, nil
		}
	}
	return 0, errs.New(errs.MissingBase, "dwarf: addrx index %d on a unit with no usable DW_AT_addr_base", v.U)
}

// ResolveString resolves an attribute value of Class == ClassString to
// its text, dispatching on form: DW_FORM_string decoded inline already;
// DW_FORM_strp/line_strp point directly into .debug_str/.debug_line_str;
// the strx family index into .debug_str_offsets against u's
// DW_AT_str_offsets_base, falling through to the tied session exactly as
// ResolveAddr does (spec.md section 4.10, scenario S2).
func (s *Session) ResolveString(u *unit, form Form, v Value) (string, error) {
	if v.Str != "" || (!v.Indexed && form == FormString) {
		return v.Str, nil
	}
	switch form {
	case FormLineStrp:
		return cStringAt(s.debugLineStr, int(v.U))
	case FormStrp, FormStrpSup, FormGNUStrpAlt:
		return cStringAt(s.debugStr, int(v.U))
	case FormStrx, FormStrx1, FormStrx2, FormStrx3, FormStrx4, FormGNUStrIndex:
		if str, available, err := s.strOffsetsTableForUnit(u).StrAt(v.U); err == nil && available {
			return str, nil
		}
		if s.tied != nil {
			if str, available, err := s.tied.strOffsetsTableForUnit(u).StrAt(v.U); err == nil && available {
				return str, nil
			}
		}
		return "", errs.New(errs.MissingBase, "dwarf: strx index %d on a unit with no usable DW_AT_str_offsets_base", v.U)
	default:
		return v.Str, nil
	}
}

// lineStringResolverFor builds the lineStringResolver line.go's header
// decoder calls to resolve an offset-form file name, closing over u so
// that any strx index in a DWARF5 file table resolves against u's own
// base.
func (s *Session) lineStringResolverFor(u *unit) lineStringResolver {
	return func(form Form, val Value) (string, error) {
		return s.ResolveString(u, form, val)
	}
}

// LineProgram decodes and runs the line number program named by root's
// DW_AT_stmt_list attribute, the library's realization of spec.md
// component 4.7. root must be u's compile/partial/skeleton unit root DIE
// (the only place DW_AT_stmt_list is legal).
func (s *Session) LineProgram(u *unit, root *Entry) (*LineProgram, error) {
	v, ok := root.Val(AttrStmtList)
	if !ok {
		return nil, errs.New(errs.InvalidHandle, "dwarf: unit at %#x has no DW_AT_stmt_list", u.offset)
	}
	if len(s.debugLine) == 0 {
		return nil, errs.New(errs.InvalidHandle, "dwarf: .debug_line not present")
	}
	return parseAndRunLineProgram(s.debugLine, int(v.U), s.order, s.lineStringResolverFor(u))
}

// unitBaseAddress resolves the DW_AT_low_pc-style base address loc/range
// list entries that use the offset-pair/base-address conventions start
// from, per DWARF5 sections 2.17.3/2.17.2. low_pc is itself sometimes an
// indexed (addrx) form in a DWARF5 unit built with .debug_addr, so this
// goes through ResolveAddr rather than reading Value.Addr directly.
func (s *Session) unitBaseAddress(u *unit, root *Entry) uint64 {
	v, ok := root.Val(AttrLowpc)
	if !ok {
		return 0
	}
	addr, err := s.ResolveAddr(u, v)
	if err != nil {
		return 0
	}
	return addr
}

// LocationList resolves an attribute value of Class == ClassLocList or
// ClassLocListPtr (DW_AT_location/frame_base/... on a DIE in unit u, with
// root its unit's root entry for DW_AT_low_pc) to its decoded entries,
// dispatching on the unit's DWARF version per spec.md component 4.9: pre-
// DWARF5 units read sec_offset values out of .debug_loc; DWARF5 units
// read either a sec_offset (loclistptr) or a loclistx index (resolved
// against DW_AT_loclists_base first) out of .debug_loclists.
func (s *Session) LocationList(u *unit, root *Entry, v Value) ([]LocListEntry, error) {
	base := s.unitBaseAddress(u, root)
	if u.version < 5 {
		if len(s.debugLoc) == 0 {
			return nil, errs.New(errs.InvalidHandle, "dwarf: .debug_loc not present")
		}
		return ParseLocList2to4(s.debugLoc, int(v.U), s.order, u.addrSize, base)
	}
	if len(s.debugLoclists) == 0 {
		return nil, errs.New(errs.InvalidHandle, "dwarf: .debug_loclists not present")
	}
	off := int(v.U)
	if v.Class == ClassLocList {
		resolved, err := resolveListIndex(s.debugLoclists, u.loclistsBase, u.hasLoclistsBase, u.offsetSize, s.order, v.U)
		if err != nil {
			return nil, err
		}
		off = resolved
	}
	return ParseLocList5(s.debugLoclists, off, s.order, u.addrSize, base, s.addrTableForUnit(u))
}

// Ranges is LocationList's DW_AT_ranges analogue (spec.md component 4.9),
// dispatching between .debug_ranges and .debug_rnglists the same way.
func (s *Session) Ranges(u *unit, root *Entry, v Value) ([]RangeEntry, error) {
	base := s.unitBaseAddress(u, root)
	if u.version < 5 {
		if len(s.debugRanges) == 0 {
			return nil, errs.New(errs.InvalidHandle, "dwarf: .debug_ranges not present")
		}
		return ParseRanges2to4(s.debugRanges, int(v.U), s.order, u.addrSize, base)
	}
	if len(s.debugRnglists) == 0 {
		return nil, errs.New(errs.InvalidHandle, "dwarf: .debug_rnglists not present")
	}
	off := int(v.U)
	if v.Class == ClassRngList {
		resolved, err := resolveListIndex(s.debugRnglists, u.rnglistsBase, u.hasRnglistsBase, u.offsetSize, s.order, v.U)
		if err != nil {
			return nil, err
		}
		off = resolved
	}
	return ParseRnglist5(s.debugRnglists, off, s.order, u.addrSize, base, s.addrTableForUnit(u))
}

// resolveListIndex resolves a DW_FORM_loclistx/rnglistx index to a byte
// offset within its section, by reading the offsetSize-wide entry at
// base+index*offsetSize from the section's offset array (DWARF5 sections
// 7.29/7.28: the array immediately follows the section header, and each
// entry is itself an offset relative to the first byte past the header,
// i.e. relative to base).
func resolveListIndex(data []byte, base int, hasBase bool, offsetSize int, order binary.ByteOrder, index uint64) (int, error) {
	if !hasBase {
		return 0, errs.New(errs.MissingBase, "dwarf: loclistx/rnglistx index %d on a unit with no base", index)
	}
	entryOff := base + int(index)*offsetSize
	if entryOff < 0 || entryOff+offsetSize > len(data) {
		return 0, errs.New(errs.AddrIndexOutOfRange, "dwarf: loclistx/rnglistx index %d out of range", index)
	}
	switch offsetSize {
	case 4:
		return base + int(order.Uint32(data[entryOff:])), nil
	case 8:
		return base + int(order.Uint64(data[entryOff:])), nil
	default:
		return 0, errs.New(errs.OffsetSize, "dwarf: unsupported offset size %d", offsetSize)
	}
}

// Aranges decodes the session's .debug_aranges accelerator index
// (spec.md section 2's "address range tables", SPEC_FULL.md section 7's
// supplemented accelerator surfacing).
func (s *Session) Aranges() ([]ArangesEntry, error) {
	if len(s.debugAranges) == 0 {
		return nil, errs.New(errs.InvalidHandle, "dwarf: .debug_aranges not present")
	}
	return ParseAranges(s.debugAranges, s.order)
}

// Pubnames decodes the session's .debug_pubnames accelerator index.
func (s *Session) Pubnames() ([]PubEntry, error) {
	if len(s.debugPubnames) == 0 {
		return nil, errs.New(errs.InvalidHandle, "dwarf: .debug_pubnames not present")
	}
	return ParsePubTable(s.debugPubnames, s.order)
}

// Pubtypes decodes the session's .debug_pubtypes accelerator index.
func (s *Session) Pubtypes() ([]PubEntry, error) {
	if len(s.debugPubtypes) == 0 {
		return nil, errs.New(errs.InvalidHandle, "dwarf: .debug_pubtypes not present")
	}
	return ParsePubTable(s.debugPubtypes, s.order)
}

// Macinfo decodes a DWARF2-4 .debug_macinfo macro unit starting at byte
// offset off (named by a DW_AT_macro_info attribute).
func (s *Session) Macinfo(off int) ([]MacroEntry, error) {
	if len(s.debugMacinfo) == 0 {
		return nil, errs.New(errs.InvalidHandle, "dwarf: .debug_macinfo not present")
	}
	return ParseMacinfo(s.debugMacinfo, off)
}

// Macro decodes a DWARF5 .debug_macro macro unit starting at byte offset
// off (named by a DW_AT_macros attribute).
func (s *Session) Macro(off int) ([]MacroEntry, error) {
	if len(s.debugMacro) == 0 {
		return nil, errs.New(errs.InvalidHandle, "dwarf: .debug_macro not present")
	}
	return ParseMacro5(s.debugMacro, off, s.order)
}
